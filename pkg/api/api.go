// Package api defines the request and response messages of the
// splitactivity.v1 RPC services. Messages travel as JSON; monetary amounts
// are decimal strings and timestamps are RFC 3339.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

type GetActivityRequest struct{}

// ActivityEntry is one line of the viewer's activity feed.
type ActivityEntry struct {
	ExpenseID    string          `json:"expense_id"`
	ExpenseName  string          `json:"expense_name"`
	ExpenseDate  time.Time       `json:"expense_date"`
	PaidByName   string          `json:"paid_by_name"`
	PaidByViewer bool            `json:"paid_by_viewer"`
	Settlement   bool            `json:"settlement"`
	Direction    string          `json:"direction"` // PAID, RECEIVED or OWES
	Currency     string          `json:"currency"`
	Amount       decimal.Decimal `json:"amount"`
	Message      string          `json:"message"`
}

type GetActivityResponse struct {
	Entries []*ActivityEntry `json:"entries"`
	// Skipped is the number of records that could not be evaluated.
	Skipped int32 `json:"skipped,omitempty"`
}

// ParticipantShare is one participant's split input. Value is a
// percentage, weight or exact amount depending on the split type.
type ParticipantShare struct {
	UserID string          `json:"user_id"`
	Value  decimal.Decimal `json:"value"`
}

type CreateExpenseRequest struct {
	Name         string              `json:"name"`
	Amount       decimal.Decimal     `json:"amount"`
	Currency     string              `json:"currency"`
	PaidBy       string              `json:"paid_by"`
	SplitType    string              `json:"split_type"`
	ExpenseDate  time.Time           `json:"expense_date"`
	Participants []*ParticipantShare `json:"participants"`
}

type Allocation struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

type CreateExpenseResponse struct {
	ExpenseID   string        `json:"expense_id"`
	Allocations []*Allocation `json:"allocations"`
}

type RecordSettlementRequest struct {
	ToUserID string          `json:"to_user_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Date     time.Time       `json:"date"`
}

type RecordSettlementResponse struct {
	ExpenseID string `json:"expense_id"`
}

type GetBalancesRequest struct {
	Currency string `json:"currency"`
}

type MemberBalance struct {
	UserID     string          `json:"user_id"`
	NetBalance decimal.Decimal `json:"net_balance"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
	TotalOwed  decimal.Decimal `json:"total_owed"`
}

type DebtEdge struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type GetBalancesResponse struct {
	Currency string           `json:"currency"`
	Balances []*MemberBalance `json:"balances"`
	Debts    []*DebtEdge      `json:"debts"`
}
