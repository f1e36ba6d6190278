package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SplitType is the rule used to divide an expense among its participants.
type SplitType string

const (
	SplitTypeEqual      SplitType = "EQUAL"
	SplitTypePercentage SplitType = "PERCENTAGE"
	SplitTypeShare      SplitType = "SHARE"
	SplitTypeExact      SplitType = "EXACT"
	// SplitTypeSettlement marks a direct transfer between two users
	// rather than a shared purchase.
	SplitTypeSettlement SplitType = "SETTLEMENT"
)

// ParseSplitType converts a case-insensitive name into a SplitType.
func ParseSplitType(s string) (SplitType, error) {
	switch st := SplitType(strings.ToUpper(strings.TrimSpace(s))); st {
	case SplitTypeEqual, SplitTypePercentage, SplitTypeShare, SplitTypeExact, SplitTypeSettlement:
		return st, nil
	default:
		return "", fmt.Errorf("unknown split type %q", s)
	}
}

// IsSettlement reports whether the split type marks a balance transfer.
func (t SplitType) IsSettlement() bool {
	return t == SplitTypeSettlement
}

// Expense is a financial event fronted by one user.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Name is the free-text description (e.g., "Groceries").
	Name string

	// Amount is the total value. Never negative; direction is derived.
	Amount decimal.Decimal

	// Currency is the ISO-style currency code, passed through verbatim.
	Currency string

	// PaidBy is the ID of the user who fronted the money.
	PaidBy string

	// PaidByUser is the user behind PaidBy, denormalized for display.
	// May be nil when the record was loaded without the join.
	PaidByUser *User

	// SplitType is the rule that produced the participants' allocations.
	SplitType SplitType

	// ExpenseDate is when the transaction happened.
	ExpenseDate time.Time

	// CreatedAt is the Unix timestamp when the record was stored.
	CreatedAt int64
}

// ExpenseParticipation links one expense to one participant and carries
// that participant's allocated share.
type ExpenseParticipation struct {
	ExpenseID string
	UserID    string

	// Amount is the participant's allocation. Nil means absent.
	// Upstream may store either sign; only the magnitude is meaningful.
	Amount *decimal.Decimal

	// Expense is the joined expense record.
	Expense *Expense
}
