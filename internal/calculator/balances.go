package calculator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitactivity/internal/models"
)

// ExpenseForBalance is an expense together with every participant's allocation.
type ExpenseForBalance struct {
	Expense     *models.Expense
	Allocations []Allocation
}

// MemberBalance represents the balance information for one user.
type MemberBalance struct {
	UserID     string
	NetBalance decimal.Decimal // Positive = owed money, Negative = owes money
	TotalPaid  decimal.Decimal // Total fronted, including settlements sent
	TotalOwed  decimal.Decimal // Total share of expenses, including settlements received
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From     string // Person who owes
	To       string // Person who is owed
	Currency string
	Amount   decimal.Decimal
}

// CalculateBalances nets every expense into per-user balances and a
// simplified debt list, one pass per currency.
//
// Algorithm:
//   - Shared expense: payer contributed +amount, each participant owes
//     the magnitude of their allocation
//   - Settlement: payer's balance improves by the amount, receiver's decreases
//   - net_balance = total_paid - total_owed
//   - Debts: greedy matching of debtors with creditors, both in user ID
//     order so the output is deterministic
//
// Balances of different currencies are never mixed; the returned
// MemberBalance slice is for the currency given.
func CalculateBalances(currency string, expenses []ExpenseForBalance) ([]MemberBalance, []DebtEdge, error) {
	balances := make(map[string]*MemberBalance)
	member := func(id string) *MemberBalance {
		if b, ok := balances[id]; ok {
			return b
		}
		b := &MemberBalance{UserID: id}
		balances[id] = b
		return b
	}

	for _, e := range expenses {
		if err := validateExpense(e.Expense); err != nil {
			return nil, nil, err
		}
		if e.Expense.Currency != currency {
			continue
		}

		if e.Expense.SplitType.IsSettlement() {
			receiver, err := settlementReceiver(e)
			if err != nil {
				return nil, nil, err
			}
			member(e.Expense.PaidBy).TotalPaid = member(e.Expense.PaidBy).TotalPaid.Add(e.Expense.Amount)
			member(receiver).TotalOwed = member(receiver).TotalOwed.Add(e.Expense.Amount)
			continue
		}

		sum := decimal.Zero
		for _, a := range e.Allocations {
			share := a.Amount.Abs()
			member(a.UserID).TotalOwed = member(a.UserID).TotalOwed.Add(share)
			sum = sum.Add(share)
		}
		if !sum.Equal(e.Expense.Amount) {
			return nil, nil, fmt.Errorf("%w: expense %s: allocations sum to %s, want %s",
				ErrInvalidParticipant, e.Expense.ID, sum, e.Expense.Amount)
		}
		member(e.Expense.PaidBy).TotalPaid = member(e.Expense.PaidBy).TotalPaid.Add(e.Expense.Amount)
	}

	memberBalances := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		b.NetBalance = b.TotalPaid.Sub(b.TotalOwed)
		memberBalances = append(memberBalances, *b)
	}
	slices.SortFunc(memberBalances, func(a, b MemberBalance) int {
		return strings.Compare(a.UserID, b.UserID)
	})

	// Create lists of creditors (owed money) and debtors (owe money)
	var creditors, debtors []MemberBalance
	for _, b := range memberBalances {
		switch b.NetBalance.Sign() {
		case 1:
			creditors = append(creditors, b)
		case -1:
			debtors = append(debtors, b)
		}
	}

	remainingDebt := make([]decimal.Decimal, len(debtors))
	for i, d := range debtors {
		remainingDebt[i] = d.NetBalance.Neg()
	}
	remainingCredit := make([]decimal.Decimal, len(creditors))
	for j, c := range creditors {
		remainingCredit[j] = c.NetBalance
	}

	// Match debtors with creditors to minimize transactions
	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(remainingDebt[i], remainingCredit[j])
		if amount.IsPositive() {
			edges = append(edges, DebtEdge{
				From:     debtors[i].UserID,
				To:       creditors[j].UserID,
				Currency: currency,
				Amount:   amount,
			})
		}

		remainingDebt[i] = remainingDebt[i].Sub(amount)
		remainingCredit[j] = remainingCredit[j].Sub(amount)

		if remainingDebt[i].IsZero() {
			i++
		}
		if remainingCredit[j].IsZero() {
			j++
		}
	}

	return memberBalances, edges, nil
}

func settlementReceiver(e ExpenseForBalance) (string, error) {
	var receiver string
	for _, a := range e.Allocations {
		if a.UserID == e.Expense.PaidBy {
			continue
		}
		if receiver != "" {
			return "", fmt.Errorf("%w: expense %s", ErrInvalidSettlement, e.Expense.ID)
		}
		receiver = a.UserID
	}
	if receiver == "" {
		return "", fmt.Errorf("%w: expense %s", ErrInvalidSettlement, e.Expense.ID)
	}
	return receiver, nil
}
