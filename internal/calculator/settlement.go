package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitactivity/internal/models"
)

var (
	// ErrInvalidExpense is returned for malformed monetary or currency fields.
	ErrInvalidExpense = errors.New("invalid expense")
	// ErrInvalidParticipant is returned when the viewer's allocation is
	// missing for a shared expense.
	ErrInvalidParticipant = errors.New("invalid participant")
)

// Direction says which way money moves relative to the viewing user.
type Direction int

const (
	DirectionPaid Direction = iota + 1
	DirectionReceived
	DirectionOwes
)

func (d Direction) String() string {
	switch d {
	case DirectionPaid:
		return "PAID"
	case DirectionReceived:
		return "RECEIVED"
	case DirectionOwes:
		return "OWES"
	default:
		return "UNKNOWN"
	}
}

// Statement is one expense seen from one user's perspective.
// Amount is never negative; the sign is carried by Direction.
type Statement struct {
	ExpenseID  string
	Direction  Direction
	Currency   string
	Amount     decimal.Decimal
	Settlement bool
}

// Signed returns the statement's effect on the viewer's net balance.
// Positive means the viewer is owed money, negative means they owe it.
func (s Statement) Signed() decimal.Decimal {
	switch s.Direction {
	case DirectionOwes, DirectionReceived:
		return s.Amount.Neg()
	default:
		return s.Amount
	}
}

// Evaluate computes the viewer's statement for an expense.
//
// For settlements the allocation is ignored and may be nil: the payer
// sees PAID and everyone else RECEIVED, both for the full amount.
// For shared expenses the payer sees PAID for the total minus their own
// share (what the others owe back) and everyone else OWES their share.
// Only the allocation's magnitude is used; direction comes from comparing
// the viewer to the payer.
func Evaluate(viewer *models.User, expense *models.Expense, allocated *decimal.Decimal, isSettlement bool) (Statement, error) {
	if err := validateExpense(expense); err != nil {
		return Statement{}, err
	}
	if viewer == nil || viewer.ID == "" {
		return Statement{}, fmt.Errorf("%w: expense %s: viewer required", ErrInvalidParticipant, expense.ID)
	}

	stmt := Statement{
		ExpenseID:  expense.ID,
		Currency:   expense.Currency,
		Settlement: isSettlement,
	}
	isPayer := viewer.ID == expense.PaidBy

	if isSettlement {
		stmt.Amount = expense.Amount
		if isPayer {
			stmt.Direction = DirectionPaid
		} else {
			stmt.Direction = DirectionReceived
		}
		return stmt, nil
	}

	if allocated == nil {
		return Statement{}, fmt.Errorf("%w: expense %s: allocation missing for user %s", ErrInvalidParticipant, expense.ID, viewer.ID)
	}
	share := allocated.Abs()

	if isPayer {
		stmt.Direction = DirectionPaid
		stmt.Amount = expense.Amount.Sub(share)
	} else {
		stmt.Direction = DirectionOwes
		stmt.Amount = share
	}

	// A share larger than the total is an upstream inconsistency.
	if stmt.Amount.IsNegative() {
		return Statement{}, fmt.Errorf("%w: expense %s: allocation %s exceeds amount %s",
			ErrInvalidParticipant, expense.ID, share, expense.Amount)
	}
	return stmt, nil
}

// EvaluateParticipation evaluates a stored participation record, taking
// the settlement flag from the joined expense's split type.
func EvaluateParticipation(viewer *models.User, p models.ExpenseParticipation) (Statement, error) {
	if p.Expense == nil {
		return Statement{}, fmt.Errorf("%w: expense %s not loaded", ErrInvalidExpense, p.ExpenseID)
	}
	return Evaluate(viewer, p.Expense, p.Amount, p.Expense.SplitType.IsSettlement())
}

func validateExpense(expense *models.Expense) error {
	if expense == nil {
		return fmt.Errorf("%w: expense required", ErrInvalidExpense)
	}
	if expense.Amount.IsNegative() {
		return fmt.Errorf("%w: expense %s: negative amount %s", ErrInvalidExpense, expense.ID, expense.Amount)
	}
	if expense.Currency == "" {
		return fmt.Errorf("%w: expense %s: currency required", ErrInvalidExpense, expense.ID)
	}
	if expense.PaidBy == "" {
		return fmt.Errorf("%w: expense %s: payer required", ErrInvalidExpense, expense.ID)
	}
	return nil
}
