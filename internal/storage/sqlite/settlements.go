package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitactivity/internal/models"
)

// CreateSettlement records a direct transfer from one user to another as a
// SETTLEMENT expense with exactly two participants: the sender with a zero
// allocation and the receiver with the full amount.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, fromUserID, toUserID string, amount decimal.Decimal, currency string, at time.Time) (*models.Expense, error) {
	if fromUserID == "" || toUserID == "" || fromUserID == toUserID {
		return nil, fmt.Errorf("settlement needs two distinct users, got %q and %q", fromUserID, toUserID)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("settlement amount cannot be negative: %s", amount)
	}

	expense := &models.Expense{
		Name:        "Settlement",
		Amount:      amount,
		Currency:    currency,
		PaidBy:      fromUserID,
		SplitType:   models.SplitTypeSettlement,
		ExpenseDate: at,
	}
	zero := decimal.Zero
	full := amount
	participations := []models.ExpenseParticipation{
		{UserID: fromUserID, Amount: &zero},
		{UserID: toUserID, Amount: &full},
	}

	if err := s.CreateExpense(ctx, expense, participations); err != nil {
		return nil, fmt.Errorf("failed to insert settlement: %w", err)
	}
	return expense, nil
}
