package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitactivity/internal/models"
	"github.com/mmynk/splitactivity/internal/storage"
)

// expenseSelect joins every expense with its payer.
const expenseSelect = `
	SELECT e.id, e.name, e.amount, e.currency, e.paid_by, e.split_type, e.expense_date, e.created_at,
	       u.id, u.email, u.display_name, u.password_hash, u.created_at, u.updated_at
	FROM expenses e
	JOIN users u ON u.id = e.paid_by`

// CreateExpense persists a new expense and its participations in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense, participations []models.ExpenseParticipation) error {
	// Generate IDs if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	if expense.ExpenseDate.IsZero() {
		expense.ExpenseDate = time.Unix(expense.CreatedAt, 0)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, name, amount, currency, paid_by, split_type, expense_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.Name, expense.Amount.String(), expense.Currency, expense.PaidBy,
		string(expense.SplitType), expense.ExpenseDate.UnixMilli(), expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i := range participations {
		p := &participations[i]
		p.ExpenseID = expense.ID

		var amount any
		if p.Amount != nil {
			amount = p.Amount.String()
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_participants (expense_id, user_id, amount) VALUES (?, ?, ?)",
			p.ExpenseID, p.UserID, amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant %s: %w", p.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetExpense retrieves an expense by ID with its payer joined.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx, expenseSelect+` WHERE e.id = ?`, expenseID)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// ListParticipationsByUser retrieves every participation of a user with
// the expense and payer joined.
func (s *SQLiteStore) ListParticipationsByUser(ctx context.Context, userID string) ([]models.ExpenseParticipation, error) {
	return s.listParticipations(ctx, `p.user_id = ?`, userID)
}

// ListParticipationsByExpense retrieves all participations of one expense.
func (s *SQLiteStore) ListParticipationsByExpense(ctx context.Context, expenseID string) ([]models.ExpenseParticipation, error) {
	return s.listParticipations(ctx, `p.expense_id = ?`, expenseID)
}

func (s *SQLiteStore) listParticipations(ctx context.Context, where string, arg any) ([]models.ExpenseParticipation, error) {
	query := `
	SELECT p.user_id, p.amount,
	       e.id, e.name, e.amount, e.currency, e.paid_by, e.split_type, e.expense_date, e.created_at,
	       u.id, u.email, u.display_name, u.password_hash, u.created_at, u.updated_at
	FROM expense_participants p
	JOIN expenses e ON e.id = p.expense_id
	JOIN users u ON u.id = e.paid_by
	WHERE ` + where

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}
	defer rows.Close()

	var participations []models.ExpenseParticipation
	for rows.Next() {
		var (
			userID string
			amount decimal.NullDecimal
			e      expenseRow
		)
		dest := append([]any{&userID, &amount}, e.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}

		expense, err := e.toModel()
		if err != nil {
			return nil, err
		}
		p := models.ExpenseParticipation{
			ExpenseID: expense.ID,
			UserID:    userID,
			Expense:   expense,
		}
		if amount.Valid {
			a := amount.Decimal
			p.Amount = &a
		}
		participations = append(participations, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participations: %w", err)
	}

	return participations, nil
}

// expenseRow holds the scanned columns of expenseSelect.
type expenseRow struct {
	expense     models.Expense
	amount      string
	splitType   string
	expenseDate int64
	payer       models.User
}

func (r *expenseRow) dest() []any {
	return []any{
		&r.expense.ID, &r.expense.Name, &r.amount, &r.expense.Currency, &r.expense.PaidBy,
		&r.splitType, &r.expenseDate, &r.expense.CreatedAt,
		&r.payer.ID, &r.payer.Email, &r.payer.Name, &r.payer.PasswordHash, &r.payer.CreatedAt, &r.payer.UpdatedAt,
	}
}

func (r *expenseRow) toModel() (*models.Expense, error) {
	amount, err := decimal.NewFromString(r.amount)
	if err != nil {
		return nil, fmt.Errorf("expense %s: invalid stored amount %q: %w", r.expense.ID, r.amount, err)
	}
	expense := r.expense
	expense.Amount = amount
	expense.SplitType = models.SplitType(r.splitType)
	expense.ExpenseDate = time.UnixMilli(r.expenseDate).UTC()
	payer := r.payer
	expense.PaidByUser = &payer
	return &expense, nil
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var r expenseRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.toModel()
}
