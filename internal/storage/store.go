// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitactivity/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for expense and user storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateUser persists a new user. The email must be unique.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID returns ErrNotFound if no user has the ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail returns ErrNotFound if no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUsersByIDs returns the users that exist, keyed by ID.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// CreateExpense persists an expense and all of its participations in
	// one transaction. expense.ID and CreatedAt are populated by the store.
	CreateExpense(ctx context.Context, expense *models.Expense, participations []models.ExpenseParticipation) error

	// CreateSettlement records a transfer from one user to another as a
	// SETTLEMENT expense between exactly those two users.
	CreateSettlement(ctx context.Context, fromUserID, toUserID string, amount decimal.Decimal, currency string, at time.Time) (*models.Expense, error)

	// GetExpense retrieves an expense with its payer joined.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListParticipationsByUser returns every participation of the user with
	// the expense and its payer joined. No ordering is guaranteed.
	ListParticipationsByUser(ctx context.Context, userID string) ([]models.ExpenseParticipation, error)

	// ListParticipationsByExpense returns all participations of one expense.
	ListParticipationsByExpense(ctx context.Context, expenseID string) ([]models.ExpenseParticipation, error)

	// Close releases any resources held by the store.
	Close() error
}
