package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitactivity/internal/calculator"
	"github.com/mmynk/splitactivity/internal/metrics"
	"github.com/mmynk/splitactivity/internal/middleware"
	"github.com/mmynk/splitactivity/internal/models"
	"github.com/mmynk/splitactivity/internal/storage"
	"github.com/mmynk/splitactivity/pkg/api"
	"github.com/mmynk/splitactivity/pkg/api/apiconnect"
)

var _ apiconnect.ActivityServiceHandler = (*ActivityService)(nil)

// ActivityService implements the Connect ActivityService.
type ActivityService struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewActivityService creates an ActivityService. m may be nil.
func NewActivityService(store storage.Store, logger *slog.Logger, m *metrics.Metrics) *ActivityService {
	return &ActivityService{store: store, logger: logger, metrics: m}
}

// LoadFeed loads a user and builds their activity feed.
func LoadFeed(ctx context.Context, store storage.Store, userID string) (*models.User, calculator.Feed, error) {
	viewer, err := store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, calculator.Feed{}, err
	}
	participations, err := store.ListParticipationsByUser(ctx, userID)
	if err != nil {
		return nil, calculator.Feed{}, err
	}
	return viewer, calculator.BuildFeed(viewer, participations), nil
}

// failureReason buckets an evaluation error for the failure counter.
func failureReason(err error) string {
	switch {
	case errors.Is(err, calculator.ErrInvalidExpense):
		return "invalid_expense"
	case errors.Is(err, calculator.ErrInvalidParticipant):
		return "invalid_participant"
	default:
		return "other"
	}
}

// GetActivity returns the caller's activity feed, most recent first.
func (s *ActivityService) GetActivity(ctx context.Context, req *connect.Request[api.GetActivityRequest]) (*connect.Response[api.GetActivityResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	_, feed, err := LoadFeed(ctx, s.store, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("user not found"))
		}
		s.logger.Error("Failed to load activity", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to load activity: %w", err))
	}

	for _, f := range feed.Failures {
		s.logger.Warn("Skipping activity record", "user_id", userID, "expense_id", f.ExpenseID, "error", f.Err)
		s.metrics.ObserveFeedFailure(failureReason(f.Err))
	}

	entries := make([]*api.ActivityEntry, len(feed.Entries))
	for i, e := range feed.Entries {
		s.metrics.ObserveStatement(e.Statement.Direction.String())
		entries[i] = &api.ActivityEntry{
			ExpenseID:    e.Statement.ExpenseID,
			ExpenseName:  e.ExpenseName,
			ExpenseDate:  e.ExpenseDate,
			PaidByName:   e.PaidByName,
			PaidByViewer: e.PaidByViewer,
			Settlement:   e.Statement.Settlement,
			Direction:    e.Statement.Direction.String(),
			Currency:     e.Statement.Currency,
			Amount:       e.Statement.Amount,
			Message:      e.Statement.Text(),
		}
	}

	s.logger.Debug("Activity built", "user_id", userID, "entries", len(entries), "skipped", len(feed.Failures))
	return connect.NewResponse(&api.GetActivityResponse{
		Entries: entries,
		Skipped: int32(len(feed.Failures)),
	}), nil
}

// CreateExpense splits a new expense among its participants and stores it.
func (s *ActivityService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	callerID := middleware.GetUserID(ctx)
	if callerID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	msg := req.Msg
	name := strings.TrimSpace(msg.Name)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("name is required"))
	}
	currency := strings.ToUpper(strings.TrimSpace(msg.Currency))
	if currency == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("currency is required"))
	}
	splitType, err := models.ParseSplitType(msg.SplitType)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	payerID := msg.PaidBy
	if payerID == "" {
		payerID = callerID
	}

	shares := make([]calculator.ShareInput, 0, len(msg.Participants))
	for _, p := range msg.Participants {
		if p == nil || p.UserID == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("participant user_id is required"))
		}
		shares = append(shares, calculator.ShareInput{UserID: p.UserID, Value: p.Value})
	}

	allocations, err := calculator.Allocate(splitType, msg.Amount, payerID, shares)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	ids := make([]string, len(allocations))
	involved := false
	for i, a := range allocations {
		ids[i] = a.UserID
		if a.UserID == callerID {
			involved = true
		}
	}
	if !involved {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("caller must be the payer or a participant"))
	}

	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to look up participants", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown user %q", id))
		}
	}

	date := msg.ExpenseDate
	if date.IsZero() {
		date = time.Now()
	}
	expense := &models.Expense{
		Name:        name,
		Amount:      msg.Amount,
		Currency:    currency,
		PaidBy:      payerID,
		SplitType:   splitType,
		ExpenseDate: date.UTC(),
	}
	participations := make([]models.ExpenseParticipation, len(allocations))
	for i, a := range allocations {
		amount := a.Amount
		participations[i] = models.ExpenseParticipation{UserID: a.UserID, Amount: &amount}
	}

	if err := s.store.CreateExpense(ctx, expense, participations); err != nil {
		s.logger.Error("Failed to save expense", "error", err)
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to save expense: %w", err))
	}

	resp := &api.CreateExpenseResponse{ExpenseID: expense.ID}
	for _, a := range allocations {
		resp.Allocations = append(resp.Allocations, &api.Allocation{UserID: a.UserID, Amount: a.Amount})
	}

	s.logger.Info("Expense created",
		"expense_id", expense.ID,
		"split_type", splitType,
		"participants", len(allocations),
		"created_by", callerID,
	)
	return connect.NewResponse(resp), nil
}

// RecordSettlement records a payment from the caller to another user.
func (s *ActivityService) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	callerID := middleware.GetUserID(ctx)
	if callerID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	msg := req.Msg
	if msg.ToUserID == "" || msg.ToUserID == callerID {
		return nil, connect.NewError(connect.CodeInvalidArgument, calculator.ErrInvalidSettlement)
	}
	if !msg.Amount.IsPositive() {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("amount must be positive"))
	}
	if !msg.Amount.Equal(msg.Amount.Truncate(calculator.MinorUnitPlaces)) {
		return nil, connect.NewError(connect.CodeInvalidArgument, calculator.ErrTooPrecise)
	}
	currency := strings.ToUpper(strings.TrimSpace(msg.Currency))
	if currency == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("currency is required"))
	}

	if _, err := s.store.GetUserByID(ctx, msg.ToUserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("user %q not found", msg.ToUserID))
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	date := msg.Date
	if date.IsZero() {
		date = time.Now()
	}
	expense, err := s.store.CreateSettlement(ctx, callerID, msg.ToUserID, msg.Amount, currency, date.UTC())
	if err != nil {
		s.logger.Error("Failed to record settlement", "from", callerID, "to", msg.ToUserID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Settlement recorded",
		"expense_id", expense.ID,
		"from", callerID,
		"to", msg.ToUserID,
		"amount", msg.Amount.StringFixed(calculator.MinorUnitPlaces),
		"currency", currency,
	)
	return connect.NewResponse(&api.RecordSettlementResponse{ExpenseID: expense.ID}), nil
}

// GetBalances nets every expense the caller takes part in, in one currency.
// When no currency is given the caller's most recent expense decides it.
func (s *ActivityService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	callerID := middleware.GetUserID(ctx)
	if callerID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	participations, err := s.store.ListParticipationsByUser(ctx, callerID)
	if err != nil {
		s.logger.Error("Failed to list participations", "user_id", callerID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	participations = calculator.SortParticipations(participations)

	currency := strings.ToUpper(strings.TrimSpace(req.Msg.Currency))
	if currency == "" && len(participations) > 0 && participations[0].Expense != nil {
		currency = participations[0].Expense.Currency
	}
	resp := &api.GetBalancesResponse{Currency: currency}
	if currency == "" {
		return connect.NewResponse(resp), nil
	}

	expenses := make([]calculator.ExpenseForBalance, 0, len(participations))
	for _, p := range participations {
		if p.Expense == nil || p.Expense.Currency != currency {
			continue
		}
		all, err := s.store.ListParticipationsByExpense(ctx, p.ExpenseID)
		if err != nil {
			s.logger.Error("Failed to list expense participants", "expense_id", p.ExpenseID, "error", err)
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		expenses = append(expenses, calculator.ExpenseForBalance{
			Expense:     p.Expense,
			Allocations: allocationsOf(all),
		})
	}

	balances, debts, err := calculator.CalculateBalances(currency, expenses)
	if err != nil {
		s.logger.Error("Failed to calculate balances", "user_id", callerID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	for _, b := range balances {
		resp.Balances = append(resp.Balances, &api.MemberBalance{
			UserID:     b.UserID,
			NetBalance: b.NetBalance,
			TotalPaid:  b.TotalPaid,
			TotalOwed:  b.TotalOwed,
		})
	}
	for _, d := range debts {
		resp.Debts = append(resp.Debts, &api.DebtEdge{From: d.From, To: d.To, Amount: d.Amount})
	}
	return connect.NewResponse(resp), nil
}

// allocationsOf converts stored participations; a missing amount counts as zero.
func allocationsOf(participations []models.ExpenseParticipation) []calculator.Allocation {
	allocs := make([]calculator.Allocation, len(participations))
	for i, p := range participations {
		amount := decimal.Zero
		if p.Amount != nil {
			amount = *p.Amount
		}
		allocs[i] = calculator.Allocation{UserID: p.UserID, Amount: amount}
	}
	return allocs
}
