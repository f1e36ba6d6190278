package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitactivity/internal/auth"
	"github.com/mmynk/splitactivity/internal/metrics"
	"github.com/mmynk/splitactivity/internal/middleware"
	"github.com/mmynk/splitactivity/internal/storage/sqlite"
	"github.com/mmynk/splitactivity/pkg/api"
	"github.com/mmynk/splitactivity/pkg/api/apiconnect"
)

type testEnv struct {
	activity apiconnect.ActivityServiceClient
	auth     apiconnect.AuthServiceClient
	registry *prometheus.Registry
}

// setupTestServer starts both services behind the real auth interceptors,
// backed by a SQLite database in a temp dir.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store, bcrypt.MinCost)

	activityPath, activityHandler := apiconnect.NewActivityServiceHandler(
		NewActivityService(store, logger, m),
		connect.WithInterceptors(middleware.LoggingInterceptor(logger, m), middleware.RequireAuth(jwtManager)),
	)
	authPath, authHandler := apiconnect.NewAuthServiceHandler(
		NewAuthService(authenticator, jwtManager, store, logger),
		connect.WithInterceptors(middleware.LoggingInterceptor(logger, m), middleware.OptionalAuth(jwtManager)),
	)

	mux := http.NewServeMux()
	mux.Handle(activityPath, activityHandler)
	mux.Handle(authPath, authHandler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testEnv{
		activity: apiconnect.NewActivityServiceClient(http.DefaultClient, server.URL),
		auth:     apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL),
		registry: registry,
	}
}

type testUser struct {
	id    string
	token string
}

func (e *testEnv) register(t *testing.T, email, name string) testUser {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:    email,
		Name:     name,
		Password: "password123",
	}))
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return testUser{id: resp.Msg.User.ID, token: resp.Msg.Token}
}

// as builds a request carrying the user's bearer token.
func as[T any](u testUser, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+u.token)
	return req
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("code = %v, want %v (err: %v)", got, want, err)
	}
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 12, 0, 0, 0, time.UTC)
}

func mustCreateExpense(t *testing.T, env *testEnv, u testUser, req *api.CreateExpenseRequest) *api.CreateExpenseResponse {
	t.Helper()
	resp, err := env.activity.CreateExpense(context.Background(), as(u, req))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	return resp.Msg
}

func dinner(alice, bob testUser) *api.CreateExpenseRequest {
	return &api.CreateExpenseRequest{
		Name:        "Dinner",
		Amount:      decimal.NewFromInt(100),
		Currency:    "usd",
		PaidBy:      alice.id,
		SplitType:   "EQUAL",
		ExpenseDate: day(1),
		Participants: []*api.ParticipantShare{
			{UserID: alice.id},
			{UserID: bob.id},
		},
	}
}

func TestGetActivity_PayerAndParticipantViews(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "Alice")
	bob := env.register(t, "bob@example.com", "")

	created := mustCreateExpense(t, env, alice, dinner(alice, bob))
	if created.ExpenseID == "" {
		t.Fatal("expected expense ID")
	}
	for _, a := range created.Allocations {
		if !a.Amount.Equal(decimal.NewFromInt(50)) {
			t.Errorf("allocation for %s = %s, want 50", a.UserID, a.Amount)
		}
	}

	if _, err := env.activity.RecordSettlement(ctx, as(bob, &api.RecordSettlementRequest{
		ToUserID: alice.id,
		Amount:   decimal.NewFromInt(50),
		Currency: "USD",
		Date:     day(2),
	})); err != nil {
		t.Fatalf("RecordSettlement failed: %v", err)
	}

	type row struct {
		name, direction, message, paidBy string
		settlement                       bool
	}
	tests := []struct {
		viewer testUser
		want   []row
	}{
		{alice, []row{
			{"Settlement", "RECEIVED", "You received USD 50.00", "bob@example.com", true},
			{"Dinner", "PAID", "You paid USD 50.00", "You", false},
		}},
		{bob, []row{
			{"Settlement", "PAID", "You paid USD 50.00", "You", true},
			{"Dinner", "OWES", "You owe USD 50.00", "Alice", false},
		}},
	}

	for _, tt := range tests {
		resp, err := env.activity.GetActivity(ctx, as(tt.viewer, &api.GetActivityRequest{}))
		if err != nil {
			t.Fatalf("GetActivity failed: %v", err)
		}
		if resp.Msg.Skipped != 0 {
			t.Errorf("skipped = %d, want 0", resp.Msg.Skipped)
		}
		if len(resp.Msg.Entries) != len(tt.want) {
			t.Fatalf("got %d entries, want %d", len(resp.Msg.Entries), len(tt.want))
		}
		for i, want := range tt.want {
			got := resp.Msg.Entries[i]
			if got.ExpenseName != want.name || got.Direction != want.direction ||
				got.Message != want.message || got.PaidByName != want.paidBy ||
				got.Settlement != want.settlement {
				t.Errorf("entry %d = %+v, want %+v", i, got, want)
			}
		}
	}

	n, err := testutil.GatherAndCount(env.registry, "splitactivity_statements_total")
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if n != 3 {
		t.Errorf("statement series = %d, want 3 (PAID, RECEIVED, OWES)", n)
	}
}

func TestGetActivity_RequiresToken(t *testing.T) {
	env := setupTestServer(t)

	_, err := env.activity.GetActivity(context.Background(), connect.NewRequest(&api.GetActivityRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)

	req := connect.NewRequest(&api.GetActivityRequest{})
	req.Header().Set("Authorization", "Bearer not-a-token")
	_, err = env.activity.GetActivity(context.Background(), req)
	assertCode(t, err, connect.CodeUnauthenticated)
}

func TestGetActivity_EmptyFeed(t *testing.T) {
	env := setupTestServer(t)
	carol := env.register(t, "carol@example.com", "Carol")

	resp, err := env.activity.GetActivity(context.Background(), as(carol, &api.GetActivityRequest{}))
	if err != nil {
		t.Fatalf("GetActivity failed: %v", err)
	}
	if len(resp.Msg.Entries) != 0 {
		t.Errorf("expected empty feed, got %d entries", len(resp.Msg.Entries))
	}
}

func TestCreateExpense_Errors(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice@example.com", "Alice")
	bob := env.register(t, "bob@example.com", "Bob")
	carol := env.register(t, "carol@example.com", "Carol")

	tests := []struct {
		name   string
		caller testUser
		modify func(*api.CreateExpenseRequest)
		want   connect.Code
	}{
		{"missing name", alice, func(r *api.CreateExpenseRequest) { r.Name = " " }, connect.CodeInvalidArgument},
		{"missing currency", alice, func(r *api.CreateExpenseRequest) { r.Currency = "" }, connect.CodeInvalidArgument},
		{"unknown split type", alice, func(r *api.CreateExpenseRequest) { r.SplitType = "HALVES" }, connect.CodeInvalidArgument},
		{"negative amount", alice, func(r *api.CreateExpenseRequest) { r.Amount = decimal.NewFromInt(-1) }, connect.CodeInvalidArgument},
		{"sub-cent amount", alice, func(r *api.CreateExpenseRequest) { r.Amount = decimal.RequireFromString("10.005") }, connect.CodeInvalidArgument},
		{"no participants", alice, func(r *api.CreateExpenseRequest) { r.Participants = nil }, connect.CodeInvalidArgument},
		{"percentages off", alice, func(r *api.CreateExpenseRequest) {
			r.SplitType = "PERCENTAGE"
			r.Participants[0].Value = decimal.NewFromInt(60)
			r.Participants[1].Value = decimal.NewFromInt(60)
		}, connect.CodeInvalidArgument},
		{"unknown participant", alice, func(r *api.CreateExpenseRequest) {
			r.Participants = append(r.Participants, &api.ParticipantShare{UserID: "ghost"})
		}, connect.CodeInvalidArgument},
		{"outsider", carol, func(r *api.CreateExpenseRequest) {}, connect.CodePermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := dinner(alice, bob)
			tt.modify(req)
			_, err := env.activity.CreateExpense(context.Background(), as(tt.caller, req))
			assertCode(t, err, tt.want)
		})
	}
}

func TestCreateExpense_PayerOutsideParticipants(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice@example.com", "Alice")
	bob := env.register(t, "bob@example.com", "Bob")

	// Alice pays for Bob's ticket only.
	req := &api.CreateExpenseRequest{
		Name:         "Ticket",
		Amount:       decimal.RequireFromString("30.00"),
		Currency:     "EUR",
		SplitType:    "EXACT",
		ExpenseDate:  day(3),
		Participants: []*api.ParticipantShare{{UserID: bob.id, Value: decimal.RequireFromString("30.00")}},
	}
	created := mustCreateExpense(t, env, alice, req)
	if len(created.Allocations) != 2 {
		t.Fatalf("expected payer allocation to be added, got %d allocations", len(created.Allocations))
	}

	resp, err := env.activity.GetActivity(context.Background(), as(alice, &api.GetActivityRequest{}))
	if err != nil {
		t.Fatalf("GetActivity failed: %v", err)
	}
	if got := resp.Msg.Entries[0].Message; got != "You paid EUR 30.00" {
		t.Errorf("message = %q, want %q", got, "You paid EUR 30.00")
	}
}

func TestRecordSettlement_Errors(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice@example.com", "Alice")
	bob := env.register(t, "bob@example.com", "Bob")

	tests := []struct {
		name string
		req  *api.RecordSettlementRequest
		want connect.Code
	}{
		{"to self", &api.RecordSettlementRequest{ToUserID: alice.id, Amount: decimal.NewFromInt(5), Currency: "USD"}, connect.CodeInvalidArgument},
		{"zero amount", &api.RecordSettlementRequest{ToUserID: bob.id, Currency: "USD"}, connect.CodeInvalidArgument},
		{"sub-cent", &api.RecordSettlementRequest{ToUserID: bob.id, Amount: decimal.RequireFromString("0.001"), Currency: "USD"}, connect.CodeInvalidArgument},
		{"no currency", &api.RecordSettlementRequest{ToUserID: bob.id, Amount: decimal.NewFromInt(5)}, connect.CodeInvalidArgument},
		{"unknown user", &api.RecordSettlementRequest{ToUserID: "ghost", Amount: decimal.NewFromInt(5), Currency: "USD"}, connect.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.activity.RecordSettlement(context.Background(), as(alice, tt.req))
			assertCode(t, err, tt.want)
		})
	}
}

func TestGetBalances(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "Alice")
	bob := env.register(t, "bob@example.com", "Bob")

	mustCreateExpense(t, env, alice, dinner(alice, bob))

	resp, err := env.activity.GetBalances(ctx, as(bob, &api.GetBalancesRequest{}))
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if resp.Msg.Currency != "USD" {
		t.Errorf("currency = %q, want USD", resp.Msg.Currency)
	}
	if len(resp.Msg.Debts) != 1 {
		t.Fatalf("expected 1 debt, got %d", len(resp.Msg.Debts))
	}
	debt := resp.Msg.Debts[0]
	if debt.From != bob.id || debt.To != alice.id || !debt.Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("debt = %+v, want bob -> alice 50", debt)
	}

	if _, err := env.activity.RecordSettlement(ctx, as(bob, &api.RecordSettlementRequest{
		ToUserID: alice.id,
		Amount:   decimal.NewFromInt(50),
		Currency: "USD",
		Date:     day(2),
	})); err != nil {
		t.Fatalf("RecordSettlement failed: %v", err)
	}

	resp, err = env.activity.GetBalances(ctx, as(alice, &api.GetBalancesRequest{Currency: "usd"}))
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if len(resp.Msg.Debts) != 0 {
		t.Errorf("expected no debts after settling, got %+v", resp.Msg.Debts)
	}
	for _, b := range resp.Msg.Balances {
		if !b.NetBalance.IsZero() {
			t.Errorf("balance for %s = %s, want 0", b.UserID, b.NetBalance)
		}
	}

	// A currency with no expenses has nothing to net.
	resp, err = env.activity.GetBalances(ctx, as(alice, &api.GetBalancesRequest{Currency: "JPY"}))
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if len(resp.Msg.Balances) != 0 || len(resp.Msg.Debts) != 0 {
		t.Errorf("expected empty JPY balances, got %+v", resp.Msg)
	}
}
