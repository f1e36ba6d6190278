package calculator

import (
	"errors"
	"testing"

	"github.com/mmynk/splitactivity/internal/models"
)

func expenseForBalance(t *testing.T, id string, splitType models.SplitType, total, payer, currency string, in []ShareInput) ExpenseForBalance {
	t.Helper()
	allocs, err := Allocate(splitType, dec(total), payer, in)
	if err != nil {
		t.Fatalf("Allocate(%s) error = %v", id, err)
	}
	return ExpenseForBalance{
		Expense:     &models.Expense{ID: id, Amount: dec(total), Currency: currency, PaidBy: payer, SplitType: splitType},
		Allocations: allocs,
	}
}

func TestCalculateBalances(t *testing.T) {
	expenses := []ExpenseForBalance{
		// Alice pays 90 for three: Bob and Charlie owe her 30 each.
		expenseForBalance(t, "dinner", models.SplitTypeEqual, "90", "Alice", "USD", shares("Alice", "Bob", "Charlie")),
		// Bob pays 30 for himself and Charlie.
		expenseForBalance(t, "taxi", models.SplitTypeEqual, "30", "Bob", "USD", shares("Bob", "Charlie")),
		// Charlie settles 20 with Alice.
		expenseForBalance(t, "settle", models.SplitTypeSettlement, "20", "Charlie", "USD", shares("Alice")),
		// A different currency is ignored.
		expenseForBalance(t, "museum", models.SplitTypeEqual, "40", "Charlie", "EUR", shares("Alice", "Charlie")),
	}

	balances, debts, err := CalculateBalances("USD", expenses)
	if err != nil {
		t.Fatalf("CalculateBalances() error = %v", err)
	}

	// Alice: paid 90, owes 30 + received 20 => +40
	// Bob: paid 30, owes 30 + 15 => -15
	// Charlie: paid 20, owes 30 + 15 => -25
	wantNet := map[string]string{"Alice": "40", "Bob": "-15", "Charlie": "-25"}
	if len(balances) != len(wantNet) {
		t.Fatalf("expected %d balances, got %d", len(wantNet), len(balances))
	}
	for i, id := range []string{"Alice", "Bob", "Charlie"} {
		if balances[i].UserID != id {
			t.Errorf("balance %d: user = %s, want %s", i, balances[i].UserID, id)
		}
		if !balances[i].NetBalance.Equal(dec(wantNet[id])) {
			t.Errorf("%s net = %s, want %s", id, balances[i].NetBalance, wantNet[id])
		}
	}

	if len(debts) != 2 {
		t.Fatalf("expected 2 debt edges, got %d: %+v", len(debts), debts)
	}
	if debts[0].From != "Bob" || debts[0].To != "Alice" || !debts[0].Amount.Equal(dec("15")) {
		t.Errorf("debt 0 = %+v, want Bob->Alice 15", debts[0])
	}
	if debts[1].From != "Charlie" || debts[1].To != "Alice" || !debts[1].Amount.Equal(dec("25")) {
		t.Errorf("debt 1 = %+v, want Charlie->Alice 25", debts[1])
	}
	for _, d := range debts {
		if d.Currency != "USD" {
			t.Errorf("debt currency = %s, want USD", d.Currency)
		}
	}
}

func TestCalculateBalances_MatchesEvaluator(t *testing.T) {
	e := expenseForBalance(t, "rent", models.SplitTypeShare, "1000", "Alice", "USD", weighted("Alice", "2", "Bob", "1", "Charlie", "1"))

	balances, _, err := CalculateBalances("USD", []ExpenseForBalance{e})
	if err != nil {
		t.Fatalf("CalculateBalances() error = %v", err)
	}

	for _, b := range balances {
		var alloc Allocation
		for _, a := range e.Allocations {
			if a.UserID == b.UserID {
				alloc = a
			}
		}
		stmt, err := Evaluate(&models.User{ID: b.UserID}, e.Expense, &alloc.Amount, false)
		if err != nil {
			t.Fatalf("Evaluate(%s) error = %v", b.UserID, err)
		}
		if !stmt.Signed().Equal(b.NetBalance) {
			t.Errorf("%s: evaluator says %s, balances say %s", b.UserID, stmt.Signed(), b.NetBalance)
		}
	}
}

func TestCalculateBalances_Errors(t *testing.T) {
	unbalanced := ExpenseForBalance{
		Expense: &models.Expense{ID: "x", Amount: dec("10"), Currency: "USD", PaidBy: "Alice", SplitType: models.SplitTypeExact},
		Allocations: []Allocation{
			{UserID: "Alice", Amount: dec("5")},
			{UserID: "Bob", Amount: dec("4")},
		},
	}
	if _, _, err := CalculateBalances("USD", []ExpenseForBalance{unbalanced}); !errors.Is(err, ErrInvalidParticipant) {
		t.Errorf("unbalanced error = %v, want ErrInvalidParticipant", err)
	}

	badSettlement := ExpenseForBalance{
		Expense:     &models.Expense{ID: "s", Amount: dec("10"), Currency: "USD", PaidBy: "Alice", SplitType: models.SplitTypeSettlement},
		Allocations: []Allocation{{UserID: "Alice", Amount: dec("0")}},
	}
	if _, _, err := CalculateBalances("USD", []ExpenseForBalance{badSettlement}); !errors.Is(err, ErrInvalidSettlement) {
		t.Errorf("settlement error = %v, want ErrInvalidSettlement", err)
	}

	negative := ExpenseForBalance{
		Expense: &models.Expense{ID: "n", Amount: dec("-10"), Currency: "USD", PaidBy: "Alice"},
	}
	if _, _, err := CalculateBalances("USD", []ExpenseForBalance{negative}); !errors.Is(err, ErrInvalidExpense) {
		t.Errorf("negative error = %v, want ErrInvalidExpense", err)
	}
}
