package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitactivity/internal/models"
)

func shares(ids ...string) []ShareInput {
	out := make([]ShareInput, len(ids))
	for i, id := range ids {
		out[i] = ShareInput{UserID: id}
	}
	return out
}

func weighted(pairs ...any) []ShareInput {
	var out []ShareInput
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, ShareInput{UserID: pairs[i].(string), Value: dec(pairs[i+1].(string))})
	}
	return out
}

func amounts(allocs []Allocation) map[string]string {
	m := make(map[string]string, len(allocs))
	for _, a := range allocs {
		m[a.UserID] = a.Amount.StringFixed(2)
	}
	return m
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name      string
		splitType models.SplitType
		total     string
		payer     string
		shares    []ShareInput
		want      map[string]string
	}{
		{
			name:      "equal split between two",
			splitType: models.SplitTypeEqual,
			total:     "100",
			payer:     "Alice",
			shares:    shares("Alice", "Bob"),
			want:      map[string]string{"Alice": "50.00", "Bob": "50.00"},
		},
		{
			name:      "equal split hands leftover cents out in order",
			splitType: models.SplitTypeEqual,
			total:     "100",
			payer:     "Alice",
			shares:    shares("Alice", "Bob", "Charlie"),
			want:      map[string]string{"Alice": "33.34", "Bob": "33.33", "Charlie": "33.33"},
		},
		{
			name:      "equal split two leftover cents",
			splitType: models.SplitTypeEqual,
			total:     "0.05",
			payer:     "Alice",
			shares:    shares("Alice", "Bob", "Charlie"),
			want:      map[string]string{"Alice": "0.02", "Bob": "0.02", "Charlie": "0.01"},
		},
		{
			name:      "payer outside the split gets a zero allocation",
			splitType: models.SplitTypeEqual,
			total:     "30",
			payer:     "Alice",
			shares:    shares("Bob", "Charlie"),
			want:      map[string]string{"Alice": "0.00", "Bob": "15.00", "Charlie": "15.00"},
		},
		{
			name:      "percentage split",
			splitType: models.SplitTypePercentage,
			total:     "200",
			payer:     "Bob",
			shares:    weighted("Alice", "25", "Bob", "75"),
			want:      map[string]string{"Alice": "50.00", "Bob": "150.00"},
		},
		{
			name:      "percentage split with fractional percentages",
			splitType: models.SplitTypePercentage,
			total:     "10",
			payer:     "Alice",
			shares:    weighted("Alice", "33.333", "Bob", "33.333", "Charlie", "33.334"),
			want:      map[string]string{"Alice": "3.34", "Bob": "3.33", "Charlie": "3.33"},
		},
		{
			name:      "share split by weight",
			splitType: models.SplitTypeShare,
			total:     "90",
			payer:     "Alice",
			shares:    weighted("Alice", "1", "Bob", "2"),
			want:      map[string]string{"Alice": "30.00", "Bob": "60.00"},
		},
		{
			name:      "share split zero weight gets nothing",
			splitType: models.SplitTypeShare,
			total:     "10",
			payer:     "Alice",
			shares:    weighted("Alice", "0", "Bob", "3"),
			want:      map[string]string{"Alice": "0.00", "Bob": "10.00"},
		},
		{
			name:      "exact split",
			splitType: models.SplitTypeExact,
			total:     "42.50",
			payer:     "Alice",
			shares:    weighted("Alice", "12.50", "Bob", "30"),
			want:      map[string]string{"Alice": "12.50", "Bob": "30.00"},
		},
		{
			name:      "settlement from payer to receiver",
			splitType: models.SplitTypeSettlement,
			total:     "50",
			payer:     "Alice",
			shares:    shares("Alice", "Bob"),
			want:      map[string]string{"Alice": "0.00", "Bob": "50.00"},
		},
		{
			name:      "settlement naming only the receiver",
			splitType: models.SplitTypeSettlement,
			total:     "50",
			payer:     "Alice",
			shares:    shares("Bob"),
			want:      map[string]string{"Alice": "0.00", "Bob": "50.00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocs, err := Allocate(tt.splitType, dec(tt.total), tt.payer, tt.shares)
			if err != nil {
				t.Fatalf("Allocate() error = %v", err)
			}

			got := amounts(allocs)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d allocations %v, want %v", len(got), got, tt.want)
			}
			for id, want := range tt.want {
				if got[id] != want {
					t.Errorf("%s = %s, want %s", id, got[id], want)
				}
			}

			if tt.splitType != models.SplitTypeSettlement {
				sum := decimal.Zero
				for _, a := range allocs {
					sum = sum.Add(a.Amount)
				}
				if !sum.Equal(dec(tt.total)) {
					t.Errorf("allocations sum to %s, want %s", sum, tt.total)
				}
			}
		})
	}
}

func TestAllocate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		splitType models.SplitType
		total     string
		payer     string
		shares    []ShareInput
		wantErr   error
	}{
		{"negative total", models.SplitTypeEqual, "-1", "Alice", shares("Alice"), ErrNegativeAmount},
		{"sub-cent total", models.SplitTypeEqual, "1.005", "Alice", shares("Alice"), ErrTooPrecise},
		{"no participants", models.SplitTypeEqual, "10", "Alice", nil, ErrNoParticipants},
		{"duplicate participant", models.SplitTypeEqual, "10", "Alice", shares("Alice", "Alice"), ErrInvalidShares},
		{"empty participant id", models.SplitTypeEqual, "10", "Alice", shares(""), ErrInvalidShares},
		{"percentages not 100", models.SplitTypePercentage, "10", "Alice", weighted("Alice", "50", "Bob", "40"), ErrInvalidShares},
		{"negative percentage", models.SplitTypePercentage, "10", "Alice", weighted("Alice", "110", "Bob", "-10"), ErrInvalidShares},
		{"zero shares", models.SplitTypeShare, "10", "Alice", weighted("Alice", "0", "Bob", "0"), ErrInvalidShares},
		{"exact sum mismatch", models.SplitTypeExact, "10", "Alice", weighted("Alice", "5", "Bob", "4.99"), ErrInvalidShares},
		{"exact sub-cent amount", models.SplitTypeExact, "10", "Alice", weighted("Alice", "5.005", "Bob", "4.995"), ErrTooPrecise},
		{"settlement with two receivers", models.SplitTypeSettlement, "10", "Alice", shares("Bob", "Charlie"), ErrInvalidSettlement},
		{"settlement to self", models.SplitTypeSettlement, "10", "Alice", shares("Alice"), ErrInvalidSettlement},
		{"settlement without payer", models.SplitTypeSettlement, "10", "", shares("Bob"), ErrInvalidSettlement},
		{"unknown split type", models.SplitType("ITEMIZED"), "10", "Alice", shares("Alice"), ErrUnknownSplitType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Allocate(tt.splitType, dec(tt.total), tt.payer, tt.shares)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Allocate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
