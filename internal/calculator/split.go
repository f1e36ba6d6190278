package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitactivity/internal/models"
)

// MinorUnitPlaces is the number of decimal places allocations are rounded to.
const MinorUnitPlaces int32 = 2

var (
	ErrNoParticipants    = errors.New("must have at least one participant")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
	ErrTooPrecise        = errors.New("amount has more decimal places than the currency minor unit")
	ErrInvalidShares     = errors.New("invalid shares for split type")
	ErrInvalidSettlement = errors.New("settlement must be between the payer and exactly one receiver")
	ErrUnknownSplitType  = errors.New("unknown split type")
)

var hundred = decimal.NewFromInt(100)

// ShareInput is one participant's input to a split.
// Value means a percentage for PERCENTAGE, a weight for SHARE and the
// exact amount for EXACT. It is ignored for EQUAL and SETTLEMENT.
type ShareInput struct {
	UserID string
	Value  decimal.Decimal
}

// Allocation is one participant's computed share of an expense.
type Allocation struct {
	UserID string
	Amount decimal.Decimal
}

// Allocate divides total among the participants according to splitType.
//
// For every split type except SETTLEMENT the allocations sum exactly to
// total: amounts are truncated to minor units and the leftover cents are
// handed out one at a time in input order. The payer always receives an
// allocation, zero when they are not among the participants, so that every
// party to the expense has a participation record.
func Allocate(splitType models.SplitType, total decimal.Decimal, payerID string, shares []ShareInput) ([]Allocation, error) {
	if total.IsNegative() {
		return nil, ErrNegativeAmount
	}
	if !total.Equal(total.Truncate(MinorUnitPlaces)) {
		return nil, ErrTooPrecise
	}
	if len(shares) == 0 {
		return nil, ErrNoParticipants
	}
	if err := checkUnique(shares); err != nil {
		return nil, err
	}

	var (
		allocs []Allocation
		err    error
	)
	switch splitType {
	case models.SplitTypeEqual:
		weights := make([]decimal.Decimal, len(shares))
		for i := range weights {
			weights[i] = decimal.NewFromInt(1)
		}
		allocs = distribute(total, shares, weights)
	case models.SplitTypePercentage:
		allocs, err = allocatePercentage(total, shares)
	case models.SplitTypeShare:
		allocs, err = allocateShares(total, shares)
	case models.SplitTypeExact:
		allocs, err = allocateExact(total, shares)
	case models.SplitTypeSettlement:
		return allocateSettlement(total, payerID, shares)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSplitType, splitType)
	}
	if err != nil {
		return nil, err
	}

	return withPayer(allocs, payerID), nil
}

func allocatePercentage(total decimal.Decimal, shares []ShareInput) ([]Allocation, error) {
	weights := make([]decimal.Decimal, len(shares))
	sum := decimal.Zero
	for i, s := range shares {
		if s.Value.IsNegative() {
			return nil, fmt.Errorf("%w: negative percentage for %s", ErrInvalidShares, s.UserID)
		}
		weights[i] = s.Value
		sum = sum.Add(s.Value)
	}
	if !sum.Equal(hundred) {
		return nil, fmt.Errorf("%w: percentages sum to %s, want 100", ErrInvalidShares, sum)
	}
	return distribute(total, shares, weights), nil
}

func allocateShares(total decimal.Decimal, shares []ShareInput) ([]Allocation, error) {
	weights := make([]decimal.Decimal, len(shares))
	sum := decimal.Zero
	for i, s := range shares {
		if s.Value.IsNegative() {
			return nil, fmt.Errorf("%w: negative share for %s", ErrInvalidShares, s.UserID)
		}
		weights[i] = s.Value
		sum = sum.Add(s.Value)
	}
	if !sum.IsPositive() {
		return nil, fmt.Errorf("%w: shares must sum to a positive number", ErrInvalidShares)
	}
	return distribute(total, shares, weights), nil
}

func allocateExact(total decimal.Decimal, shares []ShareInput) ([]Allocation, error) {
	allocs := make([]Allocation, len(shares))
	sum := decimal.Zero
	for i, s := range shares {
		if s.Value.IsNegative() {
			return nil, fmt.Errorf("%w: negative amount for %s", ErrInvalidShares, s.UserID)
		}
		if !s.Value.Equal(s.Value.Truncate(MinorUnitPlaces)) {
			return nil, fmt.Errorf("%w: %s", ErrTooPrecise, s.Value)
		}
		allocs[i] = Allocation{UserID: s.UserID, Amount: s.Value}
		sum = sum.Add(s.Value)
	}
	if !sum.Equal(total) {
		return nil, fmt.Errorf("%w: exact amounts sum to %s, want %s", ErrInvalidShares, sum, total)
	}
	return allocs, nil
}

// allocateSettlement accepts the receiver alone or the payer plus the
// receiver. The payer is allocated zero and the receiver the full amount.
func allocateSettlement(total decimal.Decimal, payerID string, shares []ShareInput) ([]Allocation, error) {
	if payerID == "" {
		return nil, ErrInvalidSettlement
	}
	var receivers []string
	for _, s := range shares {
		if s.UserID != payerID {
			receivers = append(receivers, s.UserID)
		}
	}
	if len(receivers) != 1 {
		return nil, ErrInvalidSettlement
	}
	return []Allocation{
		{UserID: payerID, Amount: decimal.Zero},
		{UserID: receivers[0], Amount: total},
	}, nil
}

// distribute splits total proportionally to weights. Each share is
// truncated to minor units; the remaining cents go to participants in
// input order so the result sums to total.
func distribute(total decimal.Decimal, shares []ShareInput, weights []decimal.Decimal) []Allocation {
	sumWeights := decimal.Sum(decimal.Zero, weights...)
	allocs := make([]Allocation, len(shares))
	allocated := decimal.Zero
	for i, s := range shares {
		q, _ := total.Mul(weights[i]).QuoRem(sumWeights, MinorUnitPlaces)
		allocs[i] = Allocation{UserID: s.UserID, Amount: q}
		allocated = allocated.Add(q)
	}

	cent := decimal.New(1, -MinorUnitPlaces)
	remainder := total.Sub(allocated)
	for i := 0; remainder.IsPositive(); i = (i + 1) % len(allocs) {
		// Zero-weight participants never pick up leftover cents.
		if weights[i].IsZero() {
			continue
		}
		allocs[i].Amount = allocs[i].Amount.Add(cent)
		remainder = remainder.Sub(cent)
	}
	return allocs
}

func withPayer(allocs []Allocation, payerID string) []Allocation {
	if payerID == "" {
		return allocs
	}
	for _, a := range allocs {
		if a.UserID == payerID {
			return allocs
		}
	}
	return append(allocs, Allocation{UserID: payerID, Amount: decimal.Zero})
}

func checkUnique(shares []ShareInput) error {
	seen := make(map[string]bool, len(shares))
	for _, s := range shares {
		if s.UserID == "" {
			return fmt.Errorf("%w: participant id required", ErrInvalidShares)
		}
		if seen[s.UserID] {
			return fmt.Errorf("%w: duplicate participant %s", ErrInvalidShares, s.UserID)
		}
		seen[s.UserID] = true
	}
	return nil
}
