// Package payout holds the pure arithmetic behind brand payouts: per-line
// commission splits, ledger aggregation and settlement selection. Nothing in
// this package performs I/O or reads the wall clock.
package payout

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidLine = errors.New("invalid sale line")

var (
	hundred = decimal.NewFromInt(100)
	// MaxCommissionRate bounds a commission percentage.
	MaxCommissionRate = hundred
)

// Split is the money breakdown of one sale line in minor units.
// CommissionCents + PayoutCents == GrossCents always holds.
type Split struct {
	GrossCents      int64
	CommissionCents int64
	PayoutCents     int64
}

// ComputeLine splits unitPriceCents*qty into the operator's commission and the
// brand's payout. Commission is rounded half away from zero to a whole minor
// unit and the payout takes the remainder.
func ComputeLine(unitPriceCents int64, qty int, ratePercent decimal.Decimal) (Split, error) {
	if qty <= 0 {
		return Split{}, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidLine, qty)
	}
	if unitPriceCents < 0 {
		return Split{}, fmt.Errorf("%w: unit price must not be negative, got %d", ErrInvalidLine, unitPriceCents)
	}
	if err := ValidateRate(ratePercent); err != nil {
		return Split{}, err
	}

	gross := decimal.NewFromInt(unitPriceCents).Mul(decimal.NewFromInt(int64(qty)))
	if gross.GreaterThan(decimal.NewFromInt(maxGross)) {
		return Split{}, fmt.Errorf("%w: line amount out of range", ErrInvalidLine)
	}
	grossCents := gross.IntPart()

	commissionCents := gross.Mul(ratePercent).Div(hundred).Round(0).IntPart()
	return Split{
		GrossCents:      grossCents,
		CommissionCents: commissionCents,
		PayoutCents:     grossCents - commissionCents,
	}, nil
}

// maxGross keeps line totals well inside int64 so ledger sums cannot overflow.
const maxGross = int64(1) << 53

// ValidateRate checks a commission percentage lies in [0,100] with at most two
// fractional digits.
func ValidateRate(ratePercent decimal.Decimal) error {
	if ratePercent.IsNegative() || ratePercent.GreaterThan(MaxCommissionRate) {
		return fmt.Errorf("%w: commission rate must be within 0-100, got %s", ErrInvalidLine, ratePercent.String())
	}
	if !ratePercent.Equal(ratePercent.Truncate(2)) {
		return fmt.Errorf("%w: commission rate allows at most two decimals, got %s", ErrInvalidLine, ratePercent.String())
	}
	return nil
}

// Add accumulates another split.
func (s Split) Add(other Split) Split {
	return Split{
		GrossCents:      s.GrossCents + other.GrossCents,
		CommissionCents: s.CommissionCents + other.CommissionCents,
		PayoutCents:     s.PayoutCents + other.PayoutCents,
	}
}

// EffectiveRate returns commission/gross as a percentage with two decimals.
// A zero gross yields zero.
func EffectiveRate(grossCents, commissionCents int64) decimal.Decimal {
	if grossCents == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(commissionCents).Mul(hundred).Div(decimal.NewFromInt(grossCents)).Round(2)
}
