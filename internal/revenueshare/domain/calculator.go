package domain

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount = errors.New("negative_total_amount")
	ErrInvalidWeight  = errors.New("invalid_attribution_weight")
	ErrInvalidPercent = errors.New("invalid_provider_commission_percent")
)

var hundred = decimal.NewFromInt(100)

// WeightInput is one attributed provider with its exact fractional weight.
type WeightInput struct {
	ProviderID  string
	Numerator   int64
	Denominator int64
}

// SplitLine is the amounts recorded on one provider's revenue share row.
type SplitLine struct {
	ProviderID    string
	Numerator     int64
	Denominator   int64
	ProviderShare int64
	// AdminSlice is this row's portion of the transaction admin share.
	AdminSlice int64
}

// RowTotal is the gross amount of the row.
func (l SplitLine) RowTotal() int64 { return l.ProviderShare + l.AdminSlice }

type Split struct {
	TotalAmount        int64
	ProviderShareTotal int64
	AdminShare         int64
	Lines              []SplitLine
}

// CalculateSplit divides totalAmount between attributed providers and the
// platform. Each provider share is rounded half-up on its own and the whole
// remainder becomes the admin share, so ProviderShareTotal + AdminShare is
// always exactly totalAmount. If independent rounding would overshoot the
// total, which needs a 100% provider commission, every share is truncated
// instead. The admin share is then apportioned over the rows by weight with
// the largest remainder method so the rows also add up to totalAmount.
func CalculateSplit(totalAmount int64, providerPercent decimal.Decimal, weights []WeightInput) (Split, error) {
	if totalAmount < 0 {
		return Split{}, ErrNegativeAmount
	}
	if providerPercent.IsNegative() || providerPercent.GreaterThan(hundred) {
		return Split{}, ErrInvalidPercent
	}
	for _, w := range weights {
		if w.Numerator < 0 || w.Denominator <= 0 || w.Numerator > w.Denominator {
			return Split{}, ErrInvalidWeight
		}
	}

	total := decimal.NewFromInt(totalAmount)
	lines := make([]SplitLine, len(weights))
	var sum int64
	for i, w := range weights {
		share := roundHalfUp(
			total.Mul(providerPercent).Mul(decimal.NewFromInt(w.Numerator)),
			hundred.Mul(decimal.NewFromInt(w.Denominator)),
		)
		lines[i] = SplitLine{
			ProviderID:    w.ProviderID,
			Numerator:     w.Numerator,
			Denominator:   w.Denominator,
			ProviderShare: share,
		}
		sum += share
	}

	if sum > totalAmount {
		sum = 0
		for i, w := range weights {
			q, _ := total.Mul(providerPercent).Mul(decimal.NewFromInt(w.Numerator)).
				QuoRem(hundred.Mul(decimal.NewFromInt(w.Denominator)), 0)
			lines[i].ProviderShare = q.IntPart()
			sum += lines[i].ProviderShare
		}
	}

	admin := totalAmount - sum
	apportionAdmin(admin, lines)

	return Split{
		TotalAmount:        totalAmount,
		ProviderShareTotal: sum,
		AdminShare:         admin,
		Lines:              lines,
	}, nil
}

// roundHalfUp returns num/den rounded to the nearest integer, halves away
// from zero. Inputs here are never negative.
func roundHalfUp(num, den decimal.Decimal) int64 {
	return num.DivRound(den, 0).IntPart()
}

// apportionAdmin spreads admin over the lines in proportion to their weights.
// Leftover units after flooring go to the largest fractional remainders, ties
// broken by provider id.
func apportionAdmin(admin int64, lines []SplitLine) {
	if len(lines) == 0 || admin == 0 {
		return
	}
	a := decimal.NewFromInt(admin)
	type rem struct {
		idx int
		// remainder as a fraction r/den of one unit
		r   decimal.Decimal
		den decimal.Decimal
	}
	rems := make([]rem, len(lines))
	var floorSum int64
	for i, l := range lines {
		den := decimal.NewFromInt(l.Denominator)
		q, r := a.Mul(decimal.NewFromInt(l.Numerator)).QuoRem(den, 0)
		lines[i].AdminSlice = q.IntPart()
		floorSum += lines[i].AdminSlice
		rems[i] = rem{idx: i, r: r, den: den}
	}

	sort.SliceStable(rems, func(i, j int) bool {
		// r_i/den_i > r_j/den_j  <=>  r_i*den_j > r_j*den_i
		left := rems[i].r.Mul(rems[j].den)
		right := rems[j].r.Mul(rems[i].den)
		if !left.Equal(right) {
			return left.GreaterThan(right)
		}
		return lines[rems[i].idx].ProviderID < lines[rems[j].idx].ProviderID
	})

	for k := int64(0); k < admin-floorSum; k++ {
		lines[rems[int(k)%len(rems)].idx].AdminSlice++
	}
}
