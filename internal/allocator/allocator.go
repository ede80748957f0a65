// Package allocator splits a cycle's total quantity into hedged legs. Every
// cycle opens two long legs and one short leg whose shares sum to one, so the
// net exposure of a cycle is zero before fees and slippage.
package allocator

import (
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/chikanerick/asterdex-trading-bot/internal/types"
)

var half = decimal.NewFromInt(1).Div(decimal.NewFromInt(2))

// Allocator samples leg shares for a cycle.
type Allocator struct {
	rng *rand.Rand
}

// NewAllocator creates an Allocator driven by the given random source.
func NewAllocator(rng *rand.Rand) *Allocator {
	return &Allocator{rng: rng}
}

// SampleLegs returns two buy legs and one sell leg. The buy shares are drawn
// from two random weights and together hold exactly half of the total; the
// sell leg holds the other half. The second buy share is computed as the
// remainder so that the three shares always sum to one exactly.
func (a *Allocator) SampleLegs() []types.Leg {
	w1 := a.randomWeight()
	w2 := a.randomWeight()

	firstBuy := w1.Div(w1.Add(w2)).Mul(half)
	secondBuy := half.Sub(firstBuy)

	return []types.Leg{
		{Side: types.SideBuy, Share: firstBuy},
		{Side: types.SideBuy, Share: secondBuy},
		{Side: types.SideSell, Share: half},
	}
}

// randomWeight draws a weight in (0.1, 1.0). The lower bound keeps either buy
// leg from collapsing to a dust share that the lot grid would floor to zero.
func (a *Allocator) randomWeight() decimal.Decimal {
	f := 0.1 + a.rng.Float64()*0.9

	return decimal.NewFromFloat(f)
}
