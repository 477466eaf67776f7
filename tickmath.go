// FILE: tickmath.go
// Package main – Tick-price arithmetic (spec §4.1).
//
// All prices are decimal.Decimal so rounding to a tick never drags in
// binary floating-point noise; roundToTick carries exactly the number of
// decimal places implied by the configured tick size.

package main

import (
	"github.com/shopspring/decimal"
)

// tickDecimals returns how many decimal places tick implies, e.g. 0.001 -> 3.
func tickDecimals(tick decimal.Decimal) int32 {
	e := tick.Exponent()
	if e >= 0 {
		return 0
	}
	return -e
}

// roundToTick returns the nearest multiple of tick, rounded half-away-from-
// zero, rendered with exactly tickDecimals(tick) decimal places.
func roundToTick(p, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return p
	}
	steps := p.DivRound(tick, 16).Round(0)
	rounded := steps.Mul(tick)
	return rounded.Truncate(tickDecimals(tick))
}

// layerPrice computes the ladder price for a given layer below bestBid:
// roundToTick(bestBid - (offsetTicks + layer*layerStepTicks) * tickSize).
func layerPrice(bestBid decimal.Decimal, layer, offsetTicks, layerStepTicks int, tick decimal.Decimal) decimal.Decimal {
	distTicks := offsetTicks + layer*layerStepTicks
	offset := tick.Mul(decimal.NewFromInt(int64(distTicks)))
	return roundToTick(bestBid.Sub(offset), tick)
}

// tpPrice computes the take-profit target for a filled buy price:
// roundToTick(buy + tpTicks * tickSize).
func tpPrice(buy decimal.Decimal, tpTicks int, tick decimal.Decimal) decimal.Decimal {
	offset := tick.Mul(decimal.NewFromInt(int64(tpTicks)))
	return roundToTick(buy.Add(offset), tick)
}

// tickDistance returns |p - ref| / tickSize as a decimal, for threshold
// comparisons such as repricing and drift.
func tickDistance(p, ref, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return decimal.Zero
	}
	return p.Sub(ref).Abs().Div(tick)
}

// pricesEqual reports whether a and b are the same price modulo half a tick,
// per spec §9's "equality on prices should be |a-b| < tickSize/2".
func pricesEqual(a, b, tick decimal.Decimal) bool {
	half := tick.Div(decimal.NewFromInt(2))
	return a.Sub(b).Abs().LessThan(half)
}
