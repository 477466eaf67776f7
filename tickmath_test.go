// FILE: tickmath_test.go
// Package main – tests for tick-price arithmetic (spec §4.1, §8).

package main

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestRoundToTick(t *testing.T) {
	tick := d("0.01")
	assert.True(t, d("99.98").Equal(roundToTick(d("99.981"), tick)))
	assert.True(t, d("99.98").Equal(roundToTick(d("99.9749"), tick)))
	assert.Equal(t, "99.98", roundToTick(d("99.981"), tick).String())
}

func TestRoundToTickIdempotent(t *testing.T) {
	tick := d("0.001")
	for _, p := range []string{"100.00", "99.9753", "0.0005", "12345.678"} {
		once := roundToTick(d(p), tick)
		twice := roundToTick(once, tick)
		require.True(t, once.Equal(twice), "roundToTick not idempotent for %s", p)
	}
}

func TestLayerPrice(t *testing.T) {
	tick := d("0.01")
	bestBid := d("100.00")
	// offsetTicks=2, layerStepTicks=1: layer 0 -> 100.00 - 0.02 = 99.98
	got := layerPrice(bestBid, 0, 2, 1, tick)
	assert.Equal(t, "99.98", got.String())
	// layer 1 -> 100.00 - 0.03 = 99.97
	got = layerPrice(bestBid, 1, 2, 1, tick)
	assert.Equal(t, "99.97", got.String())
}

func TestTpPrice(t *testing.T) {
	tick := d("0.01")
	got := tpPrice(d("99.98"), 5, tick)
	assert.Equal(t, "100.03", got.String())
	assert.True(t, got.Sub(d("99.98")).GreaterThanOrEqual(tick.Mul(decimal.NewFromInt(5))))
}

func TestTickDistance(t *testing.T) {
	tick := d("0.01")
	dist := tickDistance(d("99.95"), d("100.00"), tick)
	assert.True(t, dist.Equal(d("5")))
}

func TestPricesEqual(t *testing.T) {
	tick := d("0.01")
	assert.True(t, pricesEqual(d("99.98"), d("99.984"), tick))
	assert.False(t, pricesEqual(d("99.98"), d("99.99"), tick))
}
