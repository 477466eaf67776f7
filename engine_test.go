// FILE: engine_test.go
// Package main – Strategy engine & lifecycle tests (spec §4.6, §8 boundary
// scenarios 1-3 and 6).

package main

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Symbol:          "BTCUSDT",
		Category:        "linear",
		TickSize:        d("0.01"),
		OrderQty:        d("1"),
		MaxBuyOrders:    1,
		OffsetTicks:     2,
		LayerStepTicks:  1,
		BuyTTL:          30 * time.Second,
		RepriceTicks:    5,
		TPTicks:         5,
		MaxSellTPOrders: 3,
		LoopInterval:    time.Second,
		DryRun:          true,
	}
}

func newTestEngine(cfg Config, top OrderBookTop) (*Engine, *SimExchange) {
	sim := NewSimExchange(top)
	return NewEngine(cfg, sim), sim
}

// withFrozenClock freezes nowFunc at t for the duration of fn, restoring the
// real clock afterward.
func withFrozenClock(t time.Time, fn func()) {
	prev := nowFunc
	nowFunc = func() time.Time { return t }
	defer func() { nowFunc = prev }()
	fn()
}

// Boundary scenario 1: Fill -> TP (spec §8).
func TestEngineFillToTP(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	top := OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")}
	e, sim := newTestEngine(cfg, top)

	require.NoError(t, e.Start())
	e.Tick(ctx) // applies Start, then ladder top-up places BUY @ 99.98

	snap := e.Snapshot()
	require.Len(t, snap.OpenBuyOrders, 1)
	assert.Equal(t, "99.98", snap.OpenBuyOrders[0].Price.String())

	buyID := snap.OpenBuyOrders[0].ID
	sim.FillOrder(buyID, d("1"))
	e.Tick(ctx) // reconciles the fill, hands it to the TP manager

	snap = e.Snapshot()
	assert.Equal(t, uint64(1), snap.Stats.BuyFilled)
	require.Len(t, snap.OpenTpOrders, 1)
	assert.Equal(t, "100.03", snap.OpenTpOrders[0].SellPrice.String())

	tpID := snap.OpenTpOrders[0].ID
	sim.FillOrder(tpID, d("1"))
	e.Tick(ctx)

	snap = e.Snapshot()
	assert.Equal(t, uint64(1), snap.Stats.SellFilled)
	assert.True(t, snap.Stats.RealizedPnL.Equal(d("0.05")), "got %s", snap.Stats.RealizedPnL)
	assert.Empty(t, snap.OpenTpOrders)
}

// Boundary scenario 2: TTL cancel with no partial (spec §8).
func TestEngineBuyTTLCancel(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.BuyTTL = 2 * time.Second
	top := OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")}
	e, _ := newTestEngine(cfg, top)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	withFrozenClock(start, func() {
		require.NoError(t, e.Start())
		e.Tick(ctx)
	})
	orig := e.Snapshot().OpenBuyOrders
	require.Len(t, orig, 1)

	withFrozenClock(start.Add(2100*time.Millisecond), func() {
		e.Tick(ctx)
	})

	snap := e.Snapshot()
	assert.Equal(t, uint64(1), snap.Stats.BuyCanceled)
	assert.Empty(t, snap.OpenTpOrders)
	// The expired order is replaced by a fresh layer-0 order on the same tick's top-up.
	require.Len(t, snap.OpenBuyOrders, 1)
	assert.NotEqual(t, orig[0].ID, snap.OpenBuyOrders[0].ID)
}

// Boundary scenario 3: drift reprice (spec §8).
func TestEngineDriftReprice(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.RepriceTicks = 5
	// ask is kept well above the ladder price throughout so SimExchange
	// never crosses the resting BUY; only bestBid drifts.
	top := OrderBookTop{BestBid: d("99.97"), BestAsk: d("100.00")}
	e, sim := newTestEngine(cfg, top)

	require.NoError(t, e.Start())
	e.Tick(ctx)
	orig := e.Snapshot().OpenBuyOrders[0]
	assert.Equal(t, "99.95", orig.Price.String())

	// bestBid drifts down 5 ticks from the order's price (99.95 -> diff 5).
	sim.SetTop(OrderBookTop{BestBid: d("99.90"), BestAsk: d("99.96")})
	e.Tick(ctx)

	snap := e.Snapshot()
	assert.Equal(t, uint64(1), snap.Stats.BuyCanceled)
	require.Len(t, snap.OpenBuyOrders, 1)
	assert.NotEqual(t, orig.ID, snap.OpenBuyOrders[0].ID)
	assert.Equal(t, "99.88", snap.OpenBuyOrders[0].Price.String())
}

// Boundary scenario 6: stop with sellAllOnStop (spec §8).
func TestEngineStopSellAllOnStop(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxBuyOrders = 2
	cfg.SellAllOnStop = true
	top := OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")}
	e, _ := newTestEngine(cfg, top)

	e.mu.Lock()
	e.state = StateRunning
	e.book.TPs = []*TpOrder{
		{ID: "tp1", SellPrice: d("101.00"), Qty: d("1"), BuyPrice: d("100.50")},
		{ID: "tp2", SellPrice: d("101.50"), Qty: d("1"), BuyPrice: d("101.00")},
	}
	e.mu.Unlock()

	require.NoError(t, e.Stop())
	e.Tick(ctx)

	snap := e.Snapshot()
	assert.Equal(t, StateStopped, snap.State)
	assert.Empty(t, snap.OpenTpOrders)
	assert.Equal(t, uint64(2), snap.Stats.SellCanceled)
	assert.Equal(t, uint64(2), snap.Stats.SellFilled)
	// bestAsk=100.05: (100.05-100.50)*1 + (100.05-101.00)*1 = -0.45 + -0.95 = -1.40
	assert.True(t, snap.Stats.RealizedPnL.Equal(d("-1.40")), "got %s", snap.Stats.RealizedPnL)
}

// Stop without sellAllOnStop simply cancels TPs (spec §4.6).
func TestEngineStopCancelOnly(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.SellAllOnStop = false
	e, _ := newTestEngine(cfg, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	e.mu.Lock()
	e.state = StateRunning
	e.book.TPs = []*TpOrder{{ID: "tp1", SellPrice: d("101.00"), Qty: d("1"), BuyPrice: d("100.50")}}
	e.mu.Unlock()

	require.NoError(t, e.Stop())
	e.Tick(ctx)

	snap := e.Snapshot()
	assert.Equal(t, StateStopped, snap.State)
	assert.Empty(t, snap.OpenTpOrders)
	assert.Equal(t, uint64(1), snap.Stats.SellCanceled)
	assert.Equal(t, uint64(0), snap.Stats.SellFilled)
	assert.True(t, snap.Stats.RealizedPnL.Equal(decimal.Zero))
}

// Round-trip: stop followed by start yields zero open orders and reset stats.
func TestEngineStopThenStartResets(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	e, _ := newTestEngine(cfg, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	require.NoError(t, e.Start())
	e.Tick(ctx)
	require.NotEmpty(t, e.Snapshot().OpenBuyOrders)

	require.NoError(t, e.Stop())
	e.Tick(ctx)
	stopped := e.Snapshot()
	assert.Empty(t, stopped.OpenBuyOrders)
	assert.Empty(t, stopped.OpenTpOrders)

	require.NoError(t, e.Start())
	e.Tick(ctx)

	snap := e.Snapshot()
	assert.Equal(t, uint64(0), snap.Stats.BuyFilled)
	assert.Equal(t, uint64(0), snap.Stats.BuyCanceled)
	assert.True(t, snap.Stats.RealizedPnL.Equal(decimal.Zero))
}
