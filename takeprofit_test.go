// FILE: takeprofit_test.go
// Package main – TP manager tests (spec §4.4, §8 boundary scenario 4).

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnBuyFilledNormalPath(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	e, _ := newTestEngine(cfg, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	e.onBuyFilled(ctx, d("99.98"), d("1"))

	snap := e.Snapshot()
	require.Len(t, snap.OpenTpOrders, 1)
	assert.Equal(t, "100.03", snap.OpenTpOrders[0].SellPrice.String())
	assert.Equal(t, uint64(1), snap.Stats.SellCreated)
	require.Len(t, snap.Stats.PendingPositions, 1)
}

// Boundary scenario 4: overflow -> evict-highest-and-market-sell (spec §8).
func TestOverflowEvictHighestAndMarketSell(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxSellTPOrders = 2
	e, _ := newTestEngine(cfg, OrderBookTop{BestBid: d("101.40"), BestAsk: d("101.45")})

	e.mu.Lock()
	e.state = StateRunning
	e.book.TPs = []*TpOrder{
		{ID: "tp-low", SellPrice: d("101.00"), Qty: d("1"), BuyPrice: d("100.95")},
		{ID: "tp-high", SellPrice: d("101.50"), Qty: d("1"), BuyPrice: d("101.45")},
	}
	e.mu.Unlock()

	e.onBuyFilled(ctx, d("100.90"), d("1"))

	snap := e.Snapshot()
	require.Len(t, snap.OpenTpOrders, 1)
	assert.Equal(t, OrderID("tp-low"), snap.OpenTpOrders[0].ID, "the highest-priced TP must be evicted")
	assert.True(t, snap.SubStateWaiting)
	require.NotNil(t, snap.PendingMarketSell)
	assert.True(t, snap.PendingMarketSell.BuyPrice.Equal(d("101.45")))
	require.NotNil(t, snap.PendingNewTP)
	assert.True(t, snap.PendingNewTP.BuyPrice.Equal(d("100.90")))
	assert.Equal(t, uint64(1), snap.Stats.SellCanceled)

	// Next tick: market sell reports Filled with bestBid=101.40.
	sim := e.exchange.(*SimExchange)
	sim.FillOrder(snap.PendingMarketSell.ID, d("1"))
	e.Tick(ctx)

	snap = e.Snapshot()
	assert.False(t, snap.SubStateWaiting)
	assert.True(t, snap.Stats.RealizedPnL.Equal(d("-0.05")), "got %s", snap.Stats.RealizedPnL)
	require.Len(t, snap.OpenTpOrders, 2)
	found := false
	for _, tp := range snap.OpenTpOrders {
		if tp.BuyPrice.Equal(d("100.90")) {
			found = true
			assert.Equal(t, "100.95", tp.SellPrice.String())
		}
	}
	assert.True(t, found, "pending new TP must be materialized once the wait sub-state clears")
}

func TestReconcileTPsOpportunisticResolution(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxSellTPOrders = 1
	e, _ := newTestEngine(cfg, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	// Legitimately register a TP through the normal path so the simulator
	// knows about it, then mark it filled.
	e.placeNewTP(ctx, d("100.50"), d("1"))
	tpID := e.Snapshot().OpenTpOrders[0].ID

	e.mu.Lock()
	e.wait.MarketSell = &PendingMarketSell{ID: "pms"} // keep the waiting flag set independently of this TP
	e.wait.NewTP = &PendingNewTP{BuyPrice: d("99.00"), Qty: d("1")}
	e.mu.Unlock()

	sim := e.exchange.(*SimExchange)
	sim.FillOrder(tpID, d("1"))

	e.reconcileTPs(ctx)

	snap := e.Snapshot()
	assert.Nil(t, snap.PendingNewTP, "pending TP must be materialized once a slot frees")
	require.Len(t, snap.OpenTpOrders, 1)
	assert.True(t, snap.OpenTpOrders[0].BuyPrice.Equal(d("99.00")))
}
