// FILE: ladder_test.go
// Package main – BUY-ladder manager tests (spec §4.3, §8).

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopUpBuysFillsAllLayers(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxBuyOrders = 3
	e, _ := newTestEngine(cfg, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	e.mu.Lock()
	e.state = StateRunning
	e.mu.Unlock()

	e.topUpBuys(ctx, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	snap := e.Snapshot()
	require.Len(t, snap.OpenBuyOrders, 3)
	layers := map[int]bool{}
	for _, o := range snap.OpenBuyOrders {
		layers[o.Layer] = true
	}
	assert.True(t, layers[0] && layers[1] && layers[2])
	assert.Equal(t, uint64(3), snap.Stats.BuyCreated)
}

func TestTopUpBuysSkipsWhenWaiting(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	e, _ := newTestEngine(cfg, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	e.mu.Lock()
	e.state = StateRunning
	e.wait.MarketSell = &PendingMarketSell{ID: "x"}
	e.mu.Unlock()

	e.topUpBuys(ctx, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	assert.Empty(t, e.Snapshot().OpenBuyOrders)
}

func TestTopUpBuysRespectsPostFillCooldown(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.WaitAfterBuyFill = 5 * time.Minute
	e, _ := newTestEngine(cfg, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	e.mu.Lock()
	e.state = StateRunning
	e.lastBuyFillTime = nowFunc()
	e.mu.Unlock()

	e.topUpBuys(ctx, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	assert.Empty(t, e.Snapshot().OpenBuyOrders, "top-up must skip during the post-fill cooldown")
}

// Layer-collision reshuffle (spec §4.3): a missing layer 0 whose computed
// price collides with an existing layer-1 order bumps up by one step; the
// higher (closer-to-bid) price takes the lower index and the collided order
// is pushed outward.
func TestTopUpBuysLayerCollisionReshuffle(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxBuyOrders = 2
	e, _ := newTestEngine(cfg, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	e.mu.Lock()
	e.state = StateRunning
	e.book.Buys = []*BuyOrder{{ID: "existing", Price: d("99.98"), Qty: d("1"), Layer: 1}}
	e.mu.Unlock()

	e.topUpBuys(ctx, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	snap := e.Snapshot()
	require.Len(t, snap.OpenBuyOrders, 2)

	byLayer := map[int]BuyOrder{}
	for _, o := range snap.OpenBuyOrders {
		byLayer[o.Layer] = o
	}
	require.Contains(t, byLayer, 0)
	require.Contains(t, byLayer, 1)
	assert.Equal(t, "99.99", byLayer[0].Price.String(), "bumped order takes the closer-to-bid layer")
	assert.Equal(t, "99.98", byLayer[1].Price.String(), "collided order is pushed outward")
}

// Open-buy-order invariants hold after top-up (spec §8 invariant 1).
func TestOpenBuyOrdersInvariant(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxBuyOrders = 4
	e, _ := newTestEngine(cfg, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})
	e.mu.Lock()
	e.state = StateRunning
	e.mu.Unlock()

	e.topUpBuys(ctx, OrderBookTop{BestBid: d("100.00"), BestAsk: d("100.05")})

	snap := e.Snapshot()
	assert.LessOrEqual(t, len(snap.OpenBuyOrders), cfg.MaxBuyOrders)
	seen := map[int]bool{}
	for _, o := range snap.OpenBuyOrders {
		assert.False(t, seen[o.Layer], "duplicate layer %d", o.Layer)
		seen[o.Layer] = true
		assert.True(t, o.Price.LessThanOrEqual(d("100.00")))
	}
}
