// FILE: waiting.go
// Package main – Cross-order waiting controller (spec §4.5).
//
// Runs at the top of every tick while waitingForMarketSell is set. Drives
// the evicted position's exit: market-sell status polling, a 30s timeout
// to a limit-sell fallback, and a 10s reprice check on that fallback.

package main

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

const (
	marketSellTimeout   = 30 * time.Second
	limitFallbackReprice = 10 * time.Second
	limitFallbackDrift  = 2
)

// runWaitController advances the pending market-sell/limit-fallback and,
// on resolution, clears the wait sub-state (spec §4.5).
func (e *Engine) runWaitController(ctx context.Context) {
	e.mu.Lock()
	pms := e.wait.MarketSell
	e.mu.Unlock()
	if pms == nil {
		return
	}

	status, err := e.exchange.Status(ctx, pms.ID)
	if err != nil {
		log.Printf("waiting: status(%s) error: %v", pms.ID, err)
		return
	}

	switch status.State {
	case OrderFilled:
		e.resolveMarketSellFilled(ctx, pms)
	case OrderPartiallyFilled:
		// Continue waiting; no structural change.
	default:
		e.advanceStillOpen(ctx, pms)
	}
}

// resolveMarketSellFilled accounts the fill at the most pessimistic
// available quote (bestBid), materializes any pending TP, and exits the
// wait sub-state (spec §4.5 "Filled").
func (e *Engine) resolveMarketSellFilled(ctx context.Context, pms *PendingMarketSell) {
	top, err := e.exchange.OrderbookTop(ctx)
	if err != nil {
		log.Printf("waiting: orderbookTop error on market-sell fill: %v", err)
		return
	}

	e.mu.Lock()
	e.stats.RealizedPnL = e.stats.RealizedPnL.Add(top.BestBid.Sub(pms.BuyPrice).Mul(pms.Qty))
	e.stats.SellFilled++
	pending := e.wait.NewTP
	e.wait.MarketSell = nil
	e.wait.NewTP = nil
	e.mu.Unlock()
	incSellOrders("filled")

	if pending != nil {
		e.placeNewTP(ctx, pending.BuyPrice, pending.Qty)
	}
}

// advanceStillOpen handles the still-open branch of the controller: the
// 30s timeout to a limit fallback, and the 10s reprice check once already
// in fallback (spec §4.5 "Neither, still open").
func (e *Engine) advanceStillOpen(ctx context.Context, pms *PendingMarketSell) {
	elapsed := nowFunc().Sub(pms.PlacedAt)

	if !pms.IsLimitFallback {
		if elapsed <= marketSellTimeout {
			return
		}
		e.fallbackToLimit(ctx, pms)
		return
	}

	if elapsed <= limitFallbackReprice {
		return
	}
	e.repriceLimitFallback(ctx, pms)
}

// fallbackToLimit cancels the stalled market order and replaces it with a
// full-quantity limit SELL at the current bestBid (spec §4.5, 30s branch).
func (e *Engine) fallbackToLimit(ctx context.Context, pms *PendingMarketSell) {
	if err := e.exchange.Cancel(ctx, pms.ID); err != nil {
		log.Printf("waiting: cancel stalled market sell %s error: %v", pms.ID, err)
	}

	top, err := e.exchange.OrderbookTop(ctx)
	if err != nil {
		log.Printf("waiting: orderbookTop error before limit fallback: %v", err)
		return
	}
	price := roundToTick(top.BestBid, e.cfg.TickSize)

	id, err := e.exchange.PlaceLimit(ctx, SideSell, price, pms.Qty)
	if err != nil {
		log.Printf("waiting: limit fallback placement failed, giving up on evicted position: %v", err)
		e.giveUpOnEvictedPosition(ctx)
		return
	}

	e.mu.Lock()
	pms.ID = id
	pms.PlacedAt = nowFunc()
	pms.IsLimitFallback = true
	pms.LimitPrice = price
	e.mu.Unlock()
}

// repriceLimitFallback replaces the fallback limit if bestBid has drifted
// more than 2 ticks since it was placed (spec §4.5, 10s branch).
func (e *Engine) repriceLimitFallback(ctx context.Context, pms *PendingMarketSell) {
	top, err := e.exchange.OrderbookTop(ctx)
	if err != nil {
		log.Printf("waiting: orderbookTop error during fallback reprice check: %v", err)
		return
	}
	if tickDistance(top.BestBid, pms.LimitPrice, e.cfg.TickSize).LessThanOrEqual(decimal.NewFromInt(limitFallbackDrift)) {
		// Refresh the timestamp so the next check is 10s from now, not
		// an immediate re-trigger next tick.
		e.mu.Lock()
		pms.PlacedAt = nowFunc()
		e.mu.Unlock()
		return
	}

	if err := e.exchange.Cancel(ctx, pms.ID); err != nil {
		log.Printf("waiting: cancel stale fallback limit %s error: %v", pms.ID, err)
	}
	price := roundToTick(top.BestBid, e.cfg.TickSize)
	id, err := e.exchange.PlaceLimit(ctx, SideSell, price, pms.Qty)
	if err != nil {
		log.Printf("waiting: fallback reprice placement failed, giving up on evicted position: %v", err)
		e.giveUpOnEvictedPosition(ctx)
		return
	}

	e.mu.Lock()
	pms.ID = id
	pms.PlacedAt = nowFunc()
	pms.LimitPrice = price
	e.mu.Unlock()
}

// giveUpOnEvictedPosition exits the wait sub-state without further sell
// attempts when a fallback placement itself fails, materializing any
// pending TP so that fill is not lost (spec §4.5 "If even the limit
// fallback cannot be placed").
func (e *Engine) giveUpOnEvictedPosition(ctx context.Context) {
	e.mu.Lock()
	pending := e.wait.NewTP
	e.wait.MarketSell = nil
	e.wait.NewTP = nil
	e.mu.Unlock()

	if pending != nil {
		e.placeNewTP(ctx, pending.BuyPrice, pending.Qty)
	}
}
