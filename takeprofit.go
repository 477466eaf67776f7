// FILE: takeprofit.go
// Package main – TP manager (spec §4.4).
//
// Every BUY fill is handed here as (buyPrice, qty). Below the cap a TP is
// placed immediately; at the cap the "evict highest, market-sell it, block
// new buys" overflow policy kicks in and the fill is parked as pendingNewTP
// until the waiting controller (waiting.go) frees a slot.

package main

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"
)

// onBuyFilled is the TP manager's entry point, invoked by the ladder
// manager whenever a BUY order fills fully or partially.
func (e *Engine) onBuyFilled(ctx context.Context, buyPrice, qty decimal.Decimal) {
	e.mu.Lock()
	underCap := len(e.book.TPs) < e.cfg.MaxSellTPOrders
	e.mu.Unlock()

	if underCap {
		e.placeNewTP(ctx, buyPrice, qty)
		return
	}
	e.evictHighestAndMarketSell(ctx, buyPrice, qty)
}

// placeNewTP places a normal-path TP at tpPrice(buyPrice) (spec §4.4 normal path).
func (e *Engine) placeNewTP(ctx context.Context, buyPrice, qty decimal.Decimal) {
	sell := tpPrice(buyPrice, e.cfg.TPTicks, e.cfg.TickSize)
	id, err := e.exchange.PlaceLimit(ctx, SideSell, sell, qty)
	if err != nil {
		log.Printf("takeprofit: placeLimit sell=%s qty=%s error: %v", sell, qty, err)
		return
	}
	e.mu.Lock()
	e.book.TPs = append(e.book.TPs, &TpOrder{ID: id, SellPrice: sell, Qty: qty, BuyPrice: buyPrice, PlacedAt: nowFunc()})
	e.stats.SellCreated++
	incSellOrders("created")
	e.stats.addPendingPosition(id, buyPrice, qty)
	e.mu.Unlock()
}

// evictHighestAndMarketSell implements the overflow policy (spec §4.4
// steps 1-5): cancel the highest-priced open TP, market-sell its quantity,
// and enter waitingForMarketSell with the new fill parked as pendingNewTP.
func (e *Engine) evictHighestAndMarketSell(ctx context.Context, buyPrice, qty decimal.Decimal) {
	e.mu.Lock()
	evicted := e.book.highestTP()
	e.mu.Unlock()

	if evicted == nil {
		// Cap reached with no TPs on record (shouldn't happen); fall back
		// to a normal placement rather than entering an empty wait state.
		e.placeNewTP(ctx, buyPrice, qty)
		return
	}

	if err := e.exchange.Cancel(ctx, evicted.ID); err != nil {
		log.Printf("takeprofit: cancel evicted TP %s error: %v", evicted.ID, err)
	}
	e.mu.Lock()
	e.stats.SellCanceled++
	incSellOrders("canceled")
	e.book.removeTP(evicted.ID)
	e.stats.removePendingPosition(evicted.ID)
	e.mu.Unlock()

	id, err := e.exchange.PlaceMarket(ctx, SideSell, evicted.Qty)
	if err != nil {
		log.Printf("takeprofit: market sell of evicted TP failed, falling back to normal TP: %v", err)
		e.placeNewTP(ctx, buyPrice, qty)
		return
	}

	e.mu.Lock()
	e.stats.SellCreated++
	incSellOrders("created")
	e.wait.MarketSell = &PendingMarketSell{
		ID: id, BuyPrice: evicted.BuyPrice, Qty: evicted.Qty, PlacedAt: nowFunc(),
	}
	e.wait.NewTP = &PendingNewTP{BuyPrice: buyPrice, Qty: qty}
	e.mu.Unlock()
}

// reconcileTPs runs the per-tick TP status reconciliation and the
// opportunistic pending-TP resolution (spec §4.4 reconciliation).
func (e *Engine) reconcileTPs(ctx context.Context) {
	e.mu.Lock()
	tps := make([]*TpOrder, len(e.book.TPs))
	copy(tps, e.book.TPs)
	e.mu.Unlock()

	for _, tp := range tps {
		status, err := e.exchange.Status(ctx, tp.ID)
		if err != nil {
			if !errors.Is(err, ErrUnknownOrder) {
				log.Printf("takeprofit: status(%s) error: %v", tp.ID, err)
			}
			continue
		}
		if status.State == OrderFilled {
			e.mu.Lock()
			e.stats.RealizedPnL = e.stats.RealizedPnL.Add(tp.SellPrice.Sub(tp.BuyPrice).Mul(tp.Qty))
			e.stats.SellFilled++
			e.book.removeTP(tp.ID)
			e.stats.removePendingPosition(tp.ID)
			e.mu.Unlock()
			incSellOrders("filled")
		}
		// PartiallyFilled is informational only (spec §4.4).
	}

	e.resolvePendingNewTP(ctx)
}

// resolvePendingNewTP materializes a parked fill as a real TP as soon as a
// slot frees up, without exiting the wait sub-state itself (spec §4.4
// opportunistic pending-TP resolution).
func (e *Engine) resolvePendingNewTP(ctx context.Context) {
	e.mu.Lock()
	waiting := e.wait.Waiting()
	pending := e.wait.NewTP
	hasSlot := waiting && pending != nil && len(e.book.TPs) < e.cfg.MaxSellTPOrders
	e.mu.Unlock()

	if !hasSlot {
		return
	}
	e.placeNewTP(ctx, pending.BuyPrice, pending.Qty)
	e.mu.Lock()
	e.wait.NewTP = nil
	e.mu.Unlock()
}
