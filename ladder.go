// FILE: ladder.go
// Package main – BUY-ladder manager (spec §4.3).
//
// Keeps up to cfg.MaxBuyOrders open BUY orders laddered below bestBid, each
// at a distinct layer. reconcileBuys handles fills/TTL/drift against
// exchange status; topUpBuys fills any layers left open by reconcileBuys
// or by a previous tick's cancellations.

package main

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"
)

// reconcileBuys runs the per-tick reconciliation of every open BUY order
// against exchange status and the age/drift policy (spec §4.3 steps 1-3).
func (e *Engine) reconcileBuys(ctx context.Context, top OrderBookTop) {
	e.mu.Lock()
	buys := make([]*BuyOrder, len(e.book.Buys))
	copy(buys, e.book.Buys)
	e.mu.Unlock()

	for _, o := range buys {
		e.reconcileOneBuy(ctx, o, top)
	}
}

// reconcileOneBuy returns true if the order was removed from the book
// (filled, TTL-canceled, or repriced-away) and no further checks apply.
func (e *Engine) reconcileOneBuy(ctx context.Context, o *BuyOrder, top OrderBookTop) bool {
	status, err := e.exchange.Status(ctx, o.ID)
	if err != nil {
		if !errors.Is(err, ErrUnknownOrder) {
			log.Printf("ladder: status(%s) error: %v", o.ID, err)
		}
		// Unknown/transport: treat as not-yet-filled this tick, retry next tick.
		return false
	}

	switch status.State {
	case OrderFilled:
		e.handleBuyFill(ctx, o, status.CumExecQty)
		return true
	case OrderPartiallyFilled:
		e.mu.Lock()
		o.FilledQty = status.CumExecQty
		e.mu.Unlock()
	}

	now := nowFunc()
	age := now.Sub(o.PlacedAt)
	if age >= e.cfg.BuyTTL {
		e.expireBuy(ctx, o)
		return true
	}

	tickDiff := tickDistance(o.Price, top.BestBid, e.cfg.TickSize)
	if tickDiff.GreaterThanOrEqual(decimal.NewFromInt(int64(e.cfg.RepriceTicks))) {
		e.repriceAwayBuy(ctx, o)
		return true
	}
	return false
}

// handleBuyFill accounts a full fill and hands the fill to the TP manager.
func (e *Engine) handleBuyFill(ctx context.Context, o *BuyOrder, execQty decimal.Decimal) {
	e.mu.Lock()
	e.stats.BuyFilled++
	e.lastBuyFillTime = nowFunc()
	e.book.removeBuy(o.ID)
	e.mu.Unlock()
	incBuyOrders("filled")

	e.onBuyFilled(ctx, o.Price, execQty)
}

// expireBuy cancels an order whose age reached buyTTL, handing any partial
// fill to the TP manager first (spec §4.3 step 2).
func (e *Engine) expireBuy(ctx context.Context, o *BuyOrder) {
	e.mu.Lock()
	filled := o.FilledQty
	e.mu.Unlock()

	if filled.GreaterThan(decimal.Zero) {
		e.onBuyFilled(ctx, o.Price, filled)
		e.mu.Lock()
		e.lastBuyFillTime = nowFunc()
		e.mu.Unlock()
	}
	e.cancelBuy(ctx, o, "ttl")
}

// repriceAwayBuy cancels an order that drifted too far from bestBid, handing
// any partial fill to the TP manager first (spec §4.3 step 3). A fresh
// layer-0 order is recreated by the next topUpBuys call.
func (e *Engine) repriceAwayBuy(ctx context.Context, o *BuyOrder) {
	e.mu.Lock()
	filled := o.FilledQty
	e.mu.Unlock()

	if filled.GreaterThan(decimal.Zero) {
		e.onBuyFilled(ctx, o.Price, filled)
		e.mu.Lock()
		e.lastBuyFillTime = nowFunc()
		e.mu.Unlock()
	}
	e.cancelBuy(ctx, o, "reprice")
}

// cancelBuy cancels an open BUY order at the exchange and removes it from
// the book, incrementing BuyCanceled on success.
func (e *Engine) cancelBuy(ctx context.Context, o *BuyOrder, reason string) {
	if err := e.exchange.Cancel(ctx, o.ID); err != nil {
		log.Printf("ladder: cancel(%s) reason=%s error: %v", o.ID, reason, err)
	}
	e.mu.Lock()
	e.stats.BuyCanceled++
	e.book.removeBuy(o.ID)
	e.mu.Unlock()
	incBuyOrders("canceled")
}

// cancelAllOpenBuys cancels every open BUY order, used by pause/stop and by
// the waiting controller (spec §4.5, §4.6).
func (e *Engine) cancelAllOpenBuys(ctx context.Context) {
	e.mu.Lock()
	buys := make([]*BuyOrder, len(e.book.Buys))
	copy(buys, e.book.Buys)
	e.mu.Unlock()

	for _, o := range buys {
		e.cancelBuy(ctx, o, "lifecycle")
	}
}

// topUpBuys fills any ladder layers left open, skipping entirely when
// paused or waiting, or during the post-fill cooldown (spec §4.3 top-up).
func (e *Engine) topUpBuys(ctx context.Context, top OrderBookTop) {
	e.mu.Lock()
	waiting := e.wait.Waiting()
	state := e.state
	lastFill := e.lastBuyFillTime
	occupied := e.book.buyLayers()
	openBuys := make([]*BuyOrder, len(e.book.Buys))
	copy(openBuys, e.book.Buys)
	e.mu.Unlock()

	if waiting || state != StateRunning {
		return
	}
	if e.cfg.WaitAfterBuyFill > 0 && !lastFill.IsZero() && nowFunc().Sub(lastFill) < e.cfg.WaitAfterBuyFill {
		return
	}

	for layer := 0; layer < e.cfg.MaxBuyOrders; layer++ {
		e.mu.Lock()
		full := len(e.book.Buys) >= e.cfg.MaxBuyOrders
		e.mu.Unlock()
		if full {
			break
		}
		if _, ok := occupied[layer]; ok {
			continue
		}

		price := layerPrice(top.BestBid, layer, e.cfg.OffsetTicks, e.cfg.LayerStepTicks, e.cfg.TickSize)
		finalLayer := layer
		var displaced *BuyOrder
		var displacedOriginalLayer int

		if collided := findCollidingBuy(openBuys, price, e.cfg.TickSize); collided != nil {
			bumped := price.Add(e.cfg.TickSize.Mul(decimal.NewFromInt(int64(e.cfg.LayerStepTicks))))
			if findCollidingBuy(openBuys, bumped, e.cfg.TickSize) != nil {
				// Still colliding after the bump: skip this layer entirely.
				continue
			}
			price = bumped
			lo, hi := layer, collided.Layer
			if hi < lo {
				lo, hi = hi, lo
			}
			finalLayer = lo
			displaced = collided
			displacedOriginalLayer = displaced.Layer
		}

		id, err := e.exchange.PlaceLimit(ctx, SideBuy, price, e.cfg.OrderQty)
		if err != nil {
			log.Printf("ladder: placeLimit layer=%d price=%s error: %v", finalLayer, price, err)
			continue
		}

		e.mu.Lock()
		e.book.Buys = append(e.book.Buys, &BuyOrder{
			ID: id, Price: price, Qty: e.cfg.OrderQty, PlacedAt: nowFunc(), Layer: finalLayer,
		})
		e.stats.BuyCreated++
		incBuyOrders("created")
		if displaced != nil {
			hi := layer
			if displacedOriginalLayer > hi {
				hi = displacedOriginalLayer
			}
			displaced.Layer = hi
		}
		e.mu.Unlock()

		occupied[finalLayer] = nil
		if displaced != nil {
			occupied[displaced.Layer] = displaced
		}
		openBuys = append(openBuys, &BuyOrder{Layer: finalLayer, Price: price})
	}
}

// findCollidingBuy returns the open BUY order whose price is within half a
// tick of price, if any.
func findCollidingBuy(open []*BuyOrder, price, tick decimal.Decimal) *BuyOrder {
	for _, o := range open {
		if pricesEqual(o.Price, price, tick) {
			return o
		}
	}
	return nil
}
