// FILE: book.go
// Package main – In-memory order book of record (spec §3, §4.3, §4.4).
//
// The book mirrors this strategy's own open orders. The exchange is always
// authoritative; the book is a cache reconciled every tick (spec §9
// "Order-book mirror vs exchange truth").

package main

import (
	"time"

	"github.com/shopspring/decimal"
)

// BuyOrder is an open passive BUY resting in the ladder.
type BuyOrder struct {
	ID        OrderID
	Price     decimal.Decimal
	Qty       decimal.Decimal
	FilledQty decimal.Decimal
	PlacedAt  time.Time
	Layer     int
}

// TpOrder is an open passive SELL take-profit, paired to the buy fill that
// created it.
type TpOrder struct {
	ID        OrderID
	SellPrice decimal.Decimal
	Qty       decimal.Decimal
	BuyPrice  decimal.Decimal
	PlacedAt  time.Time
}

// PendingMarketSell exists only while waitingForMarketSell is set (spec §3).
type PendingMarketSell struct {
	ID              OrderID
	BuyPrice        decimal.Decimal
	Qty             decimal.Decimal
	PlacedAt        time.Time
	IsLimitFallback bool
	LimitPrice      decimal.Decimal
}

// PendingNewTP exists only while waitingForMarketSell is set (spec §3): a
// buy fill whose TP could not be placed because the cap was reached.
type PendingNewTP struct {
	BuyPrice decimal.Decimal
	Qty      decimal.Decimal
}

// OrderBook is the strategy's mirror of its own open orders.
type OrderBook struct {
	Buys []*BuyOrder
	TPs  []*TpOrder
}

// buyLayers returns the set of layer indices currently occupied.
func (b *OrderBook) buyLayers() map[int]*BuyOrder {
	out := make(map[int]*BuyOrder, len(b.Buys))
	for _, o := range b.Buys {
		out[o.Layer] = o
	}
	return out
}

func (b *OrderBook) removeBuy(id OrderID) {
	for i, o := range b.Buys {
		if o.ID == id {
			b.Buys = append(b.Buys[:i], b.Buys[i+1:]...)
			return
		}
	}
}

func (b *OrderBook) removeTP(id OrderID) {
	for i, o := range b.TPs {
		if o.ID == id {
			b.TPs = append(b.TPs[:i], b.TPs[i+1:]...)
			return
		}
	}
}

// highestTP returns the TP with the highest sell price, breaking ties by
// oldest timestamp (spec §4.4 overflow policy step 1).
func (b *OrderBook) highestTP() *TpOrder {
	var best *TpOrder
	for _, o := range b.TPs {
		if best == nil {
			best = o
			continue
		}
		if o.SellPrice.GreaterThan(best.SellPrice) {
			best = o
			continue
		}
		if o.SellPrice.Equal(best.SellPrice) && o.PlacedAt.Before(best.PlacedAt) {
			best = o
		}
	}
	return best
}
