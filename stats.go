// FILE: stats.go
// Package main – Monotonic counters and P/L reporting (spec §3, §4.6).

package main

import (
	"github.com/shopspring/decimal"
)

// PendingPosition mirrors an open TP order for average-cost reporting.
type PendingPosition struct {
	ID       OrderID
	BuyPrice decimal.Decimal
	Qty      decimal.Decimal
}

// Stats holds the monotonic counters and realized P/L described in spec §3.
// Every counter is monotone; RealizedPnL and PendingPositions are the only
// fields that move in both directions.
type Stats struct {
	BuyCreated  uint64
	BuyFilled   uint64
	BuyCanceled uint64
	SellCreated uint64
	SellFilled  uint64
	SellCanceled uint64

	RealizedPnL decimal.Decimal

	PendingPositions []PendingPosition
}

func newStats() Stats {
	return Stats{RealizedPnL: decimal.Zero}
}

func (s *Stats) addPendingPosition(id OrderID, buyPrice, qty decimal.Decimal) {
	s.PendingPositions = append(s.PendingPositions, PendingPosition{ID: id, BuyPrice: buyPrice, Qty: qty})
}

func (s *Stats) removePendingPosition(id OrderID) {
	for i, p := range s.PendingPositions {
		if p.ID == id {
			s.PendingPositions = append(s.PendingPositions[:i], s.PendingPositions[i+1:]...)
			return
		}
	}
}

// averageBuyPrice returns Σ buyPrice*qty / Σ qty over pending positions, or
// zero if empty (spec §4.6).
func (s *Stats) averageBuyPrice() decimal.Decimal {
	totalQty := decimal.Zero
	totalCost := decimal.Zero
	for _, p := range s.PendingPositions {
		totalQty = totalQty.Add(p.Qty)
		totalCost = totalCost.Add(p.BuyPrice.Mul(p.Qty))
	}
	if totalQty.IsZero() {
		return decimal.Zero
	}
	return totalCost.Div(totalQty)
}

// estimatedProfit returns realizedPnL + Σ_openTPs (sell - buyPrice)*qty
// (spec §4.6).
func estimatedProfit(stats Stats, book *OrderBook) decimal.Decimal {
	total := stats.RealizedPnL
	for _, tp := range book.TPs {
		total = total.Add(tp.SellPrice.Sub(tp.BuyPrice).Mul(tp.Qty))
	}
	return total
}
