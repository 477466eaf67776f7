// FILE: types.go
// Package main – Wire-agnostic types shared by the engine and the Exchange
// adapters (spec §3, §4.2).

package main

import (
	"github.com/shopspring/decimal"
)

// Side is the order side.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// OrderID is an exchange-assigned order identifier.
type OrderID string

// OrderState is the normalized status an Exchange.Status call can report.
type OrderState int

const (
	OrderNew OrderState = iota
	OrderPartiallyFilled
	OrderFilled
	OrderOther
)

// OrderStatus is the normalized response of Exchange.Status.
type OrderStatus struct {
	State       OrderState
	CumExecQty  decimal.Decimal
}

// OrderBookTop is the normalized response of Exchange.OrderbookTop.
// Invariant: BestBid and BestAsk are positive and BestAsk >= BestBid.
type OrderBookTop struct {
	BestBid decimal.Decimal
	BestAsk decimal.Decimal
}
