// FILE: exchange.go
// Package main – Exchange adapter interface (spec §4.2, §6).
//
// The engine consumes exactly these five operations. It never assumes
// atomicity between two calls, and treats every response as the source of
// truth for the next tick (spec §5, §9 "Order-book mirror vs exchange
// truth").

package main

import (
	"context"

	"github.com/shopspring/decimal"
)

// Exchange abstracts order placement, cancellation, status polling, and
// orderbook-top snapshots against a single symbol on a single venue.
// BybitClient (live) and SimExchange (dry-run/tests) both implement it.
type Exchange interface {
	PlaceLimit(ctx context.Context, side Side, price, qty decimal.Decimal) (OrderID, error)
	PlaceMarket(ctx context.Context, side Side, qty decimal.Decimal) (OrderID, error)
	// Cancel must be idempotent from the core's view: cancelling an
	// already-filled or unknown order is not fatal.
	Cancel(ctx context.Context, id OrderID) error
	Status(ctx context.Context, id OrderID) (OrderStatus, error)
	OrderbookTop(ctx context.Context) (OrderBookTop, error)
}
