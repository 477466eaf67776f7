// FILE: sim_exchange.go
// Package main – In-memory simulated Exchange (dry-run / tests), grounded on
// broker_paper.go's in-memory paper broker.
//
// SimExchange never calls out over the network. It holds a mutable best-
// bid/ask (set by SetTop) and a map of resting orders; orders cross when
// the simulated top trades through their price — BUYs fill when bestAsk
// drops to or below their limit, SELLs fill when bestBid rises to or above
// theirs. Market orders fill immediately at the opposite touch. Nudged
// manually by tests, this is also what DryRun mode wires in main.go.

package main

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type simOrder struct {
	side       Side
	price      decimal.Decimal // zero for market orders (already filled)
	qty        decimal.Decimal
	cumExec    decimal.Decimal
	isMarket   bool
	canceled   bool
}

// SimExchange is a thread-safe in-memory fill simulator implementing Exchange.
type SimExchange struct {
	mu     sync.Mutex
	top    OrderBookTop
	orders map[OrderID]*simOrder
}

// NewSimExchange builds a simulator seeded with an initial top of book.
func NewSimExchange(top OrderBookTop) *SimExchange {
	return &SimExchange{
		top:    top,
		orders: make(map[OrderID]*simOrder),
	}
}

// SetTop updates the simulated best bid/ask and crosses any resting orders
// that the new top would have matched.
func (s *SimExchange) SetTop(top OrderBookTop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.top = top
	for _, o := range s.orders {
		if o.canceled || o.cumExec.GreaterThanOrEqual(o.qty) {
			continue
		}
		switch o.side {
		case SideBuy:
			if top.BestAsk.LessThanOrEqual(o.price) {
				o.cumExec = o.qty
			}
		case SideSell:
			if top.BestBid.GreaterThanOrEqual(o.price) {
				o.cumExec = o.qty
			}
		}
	}
}

// FillOrder forces a specific resting order to a given cumulative quantity,
// for tests that want to drive partial fills directly.
func (s *SimExchange) FillOrder(id OrderID, cumExec decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		o.cumExec = cumExec
	}
}

func (s *SimExchange) PlaceLimit(ctx context.Context, side Side, price, qty decimal.Decimal) (OrderID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := OrderID(uuid.New().String())
	s.orders[id] = &simOrder{side: side, price: price, qty: qty}
	return id, nil
}

func (s *SimExchange) PlaceMarket(ctx context.Context, side Side, qty decimal.Decimal) (OrderID, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return "", errors.New("qty must be > 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := OrderID(uuid.New().String())
	s.orders[id] = &simOrder{side: side, qty: qty, cumExec: qty, isMarket: true}
	return id, nil
}

func (s *SimExchange) Cancel(ctx context.Context, id OrderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		o.canceled = true
	}
	// Idempotent: canceling an unknown order is not an error.
	return nil
}

func (s *SimExchange) Status(ctx context.Context, id OrderID) (OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return OrderStatus{}, ErrUnknownOrder
	}
	state := OrderNew
	switch {
	case o.cumExec.GreaterThanOrEqual(o.qty):
		state = OrderFilled
	case o.cumExec.GreaterThan(decimal.Zero):
		state = OrderPartiallyFilled
	}
	return OrderStatus{State: state, CumExecQty: o.cumExec}, nil
}

func (s *SimExchange) OrderbookTop(ctx context.Context) (OrderBookTop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.top, nil
}
