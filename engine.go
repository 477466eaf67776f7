// FILE: engine.go
// Package main – Strategy engine & lifecycle (spec §4.6, §5).
//
// Engine is a single long-lived value owning its book, stats, and
// sub-state; it is driven by a scheduler calling Tick on a fixed period
// (main.go). Start/Pause/Resume/Stop enqueue commands observed at the next
// tick boundary, matching the cooperative single-task model in spec §5 —
// Tick itself never runs concurrently with another Tick.

package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// nowFunc is indirected so tests can freeze or advance time deterministically.
var nowFunc = time.Now

// EngineState is one of Stopped/Running/Paused/Stopping (spec §3, §4.6).
type EngineState int

const (
	StateStopped EngineState = iota
	StateRunning
	StatePaused
	StateStopping
)

func (s EngineState) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// WaitState is the orthogonal waitingForMarketSell sub-state, a tagged sum
// type using nil-pointer-as-discriminant in place of a parallel boolean
// flag (spec §9 "Tagged states").
type WaitState struct {
	MarketSell *PendingMarketSell
	NewTP      *PendingNewTP
}

// Waiting reports whether the engine is currently in waitingForMarketSell.
func (w WaitState) Waiting() bool { return w.MarketSell != nil }

type engineCmd int

const (
	cmdStart engineCmd = iota
	cmdPause
	cmdResume
	cmdStop
)

// EngineSnapshot is the read-only view returned by Snapshot (spec §6
// control surface).
type EngineSnapshot struct {
	State             EngineState
	SubStateWaiting   bool
	Stats             Stats
	OpenBuyOrders     []BuyOrder
	OpenTpOrders      []TpOrder
	PendingMarketSell *PendingMarketSell
	PendingNewTP      *PendingNewTP
	EstimatedProfit   decimal.Decimal
	AverageBuyPrice   decimal.Decimal
}

// Engine is the strategy state machine and order lifecycle controller
// (spec §1, §2). It owns its book, stats, and sub-state so multiple
// instances may coexist in one process (spec §9 "Global mutable state").
type Engine struct {
	cfg      Config
	exchange Exchange

	mu              sync.Mutex
	state           EngineState
	wait            WaitState
	book            OrderBook
	stats           Stats
	lastBuyFillTime time.Time

	cmds chan engineCmd
}

// NewEngine builds an Engine bound to cfg and exchange, starting Stopped.
func NewEngine(cfg Config, exchange Exchange) *Engine {
	return &Engine{
		cfg:      cfg,
		exchange: exchange,
		state:    StateStopped,
		stats:    newStats(),
		cmds:     make(chan engineCmd, 8),
	}
}

func (e *Engine) enqueue(cmd engineCmd) error {
	select {
	case e.cmds <- cmd:
		return nil
	default:
		return fmt.Errorf("engine: command queue full")
	}
}

// Start enqueues a Stopped -> Running transition (spec §4.6).
func (e *Engine) Start() error { return e.enqueue(cmdStart) }

// Pause enqueues a Running -> Paused transition (spec §4.6).
func (e *Engine) Pause() error { return e.enqueue(cmdPause) }

// Resume enqueues a Paused -> Running transition (spec §4.6).
func (e *Engine) Resume() error { return e.enqueue(cmdResume) }

// Stop enqueues a Running/Paused -> Stopping -> Stopped transition (spec §4.6).
func (e *Engine) Stop() error { return e.enqueue(cmdStop) }

// Snapshot returns a point-in-time, lock-protected copy of engine state,
// safe to call concurrently with Tick from an HTTP handler goroutine
// (spec §6 "snapshot").
func (e *Engine) Snapshot() EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	buys := make([]BuyOrder, len(e.book.Buys))
	for i, o := range e.book.Buys {
		buys[i] = *o
	}
	tps := make([]TpOrder, len(e.book.TPs))
	for i, o := range e.book.TPs {
		tps[i] = *o
	}

	// Copy the wait-state pointers by value: they are mutated in place by
	// the tick goroutine (waiting.go), so a caller must never hold the same
	// pointer the engine is about to write to.
	var pms *PendingMarketSell
	if e.wait.MarketSell != nil {
		cp := *e.wait.MarketSell
		pms = &cp
	}
	var newTP *PendingNewTP
	if e.wait.NewTP != nil {
		cp := *e.wait.NewTP
		newTP = &cp
	}

	// Copy Stats by value but re-slice PendingPositions: append/removal on
	// the live stats can otherwise mutate a backing array a prior snapshot
	// still holds.
	stats := e.stats
	stats.PendingPositions = make([]PendingPosition, len(e.stats.PendingPositions))
	copy(stats.PendingPositions, e.stats.PendingPositions)

	return EngineSnapshot{
		State:             e.state,
		SubStateWaiting:   e.wait.Waiting(),
		Stats:             stats,
		OpenBuyOrders:     buys,
		OpenTpOrders:      tps,
		PendingMarketSell: pms,
		PendingNewTP:      newTP,
		EstimatedProfit:   estimatedProfit(e.stats, &e.book),
		AverageBuyPrice:   e.stats.averageBuyPrice(),
	}
}

// Tick runs one iteration of the loop described in spec §4.6/§5: drain
// queued commands, run the wait controller if waiting, fetch the
// orderbook, reconcile and top up BUYs when eligible, then always
// reconcile TPs. It never returns an error that should stop the
// scheduler — every step failure is logged and skipped (spec §7).
func (e *Engine) Tick(ctx context.Context) {
	e.drainCommands(ctx)

	e.mu.Lock()
	state := e.state
	e.mu.Unlock()
	if state != StateRunning && state != StatePaused {
		return
	}

	e.mu.Lock()
	waiting := e.wait.Waiting()
	e.mu.Unlock()
	if waiting {
		e.runWaitController(ctx)
		e.mu.Lock()
		waiting = e.wait.Waiting()
		e.mu.Unlock()
	}

	top, err := e.exchange.OrderbookTop(ctx)
	haveTop := err == nil
	if err != nil {
		log.Printf("engine: orderbookTop error: %v", err)
	}

	e.mu.Lock()
	state = e.state
	e.mu.Unlock()

	switch {
	case waiting:
		e.cancelAllOpenBuys(ctx)
	case state == StateRunning && haveTop:
		e.reconcileBuys(ctx, top)
		e.topUpBuys(ctx, top)
	case state == StateRunning && !haveTop:
		// No fresh top this tick: still reconcile against exchange status
		// (fills/TTL/drift-independent checks use it, so skip entirely).
	}

	e.reconcileTPs(ctx)
}

// drainCommands applies every queued command with its full side effects,
// in order, before the rest of the tick runs (spec §5 "observed at the
// next tick boundary").
func (e *Engine) drainCommands(ctx context.Context) {
	for {
		var cmd engineCmd
		select {
		case cmd = <-e.cmds:
		default:
			return
		}
		e.applyCommand(ctx, cmd)
	}
}

func (e *Engine) applyCommand(ctx context.Context, cmd engineCmd) {
	switch cmd {
	case cmdStart:
		e.applyStart()
	case cmdPause:
		e.applyPause(ctx)
	case cmdResume:
		e.applyResume()
	case cmdStop:
		e.applyStop(ctx)
	}
}

func (e *Engine) applyStart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateStopped {
		return
	}
	e.stats = newStats()
	e.book = OrderBook{}
	e.wait = WaitState{}
	e.lastBuyFillTime = time.Time{}
	e.state = StateRunning
}

func (e *Engine) applyPause(ctx context.Context) {
	e.mu.Lock()
	eligible := e.state == StateRunning
	e.mu.Unlock()
	if !eligible {
		return
	}
	e.cancelAllOpenBuys(ctx)
	e.mu.Lock()
	e.state = StatePaused
	e.mu.Unlock()
}

func (e *Engine) applyResume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePaused {
		return
	}
	e.state = StateRunning
}

// applyStop runs the full Running/Paused -> Stopping -> Stopped transition
// synchronously: cancel all BUYs, then apply the stop policy to TPs (spec
// §4.6). Every exchange call here is a sequential await in this one
// goroutine, so Stopping never needs to persist across multiple ticks.
func (e *Engine) applyStop(ctx context.Context) {
	e.mu.Lock()
	eligible := e.state == StateRunning || e.state == StatePaused
	if eligible {
		e.state = StateStopping
	}
	e.mu.Unlock()
	if !eligible {
		return
	}

	e.cancelAllOpenBuys(ctx)
	e.applyStopPolicyToTPs(ctx)

	e.mu.Lock()
	e.wait = WaitState{}
	e.state = StateStopped
	e.mu.Unlock()
}

// applyStopPolicyToTPs implements the sellAllOnStop branch of the stop
// policy (spec §4.6 "Stop policy"): flatten every open TP at market,
// attributing P/L at the fetched bestAsk, or simply cancel them all.
func (e *Engine) applyStopPolicyToTPs(ctx context.Context) {
	e.mu.Lock()
	tps := make([]*TpOrder, len(e.book.TPs))
	copy(tps, e.book.TPs)
	e.mu.Unlock()
	if len(tps) == 0 {
		return
	}

	var top OrderBookTop
	var haveTop bool
	if e.cfg.SellAllOnStop {
		t, err := e.exchange.OrderbookTop(ctx)
		if err != nil {
			log.Printf("engine: stop policy orderbookTop error: %v", err)
		} else {
			top, haveTop = t, true
		}
	}

	for _, tp := range tps {
		if err := e.exchange.Cancel(ctx, tp.ID); err != nil {
			log.Printf("engine: stop cancel TP %s error: %v", tp.ID, err)
		}
		e.mu.Lock()
		e.stats.SellCanceled++
		e.book.removeTP(tp.ID)
		e.stats.removePendingPosition(tp.ID)
		e.mu.Unlock()
		incSellOrders("canceled")

		if !e.cfg.SellAllOnStop || !haveTop {
			continue
		}
		if _, err := e.exchange.PlaceMarket(ctx, SideSell, tp.Qty); err != nil {
			log.Printf("engine: stop market-sell TP %s error: %v", tp.ID, err)
			continue
		}
		e.mu.Lock()
		e.stats.SellCreated++
		e.stats.SellFilled++
		e.stats.RealizedPnL = e.stats.RealizedPnL.Add(top.BestAsk.Sub(tp.BuyPrice).Mul(tp.Qty))
		e.mu.Unlock()
		incSellOrders("created")
		incSellOrders("filled")
	}
}
