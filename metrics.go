// FILE: metrics.go
// Package main – Prometheus metrics for observability (spec SPEC_FULL §4.9).
//
// Registered in init() and served by the HTTP handler mounted in main.go at
// /metrics (Prometheus text exposition format), grounded on the teacher's
// metrics.go registration pattern.

package main

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxBuyOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_buy_orders_total",
			Help: "BUY orders by lifecycle event (created|filled|canceled).",
		},
		[]string{"event"},
	)

	mtxSellOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_sell_orders_total",
			Help: "SELL/TP orders by lifecycle event (created|filled|canceled).",
		},
		[]string{"event"},
	)

	mtxRealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalper_realized_pnl",
			Help: "Cumulative realized P/L in quote currency.",
		},
	)

	mtxOpenBuyOrders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalper_open_buy_orders",
			Help: "Number of currently open BUY ladder orders.",
		},
	)

	mtxOpenTPOrders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalper_open_tp_orders",
			Help: "Number of currently open take-profit SELL orders.",
		},
	)

	mtxEngineState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scalper_engine_state",
			Help: "Engine state indicator (one labeled series set to 1, the rest to 0).",
		},
		[]string{"state"},
	)

	mtxWaitingForMarketSell = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalper_waiting_for_market_sell",
			Help: "1 while the engine is in the waitingForMarketSell sub-state, else 0.",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxBuyOrders, mtxSellOrders, mtxRealizedPnL)
	prometheus.MustRegister(mtxOpenBuyOrders, mtxOpenTPOrders)
	prometheus.MustRegister(mtxEngineState, mtxWaitingForMarketSell)
}

var engineStates = []string{"Stopped", "Running", "Paused", "Stopping"}

// publishSnapshotMetrics pushes a Snapshot into the registered series; main.go
// calls this once per tick after Engine.Tick returns.
func publishSnapshotMetrics(snap EngineSnapshot) {
	for _, s := range engineStates {
		v := 0.0
		if s == snap.State.String() {
			v = 1
		}
		mtxEngineState.WithLabelValues(s).Set(v)
	}
	waiting := 0.0
	if snap.SubStateWaiting {
		waiting = 1
	}
	mtxWaitingForMarketSell.Set(waiting)

	mtxOpenBuyOrders.Set(float64(len(snap.OpenBuyOrders)))
	mtxOpenTPOrders.Set(float64(len(snap.OpenTpOrders)))

	pnl, _ := snap.Stats.RealizedPnL.Float64()
	mtxRealizedPnL.Set(pnl)
}

func incBuyOrders(event string)  { mtxBuyOrders.WithLabelValues(event).Inc() }
func incSellOrders(event string) { mtxSellOrders.WithLabelValues(event).Inc() }
