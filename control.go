// FILE: control.go
// Package main – HTTP control surface (spec §6, SPEC_FULL §4.10).
//
// Exposes the engine's lifecycle commands and a read-only snapshot over
// plain JSON. engine.go never imports net/http; every handler here talks to
// the engine only through its exported Start/Pause/Resume/Stop/Snapshot
// methods, which are safe to call from this handler goroutine while Tick
// runs on the scheduler goroutine.

package main

import (
	"encoding/json"
	"net/http"
)

// registerControlHandlers mounts the control surface on mux.
func registerControlHandlers(mux *http.ServeMux, engine *Engine) {
	mux.HandleFunc("/control/start", controlHandler(engine.Start))
	mux.HandleFunc("/control/pause", controlHandler(engine.Pause))
	mux.HandleFunc("/control/resume", controlHandler(engine.Resume))
	mux.HandleFunc("/control/stop", controlHandler(engine.Stop))
	mux.HandleFunc("/snapshot", snapshotHandler(engine))
}

// controlHandler adapts a no-arg engine command method into an HTTP POST
// handler: 405 on the wrong method, 500 with the error body if the command
// queue is full, 204 on success.
func controlHandler(cmd func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := cmd(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// snapshotHandler serves the engine's current EngineSnapshot as JSON
// (spec §6 "snapshot() → { state, subStateWaiting, stats, ... }").
func snapshotHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snap := engine.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snapshotView{
			State:             snap.State.String(),
			SubStateWaiting:   snap.SubStateWaiting,
			Stats:             snap.Stats,
			OpenBuyOrders:     snap.OpenBuyOrders,
			OpenTpOrders:      snap.OpenTpOrders,
			PendingMarketSell: snap.PendingMarketSell,
			PendingNewTP:      snap.PendingNewTP,
			EstimatedProfit:   snap.EstimatedProfit.String(),
			AverageBuyPrice:   snap.AverageBuyPrice.String(),
		})
	}
}

// snapshotView is the wire shape for GET /snapshot: decimals are rendered
// as strings so JSON consumers never round-trip through float64.
type snapshotView struct {
	State             string             `json:"state"`
	SubStateWaiting   bool               `json:"subStateWaiting"`
	Stats             Stats              `json:"stats"`
	OpenBuyOrders     []BuyOrder         `json:"openBuyOrders"`
	OpenTpOrders      []TpOrder          `json:"openTpOrders"`
	PendingMarketSell *PendingMarketSell `json:"pendingMarketSell,omitempty"`
	PendingNewTP      *PendingNewTP      `json:"pendingNewTP,omitempty"`
	EstimatedProfit   string             `json:"estimatedProfit"`
	AverageBuyPrice   string             `json:"averageBuyPrice"`
}
