//go:build !smoke

// FILE: main.go
// Package main – Program entrypoint: wires config, exchange adapter, engine,
// metrics, and the HTTP control surface, grounded on the teacher's main.go
// boot sequence.
//
// Boot sequence:
//   1) loadBotEnv()          – read .env (no shell exports required)
//   2) loadConfigFromEnv()   – build and validate runtime Config
//   3) wire the Exchange adapter (BybitClient live, SimExchange dry-run)
//   4) construct the Engine
//   5) start the HTTP control/metrics server on cfg.Port
//   6) drive Engine.Tick on a cfg.LoopInterval ticker until signaled to stop
//
// Example:
//   go run . -dry-run
//   go run .

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

func main() {
	var autostart bool
	flag.BoolVar(&autostart, "autostart", true, "Start the engine immediately instead of waiting for POST /control/start")
	flag.Parse()

	loadBotEnv()
	cfg, err := loadConfigFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var exchange Exchange
	if cfg.DryRun {
		seedBid := cfg.TickSize.Mul(decimal.NewFromInt(10000))
		seedAsk := cfg.TickSize.Mul(decimal.NewFromInt(10001))
		exchange = NewSimExchange(OrderBookTop{BestBid: seedBid, BestAsk: seedAsk})
		log.Printf("main: DRY_RUN=true, trading against the in-memory simulator")
	} else {
		exchange = NewBybitClient(cfg)
	}

	engine := NewEngine(cfg, exchange)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	registerControlHandlers(mux, engine)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	go func() {
		log.Printf("main: serving control/metrics on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main: http server: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if autostart {
		if err := engine.Start(); err != nil {
			log.Printf("main: engine.Start: %v", err)
		}
	}

	runTickLoop(ctx, engine, cfg.LoopInterval)

	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
}

// runTickLoop drives Engine.Tick on cfg.LoopInterval until ctx is canceled,
// then issues a best-effort Stop so open orders are handled per policy
// before the process exits (spec §4.6, §5).
func runTickLoop(ctx context.Context, engine *Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := engine.Stop(); err != nil {
				log.Printf("main: engine.Stop: %v", err)
			}
			engine.Tick(context.Background())
			return
		case <-ticker.C:
			engine.Tick(ctx)
			publishSnapshotMetrics(engine.Snapshot())
		}
	}
}
