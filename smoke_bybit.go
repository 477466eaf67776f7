//go:build smoke

// FILE: smoke_bybit.go
// Package main – manual smoke-test CLI against live Bybit credentials,
// grounded on the teacher's smoke_coinbase.go.
//
// Run with: go run -tags smoke . -place Buy -qty 0.001
// Hard-fails early if credentials are missing, same as the teacher's check.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"
)

func main() {
	qty := flag.Float64("qty", 0, "order quantity; 0 = no order, just print the orderbook top")
	sideStr := flag.String("place", "", "Buy|Sell to place a market order of -qty, empty = no order")
	flag.Parse()

	if os.Getenv("BYBIT_API_KEY") == "" || os.Getenv("BYBIT_API_SECRET") == "" {
		log.Fatal("BYBIT_API_KEY/BYBIT_API_SECRET must be set (load the bot env file)")
	}

	loadBotEnv()
	cfg, err := loadConfigFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	client := NewBybitClient(cfg)
	ctx := context.Background()

	top, err := client.OrderbookTop(ctx)
	if err != nil {
		log.Fatalf("orderbookTop error: %v", err)
	}
	fmt.Printf("%s bestBid=%s bestAsk=%s\n", cfg.Symbol, top.BestBid, top.BestAsk)

	if *sideStr == "" || *qty <= 0 {
		return
	}
	side := Side(*sideStr)
	id, err := client.PlaceMarket(ctx, side, decimal.NewFromFloat(*qty))
	if err != nil {
		log.Fatalf("placeMarket error: %v", err)
	}
	fmt.Printf("placed market %s qty=%v id=%s\n", side, *qty, id)

	status, err := client.Status(ctx, id)
	if err != nil {
		log.Fatalf("status error: %v", err)
	}
	fmt.Printf("status: state=%d cumExecQty=%s\n", status.State, status.CumExecQty)
}
