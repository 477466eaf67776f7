// FILE: config.go
// Package main – Instrument configuration model and loader.
//
// This file defines Config (every knob the engine needs, per spec §6's
// configuration schema) and a loader that populates it from environment
// variables. The .env file is read by loadBotEnv() (see env.go), so knobs
// can be tuned without shell exports.
//
// Typical flow (see main.go):
//   loadBotEnv()
//   cfg, err := loadConfigFromEnv()
package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the immutable-for-the-session instrument configuration
// described in spec §3. It cannot change once the engine leaves Stopped.
type Config struct {
	// Exchange credentials
	APIKey    string
	APISecret string
	APIBase   string

	// Instrument
	Symbol   string
	Category string
	TickSize decimal.Decimal
	OrderQty decimal.Decimal

	// Ladder parameters
	MaxBuyOrders   int
	OffsetTicks    int
	LayerStepTicks int
	BuyTTL         time.Duration
	RepriceTicks   int

	// Take-profit parameters
	TPTicks         int
	MaxSellTPOrders int

	// Loop control
	LoopInterval     time.Duration
	WaitAfterBuyFill time.Duration

	// Shutdown policy
	SellAllOnStop bool

	// Ops
	Port          int
	RecvWindowMs  int64
	DryRun        bool
}

// loadConfigFromEnv reads the process env (already hydrated by loadBotEnv())
// and returns a validated Config, or a fatal configuration error per spec §7.
func loadConfigFromEnv() (Config, error) {
	cfg := Config{
		APIKey:    getEnv("BYBIT_API_KEY", ""),
		APISecret: getEnv("BYBIT_API_SECRET", ""),
		APIBase:   getEnv("BYBIT_API_BASE", "https://api.bybit.com"),

		Symbol:   getEnv("SYMBOL", "BTCUSDT"),
		Category: getEnv("CATEGORY", "linear"),
		TickSize: getEnvDecimal("TICK_SIZE", decimal.NewFromFloat(0.1)),
		OrderQty: getEnvDecimal("ORDER_QTY", decimal.NewFromInt(1)),

		MaxBuyOrders:   getEnvInt("MAX_BUY_ORDERS", 3),
		OffsetTicks:    getEnvInt("OFFSET_TICKS", 2),
		LayerStepTicks: getEnvInt("LAYER_STEP_TICKS", 1),
		BuyTTL:         time.Duration(getEnvInt("BUY_TTL_SEC", 30)) * time.Second,
		RepriceTicks:   getEnvInt("REPRICE_TICKS", 5),

		TPTicks:         getEnvInt("TP_TICKS", 5),
		MaxSellTPOrders: getEnvInt("MAX_SELL_TP_ORDERS", 3),

		LoopInterval:     time.Duration(getEnvInt("LOOP_INTERVAL_MS", 1000)) * time.Millisecond,
		WaitAfterBuyFill: time.Duration(getEnvInt("WAIT_AFTER_BUY_FILL_MS", 0)) * time.Millisecond,

		SellAllOnStop: getEnvBool("SELL_ALL_ON_STOP", false),

		Port:         getEnvInt("PORT", 8080),
		RecvWindowMs: int64(getEnvInt("RECV_WINDOW_MS", 5000)),
		DryRun:       getEnvBool("DRY_RUN", true),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrFatalConfig, err)
	}
	return cfg, nil
}

// Validate enforces the configuration schema's required invariants
// (spec §6). It is called at init and the engine refuses to enter Running
// if it fails.
func (c Config) Validate() error {
	if !c.DryRun {
		if c.APIKey == "" || c.APISecret == "" {
			return fmt.Errorf("apiKey/apiSecret are required when DRY_RUN=false")
		}
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.Category == "" {
		return fmt.Errorf("category is required")
	}
	if c.TickSize.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("tickSize must be > 0, got %s", c.TickSize)
	}
	if c.OrderQty.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("orderQty must be > 0, got %s", c.OrderQty)
	}
	if c.MaxBuyOrders < 1 {
		return fmt.Errorf("maxBuyOrders must be >= 1, got %d", c.MaxBuyOrders)
	}
	if c.OffsetTicks < 0 {
		return fmt.Errorf("offsetTicks must be >= 0, got %d", c.OffsetTicks)
	}
	if c.LayerStepTicks < 1 {
		return fmt.Errorf("layerStepTicks must be >= 1, got %d", c.LayerStepTicks)
	}
	if c.BuyTTL <= 0 {
		return fmt.Errorf("buyTTL must be > 0, got %s", c.BuyTTL)
	}
	if c.RepriceTicks < 1 {
		return fmt.Errorf("repriceTicks must be >= 1, got %d", c.RepriceTicks)
	}
	if c.TPTicks < 1 {
		return fmt.Errorf("tpTicks must be >= 1, got %d", c.TPTicks)
	}
	if c.MaxSellTPOrders < 1 {
		return fmt.Errorf("maxSellTPOrders must be >= 1, got %d", c.MaxSellTPOrders)
	}
	if c.LoopInterval <= 0 {
		return fmt.Errorf("loopInterval must be > 0, got %s", c.LoopInterval)
	}
	if c.WaitAfterBuyFill < 0 {
		return fmt.Errorf("waitAfterBuyFill must be >= 0, got %s", c.WaitAfterBuyFill)
	}
	return nil
}
