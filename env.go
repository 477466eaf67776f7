// FILE: env.go
// Package main – Environment helpers for the scalping engine.
//
// This file provides:
//   1) Small helpers to read environment variables with sane defaults
//      (strings, ints, floats, bools, decimals).
//   2) A safe loader (loadBotEnv) that reads a local .env-style file so the
//      engine never requires `export $(cat .env ...)` before running.
//
// Notes:
//   • Credentials are read directly via getEnv in config.go; loadBotEnv only
//     hydrates the non-secret tuning knobs from the env file.

package main

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// --------- Env helpers (used across files) ---------

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getEnvDecimal parses key as a decimal, falling back to def on absence or
// parse error. Used for every price/qty knob so config never touches float64.
func getEnvDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	case "":
		return def
	default:
		return def
	}
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// --------- .env loader ---------

// loadBotEnv reads ENV_FILE (default /opt/bybit-scalper/env/bot.env) and sets
// only the keys the engine needs. It never overrides variables already
// present in the process environment.
func loadBotEnv() {
	path := getEnv("ENV_FILE", "/opt/bybit-scalper/env/bot.env")
	f, err := os.Open(path)
	if err != nil {
		log.Printf("env: %s not found, relying on process env", path)
		return
	}
	defer f.Close()

	needed := map[string]struct{}{
		"BYBIT_API_KEY": {}, "BYBIT_API_SECRET": {}, "BYBIT_API_BASE": {},
		"SYMBOL": {}, "CATEGORY": {}, "TICK_SIZE": {}, "ORDER_QTY": {},
		"MAX_BUY_ORDERS": {}, "OFFSET_TICKS": {}, "LAYER_STEP_TICKS": {},
		"BUY_TTL_SEC": {}, "REPRICE_TICKS": {}, "TP_TICKS": {},
		"MAX_SELL_TP_ORDERS": {}, "LOOP_INTERVAL_MS": {}, "WAIT_AFTER_BUY_FILL_MS": {},
		"SELL_ALL_ON_STOP": {}, "RECV_WINDOW_MS": {}, "PORT": {}, "DRY_RUN": {},
	}

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(line[len("export "):])
		}
		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		if _, ok := needed[key]; !ok {
			continue
		}
		val := strings.TrimSpace(line[eq+1:])
		if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
			val = val[1 : len(val)-1]
		}
		if idx := strings.Index(val, "#"); idx >= 0 {
			val = strings.TrimSpace(val[:idx])
		}
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
	log.Printf("env: loaded %s", path)
}
