// FILE: errs.go
// Package main – Error taxonomy (spec §7).
//
// Every adapter-facing error is one of these kinds so callers can branch
// with errors.Is/errors.As instead of string-matching. Nothing in the
// engine aborts the tick loop because of one of these; they are logged and
// the step that produced them is simply skipped for this tick.

package main

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is a network/HTTP-level failure talking to the exchange.
	// Locally recovered: logged, step skipped, retried next tick.
	ErrTransport = errors.New("transport error")

	// ErrAdapterRejected is a non-zero retCode response from the exchange.
	// The attempted order is simply not added to the book.
	ErrAdapterRejected = errors.New("adapter rejected request")

	// ErrUnknownOrder means status() found no matching entry for a recorded
	// order. Treated as "not filled" for this tick; retried next tick.
	ErrUnknownOrder = errors.New("unknown order")

	// ErrFatalConfig is an invalid numeric field or missing credentials,
	// reported at init. The engine refuses to enter Running.
	ErrFatalConfig = errors.New("fatal configuration error")
)

// AdapterError wraps a Bybit retCode/retMsg pair into ErrAdapterRejected.
type AdapterError struct {
	RetCode int
	RetMsg  string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("bybit: retCode=%d retMsg=%s", e.RetCode, e.RetMsg)
}

func (e *AdapterError) Unwrap() error { return ErrAdapterRejected }
