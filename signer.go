// FILE: signer.go
// Package main – Bybit v5 request-signing utility (spec §6).
//
// signature = HMAC-SHA256(secret, timestamp ‖ apiKey ‖ recvWindow ‖ payload).hexLower
// where payload is the raw JSON body for POST or the raw query string
// (without the leading '?') for GET.

package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// requestSigner signs Bybit v5 REST requests with a fixed key/secret pair.
type requestSigner struct {
	apiKey     string
	apiSecret  string
	recvWindow int64
}

// sign returns the X-BAPI-SIGN header value and the timestamp string used to
// compute it, so the caller can attach both headers consistently.
func (s requestSigner) sign(payload string) (signature, timestamp string) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return s.signAt(ts, payload), ts
}

// signAt signs payload using an explicit timestamp; split out so tests can
// pin the timestamp and assert on the exact signature.
func (s requestSigner) signAt(timestamp, payload string) string {
	mac := hmac.New(sha256.New, []byte(s.apiSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(s.apiKey))
	mac.Write([]byte(strconv.FormatInt(s.recvWindow, 10)))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
