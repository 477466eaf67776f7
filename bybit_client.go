// FILE: bybit_client.go
// Package main – Bybit v5 REST exchange adapter (direct signed REST, no
// external broker deps — same shape as binance_broker.go's direct-HMAC
// client, retargeted at Bybit's v5 surface).
//
// Wire surface consumed (spec §6):
//   POST /v5/order/create
//   POST /v5/order/cancel
//   GET  /v5/order/realtime
//   GET  /v5/market/orderbook
//
// Every authenticated request carries X-BAPI-API-KEY, X-BAPI-TIMESTAMP,
// X-BAPI-RECV-WINDOW, X-BAPI-SIGN, signed by signer.go.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BybitClient implements Exchange against the real Bybit v5 REST API.
type BybitClient struct {
	symbol   string
	category string
	base     string
	signer   requestSigner
	hc       *http.Client
}

// NewBybitClient builds a client for cfg.Symbol/cfg.Category against cfg.APIBase.
func NewBybitClient(cfg Config) *BybitClient {
	return &BybitClient{
		symbol:   cfg.Symbol,
		category: cfg.Category,
		base:     strings.TrimRight(cfg.APIBase, "/"),
		signer: requestSigner{
			apiKey:     cfg.APIKey,
			apiSecret:  cfg.APISecret,
			recvWindow: cfg.RecvWindowMs,
		},
		hc: &http.Client{Timeout: 10 * time.Second},
	}
}

type bybitEnvelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

func (c *BybitClient) doPost(ctx context.Context, path string, body map[string]any) (json.RawMessage, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal body: %v", ErrTransport, err)
	}
	sig, ts := c.signer.sign(string(raw))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	c.setAuthHeaders(req, ts, sig)
	req.Header.Set("Content-Type", "application/json")

	return c.doAndDecode(req, path)
}

func (c *BybitClient) doGet(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	qs := q.Encode()
	sig, ts := c.signer.sign(qs)

	u := c.base + path
	if qs != "" {
		u += "?" + qs
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	c.setAuthHeaders(req, ts, sig)

	return c.doAndDecode(req, path)
}

func (c *BybitClient) setAuthHeaders(req *http.Request, timestamp, signature string) {
	req.Header.Set("X-BAPI-API-KEY", c.signer.apiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
	req.Header.Set("X-BAPI-RECV-WINDOW", fmt.Sprintf("%d", c.signer.recvWindow))
	req.Header.Set("X-BAPI-SIGN", signature)
}

func (c *BybitClient) doAndDecode(req *http.Request, path string) (json.RawMessage, error) {
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransport, path, err)
	}
	defer res.Body.Close()
	bs, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrTransport, path, err)
	}
	if res.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: %s: http %d: %s", ErrTransport, path, res.StatusCode, string(bs))
	}
	var env bybitEnvelope
	if err := json.Unmarshal(bs, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: decode envelope: %v", ErrTransport, path, err)
	}
	if env.RetCode != 0 {
		return nil, &AdapterError{RetCode: env.RetCode, RetMsg: env.RetMsg}
	}
	return env.Result, nil
}

func (c *BybitClient) PlaceLimit(ctx context.Context, side Side, price, qty decimal.Decimal) (OrderID, error) {
	return c.placeOrder(ctx, side, "Limit", price, qty)
}

func (c *BybitClient) PlaceMarket(ctx context.Context, side Side, qty decimal.Decimal) (OrderID, error) {
	return c.placeOrder(ctx, side, "Market", decimal.Zero, qty)
}

func (c *BybitClient) placeOrder(ctx context.Context, side Side, orderType string, price, qty decimal.Decimal) (OrderID, error) {
	body := map[string]any{
		"category": c.category,
		"symbol":   c.symbol,
		"side":     string(side),
		"orderType": orderType,
		"qty":      qty.String(),
	}
	if orderType == "Limit" {
		body["price"] = price.String()
	}
	result, err := c.doPost(ctx, "/v5/order/create", body)
	if err != nil {
		return "", err
	}
	var out struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return "", fmt.Errorf("%w: decode order/create result: %v", ErrTransport, err)
	}
	return OrderID(out.OrderID), nil
}

func (c *BybitClient) Cancel(ctx context.Context, id OrderID) error {
	body := map[string]any{
		"category": c.category,
		"symbol":   c.symbol,
		"orderId":  string(id),
	}
	_, err := c.doPost(ctx, "/v5/order/cancel", body)
	if err != nil {
		// A cancel of an already-filled or unknown order is not fatal from
		// the core's view (spec §4.2); callers still see the error to log
		// it, but should not treat it as blocking.
		return err
	}
	return nil
}

func (c *BybitClient) Status(ctx context.Context, id OrderID) (OrderStatus, error) {
	q := url.Values{}
	q.Set("category", c.category)
	q.Set("symbol", c.symbol)
	q.Set("orderId", string(id))

	result, err := c.doGet(ctx, "/v5/order/realtime", q)
	if err != nil {
		return OrderStatus{}, err
	}
	var out struct {
		List []struct {
			OrderStatus string `json:"orderStatus"`
			CumExecQty  string `json:"cumExecQty"`
		} `json:"list"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return OrderStatus{}, fmt.Errorf("%w: decode order/realtime result: %v", ErrTransport, err)
	}
	if len(out.List) == 0 {
		return OrderStatus{}, fmt.Errorf("%w: orderId=%s", ErrUnknownOrder, id)
	}
	entry := out.List[0]
	cum, _ := decimal.NewFromString(entry.CumExecQty)
	return OrderStatus{State: mapBybitOrderStatus(entry.OrderStatus), CumExecQty: cum}, nil
}

func mapBybitOrderStatus(s string) OrderState {
	switch s {
	case "New", "Untriggered", "Created":
		return OrderNew
	case "PartiallyFilled":
		return OrderPartiallyFilled
	case "Filled":
		return OrderFilled
	default:
		return OrderOther
	}
}

func (c *BybitClient) OrderbookTop(ctx context.Context) (OrderBookTop, error) {
	q := url.Values{}
	q.Set("category", c.category)
	q.Set("symbol", c.symbol)
	q.Set("limit", "1")

	result, err := c.doGet(ctx, "/v5/market/orderbook", q)
	if err != nil {
		return OrderBookTop{}, err
	}
	var out struct {
		B [][]string `json:"b"`
		A [][]string `json:"a"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return OrderBookTop{}, fmt.Errorf("%w: decode orderbook result: %v", ErrTransport, err)
	}
	if len(out.B) == 0 || len(out.A) == 0 || len(out.B[0]) == 0 || len(out.A[0]) == 0 {
		return OrderBookTop{}, fmt.Errorf("%w: orderbook: empty book", ErrTransport)
	}
	bid, err := decimal.NewFromString(out.B[0][0])
	if err != nil {
		return OrderBookTop{}, fmt.Errorf("%w: parse bestBid: %v", ErrTransport, err)
	}
	ask, err := decimal.NewFromString(out.A[0][0])
	if err != nil {
		return OrderBookTop{}, fmt.Errorf("%w: parse bestAsk: %v", ErrTransport, err)
	}
	return OrderBookTop{BestBid: bid, BestAsk: ask}, nil
}
