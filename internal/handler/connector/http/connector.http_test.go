package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/krobus00/trading-client/internal/entity"
	connectorsvc "github.com/krobus00/trading-client/internal/service/connector"
	"github.com/krobus00/trading-client/internal/service/exchange"
	"github.com/krobus00/trading-client/internal/tracker"
)

type nopSink struct{}

func (nopSink) OrderCreated(context.Context, entity.OrderCreatedEvent)     {}
func (nopSink) OrderFilled(context.Context, entity.OrderFilledEvent)       {}
func (nopSink) OrderCancelled(context.Context, entity.OrderCancelledEvent) {}
func (nopSink) OrderFailure(context.Context, entity.OrderFailureEvent)     {}
func (nopSink) OrderCompleted(context.Context, entity.OrderCompletedEvent) {}

func newTestServer(t *testing.T) (*httptest.Server, *tracker.Tracker) {
	t.Helper()

	ex := exchange.NewPaperExchange(decimal.NewFromFloat(0.1))
	tr := tracker.New(tracker.Config{
		Exchange:            string(ex.Name()),
		TradeFillsAvailable: ex.TradeFillsAvailable(),
	}, nopSink{}, nil)
	ex.SetConsumer(tr)

	mux := http.NewServeMux()
	NewConnectorHTTPHandler(connectorsvc.NewService(ex, tr), tr).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, tr
}

func placeOrderViaHTTP(t *testing.T, server *httptest.Server, body string) PlaceOrderResponse {
	t.Helper()

	resp, err := http.Post(server.URL+"/connector/v1/orders", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /orders: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /orders status = %d, want 200", resp.StatusCode)
	}

	var placed PlaceOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&placed); err != nil {
		t.Fatalf("decode place response: %v", err)
	}
	return placed
}

func TestPlaceAndFetchOrder(t *testing.T) {
	server, _ := newTestServer(t)

	placed := placeOrderViaHTTP(t, server, `{"symbol":"BTC-USDT","side":"buy","type":"limit","price":"10000","amount":"1"}`)
	if placed.ClientOrderID == "" || placed.Status != "submitted" {
		t.Fatalf("place response = %+v", placed)
	}

	resp, err := http.Get(server.URL + "/connector/v1/orders/" + placed.ClientOrderID)
	if err != nil {
		t.Fatalf("GET /orders/{id}: %v", err)
	}
	defer resp.Body.Close()

	var order OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		t.Fatalf("decode order response: %v", err)
	}

	if order.State != string(entity.OrderStateOpen) {
		t.Errorf("state = %q, want OPEN", order.State)
	}
	if !order.ExchangeOrderID.Valid {
		t.Error("exchange order id missing from response")
	}
	if order.Side != "BUY" || order.Type != "LIMIT" {
		t.Errorf("side/type = %q/%q, want BUY/LIMIT", order.Side, order.Type)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing fields", `{"symbol":"BTC-USDT"}`, http.StatusBadRequest},
		{"bad amount", `{"symbol":"BTC-USDT","side":"buy","type":"limit","price":"10000","amount":"one"}`, http.StatusBadRequest},
		{"rejected by venue", `{"symbol":"BTC-USDT","side":"buy","type":"limit","price":"0","amount":"1"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(server.URL+"/connector/v1/orders", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST /orders: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestCancelOrderEndpoint(t *testing.T) {
	server, tr := newTestServer(t)
	placed := placeOrderViaHTTP(t, server, `{"symbol":"BTC-USDT","side":"buy","type":"limit","price":"10000","amount":"1"}`)

	resp, err := http.Post(server.URL+"/connector/v1/orders/"+placed.ClientOrderID+"/cancel", "application/json", nil)
	if err != nil {
		t.Fatalf("POST cancel: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}

	if _, ok := tr.FetchOrder(placed.ClientOrderID); ok {
		t.Error("cancelled order still actively tracked")
	}

	// The order is closed now but still resolvable through the cache.
	resp, err = http.Get(server.URL + "/connector/v1/orders/" + placed.ClientOrderID)
	if err != nil {
		t.Fatalf("GET after cancel: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET after cancel status = %d, want 200", resp.StatusCode)
	}

	var order OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		t.Fatalf("decode order response: %v", err)
	}
	if order.State != string(entity.OrderStateCanceled) {
		t.Errorf("state = %q, want CANCELED", order.State)
	}

	resp, err = http.Post(server.URL+"/connector/v1/orders/unknown/cancel", "application/json", nil)
	if err != nil {
		t.Fatalf("POST cancel unknown: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cancel unknown status = %d, want 404", resp.StatusCode)
	}
}

func TestListEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	placeOrderViaHTTP(t, server, `{"symbol":"BTC-USDT","side":"buy","type":"limit","price":"10000","amount":"1"}`)

	resp, err := http.Get(server.URL + "/connector/v1/orders")
	if err != nil {
		t.Fatalf("GET /orders: %v", err)
	}
	defer resp.Body.Close()

	var orders []OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(orders) != 1 {
		t.Errorf("active orders = %d, want 1", len(orders))
	}

	lostResp, err := http.Get(server.URL + "/connector/v1/orders/lost")
	if err != nil {
		t.Fatalf("GET /orders/lost: %v", err)
	}
	defer lostResp.Body.Close()

	var lost []OrderResponse
	if err := json.NewDecoder(lostResp.Body).Decode(&lost); err != nil {
		t.Fatalf("decode lost response: %v", err)
	}
	if len(lost) != 0 {
		t.Errorf("lost orders = %d, want 0", len(lost))
	}
}
