package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/guregu/null/v6"
	"github.com/krobus00/trading-client/internal/entity"
	connectorsvc "github.com/krobus00/trading-client/internal/service/connector"
	"github.com/krobus00/trading-client/internal/tracker"
	"github.com/shopspring/decimal"
)

type PlaceOrderRequest struct {
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Type   string `json:"type"`
	Price  string `json:"price"`
	Amount string `json:"amount"`
}

type PlaceOrderResponse struct {
	ClientOrderID string `json:"client_order_id"`
	Status        string `json:"status"`
}

type OrderResponse struct {
	ClientOrderID       string      `json:"client_order_id"`
	ExchangeOrderID     null.String `json:"exchange_order_id"`
	Symbol              string      `json:"symbol"`
	Side                string      `json:"side"`
	Type                string      `json:"type"`
	Price               string      `json:"price"`
	Amount              string      `json:"amount"`
	State               string      `json:"state"`
	ExecutedAmountBase  string      `json:"executed_amount_base"`
	ExecutedAmountQuote string      `json:"executed_amount_quote"`
	FillCount           int         `json:"fill_count"`
	NotFoundCount       int         `json:"not_found_count,omitempty"`
	IsLost              bool        `json:"is_lost"`
}

type Handler struct {
	connectorService *connectorsvc.Service
	orderTracker     *tracker.Tracker
}

func NewConnectorHTTPHandler(connectorService *connectorsvc.Service, orderTracker *tracker.Tracker) *Handler {
	return &Handler{
		connectorService: connectorService,
		orderTracker:     orderTracker,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/connector/v1/orders", h.Orders)
	mux.HandleFunc("/connector/v1/orders/lost", h.LostOrders)
	mux.HandleFunc("/connector/v1/orders/", h.OrderByID)
}

func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listActiveOrders(w, r)
	case http.MethodPost:
		h.placeOrder(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
}

func (h *Handler) LostOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	orders := h.orderTracker.LostOrders()
	response := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, h.mapOrder(order, true))
	}

	writeJSON(w, http.StatusOK, response)
}

// OrderByID serves GET /connector/v1/orders/{id} and
// POST /connector/v1/orders/{id}/cancel.
func (h *Handler) OrderByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/connector/v1/orders/")
	if rest == "" || rest == "lost" {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}

	if strings.HasSuffix(rest, "/cancel") {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}
		h.cancelOrder(w, r, strings.TrimSuffix(rest, "/cancel"))
		return
	}

	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	order, ok := h.orderTracker.FetchOrder(rest)
	if !ok {
		if cached, cachedOK := h.orderTracker.FetchCachedOrder(rest); cachedOK {
			writeJSON(w, http.StatusOK, h.mapOrder(cached, false))
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "order not found"})
		return
	}

	_, isLost := h.orderTracker.LostOrders()[rest]
	writeJSON(w, http.StatusOK, h.mapOrder(order, isLost))
}

func (h *Handler) listActiveOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.orderTracker.ActiveOrders()
	response := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, h.mapOrder(order, false))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}

	if strings.TrimSpace(req.Symbol) == "" || strings.TrimSpace(req.Side) == "" || strings.TrimSpace(req.Type) == "" || strings.TrimSpace(req.Amount) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing required fields"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid amount"})
		return
	}

	price := decimal.Zero
	if strings.TrimSpace(req.Price) != "" {
		price, err = decimal.NewFromString(req.Price)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid price"})
			return
		}
	}

	clientOrderID, err := h.connectorService.PlaceOrder(r.Context(), connectorsvc.PlaceOrderRequest{
		Symbol: strings.TrimSpace(req.Symbol),
		Side:   entity.OrderSide(strings.ToUpper(req.Side)),
		Type:   entity.OrderType(strings.ToUpper(req.Type)),
		Price:  price,
		Amount: amount,
	})
	if err != nil {
		if errors.Is(err, connectorsvc.ErrSubmitOrderFailed) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"client_order_id": clientOrderID,
				"error":           "order rejected by exchange",
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, PlaceOrderResponse{
		ClientOrderID: clientOrderID,
		Status:        "submitted",
	})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request, clientOrderID string) {
	err := h.connectorService.CancelOrder(r.Context(), clientOrderID)
	if err != nil {
		switch {
		case errors.Is(err, connectorsvc.ErrOrderNotTracked):
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "order not tracked"})
		case errors.Is(err, connectorsvc.ErrCancelOrderFailed):
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": "cancel request failed"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"client_order_id": clientOrderID, "status": "cancel requested"})
}

func (h *Handler) mapOrder(order *entity.InFlightOrder, isLost bool) OrderResponse {
	exchangeOrderID := null.String{}
	if order.ExchangeOrderID() != "" {
		exchangeOrderID = null.StringFrom(order.ExchangeOrderID())
	}

	return OrderResponse{
		ClientOrderID:       order.ClientOrderID,
		ExchangeOrderID:     exchangeOrderID,
		Symbol:              order.Symbol,
		Side:                string(order.Side),
		Type:                string(order.Type),
		Price:               order.Price.String(),
		Amount:              order.Amount.String(),
		State:               string(order.CurrentState()),
		ExecutedAmountBase:  order.ExecutedAmountBase().String(),
		ExecutedAmountQuote: order.ExecutedAmountQuote().String(),
		FillCount:           order.FillCount(),
		NotFoundCount:       h.orderTracker.NotFoundCount(order.ClientOrderID),
		IsLost:              isLost,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
