package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bnpl-checkout/cart"
	"bnpl-checkout/logger"
	"bnpl-checkout/order"
)

// OrderHistory keeps a durable record of placed orders.
type OrderHistory interface {
	Record(ctx context.Context, sessionID string, o order.Summary) error
	ListBySession(ctx context.Context, sessionID string) ([]order.Summary, error)
}

type OrderHandler struct {
	carts   *cart.Store
	orders  *order.Store
	history OrderHistory
}

func NewOrderHandler(carts *cart.Store, orders *order.Store, history OrderHistory) *OrderHandler {
	return &OrderHandler{carts: carts, orders: orders, history: history}
}

// place turns the session's cart into its order and clears the cart. The
// cart id of a session is the session id.
func (h *OrderHandler) place(ctx context.Context, sessionID string, method order.PaymentMethod) (order.Summary, error) {
	o, err := order.Place(h.carts.Get(ctx, sessionID), method)
	if err != nil {
		return order.Summary{}, err
	}
	if err := h.orders.Set(sessionID, o); err != nil {
		return order.Summary{}, err
	}
	if h.history != nil {
		if err := h.history.Record(ctx, sessionID, o); err != nil {
			logger.FromContext(ctx).Warn("Failed to record order history", "sessionID", sessionID, "orderNumber", o.OrderNumber, "error", err)
		}
	}
	h.carts.Clear(ctx, sessionID)
	logger.FromContext(ctx).Info("Order placed", "sessionID", sessionID, "orderNumber", o.OrderNumber, "paymentMethod", method)
	return o, nil
}

type placeOrderRequest struct {
	PaymentMethod order.PaymentMethod `json:"paymentMethod"`
}

func (h *OrderHandler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = order.PaymentCredit
	}

	o, err := h.place(r.Context(), chi.URLParam(r, "sessionID"), req.PaymentMethod)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, o)
	case errors.Is(err, order.ErrOrderExists):
		sendJSONError(w, r, err.Error(), http.StatusConflict)
	default:
		sendJSONError(w, r, err.Error(), http.StatusBadRequest)
	}
}

func (h *OrderHandler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		sendJSONError(w, r, err.Error(), http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) HandleClearOrder(w http.ResponseWriter, r *http.Request) {
	h.orders.Clear(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) HandleOrderHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondJSON(w, http.StatusOK, []order.Summary{})
		return
	}
	list, err := h.history.ListBySession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list order history", "error", err)
		sendJSONError(w, r, "Error retrieving order history", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []order.Summary{}
	}
	respondJSON(w, http.StatusOK, list)
}
