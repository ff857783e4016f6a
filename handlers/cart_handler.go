package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bnpl-checkout/cart"
)

type CartHandler struct {
	store *cart.Store
	feed  *cart.Feed
}

func NewCartHandler(store *cart.Store, feed *cart.Feed) *CartHandler {
	return &CartHandler{store: store, feed: feed}
}

func (h *CartHandler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, cart.Products())
}

func (h *CartHandler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Get(r.Context(), chi.URLParam(r, "cartID")))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

func (h *CartHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}
	p, ok := cart.FindProduct(req.ProductID)
	if !ok {
		sendJSONError(w, r, "Product not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, h.store.Add(r.Context(), chi.URLParam(r, "cartID"), p))
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandler) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil || req.Quantity == nil {
		sendJSONError(w, r, "quantity is required", http.StatusBadRequest)
		return
	}
	st := h.store.SetQuantity(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "itemID"), *req.Quantity)
	respondJSON(w, http.StatusOK, st)
}

func (h *CartHandler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	st := h.store.Remove(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "itemID"))
	respondJSON(w, http.StatusOK, st)
}

func (h *CartHandler) HandleClearCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Clear(r.Context(), chi.URLParam(r, "cartID")))
}

// HandleDrainNotifications returns the cart's pending toasts and forgets them.
func (h *CartHandler) HandleDrainNotifications(w http.ResponseWriter, r *http.Request) {
	list := h.feed.Drain(chi.URLParam(r, "cartID"))
	if list == nil {
		list = []cart.Notification{}
	}
	respondJSON(w, http.StatusOK, list)
}
