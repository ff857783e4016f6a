package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"bnpl-checkout/plans"
	"bnpl-checkout/services"
)

type PriceLookup interface {
	FetchUSDPrices(ctx context.Context) services.PriceMap
}

type BalanceLookup interface {
	FetchUSDBalance(ctx context.Context, address string) services.Balance
}

// LookupHandler serves plans, prices and balances. Lookups never surface
// upstream errors.
type LookupHandler struct {
	prices   PriceLookup
	balances BalanceLookup
}

func NewLookupHandler(prices PriceLookup, balances BalanceLookup) *LookupHandler {
	return &LookupHandler{prices: prices, balances: balances}
}

func (h *LookupHandler) HandlePlans(w http.ResponseWriter, r *http.Request) {
	total, err := decimal.NewFromString(r.URL.Query().Get("total"))
	if err != nil || total.IsNegative() {
		sendJSONError(w, r, "total must be a non-negative amount", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, plans.ForTotal(total))
}

func (h *LookupHandler) HandlePrices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.prices.FetchUSDPrices(r.Context()))
}

func (h *LookupHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if address == "" {
		sendJSONError(w, r, "address is required", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.balances.FetchUSDBalance(r.Context(), address))
}
