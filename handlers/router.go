package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"bnpl-checkout/shared"
)

// Dependencies collects handler dependencies.
type Dependencies struct {
	Carts          *CartHandler
	Orders         *OrderHandler
	Lookups        *LookupHandler
	Checkout       *CheckoutHandler
	AllowedOrigins []string
	Limiter        *rate.Limiter
}

// NewRouter wires the storefront API.
func NewRouter(d Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(ContextualLoggerMiddleware)
	r.Use(CORSMiddleware(d.AllowedOrigins))
	if d.Limiter != nil {
		r.Use(RateLimitMiddleware(d.Limiter))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if d.Checkout != nil {
		r.Get(shared.ReturnPath, d.Checkout.HandleReturn)
	}

	r.Route("/api", func(r chi.Router) {
		if d.Carts != nil {
			r.Get("/products", d.Carts.HandleListProducts)
			r.Route("/carts/{cartID}", func(r chi.Router) {
				r.Get("/", d.Carts.HandleGetCart)
				r.Delete("/", d.Carts.HandleClearCart)
				r.Get("/notifications", d.Carts.HandleDrainNotifications)
				r.Post("/items", d.Carts.HandleAddItem)
				r.Put("/items/{itemID}", d.Carts.HandleSetQuantity)
				r.Delete("/items/{itemID}", d.Carts.HandleRemoveItem)
			})
		}

		if d.Orders != nil {
			r.Route("/orders/{sessionID}", func(r chi.Router) {
				r.Post("/", d.Orders.HandlePlaceOrder)
				r.Get("/", d.Orders.HandleGetOrder)
				r.Delete("/", d.Orders.HandleClearOrder)
				r.Get("/history", d.Orders.HandleOrderHistory)
			})
		}

		if d.Lookups != nil {
			r.Get("/plans", d.Lookups.HandlePlans)
			r.Get("/prices", d.Lookups.HandlePrices)
			r.Get("/balances/{address}", d.Lookups.HandleBalance)
		}

		if d.Checkout != nil {
			r.Route("/checkout/{sessionID}", func(r chi.Router) {
				r.Post("/", d.Checkout.HandleStart)
				r.Get("/", d.Checkout.HandleView)
				r.Post("/authenticate", d.Checkout.HandleAuthenticate)
				r.Post("/resume", d.Checkout.HandleResume)
				r.Post("/actions/{action}", d.Checkout.HandleAction)
			})
		}
	})

	return r
}
