package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the storefront's HTTP surface.
func NewRouter(carts *CartHandler, co *CheckoutHandler, webhooks *WebhookHandler, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/cart", carts.CurrentCart)
		r.Post("/carts", carts.CreateCart)

		r.Route("/carts/{cart_id}", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Post("/line-items", carts.AddLineItem)
			r.Patch("/line-items/{item_id}", carts.UpdateLineItem)
			r.Delete("/line-items/{item_id}", carts.RemoveLineItem)

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", co.GetState)
				r.Get("/shipping-options", co.ShippingOptions)
				r.Post("/addresses", co.SetAddresses)
				r.Post("/shipping-method", co.SetShippingMethod)
				r.Post("/payment-session", co.CreatePaymentSession)
				r.Post("/complete", co.Complete)
			})
		})

		r.Post("/webhooks/product-update", webhooks.ProductUpdate)
	})

	return r
}
