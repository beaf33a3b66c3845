package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cakebox/storefront/internal/cache"
	"github.com/cakebox/storefront/internal/cartref"
	"github.com/cakebox/storefront/internal/commerce"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// CartHandler proxies cart reads and line-item mutations to the commerce
// backend and keeps the session's cart binding current. Line-item mutations
// invalidate the cached snapshot so the checkout flow never reads stale
// totals.
type CartHandler struct {
	backend   commerce.Client
	bindings  cartref.Store
	snapshots cache.SnapshotCache
	log       *logrus.Logger
	timeout   time.Duration
}

func NewCartHandler(backend commerce.Client, bindings cartref.Store, snapshots cache.SnapshotCache, log *logrus.Logger, timeout time.Duration) *CartHandler {
	return &CartHandler{backend: backend, bindings: bindings, snapshots: snapshots, log: log, timeout: timeout}
}

func (h *CartHandler) invalidate(ctx context.Context, cartID string) {
	if err := h.snapshots.DeleteCart(ctx, cartID); err != nil {
		h.log.WithError(err).WithField("cart_id", cartID).Warn("cart cache invalidation failed")
	}
}

type CreateCartDTO struct {
	RegionID string `json:"region_id"`
}

type AddLineItemDTO struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateLineItemDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateCartDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.RegionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_region_id", "region_id is required")
		return
	}

	cart, err := h.backend.CreateCart(ctx, req.RegionID)
	if err != nil {
		h.respondBackendError(w, r, err)
		return
	}

	if sessionID := getSessionID(r.Context()); sessionID != "" {
		binding := &cartref.Binding{SessionID: sessionID, CartID: cart.ID}
		if bindErr := h.bindings.Bind(ctx, binding); bindErr != nil {
			h.log.WithError(bindErr).WithField("cart_id", cart.ID).Warn("failed to bind cart to session")
		}
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"cart": cart})
}

// CurrentCart resolves the session's bound cart, if any.
func (h *CartHandler) CurrentCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	binding, err := h.bindings.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, cartref.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no_cart", "no cart bound to this session")
			return
		}
		h.log.WithError(err).Warn("cart binding lookup failed")
		respondError(w, http.StatusServiceUnavailable, "binding_unavailable", "please try again")
		return
	}

	cart, err := h.backend.GetCart(ctx, binding.CartID)
	if err != nil {
		if errors.Is(err, commerce.ErrCartNotFound) {
			// The backend cart is gone; drop the stale binding.
			if unbindErr := h.bindings.Unbind(ctx, sessionID); unbindErr != nil {
				h.log.WithError(unbindErr).Warn("failed to drop stale cart binding")
			}
			respondError(w, http.StatusNotFound, "no_cart", "no cart bound to this session")
			return
		}
		h.respondBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"cart": cart})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.backend.GetCart(ctx, chi.URLParam(r, "cart_id"))
	if err != nil {
		h.respondBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"cart": cart})
}

func (h *CartHandler) AddLineItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddLineItemDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.VariantID == "" {
		respondError(w, http.StatusBadRequest, "invalid_variant_id", "variant_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	cart, err := h.backend.AddLineItem(ctx, chi.URLParam(r, "cart_id"), req.VariantID, req.Quantity)
	if err != nil {
		h.respondBackendError(w, r, err)
		return
	}

	h.invalidate(ctx, cart.ID)
	respondJSON(w, http.StatusCreated, map[string]interface{}{"cart": cart})
}

func (h *CartHandler) UpdateLineItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateLineItemDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	cart, err := h.backend.UpdateLineItem(ctx, chi.URLParam(r, "cart_id"), chi.URLParam(r, "item_id"), req.Quantity)
	if err != nil {
		h.respondBackendError(w, r, err)
		return
	}

	h.invalidate(ctx, cart.ID)
	respondJSON(w, http.StatusOK, map[string]interface{}{"cart": cart})
}

func (h *CartHandler) RemoveLineItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.backend.RemoveLineItem(ctx, chi.URLParam(r, "cart_id"), chi.URLParam(r, "item_id"))
	if err != nil {
		h.respondBackendError(w, r, err)
		return
	}

	h.invalidate(ctx, cart.ID)
	respondJSON(w, http.StatusOK, map[string]interface{}{"cart": cart})
}

func (h *CartHandler) respondBackendError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, commerce.ErrCartNotFound) {
		respondError(w, http.StatusNotFound, "cart_not_found", "cart not found")
		return
	}

	var rejection *commerce.RejectionError
	if errors.As(err, &rejection) {
		respondError(w, http.StatusBadRequest, rejection.Code, rejection.Message)
		return
	}

	h.log.WithError(err).WithField("request_id", getRequestID(r.Context())).Error("commerce backend unreachable")
	respondError(w, http.StatusServiceUnavailable, "backend_unavailable", "please try again")
}
