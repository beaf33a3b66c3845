package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cakebox/storefront/internal/checkout"
	"github.com/cakebox/storefront/internal/commerce"
	"github.com/cakebox/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// CheckoutService is the slice of the checkout layer the HTTP surface needs.
type CheckoutService interface {
	Snapshot(ctx context.Context, cartID string) (*domain.Cart, error)
	ShippingOptions(ctx context.Context, cartID string) ([]domain.ShippingOption, error)
	SetAddresses(ctx context.Context, cartID string, input checkout.AddressInput) (*domain.Cart, error)
	SetShippingMethod(ctx context.Context, cartID, optionID string) (*domain.Cart, error)
	CreatePaymentSession(ctx context.Context, cartID string) (*domain.Cart, error)
	PlaceOrder(ctx context.Context, cartID string) (*domain.Order, error)
}

type CheckoutHandler struct {
	service CheckoutService
	log     *logrus.Logger
	timeout time.Duration
}

func NewCheckoutHandler(service CheckoutService, log *logrus.Logger, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{service: service, log: log, timeout: timeout}
}

// CheckoutStateDTO is the full render model for the checkout page: the granted
// step, per-step completion, display totals and the cart itself.
type CheckoutStateDTO struct {
	Step     domain.Step        `json:"step"`
	Progress checkout.Progress  `json:"progress"`
	Totals   checkout.Breakdown `json:"totals"`
	Cart     *domain.Cart       `json:"cart"`
}

type SetShippingMethodDTO struct {
	OptionID string `json:"option_id"`
}

// GetState renders the checkout state for a cart. An optional ?step= query
// asks to open a specific step; jumps past incomplete steps are answered with
// the step that actually needs attention rather than an error page.
func (h *CheckoutHandler) GetState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cart_id")

	cart, err := h.service.Snapshot(ctx, cartID)
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	step := checkout.NextStep(cart)
	if requested := r.URL.Query().Get("step"); requested != "" {
		granted, stepErr := checkout.RequestStep(cart, domain.Step(requested))
		step = granted
		if stepErr != nil {
			h.log.WithFields(logrus.Fields{
				"cart_id":    cartID,
				"requested":  requested,
				"granted":    granted,
				"request_id": getRequestID(r.Context()),
			}).Info("step request redirected")
		}
	}

	respondJSON(w, http.StatusOK, h.state(cart, step, r))
}

func (h *CheckoutHandler) ShippingOptions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	options, err := h.service.ShippingOptions(ctx, chi.URLParam(r, "cart_id"))
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"shipping_options": options})
}

func (h *CheckoutHandler) SetAddresses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var input checkout.AddressInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.service.SetAddresses(ctx, chi.URLParam(r, "cart_id"), input)
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.state(cart, checkout.NextStep(cart), r))
}

func (h *CheckoutHandler) SetShippingMethod(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SetShippingMethodDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.OptionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_option_id", "option_id is required")
		return
	}

	cart, err := h.service.SetShippingMethod(ctx, chi.URLParam(r, "cart_id"), req.OptionID)
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.state(cart, checkout.NextStep(cart), r))
}

func (h *CheckoutHandler) CreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.service.CreatePaymentSession(ctx, chi.URLParam(r, "cart_id"))
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.state(cart, checkout.NextStep(cart), r))
}

func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.service.PlaceOrder(ctx, chi.URLParam(r, "cart_id"))
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"order": order})
}

func (h *CheckoutHandler) state(cart *domain.Cart, step domain.Step, r *http.Request) CheckoutStateDTO {
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = r.Header.Get("Accept-Language")
	}
	return CheckoutStateDTO{
		Step:     step,
		Progress: checkout.Resolve(cart),
		Totals:   checkout.ProjectTotals(cart, locale),
		Cart:     cart,
	}
}

func (h *CheckoutHandler) respondCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *checkout.ValidationError
	if errors.As(err, &validation) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "validation failed",
			Code:   "validation_failed",
			Fields: validation.Fields,
		})
		return
	}

	var precondition *checkout.PreconditionError
	if errors.As(err, &precondition) {
		respondError(w, http.StatusConflict, "step_not_available", precondition.Error())
		return
	}

	var rejection *checkout.BackendRejection
	if errors.As(err, &rejection) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: rejection.Message,
			Code:  rejection.Code,
			Fields: func() map[string]string {
				if rejection.Field == "" {
					return nil
				}
				return map[string]string{rejection.Field: rejection.Message}
			}(),
		})
		return
	}

	var payErr *checkout.PaymentError
	if errors.As(err, &payErr) {
		respondError(w, http.StatusPaymentRequired, "payment_failed", payErr.Reason)
		return
	}

	var transport *checkout.TransportError
	if errors.As(err, &transport) {
		h.log.WithError(err).WithField("request_id", getRequestID(r.Context())).Error("commerce backend unreachable")
		respondError(w, http.StatusServiceUnavailable, "backend_unavailable", "please try again")
		return
	}

	switch {
	case errors.Is(err, commerce.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "cart_not_found", "cart not found")
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", "cart is empty")
	default:
		h.log.WithError(err).WithField("request_id", getRequestID(r.Context())).Error("unhandled checkout error")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
