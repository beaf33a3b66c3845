package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cakebox/storefront/internal/checkout"
	"github.com/cakebox/storefront/internal/commerce"
	"github.com/cakebox/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutServiceMock struct {
	cart    *domain.Cart
	options []domain.ShippingOption
	order   *domain.Order
	err     error
}

func (m checkoutServiceMock) Snapshot(context.Context, string) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, nil
}

func (m checkoutServiceMock) ShippingOptions(context.Context, string) ([]domain.ShippingOption, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.options, nil
}

func (m checkoutServiceMock) SetAddresses(context.Context, string, checkout.AddressInput) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, nil
}

func (m checkoutServiceMock) SetShippingMethod(context.Context, string, string) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, nil
}

func (m checkoutServiceMock) CreatePaymentSession(context.Context, string) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, nil
}

func (m checkoutServiceMock) PlaceOrder(context.Context, string) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func checkoutRouter(service CheckoutService) chi.Router {
	handler := NewCheckoutHandler(service, quietLogger(), 5*time.Second)
	r := chi.NewRouter()
	r.Route("/api/carts/{cart_id}/checkout", func(r chi.Router) {
		r.Get("/", handler.GetState)
		r.Get("/shipping-options", handler.ShippingOptions)
		r.Post("/addresses", handler.SetAddresses)
		r.Post("/shipping-method", handler.SetShippingMethod)
		r.Post("/payment-session", handler.CreatePaymentSession)
		r.Post("/complete", handler.Complete)
	})
	return r
}

func testCheckoutCart() *domain.Cart {
	return &domain.Cart{
		ID:           "cart_1",
		CurrencyCode: "gbp",
		Email:        "jo@example.com",
		ShippingAddress: &domain.Address{
			FirstName: "Jo", LastName: "Bloggs", Address1: "1 Bakery Lane",
			City: "London", PostalCode: "E1 6AN", CountryCode: "gb",
		},
		Items:    []domain.LineItem{{ID: "item_1", Title: "Victoria Sponge", Quantity: 1, UnitPrice: 2499, Subtotal: 2499}},
		Subtotal: 2499,
		Total:    2499,
	}
}

func TestGetState_Success(t *testing.T) {
	router := checkoutRouter(checkoutServiceMock{cart: testCheckoutCart()})

	req := httptest.NewRequest(http.MethodGet, "/api/carts/cart_1/checkout?locale=en-GB", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var state CheckoutStateDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, domain.StepDelivery, state.Step)
	assert.True(t, state.Progress.AddressComplete)
	assert.True(t, state.Totals.ShippingPending)
	assert.Equal(t, "cart_1", state.Cart.ID)
}

func TestGetState_ForwardStepRequestRedirects(t *testing.T) {
	router := checkoutRouter(checkoutServiceMock{cart: testCheckoutCart()})

	req := httptest.NewRequest(http.MethodGet, "/api/carts/cart_1/checkout?step=payment", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var state CheckoutStateDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, domain.StepDelivery, state.Step)
}

func TestGetState_CartNotFound(t *testing.T) {
	router := checkoutRouter(checkoutServiceMock{err: commerce.ErrCartNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/carts/cart_missing/checkout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetAddresses_ValidationErrorRendersFields(t *testing.T) {
	router := checkoutRouter(checkoutServiceMock{
		err: &checkout.ValidationError{Fields: checkout.FieldErrors{"email": "a valid email address is required"}},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/carts/cart_1/checkout/addresses", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "validation_failed", resp.Code)
	assert.Contains(t, resp.Fields, "email")
}

func TestSetAddresses_InvalidJSON(t *testing.T) {
	router := checkoutRouter(checkoutServiceMock{cart: testCheckoutCart()})

	req := httptest.NewRequest(http.MethodPost, "/api/carts/cart_1/checkout/addresses", bytes.NewBufferString(`{not json`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetShippingMethod_PreconditionConflict(t *testing.T) {
	router := checkoutRouter(checkoutServiceMock{
		err: &checkout.PreconditionError{Step: domain.StepDelivery, Reason: "email and shipping address must be set first"},
	})

	body := bytes.NewBufferString(`{"option_id":"so_standard"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/carts/cart_1/checkout/shipping-method", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "step_not_available", resp.Code)
}

func TestSetShippingMethod_MissingOptionID(t *testing.T) {
	router := checkoutRouter(checkoutServiceMock{cart: testCheckoutCart()})

	req := httptest.NewRequest(http.MethodPost, "/api/carts/cart_1/checkout/shipping-method", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetShippingMethod_BackendRejection(t *testing.T) {
	router := checkoutRouter(checkoutServiceMock{
		err: &checkout.BackendRejection{
			Step:    domain.StepDelivery,
			Code:    "invalid_option",
			Message: "option not available for region",
		},
	})

	body := bytes.NewBufferString(`{"option_id":"so_drone"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/carts/cart_1/checkout/shipping-method", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "invalid_option", resp.Code)
}

func TestCreatePaymentSession_Declined(t *testing.T) {
	router := checkoutRouter(checkoutServiceMock{
		err: &checkout.PaymentError{Reason: "card declined"},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/carts/cart_1/checkout/payment-session", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "payment_failed", resp.Code)
	assert.Equal(t, "card declined", resp.Error)
}

func TestComplete_Success(t *testing.T) {
	router := checkoutRouter(checkoutServiceMock{
		order: &domain.Order{ID: "order_1", DisplayID: 1042, CartID: "cart_1", Total: 2894},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/carts/cart_1/checkout/complete", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Order domain.Order `json:"order"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "order_1", resp.Order.ID)
}

func TestComplete_TransportFailure(t *testing.T) {
	router := checkoutRouter(checkoutServiceMock{
		err: &checkout.TransportError{Step: domain.StepReview, Err: errors.New("connection refused")},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/carts/cart_1/checkout/complete", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestShippingOptions_Success(t *testing.T) {
	router := checkoutRouter(checkoutServiceMock{
		options: []domain.ShippingOption{{ID: "so_standard", Name: "Standard Delivery", Amount: 395}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/carts/cart_1/checkout/shipping-options", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ShippingOptions []domain.ShippingOption `json:"shipping_options"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.ShippingOptions, 1)
	assert.Equal(t, "so_standard", resp.ShippingOptions[0].ID)
}
