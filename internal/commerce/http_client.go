package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cakebox/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// apiResult carries the raw backend response through the circuit breaker.
// Only transport failures and 5xx responses count against the breaker;
// 4xx rejections are application outcomes, not backend health signals.
type apiResult struct {
	status int
	body   []byte
}

type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[apiResult]
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	breaker := gobreaker.NewCircuitBreaker[apiResult](gobreaker.Settings{
		Name:        "commerce-backend",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

func (c *HTTPClient) CreateCart(ctx context.Context, regionID string) (*domain.Cart, error) {
	payload := map[string]string{"region_id": regionID}
	return c.cartRequest(ctx, http.MethodPost, "/store/carts", payload)
}

func (c *HTTPClient) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	return c.cartRequest(ctx, http.MethodGet, "/store/carts/"+cartID, nil)
}

func (c *HTTPClient) UpdateCart(ctx context.Context, cartID string, update CartUpdate) (*domain.Cart, error) {
	return c.cartRequest(ctx, http.MethodPost, "/store/carts/"+cartID, update)
}

func (c *HTTPClient) AddLineItem(ctx context.Context, cartID, variantID string, quantity int) (*domain.Cart, error) {
	payload := map[string]interface{}{"variant_id": variantID, "quantity": quantity}
	return c.cartRequest(ctx, http.MethodPost, "/store/carts/"+cartID+"/line-items", payload)
}

func (c *HTTPClient) UpdateLineItem(ctx context.Context, cartID, itemID string, quantity int) (*domain.Cart, error) {
	payload := map[string]interface{}{"quantity": quantity}
	return c.cartRequest(ctx, http.MethodPost, "/store/carts/"+cartID+"/line-items/"+itemID, payload)
}

func (c *HTTPClient) RemoveLineItem(ctx context.Context, cartID, itemID string) (*domain.Cart, error) {
	return c.cartRequest(ctx, http.MethodDelete, "/store/carts/"+cartID+"/line-items/"+itemID, nil)
}

func (c *HTTPClient) ListShippingOptions(ctx context.Context, cartID string) ([]domain.ShippingOption, error) {
	body, err := c.do(ctx, http.MethodGet, "/store/shipping-options?cart_id="+cartID, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		ShippingOptions []domain.ShippingOption `json:"shipping_options"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode shipping options: %w", err)
	}
	return envelope.ShippingOptions, nil
}

func (c *HTTPClient) AddShippingMethod(ctx context.Context, cartID, optionID string) (*domain.Cart, error) {
	payload := map[string]string{"option_id": optionID}
	return c.cartRequest(ctx, http.MethodPost, "/store/carts/"+cartID+"/shipping-methods", payload)
}

func (c *HTTPClient) SetPaymentCollection(ctx context.Context, cartID string, collection domain.PaymentCollection) (*domain.Cart, error) {
	return c.cartRequest(ctx, http.MethodPost, "/store/carts/"+cartID+"/payment-collection", collection)
}

func (c *HTTPClient) CompleteCart(ctx context.Context, cartID string) (*domain.Order, error) {
	body, err := c.do(ctx, http.MethodPost, "/store/carts/"+cartID+"/complete", nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Order *domain.Order `json:"order"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if envelope.Order == nil {
		return nil, &RejectionError{Code: "incomplete_cart", Message: "cart completion returned no order"}
	}
	return envelope.Order, nil
}

func (c *HTTPClient) cartRequest(ctx context.Context, method, path string, payload interface{}) (*domain.Cart, error) {
	body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Cart *domain.Cart `json:"cart"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if envelope.Cart == nil {
		return nil, ErrCartNotFound
	}
	return envelope.Cart, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-publishable-api-key", c.apiKey)
	}

	result, err := c.breaker.Execute(func() (apiResult, error) {
		resp, reqErr := c.client.Do(req)
		if reqErr != nil {
			return apiResult{}, reqErr
		}
		defer resp.Body.Close()

		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return apiResult{}, readErr
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return apiResult{}, fmt.Errorf("backend returned %d", resp.StatusCode)
		}
		return apiResult{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("commerce backend %s %s: %w", method, path, err)
	}

	if result.status == http.StatusNotFound {
		return nil, ErrCartNotFound
	}
	if result.status >= http.StatusBadRequest {
		return nil, parseRejection(result.body)
	}
	return result.body, nil
}

func parseRejection(body []byte) error {
	var rejection struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	}
	if err := json.Unmarshal(body, &rejection); err != nil || rejection.Message == "" {
		return &RejectionError{Code: "unknown", Message: string(body)}
	}
	return &RejectionError{Code: rejection.Code, Message: rejection.Message, Field: rejection.Field}
}
