package domain

import "time"

// Order is the backend's confirmation of a completed cart. The cart it came
// from is terminated; only the order remains addressable.
type Order struct {
	ID           string    `json:"id"`
	DisplayID    int64     `json:"display_id,omitempty"`
	CartID       string    `json:"cart_id"`
	Email        string    `json:"email"`
	CurrencyCode string    `json:"currency_code"`
	Total        int64     `json:"total"`
	PlacedAt     time.Time `json:"placed_at"`
}
