package domain

import "time"

// Address is a postal address attached to a cart. Field names follow the
// commerce backend's JSON shape.
type Address struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address1    string `json:"address_1"`
	Address2    string `json:"address_2,omitempty"`
	City        string `json:"city"`
	Province    string `json:"province,omitempty"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone,omitempty"`
}

// Equal reports whether two addresses describe the same destination.
func (a Address) Equal(b Address) bool {
	return a.FirstName == b.FirstName &&
		a.LastName == b.LastName &&
		a.Address1 == b.Address1 &&
		a.Address2 == b.Address2 &&
		a.City == b.City &&
		a.Province == b.Province &&
		a.PostalCode == b.PostalCode &&
		a.CountryCode == b.CountryCode
}

type LineItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

// ShippingMethod is a delivery method already attached to a cart. The backend
// may keep stale entries from earlier selections; ActiveShippingMethod on the
// cart resolves which one counts.
type ShippingMethod struct {
	ID               string    `json:"id"`
	ShippingOptionID string    `json:"shipping_option_id"`
	Name             string    `json:"name"`
	Amount           int64     `json:"amount"`
	AddedAt          time.Time `json:"added_at"`
}

// ShippingOption is reference data: a delivery method selectable for a cart's
// region and address.
type ShippingOption struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

type GiftCard struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Balance int64  `json:"balance"`
}

// PaymentCollection is the provider-side handle for collecting payment. It is
// only present on the cart once a payment session has been created and
// confirmed with the provider.
type PaymentCollection struct {
	ID         string `json:"id"`
	ProviderID string `json:"provider_id"`
	SessionID  string `json:"session_id"`
	Amount     int64  `json:"amount"`
}

// Cart is the server-authoritative snapshot of an in-progress order. Clients
// never mutate it in place; they replace it wholesale with the response of the
// latest acknowledged mutation. All monetary fields are integers in minor
// currency units.
type Cart struct {
	ID              string           `json:"id"`
	CustomerID      string           `json:"customer_id,omitempty"`
	RegionID        string           `json:"region_id"`
	CurrencyCode    string           `json:"currency_code"`
	Email           string           `json:"email,omitempty"`
	Items           []LineItem       `json:"items"`
	ShippingAddress *Address         `json:"shipping_address,omitempty"`
	BillingAddress  *Address         `json:"billing_address,omitempty"`
	ShippingMethods []ShippingMethod `json:"shipping_methods"`
	GiftCards       []GiftCard       `json:"gift_cards,omitempty"`
	DiscountCodes   []string         `json:"discount_codes,omitempty"`

	PaymentCollection *PaymentCollection `json:"payment_collection,omitempty"`

	Subtotal      int64 `json:"subtotal"`
	DiscountTotal int64 `json:"discount_total"`
	GiftCardTotal int64 `json:"gift_card_total"`
	ShippingTotal int64 `json:"shipping_total"`
	TaxTotal      int64 `json:"tax_total"`
	Total         int64 `json:"total"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ActiveShippingMethod returns the method that counts for this cart. The
// backend historically appends on re-selection instead of replacing, so the
// most recently added entry wins.
func (c *Cart) ActiveShippingMethod() *ShippingMethod {
	if len(c.ShippingMethods) == 0 {
		return nil
	}
	return &c.ShippingMethods[len(c.ShippingMethods)-1]
}

// PaidByGiftCard reports whether applied gift cards cover the full grand
// total, in which case no payment session is required.
func (c *Cart) PaidByGiftCard() bool {
	return len(c.GiftCards) > 0 && c.Total == 0
}

// HasShippingAddress reports whether the address step's data is present:
// an email and a shipping address with at least the first address line.
func (c *Cart) HasShippingAddress() bool {
	return c.Email != "" && c.ShippingAddress != nil && c.ShippingAddress.Address1 != ""
}
