package checkout

import (
	"github.com/cakebox/storefront/internal/domain"
	"github.com/cakebox/storefront/internal/money"
)

// ShippingPendingLabel is rendered instead of a zero amount while no shipping
// method is selected, so the summary never implies free shipping.
const ShippingPendingLabel = "Calculated at checkout"

// Breakdown is the display-ready totals projection for a cart snapshot.
// Discount and gift-card lines are present only when non-zero. All strings
// are derived; the cart's integer amounts are never modified.
type Breakdown struct {
	CurrencyCode string `json:"currency_code"`
	Subtotal     string `json:"subtotal"`
	Shipping     string `json:"shipping"`
	Tax          string `json:"tax"`
	Discount     string `json:"discount,omitempty"`
	GiftCard     string `json:"gift_card,omitempty"`
	Total        string `json:"total"`

	ShippingPending bool `json:"shipping_pending"`
}

// ProjectTotals formats a cart's totals for the given locale.
func ProjectTotals(cart *domain.Cart, locale string) Breakdown {
	loc := money.ParseLocale(locale)
	code := cart.CurrencyCode

	b := Breakdown{
		CurrencyCode: code,
		Subtotal:     money.Format(cart.Subtotal, code, loc),
		Tax:          money.Format(cart.TaxTotal, code, loc),
		Total:        money.Format(cart.Total, code, loc),
	}

	if cart.ActiveShippingMethod() == nil {
		b.Shipping = ShippingPendingLabel
		b.ShippingPending = true
	} else {
		b.Shipping = money.Format(cart.ShippingTotal, code, loc)
	}

	if cart.DiscountTotal != 0 {
		b.Discount = "- " + money.Format(cart.DiscountTotal, code, loc)
	}
	if cart.GiftCardTotal != 0 {
		b.GiftCard = "- " + money.Format(cart.GiftCardTotal, code, loc)
	}
	return b
}
