package checkout

import "github.com/cakebox/storefront/internal/domain"

// Progress is the derived state of the checkout flow for one cart snapshot.
// Completion flags are independent of the active step: a complete step renders
// as done and stays editable even while a later step is active.
type Progress struct {
	Active domain.Step `json:"active"`

	AddressComplete  bool `json:"address_complete"`
	DeliveryComplete bool `json:"delivery_complete"`
	PaymentComplete  bool `json:"payment_complete"`

	// PaidByGiftCard is set when gift cards cover the whole grand total, in
	// which case the payment step is bypassed entirely.
	PaidByGiftCard bool `json:"paid_by_gift_card"`
}

// ReviewReady reports whether the order can be placed from this snapshot.
func (p Progress) ReviewReady() bool {
	return p.AddressComplete && p.DeliveryComplete && p.PaymentComplete
}

// Complete reports whether the given step's own precondition is satisfied.
func (p Progress) Complete(step domain.Step) bool {
	switch step {
	case domain.StepAddress:
		return p.AddressComplete
	case domain.StepDelivery:
		return p.DeliveryComplete
	case domain.StepPayment:
		return p.PaymentComplete
	case domain.StepReview:
		return p.ReviewReady()
	}
	return false
}

// Resolve derives the active checkout step and per-step completion flags from
// a cart snapshot. It is a pure function: no side effects, and the same
// snapshot always yields the same result. The precondition chain is evaluated
// in order; the first unmet condition determines the active step.
func Resolve(cart *domain.Cart) Progress {
	p := Progress{
		AddressComplete: cart.HasShippingAddress(),
		PaidByGiftCard:  cart.PaidByGiftCard(),
	}
	p.DeliveryComplete = p.AddressComplete && cart.ActiveShippingMethod() != nil
	p.PaymentComplete = p.DeliveryComplete &&
		(cart.PaymentCollection != nil || p.PaidByGiftCard)

	switch {
	case !p.AddressComplete:
		p.Active = domain.StepAddress
	case !p.DeliveryComplete:
		p.Active = domain.StepDelivery
	case !p.PaymentComplete:
		p.Active = domain.StepPayment
	default:
		p.Active = domain.StepReview
	}
	return p
}
