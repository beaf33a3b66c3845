package domain

// Step is a derived checkout stage. It is recomputed from the cart snapshot on
// every request and never stored.
type Step string

const (
	StepAddress  Step = "address"
	StepDelivery Step = "delivery"
	StepPayment  Step = "payment"
	StepReview   Step = "review"
)

var stepOrder = map[Step]int{
	StepAddress:  0,
	StepDelivery: 1,
	StepPayment:  2,
	StepReview:   3,
}

// Valid reports whether s is one of the four checkout steps.
func (s Step) Valid() bool {
	_, ok := stepOrder[s]
	return ok
}

// String representation (for logging)
func (s Step) String() string {
	return string(s)
}
