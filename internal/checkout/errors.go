package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cakebox/storefront/internal/domain"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to check out")

// FieldErrors maps an input field name to a message rendered next to it.
type FieldErrors map[string]string

// ValidationError is client-detectable bad input. No network call was made.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PreconditionError is an operation attempted out of order, e.g. selecting a
// shipping method before an address exists. The UI should prevent this; the
// mutator layer rejects it defensively either way.
type PreconditionError struct {
	Step   domain.Step
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("step %s not available: %s", e.Step, e.Reason)
}

// BackendRejection is a well-formed mutation the commerce backend declined.
// Cart state is unchanged; the message is surfaced at step level.
type BackendRejection struct {
	Step    domain.Step
	Code    string
	Message string
	Field   string
}

func (e *BackendRejection) Error() string {
	return fmt.Sprintf("backend rejected %s step: %s", e.Step, e.Message)
}

// TransportError is a network or timeout failure. Mutators are idempotent at
// cart-id + step granularity, so the operation is safe to retry.
type TransportError struct {
	Step domain.Step
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure on %s step: %v", e.Step, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PaymentError is a provider decline or failure. Retryable; the step does not
// advance and address/delivery data survives.
type PaymentError struct {
	Reason string
	Err    error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment failed: %s", e.Reason)
}

func (e *PaymentError) Unwrap() error { return e.Err }
