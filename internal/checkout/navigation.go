package checkout

import (
	"fmt"

	"github.com/cakebox/storefront/internal/domain"
)

// RequestStep translates a shopper's request to view or edit a step into a
// granted step. A step is granted when it is the active step or when its own
// precondition is already satisfied (editing a completed step). Forward jumps
// past an incomplete step are refused and the active step is returned
// instead, alongside a PreconditionError describing why.
//
// Reopening an earlier step needs no extra bookkeeping: once its data is
// cleared or changed, re-resolving the next snapshot invalidates every later
// step's completion flag on its own.
func RequestStep(cart *domain.Cart, target domain.Step) (domain.Step, error) {
	progress := Resolve(cart)

	if !target.Valid() {
		return progress.Active, &PreconditionError{
			Step:   progress.Active,
			Reason: fmt.Sprintf("unknown step %q", target),
		}
	}

	if target == progress.Active || progress.Complete(target) {
		return target, nil
	}

	return progress.Active, &PreconditionError{
		Step:   target,
		Reason: fmt.Sprintf("complete the %s step first", progress.Active),
	}
}

// NextStep re-derives the step to show after a mutation, always from the
// freshest snapshot rather than by advancing an index. A mutation that
// silently failed therefore keeps the shopper on the step that still needs
// attention.
func NextStep(cart *domain.Cart) domain.Step {
	return Resolve(cart).Active
}
