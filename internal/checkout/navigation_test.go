package checkout

import (
	"errors"
	"testing"

	"github.com/cakebox/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestStep_ActiveStepIsAlwaysGranted(t *testing.T) {
	cart := withAddress(freshCart())

	granted, err := RequestStep(cart, domain.StepDelivery)
	require.NoError(t, err)
	assert.Equal(t, domain.StepDelivery, granted)
}

func TestRequestStep_ForwardJumpRefused(t *testing.T) {
	cart := freshCart()

	granted, err := RequestStep(cart, domain.StepPayment)

	var precondition *PreconditionError
	require.True(t, errors.As(err, &precondition))
	assert.Equal(t, domain.StepAddress, granted)
}

func TestRequestStep_CompletedStepStaysEditable(t *testing.T) {
	cart := withShipping(withAddress(freshCart()))

	granted, err := RequestStep(cart, domain.StepAddress)
	require.NoError(t, err)
	assert.Equal(t, domain.StepAddress, granted)

	granted, err = RequestStep(cart, domain.StepDelivery)
	require.NoError(t, err)
	assert.Equal(t, domain.StepDelivery, granted)
}

func TestRequestStep_ReviewNeedsEverything(t *testing.T) {
	cart := withShipping(withAddress(freshCart()))

	granted, err := RequestStep(cart, domain.StepReview)

	var precondition *PreconditionError
	require.True(t, errors.As(err, &precondition))
	assert.Equal(t, domain.StepPayment, granted)

	withPayment(cart)
	granted, err = RequestStep(cart, domain.StepReview)
	require.NoError(t, err)
	assert.Equal(t, domain.StepReview, granted)
}

func TestRequestStep_UnknownStep(t *testing.T) {
	cart := freshCart()

	granted, err := RequestStep(cart, domain.Step("gift-wrap"))

	var precondition *PreconditionError
	require.True(t, errors.As(err, &precondition))
	assert.Equal(t, domain.StepAddress, granted)
}

func TestNextStep_ReDerivesFromSnapshot(t *testing.T) {
	cart := freshCart()
	assert.Equal(t, domain.StepAddress, NextStep(cart))

	withAddress(cart)
	assert.Equal(t, domain.StepDelivery, NextStep(cart))

	// A mutation that never landed leaves the shopper where they were.
	assert.Equal(t, domain.StepDelivery, NextStep(cart))
}
