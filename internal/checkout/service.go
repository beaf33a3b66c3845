package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cakebox/storefront/internal/cache"
	"github.com/cakebox/storefront/internal/commerce"
	"github.com/cakebox/storefront/internal/domain"
	"github.com/cakebox/storefront/internal/orders"
	"github.com/cakebox/storefront/internal/payment"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// OrderLog records placed orders locally so a duplicate placement can be
// detected even across process restarts. *orders.Repository satisfies it.
type OrderLog interface {
	RecordPlacedOrder(ctx context.Context, order *domain.Order) error
	GetPlacedOrderByCartID(ctx context.Context, cartID string) (*domain.Order, error)
}

// Service holds the step mutators. Every mutation goes to the commerce
// backend and replaces the tracked snapshot wholesale with the response;
// nothing price-affecting is ever mutated locally.
type Service struct {
	backend   commerce.Client
	provider  payment.Provider
	orderLog  OrderLog
	snapshots cache.SnapshotCache
	log       *logrus.Logger

	fetchGroup singleflight.Group // collapses concurrent snapshot reads per cart
	placeGroup singleflight.Group // collapses concurrent place-order calls per cart

	mu       sync.Mutex
	trackers map[string]*cartTracker
}

func NewService(backend commerce.Client, provider payment.Provider, orderLog OrderLog, snapshots cache.SnapshotCache, log *logrus.Logger) *Service {
	return &Service{
		backend:   backend,
		provider:  provider,
		orderLog:  orderLog,
		snapshots: snapshots,
		log:       log,
		trackers:  make(map[string]*cartTracker),
	}
}

// cartTracker orders mutations on one cart. A sequence number is taken before
// each network call; a response only replaces the snapshot if no later-issued
// request has been applied since, so the last server-acknowledged response
// wins and stale retries are discarded.
type cartTracker struct {
	mu         sync.Mutex
	nextSeq    uint64
	appliedSeq uint64
	cart       *domain.Cart
}

func (t *cartTracker) begin() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextSeq++
	return t.nextSeq
}

func (t *cartTracker) apply(seq uint64, cart *domain.Cart) *domain.Cart {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq > t.appliedSeq {
		t.appliedSeq = seq
		t.cart = cart
	}
	return t.cart
}

func (s *Service) tracker(cartID string) *cartTracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trackers[cartID]
	if !ok {
		t = &cartTracker{}
		s.trackers[cartID] = t
	}
	return t
}

func (s *Service) forget(cartID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trackers, cartID)
}

// Snapshot returns the current cart, via the cache when possible.
func (s *Service) Snapshot(ctx context.Context, cartID string) (*domain.Cart, error) {
	t := s.tracker(cartID)
	seq := t.begin()

	v, err, _ := s.fetchGroup.Do(cartID, func() (interface{}, error) {
		cart, cacheErr := s.snapshots.GetCart(ctx, cartID)
		if cacheErr == nil {
			return cart, nil
		}
		if !errors.Is(cacheErr, cache.ErrCacheMiss) {
			s.log.WithError(cacheErr).WithField("cart_id", cartID).Warn("cart cache read failed")
		}

		cart, fetchErr := s.backend.GetCart(ctx, cartID)
		if fetchErr != nil {
			return nil, fetchErr
		}

		// Filled inline: a deferred write could land after a later
		// mutation refreshed the cache and resurrect this snapshot.
		if setErr := s.snapshots.SetCart(ctx, cartID, cart); setErr != nil {
			s.log.WithError(setErr).WithField("cart_id", cartID).Warn("cart cache write failed")
		}

		return cart, nil
	})
	if err != nil {
		return nil, mapBackendError(domain.StepAddress, err)
	}

	return t.apply(seq, v.(*domain.Cart)), nil
}

// ShippingOptions lists the delivery methods valid for the cart's region and
// address, cached per cart.
func (s *Service) ShippingOptions(ctx context.Context, cartID string) ([]domain.ShippingOption, error) {
	options, err := s.snapshots.GetShippingOptions(ctx, cartID)
	if err == nil {
		return options, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.WithError(err).WithField("cart_id", cartID).Warn("shipping option cache read failed")
	}

	options, err = s.backend.ListShippingOptions(ctx, cartID)
	if err != nil {
		return nil, mapBackendError(domain.StepDelivery, err)
	}

	if setErr := s.snapshots.SetShippingOptions(ctx, cartID, options); setErr != nil {
		s.log.WithError(setErr).WithField("cart_id", cartID).Warn("shipping option cache write failed")
	}

	return options, nil
}

// AddressInput is the address step's payload.
type AddressInput struct {
	Email         string          `json:"email"`
	Shipping      domain.Address  `json:"shipping_address"`
	Billing       *domain.Address `json:"billing_address,omitempty"`
	SameAsBilling bool            `json:"same_as_billing"`
}

// Validate checks required fields without touching the network.
func (in AddressInput) Validate() FieldErrors {
	fields := FieldErrors{}
	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		fields["email"] = "a valid email address is required"
	}
	requireAddress(fields, "shipping_address.", in.Shipping)
	if !in.SameAsBilling {
		if in.Billing == nil {
			fields["billing_address"] = "billing address is required unless it matches shipping"
		} else {
			requireAddress(fields, "billing_address.", *in.Billing)
		}
	}
	return fields
}

func requireAddress(fields FieldErrors, prefix string, a domain.Address) {
	required := map[string]string{
		"first_name":   a.FirstName,
		"last_name":    a.LastName,
		"address_1":    a.Address1,
		"city":         a.City,
		"postal_code":  a.PostalCode,
		"country_code": a.CountryCode,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			fields[prefix+name] = "this field is required"
		}
	}
}

func (in AddressInput) cartUpdate() commerce.CartUpdate {
	email := in.Email
	shipping := in.Shipping
	update := commerce.CartUpdate{Email: &email, ShippingAddress: &shipping}
	if in.SameAsBilling {
		billing := shipping
		update.BillingAddress = &billing
	} else {
		update.BillingAddress = in.Billing
	}
	return update
}

// SetAddresses submits email, shipping address and billing address for the
// cart. Input is validated before any network call; backend rejections leave
// the tracked snapshot untouched.
func (s *Service) SetAddresses(ctx context.Context, cartID string, input AddressInput) (*domain.Cart, error) {
	if fields := input.Validate(); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	cart, err := s.Snapshot(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	t := s.tracker(cartID)
	seq := t.begin()

	updated, err := s.backend.UpdateCart(ctx, cartID, input.cartUpdate())
	if err != nil {
		return nil, mapBackendError(domain.StepAddress, err)
	}

	s.storeSnapshot(cartID, updated)
	return t.apply(seq, updated), nil
}

// SetShippingMethod selects a delivery option. The backend enforces that the
// option is valid for the cart's address; a rejection is surfaced as a
// step-level error with the cart unchanged.
func (s *Service) SetShippingMethod(ctx context.Context, cartID, optionID string) (*domain.Cart, error) {
	cart, err := s.Snapshot(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	progress := Resolve(cart)
	if !progress.AddressComplete {
		return nil, &PreconditionError{Step: domain.StepDelivery, Reason: "email and shipping address must be set first"}
	}

	t := s.tracker(cartID)
	seq := t.begin()

	updated, err := s.backend.AddShippingMethod(ctx, cartID, optionID)
	if err != nil {
		return nil, mapBackendError(domain.StepDelivery, err)
	}

	s.storeSnapshot(cartID, updated)
	return t.apply(seq, updated), nil
}

// CreatePaymentSession runs the provider round trip and registers the
// resulting session on the cart. The provider is called before the backend is
// touched, so a decline leaves the cart exactly as it was and the shopper can
// retry without resubmitting address or delivery data. Gift-card-covered
// carts skip the provider entirely.
func (s *Service) CreatePaymentSession(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := s.Snapshot(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	progress := Resolve(cart)
	if !progress.DeliveryComplete {
		return nil, &PreconditionError{Step: domain.StepPayment, Reason: "a delivery method must be selected first"}
	}
	if progress.PaymentComplete {
		return cart, nil
	}

	t := s.tracker(cartID)
	seq := t.begin()

	session, err := s.provider.CreateSession(ctx, cartID, cart.Total, cart.CurrencyCode)
	if err != nil {
		return nil, mapProviderError(err)
	}
	if err := s.provider.ConfirmSession(ctx, session.ID); err != nil {
		return nil, mapProviderError(err)
	}

	updated, err := s.backend.SetPaymentCollection(ctx, cartID, domain.PaymentCollection{
		ProviderID: s.provider.ID(),
		SessionID:  session.ID,
		Amount:     cart.Total,
	})
	if err != nil {
		return nil, mapBackendError(domain.StepPayment, err)
	}

	s.storeSnapshot(cartID, updated)
	return t.apply(seq, updated), nil
}

// PlaceOrder converts the cart into an order. Concurrent invocations for the
// same cart collapse into a single backend completion, and a persistent
// record guards against replays after the in-memory state is gone.
func (s *Service) PlaceOrder(ctx context.Context, cartID string) (*domain.Order, error) {
	v, err, _ := s.placeGroup.Do(cartID, func() (interface{}, error) {
		return s.placeOrder(ctx, cartID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Order), nil
}

func (s *Service) placeOrder(ctx context.Context, cartID string) (*domain.Order, error) {
	existing, err := s.orderLog.GetPlacedOrderByCartID(ctx, cartID)
	if err == nil {
		s.log.WithFields(logrus.Fields{"cart_id": cartID, "order_id": existing.ID}).
			Info("duplicate placement request, returning recorded order")
		return existing, nil
	}
	if !errors.Is(err, orders.ErrOrderNotFound) {
		s.log.WithError(err).WithField("cart_id", cartID).Warn("order log lookup failed")
	}

	cart, err := s.Snapshot(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	progress := Resolve(cart)
	if !progress.ReviewReady() {
		return nil, &PreconditionError{Step: domain.StepReview, Reason: "address, delivery and payment must be completed first"}
	}

	order, err := s.backend.CompleteCart(ctx, cartID)
	if err != nil {
		return nil, mapBackendError(domain.StepReview, err)
	}

	if recordErr := s.orderLog.RecordPlacedOrder(ctx, order); recordErr != nil && !errors.Is(recordErr, orders.ErrDuplicateCart) {
		// The order exists on the backend; a failed local record must not
		// fail the placement.
		s.log.WithError(recordErr).WithField("order_id", order.ID).Error("failed to record placed order")
	}

	s.invalidate(cartID)
	s.forget(cartID)
	return order, nil
}

// storeSnapshot replaces the cached cart with the snapshot the backend just
// acknowledged, so the cache moves forward with the mutation rather than
// being left empty for a racing read to refill with older data.
func (s *Service) storeSnapshot(cartID string, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.snapshots.SetCart(ctx, cartID, cart); err != nil {
		s.log.WithError(err).WithField("cart_id", cartID).Warn("cart cache write failed")
	}
}

func (s *Service) invalidate(cartID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.snapshots.DeleteCart(ctx, cartID); err != nil {
		s.log.WithError(err).WithField("cart_id", cartID).Warn("cart cache invalidation failed")
	}
}

func mapBackendError(step domain.Step, err error) error {
	var rejection *commerce.RejectionError
	if errors.As(err, &rejection) {
		return &BackendRejection{Step: step, Code: rejection.Code, Message: rejection.Message, Field: rejection.Field}
	}
	if errors.Is(err, commerce.ErrCartNotFound) {
		return err
	}
	return &TransportError{Step: step, Err: err}
}

func mapProviderError(err error) error {
	var declined *payment.DeclinedError
	if errors.As(err, &declined) {
		return &PaymentError{Reason: declined.Reason, Err: err}
	}
	return &PaymentError{Reason: "payment provider unavailable", Err: err}
}
