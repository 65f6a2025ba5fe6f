package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
)

// Service owns the authoritative per-user subscription state and is the
// only writer of plan, status and provider references. Transitions are
// triggered by verified provider events or verified client-side
// confirmations; every handler is idempotent by construction so that
// at-least-once webhook delivery needs no separate dedup store.
type Service struct {
	providers map[string]Provider
	store     Store
	log       *slog.Logger
	now       func() time.Time
}

// NewService wires the state machine to its persistence and the
// registered provider adapters. Panics on nil dependencies to fail
// fast during initialization.
func NewService(store Store, log *slog.Logger, providers ...Provider) *Service {
	if store == nil {
		panic("billing: Store is required")
	}
	if log == nil {
		panic("billing: logger is required")
	}

	registry := make(map[string]Provider, len(providers))
	for _, p := range providers {
		registry[p.Name()] = p
	}

	return &Service{
		providers: registry,
		store:     store,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) provider(name string) (Provider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// CreateCheckout starts a payment flow for the user with the named
// provider. A user whose previous subscription is still being canceled
// is rejected before any remote object is created: activating a new
// subscription while provider-side cancellation propagates would
// orphan one of the two.
func (s *Service) CreateCheckout(ctx context.Context, providerName string, userID uuid.UUID, plan entitlement.PlanCode, successURL, cancelURL string) (*Checkout, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec.IsCanceling() {
		return nil, fmt.Errorf("%w: cannot subscribe while a previous subscription is being canceled", ErrConflict)
	}

	chk, err := p.CreateCheckout(ctx, CheckoutRequest{
		UserID:     userID,
		Email:      rec.Email,
		Name:       rec.Name,
		CustomerID: rec.ProviderCustomerID,
		Plan:       plan,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return nil, err
	}

	// Memoize a lazily created remote customer. The store makes the
	// write set-once, so a racing checkout cannot overwrite an
	// existing customer reference.
	if chk.CustomerID != "" && rec.ProviderCustomerID == "" {
		if err := s.store.SetCustomerID(ctx, userID, chk.CustomerID); err != nil {
			return nil, err
		}
	}

	return chk, nil
}

// CreatePortal returns a billing-portal link for users that already
// have a remote customer; everyone else gets ErrNoCustomer.
func (s *Service) CreatePortal(ctx context.Context, providerName string, userID uuid.UUID, returnURL string) (*Portal, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec.ProviderCustomerID == "" {
		return nil, ErrNoCustomer
	}

	return p.CreateBillingPortal(ctx, rec.ProviderCustomerID, returnURL)
}

// VerifyOrder checks a client-supplied payment confirmation for the
// order-based flow and, only on a valid signature, activates the
// subscription with the payment reference as the remote ID.
func (s *Service) VerifyOrder(ctx context.Context, providerName string, userID uuid.UUID, plan entitlement.PlanCode, orderRef, paymentRef, signature string) error {
	p, err := s.provider(providerName)
	if err != nil {
		return err
	}

	ok, err := p.VerifyClientPayment(orderRef, paymentRef, signature)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidSignature
	}

	return s.ApplyEvent(ctx, &Event{
		Provider:       providerName,
		Type:           EventCheckoutCompleted,
		ProviderEvent:  "order.verified",
		UserID:         userID,
		Plan:           plan,
		SubscriptionID: paymentRef,
		Status:         StatusActive,
	})
}

// HandleWebhook ingests a raw provider callback: verify, normalize,
// apply. Signature or parse failures propagate so the transport layer
// can answer with a client error; processing failures for recognized
// events are logged and dropped — the provider's own redelivery plus
// idempotent handlers re-drive them, this service never retries.
func (s *Service) HandleWebhook(ctx context.Context, providerName string, payload []byte, signature string) error {
	p, err := s.provider(providerName)
	if err != nil {
		return err
	}

	ev, err := p.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	if ev.Type == EventIgnored {
		s.log.DebugContext(ctx, "ignoring webhook event",
			slog.String("provider", ev.Provider),
			slog.String("event", ev.ProviderEvent))
		return nil
	}

	if err := s.ApplyEvent(ctx, ev); err != nil {
		s.log.ErrorContext(ctx, "dropping webhook event",
			slog.String("provider", ev.Provider),
			slog.String("event", ev.ProviderEvent),
			slog.String("customer_id", ev.CustomerID),
			slog.Any("error", err))
	}
	return nil
}

// ApplyEvent runs the transition table for one verified event. Each
// branch writes an absolute end state, so re-applying a duplicate
// delivery converges on the same record.
func (s *Service) ApplyEvent(ctx context.Context, ev *Event) error {
	switch ev.Type {
	case EventCheckoutCompleted:
		if ev.UserID == uuid.Nil || ev.Plan == "" {
			return fmt.Errorf("%w: checkout event without userId/plan metadata", ErrMissingEventData)
		}
		rec, err := s.store.Get(ctx, ev.UserID)
		if err != nil {
			return err
		}
		rec.Plan = ev.Plan
		rec.Status = StatusActive
		rec.Provider = ev.Provider
		rec.ProviderSubscriptionID = ev.SubscriptionID
		rec.UpdatedAt = s.now()
		if err := s.store.Save(ctx, rec); err != nil {
			return err
		}
		s.log.InfoContext(ctx, "subscription activated",
			slog.String("user_id", ev.UserID.String()),
			slog.String("plan", string(ev.Plan)),
			slog.String("provider", ev.Provider))
		return nil

	case EventSubscriptionCreated:
		rec, err := s.resolve(ctx, ev)
		if err != nil {
			return err
		}
		rec.Status = StatusActive
		rec.Provider = ev.Provider
		rec.ProviderSubscriptionID = ev.SubscriptionID
		rec.UpdatedAt = s.now()
		return s.store.Save(ctx, rec)

	case EventSubscriptionUpdated:
		// Pass the remote status through as-is. No prior
		// subscription-created is required: deliveries are unordered
		// and the record always exists for a known customer.
		rec, err := s.resolve(ctx, ev)
		if err != nil {
			return err
		}
		rec.Status = ev.Status
		if ev.SubscriptionID != "" {
			rec.ProviderSubscriptionID = ev.SubscriptionID
		}
		rec.UpdatedAt = s.now()
		return s.store.Save(ctx, rec)

	case EventSubscriptionDeleted:
		rec, err := s.resolve(ctx, ev)
		if err != nil {
			return err
		}
		rec.Plan = entitlement.PlanFree
		rec.Status = StatusCanceled
		rec.ProviderSubscriptionID = ""
		rec.UpdatedAt = s.now()
		if err := s.store.Save(ctx, rec); err != nil {
			return err
		}
		s.log.InfoContext(ctx, "subscription canceled",
			slog.String("user_id", rec.UserID.String()))
		return nil

	case EventInvoicePaid:
		// Period rollover: absolute reset keeps this idempotent;
		// incrementing or adjusting relative to the previous value
		// would not be.
		rec, err := s.resolve(ctx, ev)
		if err != nil {
			return err
		}
		return s.store.ResetUsage(ctx, rec.UserID)

	case EventInvoicePaymentFailed:
		rec, err := s.resolve(ctx, ev)
		if err != nil {
			return err
		}
		rec.Status = StatusPastDue
		rec.UpdatedAt = s.now()
		return s.store.Save(ctx, rec)

	default:
		return fmt.Errorf("%w: unhandled event type %q", ErrMissingEventData, ev.Type)
	}
}

// resolve maps a remote customer reference to the local record, falling
// back to checkout metadata when present. A customer with no local user
// is not fatal: the provider account may span more than this
// application, so the caller logs and drops.
func (s *Service) resolve(ctx context.Context, ev *Event) (*Record, error) {
	if ev.CustomerID != "" {
		rec, err := s.store.FindByCustomerID(ctx, ev.CustomerID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
	}
	if ev.UserID != uuid.Nil {
		return s.store.Get(ctx, ev.UserID)
	}
	return nil, fmt.Errorf("%w: customer %q", ErrUserNotFound, ev.CustomerID)
}

// Cancel is the user-initiated path: request remote cancellation first,
// then apply the subscription-deleted effect locally. Order-based
// payments have no remote subscription object; their ErrNotSupported is
// treated as "nothing to cancel remotely" and the local effect still
// applies.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID) error {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if rec.ProviderSubscriptionID == "" {
		return ErrNoSubscription
	}

	if rec.Provider != "" {
		p, err := s.provider(rec.Provider)
		if err != nil {
			return err
		}
		if err := p.CancelSubscription(ctx, rec.ProviderSubscriptionID); err != nil && !errors.Is(err, ErrNotSupported) {
			return err
		}
	}

	return s.ApplyEvent(ctx, &Event{
		Provider:      rec.Provider,
		Type:          EventSubscriptionDeleted,
		ProviderEvent: "user.cancel",
		UserID:        userID,
	})
}

// Details is the caller-facing subscription summary.
type Details struct {
	Plan         entitlement.PlanCode      `json:"plan"`
	Status       Status                    `json:"status"`
	UpdatedAt    time.Time                 `json:"updatedAt"`
	Usage        map[Feature]int64         `json:"usage"`
	Entitlements *entitlement.Entitlements `json:"entitlements,omitempty"`
}

// Details reports the user's current plan, billing status, usage
// counters and resolved entitlements.
func (s *Service) Details(ctx context.Context, userID uuid.UUID) (*Details, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan := rec.Plan
	if plan == "" {
		plan = entitlement.PlanFree
	}

	return &Details{
		Plan:      plan,
		Status:    rec.Status,
		UpdatedAt: rec.UpdatedAt,
		Usage: map[Feature]int64{
			FeatureAIPlans:      rec.AIPlansUsed,
			FeatureTrainerChats: rec.TrainerChatsUsed,
		},
		Entitlements: entitlement.Lookup(plan),
	}, nil
}

// Plan resolves just the user's plan code, for entitlement middleware.
func (s *Service) Plan(ctx context.Context, userID uuid.UUID) (entitlement.PlanCode, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if rec.Plan == "" {
		return entitlement.PlanFree, nil
	}
	return rec.Plan, nil
}
