package billing

import (
	"github.com/google/uuid"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
)

// Status is the billing-health state of a subscription, independent of
// the plan label. Provider statuses map 1:1 onto this vocabulary;
// unknown remote statuses pass through unmodified so a provider adding
// a state never breaks ingestion.
type Status string

const (
	StatusNone              Status = ""
	StatusActive            Status = "active"
	StatusCanceled          Status = "canceled"
	StatusPastDue           Status = "past_due"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusTrialing          Status = "trialing"
	StatusUnpaid            Status = "unpaid"
	StatusPaused            Status = "paused"
	StatusExpired           Status = "expired"
)

// Feature identifies a metered, per-period usage counter on the
// subscription record.
type Feature string

const (
	FeatureAIPlans      Feature = "ai_plans"
	FeatureTrainerChats Feature = "trainer_chats"
)

// ParseFeature validates a client-supplied feature name.
func ParseFeature(s string) (Feature, bool) {
	switch Feature(s) {
	case FeatureAIPlans, FeatureTrainerChats:
		return Feature(s), true
	default:
		return "", false
	}
}

// EventType is the normalized billing event vocabulary. Each provider
// adapter maps its own event names onto these; anything else becomes
// EventIgnored and is acknowledged without processing.
type EventType string

const (
	EventCheckoutCompleted    EventType = "checkout_completed"
	EventSubscriptionCreated  EventType = "subscription_created"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventSubscriptionDeleted  EventType = "subscription_deleted"
	EventInvoicePaid          EventType = "invoice_paid"
	EventInvoicePaymentFailed EventType = "invoice_payment_failed"
	EventIgnored              EventType = "ignored"
)

// Event is a verified provider event, created per inbound callback and
// consumed exactly once by the subscription service. Only fields the
// originating event actually carried are populated.
type Event struct {
	Provider       string                // adapter name that verified the event
	Type           EventType             // normalized type
	ProviderEvent  string                // original provider event name
	UserID         uuid.UUID             // from checkout metadata; uuid.Nil when absent
	Plan           entitlement.PlanCode  // from checkout metadata; empty when absent
	CustomerID     string                // provider's customer reference
	SubscriptionID string                // provider's subscription/payment reference
	Status         Status                // remote status pass-through
}

// CheckoutRequest carries everything an adapter needs to start a
// payment flow for a user.
type CheckoutRequest struct {
	UserID     uuid.UUID
	Email      string
	Name       string
	CustomerID string // provider customer, when already memoized
	Plan       entitlement.PlanCode
	SuccessURL string
	CancelURL  string
}

// Checkout is the result of starting a payment flow. Redirect-based
// providers set URL; order-based providers set Order for an in-page
// widget. CustomerID reports a remote customer the adapter created or
// reused so the caller can memoize it.
type Checkout struct {
	URL        string
	Order      *OrderIntent
	CustomerID string
}

// OrderIntent is the client-side descriptor for order-based checkout.
type OrderIntent struct {
	KeyID       string  `json:"keyId"`
	OrderID     string  `json:"orderId"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Prefill     Prefill `json:"prefill"`
}

// Prefill pre-populates the payment widget with known customer data.
type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Portal is a pre-authenticated link to the provider's billing portal.
type Portal struct {
	URL string
}
