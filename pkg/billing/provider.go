package billing

import "context"

// Provider names as registered with the subscription service and as
// addressed by the HTTP layer.
const (
	ProviderStripe   = "stripe"
	ProviderRazorpay = "razorpay"
)

// Provider isolates one payment provider's request/response shapes and
// signature scheme behind a uniform interface, so the subscription
// service and route layer never branch on provider identity.
//
// Not every provider supports every operation: redirect-based
// providers implement ParseWebhook and CreateBillingPortal, order-based
// providers implement VerifyClientPayment. Unsupported operations
// return ErrNotSupported.
type Provider interface {
	// Name identifies the adapter for registration and event tagging.
	Name() string

	// CreateCheckout resolves the plan to a price and starts a payment
	// flow. No local state may be written before the remote call
	// succeeds; the returned CustomerID is how the caller learns about
	// a lazily created remote customer.
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)

	// CreateBillingPortal returns a portal link for an existing remote
	// customer.
	CreateBillingPortal(ctx context.Context, customerID, returnURL string) (*Portal, error)

	// VerifyClientPayment recomputes the provider's client-payment
	// signature over orderRef and paymentRef and compares in constant
	// time. A mismatch is (false, nil), never an error; a missing
	// shared secret is ErrNotConfigured.
	VerifyClientPayment(orderRef, paymentRef, signature string) (bool, error)

	// ParseWebhook verifies the provider's signature scheme over the
	// exact raw bytes of the request body and returns the normalized
	// event. Verification must run on untouched bytes: any JSON
	// re-encoding between receipt and verification invalidates the
	// signature.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)

	// CancelSubscription requests remote cancellation of a
	// subscription.
	CancelSubscription(ctx context.Context, subscriptionID string) error
}
