package billing

import "errors"

// Error taxonomy for the billing core. Provider-call failures are
// caught at the adapter boundary and re-raised as one of these kinds;
// provider SDK error types never leak upward. The HTTP layer maps each
// kind to a status code with errors.Is.
var (
	// ErrNotConfigured: provider credentials or price table entries are
	// missing. Non-fatal in development (mock fallback), fatal in
	// production.
	ErrNotConfigured = errors.New("billing: provider is not configured")

	// ErrNotSupported: the operation does not exist for this provider
	// (e.g. billing portal on an order-based provider).
	ErrNotSupported = errors.New("billing: operation not supported by provider")

	// ErrInvalidSignature: a webhook payload or client verification
	// payload failed cryptographic verification.
	ErrInvalidSignature = errors.New("billing: invalid signature")

	// ErrUserNotFound: no subscription record for the referenced user
	// or remote customer.
	ErrUserNotFound = errors.New("billing: user record not found")

	// ErrNoCustomer: the user has no remote billing customer yet, so a
	// portal session cannot be created.
	ErrNoCustomer = errors.New("billing: user has no billing customer")

	// ErrNoSubscription: the user has no remote subscription to act on.
	ErrNoSubscription = errors.New("billing: no active subscription")

	// ErrConflict: a state-transition precondition was violated, such
	// as subscribing while a previous subscription is being canceled.
	ErrConflict = errors.New("billing: subscription state conflict")

	// ErrUpstream: the provider's API itself failed. Safe for the
	// client to retry checkout/portal creation; never retried for
	// webhook processing, which the provider redelivers.
	ErrUpstream = errors.New("billing: provider request failed")

	// ErrUnknownProvider: no adapter registered under the given name.
	ErrUnknownProvider = errors.New("billing: unknown provider")

	// ErrMissingEventData: a recognized event arrived without the
	// fields its transition requires.
	ErrMissingEventData = errors.New("billing: event is missing required data")
)
