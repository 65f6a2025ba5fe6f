package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
)

// Record is the authoritative per-user subscription state. Exactly one
// record exists per user; plan, status and provider references are
// mutated only through the subscription service's transitions, never
// directly by client requests.
type Record struct {
	UserID uuid.UUID
	Email  string
	Name   string

	Plan   entitlement.PlanCode
	Status Status

	// Provider is the adapter that activated the current subscription,
	// used to route user-initiated cancellation.
	Provider string

	// ProviderSubscriptionID references the remote subscription or
	// payment; empty for users who never paid.
	ProviderSubscriptionID string

	// ProviderCustomerID references the remote customer. Created
	// lazily, memoized once, then immutable for the user's lifetime.
	ProviderCustomerID string

	// UpdatedAt is the last transition time. It doubles as the
	// last-write-wins guard for concurrent writers.
	UpdatedAt time.Time

	// Per-period usage counters, reset to zero on confirmed period
	// rollover (invoice paid). Never negative.
	AIPlansUsed      int64
	TrainerChatsUsed int64
}

// Usage returns the counter for a feature.
func (r *Record) Usage(f Feature) int64 {
	switch f {
	case FeatureAIPlans:
		return r.AIPlansUsed
	case FeatureTrainerChats:
		return r.TrainerChatsUsed
	default:
		return 0
	}
}

// IsCanceling reports whether a previous subscription is mid-teardown,
// which blocks new checkouts until provider-side cancellation has
// propagated.
func (r *Record) IsCanceling() bool {
	return r.Status == StatusCanceled
}
