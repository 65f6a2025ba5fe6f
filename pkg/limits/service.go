// Package limits enforces per-period usage limits for metered features
// (AI plan generations, trainer chats) against the entitlements of the
// caller's plan. Checking a limit and consuming usage are deliberately
// separate steps: callers check before performing the gated action and
// increment only after it succeeds, so failed attempts are never
// charged.
package limits

import (
	"context"

	"github.com/google/uuid"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/billing"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
)

// Unlimited is the sentinel limit for plans with no cap.
const Unlimited int64 = entitlement.Unlimited

// Check is the outcome of a limit check.
type Check struct {
	Allowed   bool  `json:"allowed"`
	Limit     int64 `json:"limit"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}

// Service answers limit checks and mutates usage counters through the
// billing store. It holds no state of its own; the subscription record
// is the single source of truth for both plan and usage.
type Service struct {
	store billing.Store
}

// NewService wires the limits service to the subscription store.
func NewService(store billing.Store) *Service {
	if store == nil {
		panic("limits: billing store is required")
	}
	return &Service{store: store}
}

// CheckLimit reports whether the user may perform one more gated action
// for the feature. A FREE or unknown plan resolves to no entitlements
// and is always denied. Limit -1 means unlimited: always allowed,
// remaining reported as -1.
func (s *Service) CheckLimit(ctx context.Context, userID uuid.UUID, feature billing.Feature) (Check, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return Check{}, err
	}

	ent := entitlement.Lookup(rec.Plan)
	if ent == nil {
		return Check{Allowed: false, Limit: 0, Used: 0, Remaining: 0}, nil
	}

	limit := featureLimit(ent, feature)
	used := rec.Usage(feature)

	if limit == Unlimited {
		return Check{Allowed: true, Limit: Unlimited, Used: used, Remaining: Unlimited}, nil
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	return Check{
		Allowed:   used < limit,
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
	}, nil
}

// Increment consumes one unit of usage. Call only after the gated
// action succeeded; enforcement stays with CheckLimit.
func (s *Service) Increment(ctx context.Context, userID uuid.UUID, feature billing.Feature) error {
	return s.store.IncrementUsage(ctx, userID, feature)
}

// Reset zeroes both counters. Invoked by the invoice-paid transition on
// billing-period rollover.
func (s *Service) Reset(ctx context.Context, userID uuid.UUID) error {
	return s.store.ResetUsage(ctx, userID)
}

func featureLimit(ent *entitlement.Entitlements, feature billing.Feature) int64 {
	switch feature {
	case billing.FeatureAIPlans:
		return ent.MaxActiveAIPlans
	case billing.FeatureTrainerChats:
		return ent.TrainerChatsPerMonth
	default:
		return 0
	}
}
