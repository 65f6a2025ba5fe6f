// Package subscription exposes the billing surface over HTTP: checkout
// and portal session creation, the order+verify flow, webhook
// ingestion, and the caller-facing plan catalog.
package subscription

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/billing"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/jwt"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/limits"
)

// maxWebhookBody caps inbound webhook payloads. Stripe events are
// well under this.
const maxWebhookBody = 1 << 20

// Pricing maps paid plans to their display amount in minor currency
// units for the public catalog.
type Pricing struct {
	Currency string
	Amounts  map[entitlement.PlanCode]int64
}

// Service handles the subscription HTTP routes.
type Service struct {
	billing *billing.Service
	limits  *limits.Service
	pricing Pricing
	log     *slog.Logger
}

// NewService wires the module. Panics on nil dependencies to fail fast
// during initialization.
func NewService(billingSvc *billing.Service, limitsSvc *limits.Service, pricing Pricing, log *slog.Logger) *Service {
	if billingSvc == nil {
		panic("subscription: billing service is required")
	}
	if limitsSvc == nil {
		panic("subscription: limits service is required")
	}
	if log == nil {
		panic("subscription: logger is required")
	}
	return &Service{billing: billingSvc, limits: limitsSvc, pricing: pricing, log: log}
}

// Handle returns the module router. The webhook route must stay outside
// the authenticated group and must see the raw, unconsumed request
// body: signature verification is byte-exact.
func (s *Service) Handle(auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/plans", s.listPlans)
	r.Post("/webhook", s.webhook)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Use(entitlement.Middleware(s.resolvePlan))

		r.Get("/me", s.me)
		r.Post("/create-checkout-session", s.createCheckoutSession)
		r.Post("/create-portal-session", s.createPortalSession)
		r.Post("/razorpay/create-order", s.createOrder)
		r.Post("/razorpay/verify", s.verifyOrder)
		r.Post("/cancel", s.cancel)
		r.Get("/limits/{feature}", s.checkLimit)
	})

	return r
}

// resolvePlan feeds the entitlement middleware from the authenticated
// identity and the subscription record. Runs per request; a plan change
// landing via webhook is visible on the very next request.
func (s *Service) resolvePlan(r *http.Request) (entitlement.PlanCode, error) {
	userID, ok := jwt.UserIDFromContext(r.Context())
	if !ok {
		return "", billing.ErrUserNotFound
	}
	return s.billing.Plan(r.Context(), userID)
}
