package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/environment"
)

// StripeConfig holds credentials and the plan-to-price table for the
// redirect-based provider. Credentials are optional outside production;
// operations fail (or fall back, for checkout) when they are absent.
type StripeConfig struct {
	SecretKey     string        `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET"`
	PriceSilver   string        `env:"STRIPE_PRICE_SILVER"`
	PriceGold     string        `env:"STRIPE_PRICE_GOLD"`
	PricePlatinum string        `env:"STRIPE_PRICE_PLATINUM"`
	Timeout       time.Duration `env:"STRIPE_TIMEOUT" envDefault:"15s"`
}

// StripeProvider implements Provider for Stripe's hosted-checkout flow.
// The API client is constructor-injected so tests can run against a
// stub transport; there is no package-level SDK handle.
type StripeProvider struct {
	api    *client.API
	cfg    StripeConfig
	env    environment.Environment
	appURL string
	log    *slog.Logger
}

// NewStripeProvider builds the adapter. A missing secret key leaves the
// API client nil: startup still succeeds (local development without
// Stripe), and each operation decides between mock fallback and
// ErrNotConfigured when invoked.
func NewStripeProvider(cfg StripeConfig, env environment.Environment, appURL string, log *slog.Logger) *StripeProvider {
	p := &StripeProvider{cfg: cfg, env: env, appURL: appURL, log: log}

	if cfg.SecretKey != "" {
		// Bound every provider call: a hung Stripe request must not
		// hold a client request open indefinitely.
		backends := stripe.NewBackends(&http.Client{Timeout: cfg.Timeout})
		api := &client.API{}
		api.Init(cfg.SecretKey, backends)
		p.api = api
	} else if !env.IsProduction() {
		log.Warn("stripe is not configured, checkout will return mock success URLs",
			slog.String("env", string(env)))
	}

	return p
}

func (p *StripeProvider) Name() string { return ProviderStripe }

// priceFor resolves a plan to the configured Stripe price ID.
func (p *StripeProvider) priceFor(plan entitlement.PlanCode) (string, error) {
	var price string
	switch plan {
	case entitlement.PlanSilver:
		price = p.cfg.PriceSilver
	case entitlement.PlanGold:
		price = p.cfg.PriceGold
	case entitlement.PlanPlatinum:
		price = p.cfg.PricePlatinum
	default:
		return "", fmt.Errorf("%w: no price for plan %q", ErrNotConfigured, plan)
	}
	if price == "" {
		return "", fmt.Errorf("%w: price ID missing for plan %q", ErrNotConfigured, plan)
	}
	return price, nil
}

// mockCheckout is the development convenience for running the platform
// without Stripe credentials. It must never serve a production
// checkout; callers reach it only when the environment is not
// production.
func (p *StripeProvider) mockCheckout(successURL string) *Checkout {
	url := successURL
	if url == "" {
		url = p.appURL + "/subscription/success?session_id=dev_mock"
	}
	p.log.Warn("returning mock checkout URL, stripe is not configured")
	return &Checkout{URL: url}
}

// CreateCheckout creates a hosted checkout session in subscription
// mode. The session carries userId and plan in metadata so the
// checkout-completed webhook can be attributed without a customer
// lookup. A remote customer is created lazily when the request has
// none; the caller memoizes the returned CustomerID.
func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if p.api == nil {
		if !p.env.IsProduction() {
			return p.mockCheckout(req.SuccessURL), nil
		}
		return nil, fmt.Errorf("%w: stripe secret key is missing", ErrNotConfigured)
	}

	price, err := p.priceFor(req.Plan)
	if err != nil {
		if !p.env.IsProduction() {
			return p.mockCheckout(req.SuccessURL), nil
		}
		return nil, err
	}

	customerID := req.CustomerID
	if customerID == "" {
		custParams := &stripe.CustomerParams{
			Email: stripe.String(req.Email),
			Name:  stripe.String(req.Name),
		}
		custParams.Context = ctx
		custParams.AddMetadata("userId", req.UserID.String())

		cust, err := p.api.Customers.New(custParams)
		if err != nil {
			return nil, errors.Join(ErrUpstream, err)
		}
		customerID = cust.ID
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = p.appURL + "/subscription/success?session_id={CHECKOUT_SESSION_ID}"
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = p.appURL + "/subscription/cancel"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(price),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:               stripe.String(successURL),
		CancelURL:                stripe.String(cancelURL),
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String("required"),
	}
	params.Context = ctx
	params.AddMetadata("userId", req.UserID.String())
	params.AddMetadata("plan", string(req.Plan))

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Join(ErrUpstream, err)
	}

	return &Checkout{URL: sess.URL, CustomerID: customerID}, nil
}

// CreateBillingPortal returns a customer portal session where the user
// can update payment methods, cancel, or change plans.
func (p *StripeProvider) CreateBillingPortal(ctx context.Context, customerID, returnURL string) (*Portal, error) {
	if p.api == nil {
		return nil, fmt.Errorf("%w: stripe secret key is missing", ErrNotConfigured)
	}
	if returnURL == "" {
		returnURL = p.appURL + "/account/billing"
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, errors.Join(ErrUpstream, err)
	}
	return &Portal{URL: sess.URL}, nil
}

// VerifyClientPayment is not part of Stripe's flow; activation happens
// via webhooks only.
func (p *StripeProvider) VerifyClientPayment(_, _, _ string) (bool, error) {
	return false, ErrNotSupported
}

// ParseWebhook verifies the Stripe-Signature header over the raw body
// and normalizes the event. Verification runs on the exact bytes as
// received; re-serialized JSON would not verify.
func (p *StripeProvider) ParseWebhook(_ context.Context, payload []byte, signature string) (*Event, error) {
	if p.cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: stripe webhook secret is missing", ErrNotConfigured)
	}

	stripeEvent, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}

	ev := &Event{
		Provider:      ProviderStripe,
		ProviderEvent: string(stripeEvent.Type),
	}

	switch stripeEvent.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(stripeEvent.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%w: malformed checkout session: %w", ErrMissingEventData, err)
		}
		ev.Type = EventCheckoutCompleted
		ev.UserID, ev.Plan = checkoutMetadata(sess.Metadata)
		if sess.Customer != nil {
			ev.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			ev.SubscriptionID = sess.Subscription.ID
		}
		ev.Status = StatusActive

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(stripeEvent.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: malformed subscription: %w", ErrMissingEventData, err)
		}
		switch stripeEvent.Type {
		case "customer.subscription.created":
			ev.Type = EventSubscriptionCreated
		case "customer.subscription.updated":
			ev.Type = EventSubscriptionUpdated
		default:
			ev.Type = EventSubscriptionDeleted
		}
		ev.SubscriptionID = sub.ID
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
		ev.Status = Status(sub.Status)

	case "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(stripeEvent.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%w: malformed invoice: %w", ErrMissingEventData, err)
		}
		ev.Type = EventInvoicePaid
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(stripeEvent.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%w: malformed invoice: %w", ErrMissingEventData, err)
		}
		ev.Type = EventInvoicePaymentFailed
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}

	default:
		// Providers send many event types this service does not care
		// about. Acknowledge and drop; rejecting would only trigger
		// pointless redelivery.
		ev.Type = EventIgnored
	}

	return ev, nil
}

// CancelSubscription cancels the remote subscription immediately.
func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if p.api == nil {
		return fmt.Errorf("%w: stripe secret key is missing", ErrNotConfigured)
	}

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := p.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return errors.Join(ErrUpstream, err)
	}
	return nil
}

// checkoutMetadata extracts the user attribution a checkout session
// was created with.
func checkoutMetadata(md map[string]string) (uuid.UUID, entitlement.PlanCode) {
	var userID uuid.UUID
	if raw, ok := md["userId"]; ok {
		if id, err := uuid.Parse(raw); err == nil {
			userID = id
		}
	}
	var plan entitlement.PlanCode
	if raw, ok := md["plan"]; ok {
		if parsed, err := entitlement.ParsePlan(raw); err == nil {
			plan = parsed
		}
	}
	return userID, plan
}
