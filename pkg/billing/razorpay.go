package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
)

// RazorpayConfig holds credentials and the plan-to-amount table for the
// order-based provider. Amounts are in paise (minor currency units).
type RazorpayConfig struct {
	KeyID          string        `env:"RAZORPAY_KEY_ID"`
	KeySecret      string        `env:"RAZORPAY_KEY_SECRET"`
	AmountSilver   int64         `env:"RAZORPAY_AMOUNT_SILVER" envDefault:"49900"`
	AmountGold     int64         `env:"RAZORPAY_AMOUNT_GOLD" envDefault:"99900"`
	AmountPlatinum int64         `env:"RAZORPAY_AMOUNT_PLATINUM" envDefault:"199900"`
	Timeout        time.Duration `env:"RAZORPAY_TIMEOUT" envDefault:"15s"`
	DisplayName    string        `env:"RAZORPAY_DISPLAY_NAME" envDefault:"Fitness Pro"`
}

// RazorpayProvider implements Provider for Razorpay's order+verify
// flow: the service creates a remote order, the browser widget collects
// payment, and the client posts back a signature this adapter verifies.
type RazorpayProvider struct {
	client *razorpay.Client
	cfg    RazorpayConfig
	log    *slog.Logger
}

// NewRazorpayProvider builds the adapter. Missing credentials keep
// startup working for deployments that only use the redirect provider;
// every operation returns ErrNotConfigured when invoked without them.
func NewRazorpayProvider(cfg RazorpayConfig, log *slog.Logger) *RazorpayProvider {
	p := &RazorpayProvider{cfg: cfg, log: log}
	if cfg.KeyID != "" && cfg.KeySecret != "" {
		c := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
		if cfg.Timeout > 0 {
			// The SDK takes whole seconds as an int16.
			secs := int64(cfg.Timeout / time.Second)
			switch {
			case secs < 1:
				secs = 1
			case secs > math.MaxInt16:
				secs = math.MaxInt16
			}
			c.SetTimeout(int16(secs))
		}
		p.client = c
	}
	return p
}

func (p *RazorpayProvider) Name() string { return ProviderRazorpay }

func (p *RazorpayProvider) amountFor(plan entitlement.PlanCode) (int64, error) {
	switch plan {
	case entitlement.PlanSilver:
		return p.cfg.AmountSilver, nil
	case entitlement.PlanGold:
		return p.cfg.AmountGold, nil
	case entitlement.PlanPlatinum:
		return p.cfg.AmountPlatinum, nil
	default:
		return 0, fmt.Errorf("%w: no amount for plan %q", ErrNotConfigured, plan)
	}
}

// CreateCheckout creates a remote order and returns the descriptor the
// in-page widget needs. The order notes carry plan and userId for
// reconciliation on the provider dashboard.
func (p *RazorpayProvider) CreateCheckout(_ context.Context, req CheckoutRequest) (*Checkout, error) {
	if p.client == nil {
		return nil, fmt.Errorf("%w: razorpay key id/secret are missing", ErrNotConfigured)
	}

	amount, err := p.amountFor(req.Plan)
	if err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("sub_%s_%s", req.Plan, uuid.NewString()[:8])
	order, err := p.client.Order.Create(map[string]interface{}{
		"amount":   amount,
		"currency": "INR",
		"receipt":  receipt,
		"notes": map[string]interface{}{
			"plan":   string(req.Plan),
			"userId": req.UserID.String(),
		},
	}, nil)
	if err != nil {
		return nil, errors.Join(ErrUpstream, err)
	}

	orderID, ok := order["id"].(string)
	if !ok || orderID == "" {
		return nil, fmt.Errorf("%w: order response has no id", ErrUpstream)
	}

	return &Checkout{
		Order: &OrderIntent{
			KeyID:       p.cfg.KeyID,
			OrderID:     orderID,
			Amount:      amount,
			Currency:    "INR",
			Name:        p.cfg.DisplayName,
			Description: fmt.Sprintf("Subscription - %s", req.Plan),
			Prefill: Prefill{
				Name:  req.Name,
				Email: req.Email,
			},
		},
	}, nil
}

// CreateBillingPortal is not part of Razorpay's order flow.
func (p *RazorpayProvider) CreateBillingPortal(_ context.Context, _, _ string) (*Portal, error) {
	return nil, ErrNotSupported
}

// VerifyClientPayment recomputes HMAC-SHA256 over "orderRef|paymentRef"
// with the key secret and compares it to the supplied hex signature in
// constant time. A mismatch returns false without error; the provider's
// retry semantics do not apply to client verification.
func (p *RazorpayProvider) VerifyClientPayment(orderRef, paymentRef, signature string) (bool, error) {
	if p.cfg.KeySecret == "" {
		return false, fmt.Errorf("%w: razorpay key secret is missing", ErrNotConfigured)
	}

	mac := hmac.New(sha256.New, []byte(p.cfg.KeySecret))
	mac.Write([]byte(orderRef + "|" + paymentRef))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature)), nil
}

// ParseWebhook is not used for the order flow; activation happens via
// VerifyClientPayment on the client's confirmation post.
func (p *RazorpayProvider) ParseWebhook(_ context.Context, _ []byte, _ string) (*Event, error) {
	return nil, ErrNotSupported
}

// CancelSubscription is not supported: order payments are one-shot and
// carry no remote subscription object to cancel.
func (p *RazorpayProvider) CancelSubscription(_ context.Context, _ string) error {
	return ErrNotSupported
}
