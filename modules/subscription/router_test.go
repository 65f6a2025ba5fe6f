package subscription_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/Abin-Raju-19/fiteness-pro/modules/subscription"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/billing"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/jwt"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/limits"
)

// fakeProvider is a configurable billing.Provider for route tests.
type fakeProvider struct {
	name          string
	checkout      *billing.Checkout
	checkoutErr   error
	portal        *billing.Portal
	portalErr     error
	verifyOK      bool
	verifyErr     error
	event         *billing.Event
	parseErr      error
	cancelErr     error
	lastPayload   []byte
	lastSignature string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) CreateCheckout(_ context.Context, _ billing.CheckoutRequest) (*billing.Checkout, error) {
	return f.checkout, f.checkoutErr
}

func (f *fakeProvider) CreateBillingPortal(_ context.Context, _, _ string) (*billing.Portal, error) {
	return f.portal, f.portalErr
}

func (f *fakeProvider) VerifyClientPayment(_, _, _ string) (bool, error) {
	return f.verifyOK, f.verifyErr
}

func (f *fakeProvider) ParseWebhook(_ context.Context, payload []byte, signature string) (*billing.Event, error) {
	f.lastPayload = payload
	f.lastSignature = signature
	return f.event, f.parseErr
}

func (f *fakeProvider) CancelSubscription(_ context.Context, _ string) error {
	return f.cancelErr
}

type testEnv struct {
	server   *httptest.Server
	store    *billing.MemStore
	stripe   *fakeProvider
	razorpay *fakeProvider
	token    string
	userID   uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := billing.NewMemStore()
	userID := uuid.New()
	store.Seed(&billing.Record{
		UserID: userID,
		Email:  "jordan@example.com",
		Name:   "Jordan",
	})

	stripe := &fakeProvider{name: billing.ProviderStripe}
	razorpay := &fakeProvider{name: billing.ProviderRazorpay}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	billingSvc := billing.NewService(store, log, stripe, razorpay)
	limitsSvc := limits.NewService(store)

	tokens, err := jwt.New(jwt.Config{SigningKey: "test-signing-key-0123456789abcdef", TTL: time.Hour})
	require.NoError(t, err)
	token, err := tokens.Generate(userID.String(), jwt.RoleUser)
	require.NoError(t, err)

	svc := subscription.NewService(billingSvc, limitsSvc, subscription.Pricing{
		Currency: "INR",
		Amounts: map[entitlement.PlanCode]int64{
			entitlement.PlanSilver:   49900,
			entitlement.PlanGold:     99900,
			entitlement.PlanPlatinum: 199900,
		},
	}, log)

	server := httptest.NewServer(svc.Handle(jwt.Middleware(tokens)))
	t.Cleanup(server.Close)

	return &testEnv{
		server:   server,
		store:    store,
		stripe:   stripe,
		razorpay: razorpay,
		token:    token,
		userID:   userID,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, authed bool) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestListPlans(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/plans", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Plans []struct {
			Plan     string `json:"plan"`
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
		} `json:"plans"`
	}
	decodeBody(t, resp, &body)

	require.Len(t, body.Plans, 3)
	assert.Equal(t, "SILVER", body.Plans[0].Plan)
	assert.Equal(t, int64(49900), body.Plans[0].Amount)
	assert.Equal(t, "INR", body.Plans[0].Currency)
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/me", nil, false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.store.Seed(&billing.Record{
		UserID:      env.userID,
		Plan:        entitlement.PlanGold,
		Status:      billing.StatusActive,
		AIPlansUsed: 2,
	})

	resp := env.do(t, http.MethodGet, "/me", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Plan         string                    `json:"plan"`
		Status       string                    `json:"status"`
		Usage        map[string]int64          `json:"usage"`
		Entitlements *entitlement.Entitlements `json:"entitlements"`
	}
	decodeBody(t, resp, &body)

	assert.Equal(t, "GOLD", body.Plan)
	assert.Equal(t, "active", body.Status)
	assert.Equal(t, int64(2), body.Usage["ai_plans"])
	require.NotNil(t, body.Entitlements)
	assert.Equal(t, int64(3), body.Entitlements.MaxActiveAIPlans)
}

func TestCreateCheckoutSession(t *testing.T) {
	t.Parallel()

	t.Run("returns redirect url", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.stripe.checkout = &billing.Checkout{URL: "https://checkout.stripe.com/pay/cs_test_1"}

		resp := env.do(t, http.MethodPost, "/create-checkout-session",
			map[string]string{"plan": "GOLD"}, true)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_1", body["url"])
	})

	t.Run("rejects unknown plan", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/create-checkout-session",
			map[string]string{"plan": "DIAMOND"}, true)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("conflict while canceling", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.store.Seed(&billing.Record{
			UserID: env.userID,
			Status: billing.StatusCanceled,
		})

		resp := env.do(t, http.MethodPost, "/create-checkout-session",
			map[string]string{"plan": "GOLD"}, true)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestCreatePortalSession(t *testing.T) {
	t.Parallel()

	t.Run("no customer yet", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/create-portal-session",
			map[string]string{"returnUrl": "https://app.example.com/profile"}, true)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("returns portal url", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.store.Seed(&billing.Record{
			UserID:             env.userID,
			ProviderCustomerID: "cus_123",
		})
		env.stripe.portal = &billing.Portal{URL: "https://billing.stripe.com/p/session_1"}

		resp := env.do(t, http.MethodPost, "/create-portal-session",
			map[string]string{"returnUrl": "https://app.example.com/profile"}, true)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "https://billing.stripe.com/p/session_1", body["url"])
	})
}

func TestCreateOrder(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.razorpay.checkout = &billing.Checkout{
		Order: &billing.OrderIntent{
			KeyID:    "rzp_test_key",
			OrderID:  "order_1",
			Amount:   99900,
			Currency: "INR",
		},
	}

	resp := env.do(t, http.MethodPost, "/razorpay/create-order",
		map[string]string{"plan": "GOLD"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body billing.OrderIntent
	decodeBody(t, resp, &body)
	assert.Equal(t, "order_1", body.OrderID)
	assert.Equal(t, int64(99900), body.Amount)
}

func TestVerifyOrder(t *testing.T) {
	t.Parallel()

	payload := map[string]string{
		"plan":                "GOLD",
		"razorpay_order_id":   "order_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "deadbeef",
	}

	t.Run("valid signature activates", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.razorpay.verifyOK = true

		resp := env.do(t, http.MethodPost, "/razorpay/verify", payload, true)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]bool
		decodeBody(t, resp, &body)
		assert.True(t, body["ok"])

		rec, err := env.store.Get(context.Background(), env.userID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.PlanGold, rec.Plan)
		assert.Equal(t, billing.StatusActive, rec.Status)
		assert.Equal(t, "pay_1", rec.ProviderSubscriptionID)
	})

	t.Run("invalid signature rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.razorpay.verifyOK = false

		resp := env.do(t, http.MethodPost, "/razorpay/verify", payload, true)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		rec, err := env.store.Get(context.Background(), env.userID)
		require.NoError(t, err)
		assert.Empty(t, rec.Plan)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/razorpay/verify",
			map[string]string{"plan": "GOLD"}, true)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCancel(t *testing.T) {
	t.Parallel()

	t.Run("no subscription", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/cancel", nil, true)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("cancels active subscription", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.store.Seed(&billing.Record{
			UserID:                 env.userID,
			Plan:                   entitlement.PlanGold,
			Status:                 billing.StatusActive,
			Provider:               billing.ProviderStripe,
			ProviderSubscriptionID: "sub_1",
		})

		resp := env.do(t, http.MethodPost, "/cancel", nil, true)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		rec, err := env.store.Get(context.Background(), env.userID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.PlanFree, rec.Plan)
		assert.Equal(t, billing.StatusCanceled, rec.Status)
		assert.Empty(t, rec.ProviderSubscriptionID)
	})
}

func TestCheckLimit(t *testing.T) {
	t.Parallel()

	t.Run("silver at limit", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.store.Seed(&billing.Record{
			UserID:      env.userID,
			Plan:        entitlement.PlanSilver,
			Status:      billing.StatusActive,
			AIPlansUsed: 1,
		})

		resp := env.do(t, http.MethodGet, "/limits/ai_plans", nil, true)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var check limits.Check
		decodeBody(t, resp, &check)
		assert.False(t, check.Allowed)
		assert.Equal(t, int64(1), check.Limit)
		assert.Equal(t, int64(0), check.Remaining)
	})

	t.Run("unknown feature", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		resp := env.do(t, http.MethodGet, "/limits/teleport", nil, true)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestWebhook(t *testing.T) {
	t.Parallel()

	t.Run("adapter receives untouched bytes", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.razorpay.event = nil
		env.stripe.event = &billing.Event{
			Provider:      billing.ProviderStripe,
			Type:          billing.EventIgnored,
			ProviderEvent: "charge.refunded",
		}

		// Whitespace and key order must survive to the adapter exactly.
		raw := []byte("{\"id\": \"evt_1\",   \"type\":\"charge.refunded\"}")
		req, err := http.NewRequest(http.MethodPost, env.server.URL+"/webhook", bytes.NewReader(raw))
		require.NoError(t, err)
		req.Header.Set("Stripe-Signature", "t=1,v1=abc")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, raw, env.stripe.lastPayload)
		assert.Equal(t, "t=1,v1=abc", env.stripe.lastSignature)
	})

	t.Run("bad signature answers 400", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.stripe.parseErr = billing.ErrInvalidSignature

		resp := env.do(t, http.MethodPost, "/webhook", map[string]string{"id": "evt_1"}, false)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("recognized event that fails processing is acked", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.stripe.event = &billing.Event{
			Provider:      billing.ProviderStripe,
			Type:          billing.EventSubscriptionUpdated,
			ProviderEvent: "customer.subscription.updated",
			CustomerID:    "cus_unknown",
		}

		resp := env.do(t, http.MethodPost, "/webhook", map[string]string{"id": "evt_2"}, false)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
