package subscription

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/billing"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/jwt"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/logger"
)

var errValidation = errors.New("validation failed")

// identity pulls the authenticated user out of the request context. The
// auth middleware guarantees it for the protected group; a miss here
// means the route was mounted without it.
func (s *Service) identity(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := jwt.UserIDFromContext(r.Context())
	if !ok {
		s.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return uuid.Nil, false
	}
	return userID, true
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", errValidation)
	}
	return nil
}

type planResponse struct {
	Plan         entitlement.PlanCode      `json:"plan"`
	Amount       int64                     `json:"amount"`
	Currency     string                    `json:"currency"`
	Entitlements *entitlement.Entitlements `json:"entitlements"`
}

// listPlans serves the public plan catalog: each paid plan with its
// price and entitlements.
func (s *Service) listPlans(w http.ResponseWriter, r *http.Request) {
	plans := []entitlement.PlanCode{entitlement.PlanSilver, entitlement.PlanGold, entitlement.PlanPlatinum}

	catalog := make([]planResponse, 0, len(plans))
	for _, plan := range plans {
		catalog = append(catalog, planResponse{
			Plan:         plan,
			Amount:       s.pricing.Amounts[plan],
			Currency:     s.pricing.Currency,
			Entitlements: entitlement.Lookup(plan),
		})
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"plans": catalog})
}

func (s *Service) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	details, err := s.billing.Details(r.Context(), userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	// Serve the entitlements the plan resolver attached to this request,
	// so the response agrees with any gates that ran under the same
	// resolution.
	if ent, ok := entitlement.FromContext(r.Context()); ok && ent != nil {
		details.Entitlements = ent
	}
	s.respondJSON(w, http.StatusOK, details)
}

type checkoutSessionRequest struct {
	Plan       string `json:"plan"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

func (s *Service) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req checkoutSessionRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	plan, err := entitlement.ParsePlan(req.Plan)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	chk, err := s.billing.CreateCheckout(r.Context(), billing.ProviderStripe, userID, plan, req.SuccessURL, req.CancelURL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"url": chk.URL})
}

type portalSessionRequest struct {
	ReturnURL string `json:"returnUrl"`
}

func (s *Service) createPortalSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req portalSessionRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	portal, err := s.billing.CreatePortal(r.Context(), billing.ProviderStripe, userID, req.ReturnURL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"url": portal.URL})
}

type createOrderRequest struct {
	Plan string `json:"plan"`
}

func (s *Service) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	plan, err := entitlement.ParsePlan(req.Plan)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	chk, err := s.billing.CreateCheckout(r.Context(), billing.ProviderRazorpay, userID, plan, "", "")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, chk.Order)
}

type verifyOrderRequest struct {
	Plan      string `json:"plan"`
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

func (s *Service) verifyOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req verifyOrderRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		s.respondError(w, r, fmt.Errorf("%w: razorpay_order_id, razorpay_payment_id and razorpay_signature are required", errValidation))
		return
	}
	plan, err := entitlement.ParsePlan(req.Plan)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.billing.VerifyOrder(r.Context(), billing.ProviderRazorpay, userID, plan, req.OrderID, req.PaymentID, req.Signature); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Service) cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	if err := s.billing.Cancel(r.Context(), userID); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Service) checkLimit(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	feature, ok := billing.ParseFeature(chi.URLParam(r, "feature"))
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: unknown feature", errValidation))
		return
	}

	check, err := s.limits.CheckLimit(r.Context(), userID, feature)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, check)
}

// webhook ingests provider callbacks. The body is read raw and handed
// to the adapter untouched; verification is over the exact bytes the
// provider signed. Signature and parse failures answer 400 so the
// provider retries; everything else is acked.
func (s *Service) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "unable to read request body"})
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := s.billing.HandleWebhook(r.Context(), billing.ProviderStripe, payload, signature); err != nil {
		s.log.WarnContext(r.Context(), "webhook rejected",
			logger.PaymentProvider(billing.ProviderStripe),
			logger.Error(err))
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "webhook verification failed"})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
