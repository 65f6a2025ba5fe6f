package subscription

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/billing"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", slog.Any("error", err))
	}
}

// respondError maps the billing error taxonomy onto HTTP statuses. The
// client message is the sentinel text only; wrapped detail stays in the
// logs.
func (s *Service) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, errValidation), errors.Is(err, entitlement.ErrUnknownPlan):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, billing.ErrInvalidSignature):
		status = http.StatusBadRequest
		message = "invalid payment signature"
	case errors.Is(err, billing.ErrNotSupported), errors.Is(err, billing.ErrUnknownProvider):
		status = http.StatusBadRequest
		message = "operation not supported for this payment provider"
	case errors.Is(err, billing.ErrUserNotFound):
		status = http.StatusNotFound
		message = "user not found"
	case errors.Is(err, billing.ErrNoCustomer):
		status = http.StatusNotFound
		message = "no billing profile for this user"
	case errors.Is(err, billing.ErrNoSubscription):
		status = http.StatusNotFound
		message = "no active subscription"
	case errors.Is(err, billing.ErrConflict):
		status = http.StatusConflict
		message = "subscription is being canceled, try again later"
	case errors.Is(err, billing.ErrNotConfigured):
		status = http.StatusInternalServerError
		message = "payment provider is not configured"
	case errors.Is(err, billing.ErrUpstream):
		status = http.StatusBadGateway
		message = "payment provider request failed"
	}

	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}

	s.respondJSON(w, status, errorResponse{Error: message})
}
