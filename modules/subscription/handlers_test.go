package subscription

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/billing"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/jwt"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/limits"
)

// The /me response must carry the entitlements resolved for this
// request, not a second lookup of its own.
func TestMeServesRequestScopedEntitlements(t *testing.T) {
	t.Parallel()

	store := billing.NewMemStore()
	userID := uuid.New()
	store.Seed(&billing.Record{
		UserID: userID,
		Plan:   entitlement.PlanGold,
		Status: billing.StatusActive,
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(billing.NewService(store, log), limits.NewService(store), Pricing{}, log)

	resolved := *entitlement.Lookup(entitlement.PlanGold)
	resolved.MaxActiveAIPlans = 42

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	ctx := jwt.WithClaims(req.Context(), jwt.Claims{Subject: userID.String()})
	ctx = entitlement.WithContext(ctx, &resolved)
	rec := httptest.NewRecorder()

	http.HandlerFunc(svc.me).ServeHTTP(rec, req.WithContext(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	var details billing.Details
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	require.NotNil(t, details.Entitlements)
	assert.Equal(t, int64(42), details.Entitlements.MaxActiveAIPlans)
}
