package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/billing"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
)

func TestMemStoreSave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stale writer is a no-op", func(t *testing.T) {
		t.Parallel()

		store := billing.NewMemStore()
		userID := uuid.New()
		now := time.Now().UTC()

		store.Seed(&billing.Record{
			UserID:    userID,
			Plan:      entitlement.PlanGold,
			Status:    billing.StatusActive,
			UpdatedAt: now,
		})

		// A write carrying an older timestamp lost the race.
		require.NoError(t, store.Save(ctx, &billing.Record{
			UserID:    userID,
			Plan:      entitlement.PlanSilver,
			Status:    billing.StatusPastDue,
			UpdatedAt: now.Add(-time.Minute),
		}))

		rec, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.PlanGold, rec.Plan)
		assert.Equal(t, billing.StatusActive, rec.Status)
	})

	t.Run("equal timestamps accept the write", func(t *testing.T) {
		t.Parallel()

		store := billing.NewMemStore()
		userID := uuid.New()
		now := time.Now().UTC()

		store.Seed(&billing.Record{UserID: userID, Plan: entitlement.PlanGold, UpdatedAt: now})
		require.NoError(t, store.Save(ctx, &billing.Record{
			UserID:    userID,
			Plan:      entitlement.PlanPlatinum,
			UpdatedAt: now,
		}))

		rec, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.PlanPlatinum, rec.Plan)
	})

	t.Run("save preserves counters and customer", func(t *testing.T) {
		t.Parallel()

		store := billing.NewMemStore()
		userID := uuid.New()
		store.Seed(&billing.Record{
			UserID:             userID,
			ProviderCustomerID: "cus_1",
			AIPlansUsed:        2,
		})

		require.NoError(t, store.Save(ctx, &billing.Record{
			UserID:    userID,
			Plan:      entitlement.PlanGold,
			Status:    billing.StatusActive,
			UpdatedAt: time.Now().UTC(),
		}))

		rec, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "cus_1", rec.ProviderCustomerID)
		assert.Equal(t, int64(2), rec.AIPlansUsed)
		assert.Equal(t, entitlement.PlanGold, rec.Plan)
	})
}

func TestMemStoreSetCustomerID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := billing.NewMemStore()
	userID := uuid.New()
	store.Seed(&billing.Record{UserID: userID})

	require.NoError(t, store.SetCustomerID(ctx, userID, "cus_first"))
	// Set-once: the second write must not take.
	require.NoError(t, store.SetCustomerID(ctx, userID, "cus_second"))

	rec, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "cus_first", rec.ProviderCustomerID)

	require.ErrorIs(t, store.SetCustomerID(ctx, uuid.New(), "cus_x"), billing.ErrUserNotFound)
}

func TestMemStoreUsage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := billing.NewMemStore()
	userID := uuid.New()
	store.Seed(&billing.Record{UserID: userID})

	require.NoError(t, store.IncrementUsage(ctx, userID, billing.FeatureAIPlans))
	require.NoError(t, store.IncrementUsage(ctx, userID, billing.FeatureAIPlans))
	require.NoError(t, store.IncrementUsage(ctx, userID, billing.FeatureTrainerChats))

	rec, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.AIPlansUsed)
	assert.Equal(t, int64(1), rec.TrainerChatsUsed)

	require.NoError(t, store.ResetUsage(ctx, userID))
	rec, err = store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, rec.AIPlansUsed)
	assert.Zero(t, rec.TrainerChatsUsed)

	require.ErrorIs(t, store.IncrementUsage(ctx, uuid.New(), billing.FeatureAIPlans), billing.ErrUserNotFound)
}

func TestMemStoreFindByCustomerID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := billing.NewMemStore()
	userID := uuid.New()
	store.Seed(&billing.Record{UserID: userID, ProviderCustomerID: "cus_1"})

	rec, err := store.FindByCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, userID, rec.UserID)

	_, err = store.FindByCustomerID(ctx, "cus_missing")
	require.ErrorIs(t, err, billing.ErrUserNotFound)

	// Empty customer reference must never match the unset records.
	store.Seed(&billing.Record{UserID: uuid.New()})
	_, err = store.FindByCustomerID(ctx, "")
	require.ErrorIs(t, err, billing.ErrUserNotFound)
}
