package entitlement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
)

func TestParsePlan(t *testing.T) {
	t.Parallel()

	t.Run("accepts paid plans case-insensitively", func(t *testing.T) {
		t.Parallel()

		for input, want := range map[string]entitlement.PlanCode{
			"SILVER":    entitlement.PlanSilver,
			"gold":      entitlement.PlanGold,
			" platinum": entitlement.PlanPlatinum,
		} {
			got, err := entitlement.ParsePlan(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("rejects free and unknown", func(t *testing.T) {
		t.Parallel()

		for _, input := range []string{"FREE", "DIAMOND", ""} {
			_, err := entitlement.ParsePlan(input)
			require.ErrorIs(t, err, entitlement.ErrUnknownPlan)
		}
	})
}

func TestLookup(t *testing.T) {
	t.Parallel()

	t.Run("free and unknown resolve to nil", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, entitlement.Lookup(entitlement.PlanFree))
		assert.Nil(t, entitlement.Lookup("DIAMOND"))
		assert.Nil(t, entitlement.Lookup(""))
	})

	t.Run("every paid plan resolves", func(t *testing.T) {
		t.Parallel()

		for _, plan := range entitlement.PaidPlans {
			require.NotNil(t, entitlement.Lookup(plan), "plan %s", plan)
		}
	})

	t.Run("tiers are monotonic", func(t *testing.T) {
		t.Parallel()

		silver := entitlement.Lookup(entitlement.PlanSilver)
		gold := entitlement.Lookup(entitlement.PlanGold)
		platinum := entitlement.Lookup(entitlement.PlanPlatinum)

		// Treat -1 as larger than any finite limit.
		geq := func(a, b int64) bool {
			if a == entitlement.Unlimited {
				return true
			}
			if b == entitlement.Unlimited {
				return false
			}
			return a >= b
		}

		assert.True(t, geq(gold.MaxActiveAIPlans, silver.MaxActiveAIPlans))
		assert.True(t, geq(platinum.MaxActiveAIPlans, gold.MaxActiveAIPlans))
		assert.True(t, geq(gold.ProgressHistoryWindowDays, silver.ProgressHistoryWindowDays))
		assert.True(t, geq(platinum.ProgressHistoryWindowDays, gold.ProgressHistoryWindowDays))
		assert.True(t, geq(gold.TrainerChatsPerMonth, silver.TrainerChatsPerMonth))
		assert.True(t, geq(platinum.TrainerChatsPerMonth, gold.TrainerChatsPerMonth))
	})

	t.Run("silver matches published tier", func(t *testing.T) {
		t.Parallel()

		silver := entitlement.Lookup(entitlement.PlanSilver)
		require.NotNil(t, silver)
		assert.Equal(t, int64(1), silver.MaxActiveAIPlans)
		assert.Equal(t, int64(30), silver.ProgressHistoryWindowDays)
		assert.Equal(t, entitlement.ChatRead, silver.TrainerChatAccess)
		assert.Equal(t, entitlement.ExportNone, silver.DataExport)
	})

	t.Run("platinum is unlimited where expected", func(t *testing.T) {
		t.Parallel()

		platinum := entitlement.Lookup(entitlement.PlanPlatinum)
		require.NotNil(t, platinum)
		assert.Equal(t, entitlement.Unlimited, platinum.MaxActiveAIPlans)
		assert.Equal(t, entitlement.Unlimited, platinum.ProgressHistoryWindowDays)
		assert.Equal(t, entitlement.Unlimited, platinum.TrainerChatsPerMonth)
		assert.Equal(t, entitlement.ChatPriority, platinum.TrainerChatAccess)
	})

	t.Run("returns a copy", func(t *testing.T) {
		t.Parallel()

		first := entitlement.Lookup(entitlement.PlanGold)
		first.MaxActiveAIPlans = 999

		second := entitlement.Lookup(entitlement.PlanGold)
		assert.Equal(t, int64(3), second.MaxActiveAIPlans)
	})
}
