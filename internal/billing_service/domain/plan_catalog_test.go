package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPlan(t *testing.T) {
	t.Run("Essentiel", func(t *testing.T) {
		plan, err := LookupPlan(PlanEssentiel)
		require.NoError(t, err)
		assert.Equal(t, int64(50), plan.IncludedStudents)
		assert.Equal(t, int64(500), plan.PerStudentOverageRate)
		assert.False(t, plan.UnlimitedStudents())
	})

	t.Run("Premium is uncapped", func(t *testing.T) {
		plan, err := LookupPlan(PlanPremium)
		require.NoError(t, err)
		assert.True(t, plan.UnlimitedStudents())
		assert.True(t, plan.UnlimitedCycles())
		assert.True(t, plan.UnlimitedStorage())
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := LookupPlan("Gold")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownPlan)
		assert.Contains(t, err.Error(), "Gold")
	})

	t.Run("Names are case sensitive", func(t *testing.T) {
		_, err := LookupPlan("pro")
		assert.ErrorIs(t, err, ErrUnknownPlan)
	})
}

func TestAllPlans_UpgradeOrder(t *testing.T) {
	plans := AllPlans()
	require.Len(t, plans, 3)
	assert.Equal(t, PlanEssentiel, plans[0].Name)
	assert.Equal(t, PlanPro, plans[1].Name)
	assert.Equal(t, PlanPremium, plans[2].Name)

	for i := 1; i < len(plans); i++ {
		assert.Greater(t, plans[i].BasePrice, plans[i-1].BasePrice)
	}
}

func TestPlanTier_HasFeature(t *testing.T) {
	plan, err := LookupPlan(PlanPro)
	require.NoError(t, err)
	assert.True(t, plan.HasFeature("messaging"))
	assert.False(t, plan.HasFeature("api_access"))
}

func TestLookupModulePrice(t *testing.T) {
	price, ok := LookupModulePrice(ModuleTransport)
	assert.True(t, ok)
	assert.Equal(t, int64(5000), price)

	price, ok = LookupModulePrice("teleportation")
	assert.False(t, ok)
	assert.Zero(t, price)
}

func TestParseSubscriptionStatus(t *testing.T) {
	for _, s := range []string{"active", "trialing", "past_due", "canceled"} {
		status, err := ParseSubscriptionStatus(s)
		require.NoError(t, err)
		assert.Equal(t, SubscriptionStatus(s), status)
	}

	_, err := ParseSubscriptionStatus("suspended")
	assert.Error(t, err)
}
