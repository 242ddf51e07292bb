package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetplan/internal/core"
)

func TestApplyDistributionRulesIsAdvisory(t *testing.T) {
	savings := []core.SavingsItem{
		{ID: "s1", Name: "Car", Amount: 1000},
		{ID: "s2", Name: "Trip", Amount: 400, IsCustom: true},
		{ID: "s3", Name: "Rainy day", Amount: 50},
	}
	rules := []core.DistributionRule{
		{ID: "r1", Name: "Big goals", Percentage: 20, SavingsItemIDs: []string{"s1", "s2"}},
	}

	out := ApplyDistributionRules(savings, rules)

	require.Len(t, out, 3)
	require.NotNil(t, out[0].Percentage)
	assert.Equal(t, float64(20), *out[0].Percentage)
	assert.Equal(t, int64(1000), out[0].Amount, "amount is never recalculated")
	assert.Nil(t, out[1].Percentage, "custom bucket is left alone")
	assert.Equal(t, int64(400), out[1].Amount)
	assert.Nil(t, out[2].Percentage)

	assert.Nil(t, savings[0].Percentage, "input is not mutated")
}

func TestApplyDistributionRulesFirstMatchWins(t *testing.T) {
	savings := []core.SavingsItem{{ID: "s1", Amount: 100}, {ID: "s2", Amount: 100}}
	rules := []core.DistributionRule{
		{ID: "r1", Percentage: 30, SavingsItemIDs: []string{"s1"}},
		{ID: "r2", Percentage: 10, SavingsItemIDs: []string{"s1", "s2"}},
	}

	out := ApplyDistributionRules(savings, rules)

	require.NotNil(t, out[0].Percentage)
	assert.Equal(t, float64(30), *out[0].Percentage)
	require.NotNil(t, out[1].Percentage)
	assert.Equal(t, float64(10), *out[1].Percentage)
}

func TestPruneRules(t *testing.T) {
	rules := []core.DistributionRule{
		{ID: "r1", Percentage: 10, SavingsItemIDs: []string{"s1", "s2"}},
		{ID: "r2", Percentage: 5, SavingsItemIDs: []string{"s2"}},
	}
	out := PruneRules(rules, "s2")

	require.Len(t, out, 1)
	assert.Equal(t, "r1", out[0].ID)
	assert.Equal(t, []string{"s1"}, out[0].SavingsItemIDs)
	assert.Equal(t, []string{"s1", "s2"}, rules[0].SavingsItemIDs, "input is not mutated")
}

func TestWithExchangeRate(t *testing.T) {
	plan := core.EmptyFinancialData()
	plan.Savings = []core.SavingsItem{{ID: "s1", Name: "Car", Amount: 320, AmountUSD: 1}}

	out := WithExchangeRate(plan, 3.2)

	assert.Equal(t, 3.2, out.ExchangeRate)
	assert.InDelta(t, 100.0, out.Savings[0].AmountUSD, 1e-9)
	assert.Equal(t, float64(1), plan.Savings[0].AmountUSD)
	assert.Equal(t, float64(3), plan.ExchangeRate)

	zero := WithExchangeRate(plan, 0)
	assert.Equal(t, float64(0), zero.Savings[0].AmountUSD)
}
