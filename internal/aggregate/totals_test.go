package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetplan/internal/core"
)

func TestTotalsAreLiteralSums(t *testing.T) {
	tests := []struct {
		name     string
		plan     core.FinancialData
		income   int64
		expenses int64
		savings  int64
	}{
		{name: "empty", plan: core.EmptyFinancialData()},
		{
			name: "populated",
			plan: core.FinancialData{
				Incomes:  []core.IncomeItem{{ID: "1", Name: "Work", Amount: 5000}, {ID: "2", Name: "Side", Amount: 500}},
				Expenses: []core.ExpenseItem{{ID: "e1", Name: "Rent", Amount: 1200}, {ID: "e2", Name: "Food", Amount: 800}},
				Savings:  []core.SavingsItem{{ID: "s1", Name: "Car", Amount: 700}},
			},
			income:   5500,
			expenses: 2000,
			savings:  700,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.income, TotalIncome(tt.plan))
			assert.Equal(t, tt.expenses, TotalExpensesItemized(tt.plan))
			assert.Equal(t, tt.savings, TotalSavings(tt.plan))
		})
	}
}

func TestDefaultPlanBalance(t *testing.T) {
	plan := core.DefaultFinancialData()
	assert.Equal(t, int64(5500), PlanBalance(plan))
	assert.Equal(t, int64(5500), Balance(5500, 0, 0, 0, 0))
}

func TestBalanceSubtractsEverything(t *testing.T) {
	assert.Equal(t, int64(1000), Balance(5000, 1000, 2000, 500, 500))
	assert.Equal(t, int64(-100), Balance(100, 100, 100, 0, 0))
}

func TestPercentageOfZeroGuard(t *testing.T) {
	for _, x := range []int64{0, 1, 5500, -10} {
		got := PercentageOf(x, 0)
		assert.Equal(t, float64(0), got)
		assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
	}
	assert.InDelta(t, 25.0, PercentageOf(250, 1000), 1e-9)
	assert.Equal(t, float64(0), PercentageOf(10, -5))
}

func TestUSDAmount(t *testing.T) {
	assert.Equal(t, float64(0), USDAmount(300, 0))
	assert.Equal(t, float64(0), USDAmount(300, -1))
	assert.InDelta(t, 100.0, USDAmount(300, 3), 1e-9)
}

func TestDeviation(t *testing.T) {
	_, ok := Deviation(0, 500)
	assert.False(t, ok, "zero baseline is undefined")
	_, ok = Deviation(0, 0)
	assert.False(t, ok)

	d, ok := Deviation(100, 150)
	require.True(t, ok)
	assert.InDelta(t, 50.0, d, 1e-9)

	d, ok = Deviation(100, 50)
	require.True(t, ok)
	assert.InDelta(t, -50.0, d, 1e-9)

	assert.Nil(t, DeviationPtr(0, 10))
	require.NotNil(t, DeviationPtr(200, 100))
	assert.InDelta(t, -50.0, *DeviationPtr(200, 100), 1e-9)
}

func TestResolveActualAggregateWins(t *testing.T) {
	actual := &core.ActualFinancialData{
		TotalIncome: core.Int64(6000),
		Incomes:     []core.ActualItem{{ID: "1", Name: "Work", Amount: 100}},
		Expenses:    []core.ActualItem{{ID: "e", Name: "Rent", Amount: 300}, {ID: "f", Name: "Food", Amount: 200}},
	}
	assert.Equal(t, int64(6000), ResolveActualIncome(actual))
	assert.Equal(t, int64(500), ResolveActualExpenses(actual))
	assert.Equal(t, int64(0), ResolveActualSavings(actual))

	actual.TotalExpenses = core.Int64(0)
	assert.Equal(t, int64(0), ResolveActualExpenses(actual), "explicit zero total still wins")

	assert.Equal(t, int64(0), ResolveActualIncome(nil))
}
