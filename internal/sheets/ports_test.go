package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetplan/internal/core"
)

func TestRowFromReport_PlanOnly(t *testing.T) {
	plan := core.DefaultFinancialData()
	plan.Expenses = []core.ExpenseItem{{ID: "e1", Name: "Rent", Amount: 2000}}
	plan.Savings = []core.SavingsItem{{ID: "s1", Name: "Trip", Amount: 500}}
	plan.Tax = 300

	row := RowFromReport(core.MonthlyReport{Year: 2024, Month: 4, Plan: plan})

	assert.Equal(t, int64(5500), row.IncomePlan)
	assert.Equal(t, int64(2000), row.ExpensesPlan)
	assert.Equal(t, int64(500), row.SavingsPlan)
	assert.Equal(t, int64(300), row.TaxPlan)
	assert.Equal(t, int64(2700), row.Balance)
	assert.False(t, row.HasActual)
	assert.Nil(t, row.IncomeDeviation)

	values := row.Values()
	require.Len(t, values, len(Header))
	assert.Equal(t, 4, values[0])
	assert.Equal(t, "", values[2])
	assert.Equal(t, NoDeviation, values[3])
}

func TestRowFromReport_WithActual(t *testing.T) {
	plan := core.DefaultFinancialData()
	actual := &core.ActualFinancialData{TotalIncome: core.Int64(6050)}

	row := RowFromReport(core.MonthlyReport{Year: 2024, Month: 1, Plan: plan, Actual: actual})

	require.True(t, row.HasActual)
	assert.Equal(t, int64(6050), row.IncomeActual)
	require.NotNil(t, row.IncomeDeviation)
	assert.InDelta(t, 10.0, *row.IncomeDeviation, 0.0001)
	assert.Nil(t, row.ExpensesDeviation)
	assert.Equal(t, "10.0", row.Values()[3])
	assert.Equal(t, "2024-01", row.String())
}

func TestRowNumber(t *testing.T) {
	assert.Equal(t, 2, RowNumber(1))
	assert.Equal(t, 13, RowNumber(12))
}
