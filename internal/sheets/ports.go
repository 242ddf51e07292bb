package sheets

import (
	"context"
	"fmt"
	"strconv"

	"budgetplan/internal/aggregate"
	"budgetplan/internal/core"
	"budgetplan/internal/identity"
)

// NoDeviation is written where a deviation is undefined.
const NoDeviation = "—"

// Ports for outbound adapters.
type (
	// ReportMirror keeps one summary row per month in an external sheet.
	ReportMirror interface {
		UpsertMonth(ctx context.Context, user identity.User, row MonthRow) error
		ClearMonth(ctx context.Context, user identity.User, year, month int) error
	}

	// MonthRow is the plan-vs-actual summary of one report. Actual figures
	// are zero and deviations nil when no actual data was recorded.
	MonthRow struct {
		Year              int
		Month             int
		IncomePlan        int64
		IncomeActual      int64
		ExpensesPlan      int64
		ExpensesActual    int64
		SavingsPlan       int64
		SavingsActual     int64
		TaxPlan           int64
		TaxActual         int64
		Balance           int64
		HasActual         bool
		IncomeDeviation   *float64
		ExpensesDeviation *float64
		SavingsDeviation  *float64
	}
)

// Header is the first row of every mirrored sheet.
var Header = []string{
	"Month",
	"Income plan", "Income actual", "Income dev %",
	"Expenses plan", "Expenses actual", "Expenses dev %",
	"Savings plan", "Savings actual", "Savings dev %",
	"Tax plan", "Tax actual",
	"Balance",
}

// RowFromReport summarises a report with the same rules as the monthly
// comparison.
func RowFromReport(r core.MonthlyReport) MonthRow {
	row := MonthRow{
		Year:      r.Year,
		Month:     r.Month,
		Balance:   aggregate.PlanBalance(r.Plan),
		HasActual: r.Actual != nil,
	}
	for _, c := range aggregate.CompareMonth(r) {
		switch c.Name {
		case aggregate.RowIncome:
			row.IncomePlan, row.IncomeActual, row.IncomeDeviation = c.Plan, c.Actual, c.Deviation
		case aggregate.RowExpenses:
			row.ExpensesPlan, row.ExpensesActual, row.ExpensesDeviation = c.Plan, c.Actual, c.Deviation
		case aggregate.RowSavings:
			row.SavingsPlan, row.SavingsActual, row.SavingsDeviation = c.Plan, c.Actual, c.Deviation
		case aggregate.RowTax:
			row.TaxPlan, row.TaxActual = c.Plan, c.Actual
		}
	}
	return row
}

// Values renders the row in Header order.
func (r MonthRow) Values() []any {
	actual := func(v int64) any {
		if !r.HasActual {
			return ""
		}
		return v
	}
	return []any{
		r.Month,
		r.IncomePlan, actual(r.IncomeActual), FormatDeviation(r.IncomeDeviation),
		r.ExpensesPlan, actual(r.ExpensesActual), FormatDeviation(r.ExpensesDeviation),
		r.SavingsPlan, actual(r.SavingsActual), FormatDeviation(r.SavingsDeviation),
		r.TaxPlan, actual(r.TaxActual),
		r.Balance,
	}
}

// FormatDeviation renders a percentage with one decimal.
func FormatDeviation(d *float64) string {
	if d == nil {
		return NoDeviation
	}
	return strconv.FormatFloat(*d, 'f', 1, 64)
}

// RowNumber is the 1-based sheet row of a month; row 1 holds the header.
func RowNumber(month int) int { return month + 1 }

func (r MonthRow) String() string {
	return fmt.Sprintf("%04d-%02d", r.Year, r.Month)
}
