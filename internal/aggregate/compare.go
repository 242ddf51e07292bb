package aggregate

import (
	"sort"

	"budgetplan/internal/core"
)

const (
	RowIncome   = "income"
	RowExpenses = "expenses"
	RowSavings  = "savings"
	RowTax      = "tax"
)

type (
	// ComparisonRow is one plan-vs-actual line. Deviation is nil when it is
	// undefined or when no actual data exists.
	ComparisonRow struct {
		Name      string   `json:"name"`
		Plan      int64    `json:"plan"`
		Actual    int64    `json:"actual"`
		Deviation *float64 `json:"deviation"`
	}

	Share struct {
		Value      int64   `json:"value"`
		Percentage float64 `json:"percentage"`
	}

	Breakdown struct {
		Expenses  Share `json:"expenses"`
		Savings   Share `json:"savings"`
		Remainder Share `json:"remainder"`
	}

	DistributionBreakdown struct {
		Plan   Breakdown  `json:"plan"`
		Actual *Breakdown `json:"actual,omitempty"`
	}

	TrendPoint struct {
		Year           int   `json:"year"`
		Month          int   `json:"month"`
		IncomePlan     int64 `json:"incomePlan"`
		IncomeActual   int64 `json:"incomeActual"`
		ExpensesPlan   int64 `json:"expensesPlan"`
		ExpensesActual int64 `json:"expensesActual"`
		SavingsPlan    int64 `json:"savingsPlan"`
		SavingsActual  int64 `json:"savingsActual"`
	}

	Trend []TrendPoint
)

// CompareMonth lists income, expenses, savings and tax of one report. Plan
// expenses include the manual mandatory top-up.
func CompareMonth(r core.MonthlyReport) []ComparisonRow {
	rows := []ComparisonRow{
		{Name: RowIncome, Plan: TotalIncome(r.Plan), Actual: ResolveActualIncome(r.Actual)},
		{Name: RowExpenses, Plan: TotalMandatory(r.Plan), Actual: ResolveActualExpenses(r.Actual)},
		{Name: RowSavings, Plan: TotalSavings(r.Plan), Actual: ResolveActualSavings(r.Actual)},
		{Name: RowTax, Plan: r.Plan.Tax},
	}
	if r.Actual == nil {
		return rows
	}
	rows[3].Actual = r.Actual.Tax
	for i := range rows {
		rows[i].Deviation = DeviationPtr(rows[i].Plan, rows[i].Actual)
	}
	return rows
}

// Distribution splits income into expenses, savings and what remains.
func Distribution(plan core.FinancialData, actual *core.ActualFinancialData) DistributionBreakdown {
	income := TotalIncome(plan)
	expenses := TotalMandatory(plan)
	savings := TotalSavings(plan)
	out := DistributionBreakdown{
		Plan: breakdown(income, expenses, savings, income-savings-expenses-plan.Tax),
	}
	if actual == nil {
		return out
	}
	ai := ResolveActualIncome(actual)
	ae := ResolveActualExpenses(actual)
	as := ResolveActualSavings(actual)
	b := breakdown(ai, ae, as, ai-as-ae-actual.Tax)
	out.Actual = &b
	return out
}

func breakdown(income, expenses, savings, remainder int64) Breakdown {
	return Breakdown{
		Expenses:  Share{Value: expenses, Percentage: PercentageOf(expenses, income)},
		Savings:   Share{Value: savings, Percentage: PercentageOf(savings, income)},
		Remainder: Share{Value: remainder, Percentage: PercentageOf(remainder, income)},
	}
}

// ReportsForYear returns the year's reports ordered by month.
func ReportsForYear(reports []core.MonthlyReport, year int) []core.MonthlyReport {
	return filterMonths(reports, year, 1, 12)
}

// ReportsForHalfYear returns reports of January-June for half 1 and of
// July-December for half 2. Any other half yields nothing.
func ReportsForHalfYear(reports []core.MonthlyReport, year, half int) []core.MonthlyReport {
	switch half {
	case 1:
		return filterMonths(reports, year, 1, 6)
	case 2:
		return filterMonths(reports, year, 7, 12)
	}
	return []core.MonthlyReport{}
}

func filterMonths(reports []core.MonthlyReport, year, from, to int) []core.MonthlyReport {
	out := make([]core.MonthlyReport, 0, len(reports))
	for _, r := range reports {
		if r.Year == year && r.Month >= from && r.Month <= to {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// ComparePeriod sums income, expenses and savings over several reports.
func ComparePeriod(reports []core.MonthlyReport) []ComparisonRow {
	rows := []ComparisonRow{{Name: RowIncome}, {Name: RowExpenses}, {Name: RowSavings}}
	for _, r := range reports {
		rows[0].Plan += TotalIncome(r.Plan)
		rows[0].Actual += ResolveActualIncome(r.Actual)
		rows[1].Plan += TotalMandatory(r.Plan)
		rows[1].Actual += ResolveActualExpenses(r.Actual)
		rows[2].Plan += TotalSavings(r.Plan)
		rows[2].Actual += ResolveActualSavings(r.Actual)
	}
	for i := range rows {
		rows[i].Deviation = DeviationPtr(rows[i].Plan, rows[i].Actual)
	}
	return rows
}

// MonthlyTrend builds one point per report, ordered by year and month.
func MonthlyTrend(reports []core.MonthlyReport) Trend {
	sorted := append([]core.MonthlyReport{}, reports...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year < sorted[j].Year
		}
		return sorted[i].Month < sorted[j].Month
	})
	out := make(Trend, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, TrendPoint{
			Year:           r.Year,
			Month:          r.Month,
			IncomePlan:     TotalIncome(r.Plan),
			IncomeActual:   ResolveActualIncome(r.Actual),
			ExpensesPlan:   TotalMandatory(r.Plan),
			ExpensesActual: ResolveActualExpenses(r.Actual),
			SavingsPlan:    TotalSavings(r.Plan),
			SavingsActual:  ResolveActualSavings(r.Actual),
		})
	}
	return out
}

// Years lists distinct report years, newest first.
func Years(reports []core.MonthlyReport) []int {
	seen := make(map[int]struct{})
	out := []int{}
	for _, r := range reports {
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		out = append(out, r.Year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
