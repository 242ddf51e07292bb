// Package aggregate computes the derived values of a budget plan: totals,
// percentages, budget recommendations and plan-vs-actual deviations.
//
// Every function is pure. Inputs are never mutated and degenerate arithmetic
// (zero income, zero rate, zero baseline) resolves to a defined value instead
// of an error.
package aggregate

import "budgetplan/internal/core"

func TotalIncome(plan core.FinancialData) int64 {
	var sum int64
	for _, it := range plan.Incomes {
		sum += it.Amount
	}
	return sum
}

func TotalExpensesItemized(plan core.FinancialData) int64 {
	var sum int64
	for _, it := range plan.Expenses {
		sum += it.Amount
	}
	return sum
}

func TotalSavings(plan core.FinancialData) int64 {
	var sum int64
	for _, it := range plan.Savings {
		sum += it.Amount
	}
	return sum
}

// TotalMandatory is itemized expenses plus the manual top-up.
func TotalMandatory(plan core.FinancialData) int64 {
	return TotalExpensesItemized(plan) + plan.MandatoryExpenses
}

func Balance(income, savings, expenses, tax, mandatoryExpenses int64) int64 {
	return income - savings - expenses - tax - mandatoryExpenses
}

// PlanBalance is Balance over the plan's own totals.
func PlanBalance(plan core.FinancialData) int64 {
	return Balance(TotalIncome(plan), TotalSavings(plan), TotalExpensesItemized(plan), plan.Tax, plan.MandatoryExpenses)
}

// PercentageOf returns amount as a percentage of total, or 0 when total is
// not positive.
func PercentageOf(amount, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(amount) / float64(total) * 100
}

// USDAmount converts a local amount at rate local-units-per-dollar.
func USDAmount(local int64, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return float64(local) / rate
}

// Deviation is the relative difference of actual against plan in percent.
// ok is false when the plan baseline is not positive: the value is then
// undefined and must be shown as a dash, never as 0%.
func Deviation(plan, actual int64) (float64, bool) {
	if plan <= 0 {
		return 0, false
	}
	return float64(actual-plan) / float64(plan) * 100, true
}

// DeviationPtr is Deviation in its JSON form, nil when undefined.
func DeviationPtr(plan, actual int64) *float64 {
	d, ok := Deviation(plan, actual)
	if !ok {
		return nil
	}
	return &d
}

// ResolveActualIncome prefers the aggregate total over the itemized sum.
func ResolveActualIncome(actual *core.ActualFinancialData) int64 {
	if actual == nil {
		return 0
	}
	return resolve(actual.TotalIncome, actual.Incomes)
}

func ResolveActualExpenses(actual *core.ActualFinancialData) int64 {
	if actual == nil {
		return 0
	}
	return resolve(actual.TotalExpenses, actual.Expenses)
}

func ResolveActualSavings(actual *core.ActualFinancialData) int64 {
	if actual == nil {
		return 0
	}
	return resolve(actual.TotalSavings, actual.Savings)
}

func resolve(total *int64, items []core.ActualItem) int64 {
	if total != nil {
		return *total
	}
	var sum int64
	for _, it := range items {
		sum += it.Amount
	}
	return sum
}
