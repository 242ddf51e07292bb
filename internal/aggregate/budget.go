package aggregate

import "budgetplan/internal/core"

type (
	MandatoryBudget struct {
		Actual      int64 `json:"actual"`
		Recommended int64 `json:"recommended"`
		OverBudget  bool  `json:"overBudget"`
		OverBy      int64 `json:"overBy"`
	}

	SavingsBudget struct {
		Planned             int64   `json:"planned"`
		Available           int64   `json:"available"`
		AvailablePercentage float64 `json:"availablePercentage"`
		OverBudget          bool    `json:"overBudget"`
		OverBy              int64   `json:"overBy"`
	}
)

func RecommendedMandatoryExpenses(totalIncome int64, pct float64) int64 {
	return core.PercentOf(totalIncome, pct)
}

// CheckMandatoryBudget compares itemized expenses plus the manual top-up
// with the recommendation. Without a positive recommendation nothing is
// flagged.
func CheckMandatoryBudget(plan core.FinancialData, pct float64) MandatoryBudget {
	b := MandatoryBudget{
		Actual:      TotalMandatory(plan),
		Recommended: RecommendedMandatoryExpenses(TotalIncome(plan), pct),
	}
	if b.Recommended > 0 && b.Actual > b.Recommended {
		b.OverBudget = true
		b.OverBy = b.Actual - b.Recommended
	}
	return b
}

// AvailableForSavings is the savings allowance. With an explicit savings
// percentage it is that rounded share of income; otherwise it falls back to
// whatever the mandatory percentage leaves over, unrounded.
func AvailableForSavings(totalIncome int64, savingsPct, mandatoryPct float64) float64 {
	if savingsPct > 0 {
		return float64(core.PercentOf(totalIncome, savingsPct))
	}
	return float64(totalIncome) * (100 - mandatoryPct) / 100
}

func CheckSavingsBudget(plan core.FinancialData, savingsPct, mandatoryPct float64) SavingsBudget {
	income := TotalIncome(plan)
	b := SavingsBudget{
		Planned:   TotalSavings(plan),
		Available: core.RoundAmount(AvailableForSavings(income, savingsPct, mandatoryPct)),
	}
	b.AvailablePercentage = PercentageOf(b.Available, income)
	if b.Available > 0 && b.Planned > b.Available {
		b.OverBudget = true
		b.OverBy = b.Planned - b.Available
	}
	return b
}
