package aggregate

import "budgetplan/internal/core"

// PlanSummary carries every value the plan editor displays.
type PlanSummary struct {
	TotalIncome                  int64           `json:"totalIncome"`
	TotalExpenses                int64           `json:"totalExpenses"`
	ManualMandatory              int64           `json:"manualMandatory"`
	TotalMandatory               int64           `json:"totalMandatory"`
	Tax                          int64           `json:"tax"`
	TotalOutgo                   int64           `json:"totalOutgo"`
	TotalSavings                 int64           `json:"totalSavings"`
	TotalSavingsUSD              float64         `json:"totalSavingsUsd"`
	Balance                      int64           `json:"balance"`
	MandatoryPercentage          float64         `json:"mandatoryPercentage"`
	TaxPercentage                float64         `json:"taxPercentage"`
	SavingsPercentage            float64         `json:"savingsPercentage"`
	BalancePercentage            float64         `json:"balancePercentage"`
	MandatoryBudget              MandatoryBudget `json:"mandatoryBudget"`
	SavingsBudget                SavingsBudget   `json:"savingsBudget"`
	RecommendedSavingsPercentage float64         `json:"recommendedSavingsPercentage"`
}

func Summarize(plan core.FinancialData, settings core.Settings) PlanSummary {
	income := TotalIncome(plan)
	s := PlanSummary{
		TotalIncome:     income,
		TotalExpenses:   TotalExpensesItemized(plan),
		ManualMandatory: plan.MandatoryExpenses,
		TotalMandatory:  TotalMandatory(plan),
		Tax:             plan.Tax,
		TotalSavings:    TotalSavings(plan),
		Balance:         PlanBalance(plan),
	}
	s.TotalOutgo = s.TotalMandatory + s.Tax
	s.TotalSavingsUSD = USDAmount(s.TotalSavings, plan.ExchangeRate)
	s.MandatoryPercentage = PercentageOf(s.TotalMandatory, income)
	s.TaxPercentage = PercentageOf(s.Tax, income)
	s.SavingsPercentage = PercentageOf(s.TotalSavings, income)
	s.BalancePercentage = PercentageOf(s.Balance, income)

	mandatoryPct := settings.MandatoryPercentage()
	savingsPct := settings.SavingsPercentage()
	s.MandatoryBudget = CheckMandatoryBudget(plan, mandatoryPct)
	s.SavingsBudget = CheckSavingsBudget(plan, savingsPct, mandatoryPct)
	s.RecommendedSavingsPercentage = savingsPct
	return s
}
