package core

// Deep copies. Reports own their plan snapshot, so nothing returned here
// shares a backing array with its source.

func (d FinancialData) Clone() FinancialData {
	out := d
	out.Incomes = append([]IncomeItem{}, d.Incomes...)
	out.Expenses = append([]ExpenseItem{}, d.Expenses...)
	out.Savings = make([]SavingsItem, len(d.Savings))
	for i, s := range d.Savings {
		out.Savings[i] = s
		if s.Percentage != nil {
			p := *s.Percentage
			out.Savings[i].Percentage = &p
		}
	}
	return out
}

func (a ActualFinancialData) Clone() ActualFinancialData {
	out := a
	out.Incomes = append([]ActualItem{}, a.Incomes...)
	out.Expenses = append([]ActualItem{}, a.Expenses...)
	out.Savings = append([]ActualItem{}, a.Savings...)
	out.TotalIncome = cloneInt(a.TotalIncome)
	out.TotalExpenses = cloneInt(a.TotalExpenses)
	out.TotalSavings = cloneInt(a.TotalSavings)
	return out
}

func (r MonthlyReport) Clone() MonthlyReport {
	out := r
	out.Plan = r.Plan.Clone()
	if r.Actual != nil {
		a := r.Actual.Clone()
		out.Actual = &a
	}
	return out
}

func (r DistributionRule) Clone() DistributionRule {
	out := r
	out.SavingsItemIDs = append([]string{}, r.SavingsItemIDs...)
	return out
}

// CloneReports deep-copies a report list.
func CloneReports(in []MonthlyReport) []MonthlyReport {
	out := make([]MonthlyReport, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func cloneInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Int64 returns a pointer to v, for the optional actual totals.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }
