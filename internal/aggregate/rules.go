package aggregate

import "budgetplan/internal/core"

// ApplyDistributionRules stamps each matched non-custom bucket with its rule
// percentage. Amounts are never recalculated and custom buckets are returned
// as they are. When several rules name a bucket the first one wins.
func ApplyDistributionRules(savings []core.SavingsItem, rules []core.DistributionRule) []core.SavingsItem {
	pct := make(map[string]float64)
	for _, r := range rules {
		for _, id := range r.SavingsItemIDs {
			if _, seen := pct[id]; !seen {
				pct[id] = r.Percentage
			}
		}
	}
	out := make([]core.SavingsItem, len(savings))
	for i, s := range savings {
		out[i] = s
		if s.Percentage != nil {
			out[i].Percentage = core.Float64(*s.Percentage)
		}
		if s.IsCustom {
			continue
		}
		if p, ok := pct[s.ID]; ok {
			out[i].Percentage = core.Float64(p)
		}
	}
	return out
}

// PruneRules drops a removed bucket from every rule and discards rules that
// no longer reference any bucket.
func PruneRules(rules []core.DistributionRule, removedSavingsID string) []core.DistributionRule {
	out := make([]core.DistributionRule, 0, len(rules))
	for _, r := range rules {
		ids := make([]string, 0, len(r.SavingsItemIDs))
		for _, id := range r.SavingsItemIDs {
			if id != removedSavingsID {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		r.SavingsItemIDs = ids
		out = append(out, r)
	}
	return out
}

// WithExchangeRate returns a copy of plan at the new rate with every savings
// dollar amount recomputed.
func WithExchangeRate(plan core.FinancialData, rate float64) core.FinancialData {
	out := plan.Clone()
	out.ExchangeRate = rate
	for i := range out.Savings {
		out.Savings[i].AmountUSD = USDAmount(out.Savings[i].Amount, rate)
	}
	return out
}
