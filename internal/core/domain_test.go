package core

import (
	"errors"
	"testing"
)

func TestFinancialDataValidate(t *testing.T) {
	good := DefaultFinancialData()
	good.Savings = []SavingsItem{{ID: "s1", Name: "Car", Amount: 100}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []FinancialData{
		{Incomes: []IncomeItem{{ID: "", Name: "a", Amount: 1}}},
		{Incomes: []IncomeItem{{ID: "1", Name: "a", Amount: 1}, {ID: "1", Name: "b", Amount: 2}}},
		{Expenses: []ExpenseItem{{ID: "e", Name: "", Amount: 1}}},
		{Savings: []SavingsItem{{ID: "s", Name: "a", Amount: -1}}},
		{Tax: -1},
		{ExchangeRate: -3},
	}
	for i, d := range bads {
		if err := d.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSeparateListsMayShareIDs(t *testing.T) {
	d := FinancialData{
		Incomes:  []IncomeItem{{ID: "1", Name: "Work", Amount: 1}},
		Expenses: []ExpenseItem{{ID: "1", Name: "Rent", Amount: 1}},
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestMonthlyReportValidate(t *testing.T) {
	r := MonthlyReport{Year: 2025, Month: 13, Plan: EmptyFinancialData()}
	if err := r.Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	r.Month = 12
	r.Actual = &ActualFinancialData{TotalIncome: Int64(-5)}
	if err := r.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	r.Actual.TotalIncome = Int64(6000)
	if err := r.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestSavingsTransactionValidate(t *testing.T) {
	ok := SavingsTransaction{ID: "w1", SavingsID: "s1", Amount: -300, Year: 2025, Month: 3, Type: Withdrawal}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := ok
	bad.Amount = 300
	if err := bad.Validate(); !errors.Is(err, ErrSignMismatch) {
		t.Fatalf("expected ErrSignMismatch, got %v", err)
	}
	bad = ok
	bad.Type = "transfer"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestReportCloneIsDeep(t *testing.T) {
	r := MonthlyReport{
		Year:  2025,
		Month: 1,
		Plan: FinancialData{
			Savings: []SavingsItem{{ID: "s1", Name: "Car", Amount: 1000, Percentage: Float64(10)}},
		},
		Actual: &ActualFinancialData{TotalIncome: Int64(6000)},
	}
	c := r.Clone()
	c.Plan.Savings[0].Amount = 1
	*c.Plan.Savings[0].Percentage = 99
	*c.Actual.TotalIncome = 1

	if r.Plan.Savings[0].Amount != 1000 || *r.Plan.Savings[0].Percentage != 10 {
		t.Fatalf("clone shares plan savings with source")
	}
	if *r.Actual.TotalIncome != 6000 {
		t.Fatalf("clone shares actual totals with source")
	}
}

func TestSettingsPresets(t *testing.T) {
	cases := []struct {
		s                  Settings
		mandatory, savings float64
	}{
		{Settings{PresetType: Preset503020}, 50, 30},
		{Settings{PresetType: Preset504010}, 50, 40},
		{Settings{PresetType: PresetCustom, CustomPercentages: CustomPercentages{60, 25, 15}}, 60, 25},
	}
	for i, tc := range cases {
		if got := tc.s.MandatoryPercentage(); got != tc.mandatory {
			t.Fatalf("case %d mandatory=%v, want %v", i, got, tc.mandatory)
		}
		if got := tc.s.SavingsPercentage(); got != tc.savings {
			t.Fatalf("case %d savings=%v, want %v", i, got, tc.savings)
		}
	}
}

func TestSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}
	s := DefaultSettings()
	s.PresetType = PresetCustom
	s.CustomPercentages = CustomPercentages{Mandatory: 50, Savings: 30, Remainder: 30}
	if err := s.Validate(); !errors.Is(err, ErrInvalidPercentages) {
		t.Fatalf("expected ErrInvalidPercentages, got %v", err)
	}
	s.PresetType = "70-20-10"
	if err := s.Validate(); !errors.Is(err, ErrInvalidPreset) {
		t.Fatalf("expected ErrInvalidPreset, got %v", err)
	}
}
