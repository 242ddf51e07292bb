package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Deposit    TransactionType = "deposit"
	Withdrawal TransactionType = "withdrawal"
)

type (
	TransactionType string

	IncomeItem struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Amount int64  `json:"amount"`
		Icon   string `json:"icon,omitempty"`
	}

	ExpenseItem struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Amount int64  `json:"amount"`
		Icon   string `json:"icon,omitempty"`
	}

	// SavingsItem is a savings bucket in the plan. Percentage is advisory
	// metadata set by distribution rules; Amount is only changed by the user.
	SavingsItem struct {
		ID         string   `json:"id"`
		Name       string   `json:"name"`
		Amount     int64    `json:"amount"`
		AmountUSD  float64  `json:"amountUsd"`
		IsCustom   bool     `json:"isCustom"`
		Percentage *float64 `json:"percentage,omitempty"`
		Icon       string   `json:"icon,omitempty"`
	}

	// FinancialData is a plan snapshot. List order is user controlled.
	FinancialData struct {
		Incomes           []IncomeItem  `json:"incomes"`
		Expenses          []ExpenseItem `json:"expenses"`
		Savings           []SavingsItem `json:"savings"`
		ExchangeRate      float64       `json:"exchangeRate"`
		Tax               int64         `json:"tax"`
		MandatoryExpenses int64         `json:"mandatoryExpenses"`
	}

	ActualItem struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Amount int64  `json:"amount"`
	}

	// ActualFinancialData holds the recorded outcome of a month. The Total*
	// scalars are set in coarse entry mode and win over the itemized lists.
	ActualFinancialData struct {
		Incomes           []ActualItem `json:"incomes"`
		Expenses          []ActualItem `json:"expenses"`
		Savings           []ActualItem `json:"savings"`
		Tax               int64        `json:"tax"`
		MandatoryExpenses int64        `json:"mandatoryExpenses"`
		TotalIncome       *int64       `json:"totalIncome,omitempty"`
		TotalExpenses     *int64       `json:"totalExpenses,omitempty"`
		TotalSavings      *int64       `json:"totalSavings,omitempty"`
	}

	MonthlyReport struct {
		ID        string               `json:"id"`
		Year      int                  `json:"year"`
		Month     int                  `json:"month"` // 1-12
		Plan      FinancialData        `json:"plan"`
		Actual    *ActualFinancialData `json:"actual,omitempty"`
		CreatedAt int64                `json:"createdAt"` // unix milliseconds
	}

	// SavingsTransaction is one ledger entry. Amount is positive for deposits
	// and negative for withdrawals.
	SavingsTransaction struct {
		ID          string          `json:"id"`
		SavingsID   string          `json:"savingsId"`
		Amount      int64           `json:"amount"`
		Year        int             `json:"year"`
		Month       int             `json:"month"`
		Type        TransactionType `json:"type"`
		CreatedAt   int64           `json:"createdAt"`
		Description string          `json:"description,omitempty"`
	}

	DistributionRule struct {
		ID             string   `json:"id"`
		Name           string   `json:"name"`
		Percentage     float64  `json:"percentage"`
		SavingsItemIDs []string `json:"savingsItemIds"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidYear   = errors.New("invalid year")
	ErrDuplicateID   = errors.New("duplicate id")
	ErrEmptyID       = errors.New("empty id")
	ErrEmptyName     = errors.New("empty name")
	ErrSignMismatch  = errors.New("amount sign does not match transaction type")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidRate   = errors.New("invalid exchange rate")
)

// DefaultFinancialData is the plan a user starts with before saving anything.
func DefaultFinancialData() FinancialData {
	return FinancialData{
		Incomes:      []IncomeItem{{ID: "1", Name: "Work", Amount: 5500}},
		Expenses:     []ExpenseItem{},
		Savings:      []SavingsItem{},
		ExchangeRate: 3,
	}
}

// EmptyFinancialData is the plan of a report stored without plan data.
func EmptyFinancialData() FinancialData {
	return FinancialData{
		Incomes:      []IncomeItem{},
		Expenses:     []ExpenseItem{},
		Savings:      []SavingsItem{},
		ExchangeRate: 3,
	}
}

func (t TransactionType) Valid() bool {
	return t == Deposit || t == Withdrawal
}

func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func ValidateYear(year int) error {
	if year < 1970 || year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

func (d FinancialData) Validate() error {
	if d.ExchangeRate < 0 {
		return ErrInvalidRate
	}
	if d.Tax < 0 || d.MandatoryExpenses < 0 {
		return ErrInvalidAmount
	}
	seen := map[string]struct{}{}
	for _, it := range d.Incomes {
		if err := validateItem("income", it.ID, it.Name, it.Amount, seen); err != nil {
			return err
		}
	}
	seen = map[string]struct{}{}
	for _, it := range d.Expenses {
		if err := validateItem("expense", it.ID, it.Name, it.Amount, seen); err != nil {
			return err
		}
	}
	seen = map[string]struct{}{}
	for _, it := range d.Savings {
		if err := validateItem("savings", it.ID, it.Name, it.Amount, seen); err != nil {
			return err
		}
	}
	return nil
}

func (a ActualFinancialData) Validate() error {
	if a.Tax < 0 || a.MandatoryExpenses < 0 {
		return ErrInvalidAmount
	}
	for _, total := range []*int64{a.TotalIncome, a.TotalExpenses, a.TotalSavings} {
		if total != nil && *total < 0 {
			return ErrInvalidAmount
		}
	}
	for kind, items := range map[string][]ActualItem{"income": a.Incomes, "expense": a.Expenses, "savings": a.Savings} {
		seen := map[string]struct{}{}
		for _, it := range items {
			if err := validateItem(kind, it.ID, it.Name, it.Amount, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r MonthlyReport) Validate() error {
	if err := ValidateYear(r.Year); err != nil {
		return err
	}
	if err := ValidateMonth(r.Month); err != nil {
		return err
	}
	if err := r.Plan.Validate(); err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	if r.Actual != nil {
		if err := r.Actual.Validate(); err != nil {
			return fmt.Errorf("actual: %w", err)
		}
	}
	return nil
}

func (t SavingsTransaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.SavingsID) == "" {
		return ErrEmptyID
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount == 0 {
		return ErrInvalidAmount
	}
	if (t.Type == Deposit) != (t.Amount > 0) {
		return ErrSignMismatch
	}
	if err := ValidateMonth(t.Month); err != nil {
		return err
	}
	return ValidateYear(t.Year)
}

func validateItem(kind, id, name string, amount int64, seen map[string]struct{}) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s item: %w", kind, ErrEmptyID)
	}
	if _, dup := seen[id]; dup {
		return fmt.Errorf("%s item %q: %w", kind, id, ErrDuplicateID)
	}
	seen[id] = struct{}{}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s item %q: %w", kind, id, ErrEmptyName)
	}
	if amount < 0 {
		return fmt.Errorf("%s item %q: %w", kind, id, ErrInvalidAmount)
	}
	return nil
}
