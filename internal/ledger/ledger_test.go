package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetplan/internal/core"
)

func fixedID(id string) func() string { return func() string { return id } }

func scenarioReports() []core.MonthlyReport {
	return []core.MonthlyReport{
		{
			ID: "r1", Year: 2025, Month: 1, CreatedAt: 1000,
			Plan: core.FinancialData{Savings: []core.SavingsItem{{ID: "s1", Name: "Car", Amount: 1000}}},
		},
		{
			ID: "r2", Year: 2025, Month: 2, CreatedAt: 2000,
			Plan:   core.FinancialData{Savings: []core.SavingsItem{{ID: "s1", Name: "Car", Amount: 9999}}},
			Actual: &core.ActualFinancialData{Savings: []core.ActualItem{{ID: "s1", Name: "Car", Amount: 500}}},
		},
	}
}

func TestBuildScenario(t *testing.T) {
	current := []core.SavingsItem{{ID: "s1", Name: "Car", Amount: 500}}
	w, err := NewWithdrawal("s1", 300, "repair", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), fixedID("withdrawal-1"))
	require.NoError(t, err)

	view := Build(current, scenarioReports(), []core.SavingsTransaction{w})

	car, ok := view.Bucket("s1")
	require.True(t, ok)
	assert.Equal(t, int64(1500), car.TotalDeposited)
	assert.Equal(t, int64(300), car.TotalWithdrawn)
	assert.Equal(t, int64(1200), car.CurrentBalance)
	assert.False(t, car.Orphaned)

	require.Len(t, view.Transactions, 3)
	assert.Equal(t, "withdrawal-1", view.Transactions[0].ID, "newest first")
	assert.Equal(t, DepositID(2025, 2, "s1", 2000), view.Transactions[1].ID)
	assert.Equal(t, Totals{Deposited: 1500, Withdrawn: 300, Balance: 1200}, view.Totals())
}

func TestActualSavingsPreferredOnlyWhenNonEmpty(t *testing.T) {
	reports := []core.MonthlyReport{{
		Year: 2025, Month: 4, CreatedAt: 1,
		Plan:   core.FinancialData{Savings: []core.SavingsItem{{ID: "s1", Name: "Car", Amount: 250}}},
		Actual: &core.ActualFinancialData{Savings: []core.ActualItem{}},
	}}
	deposits := DeriveDeposits(reports)
	require.Len(t, deposits, 1)
	assert.Equal(t, int64(250), deposits[0].Amount)
}

func TestDeriveDepositsSkipsZeroAndIsDeterministic(t *testing.T) {
	reports := scenarioReports()
	reports[0].Plan.Savings = append(reports[0].Plan.Savings, core.SavingsItem{ID: "s9", Name: "Empty", Amount: 0})

	first := DeriveDeposits(reports)
	second := DeriveDeposits(reports)

	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
	for _, d := range first {
		assert.Equal(t, core.Deposit, d.Type)
		assert.Positive(t, d.Amount)
	}
	assert.Equal(t, "deposit-2025-1-s1-1000", first[0].ID)
}

func TestOrphanedBucketIsKept(t *testing.T) {
	reports := []core.MonthlyReport{{
		Year: 2024, Month: 11, CreatedAt: 5,
		Plan: core.FinancialData{Savings: []core.SavingsItem{{ID: "s2", Name: "Trip", Amount: 200}}},
	}}
	current := []core.SavingsItem{{ID: "s1", Name: "Car"}}

	view := Build(current, reports, nil)

	require.Len(t, view.Stats, 2)
	assert.Equal(t, BucketStats{SavingsID: "s1", Name: "Car"}, view.Stats[0], "current bucket with zero stats")
	trip := view.Stats[1]
	assert.Equal(t, "s2", trip.SavingsID)
	assert.Equal(t, "Trip", trip.Name)
	assert.Equal(t, int64(200), trip.TotalDeposited)
	assert.True(t, trip.Orphaned)
}

func TestOrphanWithoutHistoryName(t *testing.T) {
	w := core.SavingsTransaction{ID: "withdrawal-x", SavingsID: "gone", Amount: -40, Year: 2025, Month: 1, Type: core.Withdrawal}
	view := Build(nil, nil, []core.SavingsTransaction{w})

	require.Len(t, view.Stats, 1)
	assert.Equal(t, DeletedBucketName, view.Stats[0].Name)
	assert.Equal(t, int64(40), view.Stats[0].TotalWithdrawn)
	assert.Equal(t, int64(-40), view.Stats[0].CurrentBalance)
}

func TestBalanceLaw(t *testing.T) {
	withdrawals := []core.SavingsTransaction{
		{ID: "w1", SavingsID: "s1", Amount: -100, Year: 2025, Month: 2, Type: core.Withdrawal},
		{ID: "w2", SavingsID: "s1", Amount: -50, Year: 2025, Month: 3, Type: core.Withdrawal},
	}
	view := Build([]core.SavingsItem{{ID: "s1", Name: "Car"}}, scenarioReports(), withdrawals)
	for _, s := range view.Stats {
		assert.Equal(t, s.TotalDeposited-s.TotalWithdrawn, s.CurrentBalance)
		assert.GreaterOrEqual(t, s.TotalWithdrawn, int64(0))
	}
}

func TestMergeOrderIsStable(t *testing.T) {
	a := core.SavingsTransaction{ID: "a", Year: 2025, Month: 1, CreatedAt: 10}
	b := core.SavingsTransaction{ID: "b", Year: 2025, Month: 1, CreatedAt: 10}
	c := core.SavingsTransaction{ID: "c", Year: 2024, Month: 12, CreatedAt: 99}
	d := core.SavingsTransaction{ID: "d", Year: 2025, Month: 1, CreatedAt: 11}

	got := Merge([]core.SavingsTransaction{a, c}, []core.SavingsTransaction{b, d})

	ids := make([]string, len(got))
	for i, tx := range got {
		ids[i] = tx.ID
	}
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids)
}

func TestBuildEmpty(t *testing.T) {
	view := Build(nil, nil, nil)
	assert.Empty(t, view.Transactions)
	assert.Empty(t, view.Stats)
	assert.Equal(t, Totals{}, view.Totals())
}

func TestNewWithdrawal(t *testing.T) {
	now := time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC)

	_, err := NewWithdrawal("s1", -50, "", now, fixedID("w"))
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
	_, err = NewWithdrawal("s1", 0, "", now, fixedID("w"))
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
	_, err = NewWithdrawal(" ", 10, "", now, fixedID("w"))
	assert.ErrorIs(t, err, ErrUnknownBucket)

	tx, err := NewWithdrawal("s1", 75, " new tyres ", now, fixedID("withdrawal-7"))
	require.NoError(t, err)
	assert.Equal(t, int64(-75), tx.Amount)
	assert.Equal(t, core.Withdrawal, tx.Type)
	assert.Equal(t, 2025, tx.Year)
	assert.Equal(t, 7, tx.Month)
	assert.Equal(t, now.UnixMilli(), tx.CreatedAt)
	assert.Equal(t, "new tyres", tx.Description)
	assert.NoError(t, tx.Validate())
}

func TestAddAndDeleteWithdrawal(t *testing.T) {
	w1 := core.SavingsTransaction{ID: "withdrawal-1", SavingsID: "s1", Amount: -10, Type: core.Withdrawal}
	w2 := core.SavingsTransaction{ID: "withdrawal-2", SavingsID: "s1", Amount: -20, Type: core.Withdrawal}

	orig := []core.SavingsTransaction{w1}
	added := AddWithdrawal(orig, w2)
	assert.Len(t, orig, 1)
	assert.Equal(t, []core.SavingsTransaction{w1, w2}, added)

	left, err := DeleteWithdrawal(added, "withdrawal-1")
	require.NoError(t, err)
	assert.Equal(t, []core.SavingsTransaction{w2}, left)
	assert.Len(t, added, 2)

	_, err = DeleteWithdrawal(added, "withdrawal-404")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	_, err = DeleteWithdrawal(added, DepositID(2025, 1, "s1", 1))
	assert.ErrorIs(t, err, ErrDepositNotDeletable)
}

func TestTransactionsFor(t *testing.T) {
	view := Build(nil, scenarioReports(), []core.SavingsTransaction{
		{ID: "w", SavingsID: "other", Amount: -1, Year: 2025, Month: 1, Type: core.Withdrawal},
	})
	txs := view.TransactionsFor("s1")
	require.Len(t, txs, 2)
	assert.Equal(t, 2, txs[0].Month)
	assert.Empty(t, view.TransactionsFor("nope"))
}
