package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetplan/internal/core"
	"budgetplan/internal/identity"
	"budgetplan/internal/ledger"
	"budgetplan/internal/ports"
)

const user identity.User = "9f2d3c1a-0000-4000-8000-000000000001"

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "budget.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{dialect: DialectPostgres}
	assert.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))
	lite := &SQLRepository{dialect: DialectSQLite}
	assert.Equal(t, "SELECT ?, ?", lite.rebind("SELECT ?, ?"))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	repo.Close()
	require.NoError(t, RunMigrations(DialectSQLite, path))
}

func TestPlanDocument(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	plan, err := repo.LoadPlan(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, plan)

	want := core.DefaultFinancialData()
	want.Savings = []core.SavingsItem{{ID: "s1", Name: "Car", Amount: 300, AmountUSD: 100, Percentage: core.Float64(10)}}
	require.NoError(t, repo.SavePlan(ctx, user, want))
	want.Tax = 10
	require.NoError(t, repo.SavePlan(ctx, user, want))

	plan, err = repo.LoadPlan(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, want, *plan)
}

func TestReportUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	repo.now = func() time.Time { return time.UnixMilli(1700000000000) }

	require.NoError(t, repo.SaveReport(ctx, user, core.MonthlyReport{
		ID: "report-local", Year: 2025, Month: 2, Plan: core.DefaultFinancialData(),
	}))
	require.NoError(t, repo.SaveReport(ctx, user, core.MonthlyReport{
		Year: 2024, Month: 12, Plan: core.EmptyFinancialData(), CreatedAt: 5,
	}))

	reports, err := repo.LoadReports(ctx, user)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 2025, reports[0].Year)
	assert.Nil(t, reports[0].Actual)
	_, err = uuid.Parse(reports[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), reports[0].CreatedAt)

	first := reports[0]
	require.NoError(t, repo.SaveReport(ctx, user, core.MonthlyReport{
		Year: 2025, Month: 2, Plan: core.EmptyFinancialData(), CreatedAt: 99,
		Actual: &core.ActualFinancialData{TotalIncome: core.Int64(6000), Tax: 1},
	}))

	reports, err = repo.LoadReports(ctx, user)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, first.ID, reports[0].ID, "id survives upsert")
	assert.Equal(t, first.CreatedAt, reports[0].CreatedAt, "created_at survives upsert")
	require.NotNil(t, reports[0].Actual)
	assert.Equal(t, int64(6000), *reports[0].Actual.TotalIncome)
	assert.Empty(t, reports[0].Plan.Incomes)
}

func TestReportPartialPlanDocument(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.exec(ctx,
		"INSERT INTO reports (id, user_id, year, month, plan, actual, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		uuid.NewString(), string(user), 2024, 6, `{"incomes":[{"id":"1","name":"Work","amount":4000}]}`, nil, 1, 1))

	reports, err := repo.LoadReports(ctx, user)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	plan := reports[0].Plan
	assert.Equal(t, int64(4000), plan.Incomes[0].Amount)
	assert.Equal(t, float64(3), plan.ExchangeRate)
	assert.NotNil(t, plan.Savings)
	assert.NotNil(t, plan.Expenses)
	assert.Nil(t, reports[0].Actual)
}

func TestReportValidationAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	err := repo.SaveReport(ctx, user, core.MonthlyReport{Year: 2025, Month: 0, Plan: core.EmptyFinancialData()})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	assert.ErrorIs(t, repo.DeleteReport(ctx, user, 2025, 1), ports.ErrReportNotFound)
	require.NoError(t, repo.SaveReport(ctx, user, core.MonthlyReport{Year: 2025, Month: 1, Plan: core.EmptyFinancialData()}))
	require.NoError(t, repo.DeleteReport(ctx, user, 2025, 1))
	reports, err := repo.LoadReports(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestWithdrawalsAndSettings(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	ws, err := repo.LoadWithdrawals(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, ws)

	want := []core.SavingsTransaction{{ID: "withdrawal-1", SavingsID: "s1", Amount: -300, Year: 2025, Month: 3, Type: core.Withdrawal, CreatedAt: 7}}
	require.NoError(t, repo.SaveWithdrawals(ctx, user, want))
	ws, err = repo.LoadWithdrawals(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, want, ws)

	require.NoError(t, repo.SaveWithdrawals(ctx, user, nil))
	ws, err = repo.LoadWithdrawals(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, ws)

	s, err := repo.LoadSettings(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, s)
	settings := core.DefaultSettings()
	settings.DistributionRules = []core.DistributionRule{{ID: "r1", Name: "Goals", Percentage: 10, SavingsItemIDs: []string{"s1"}}}
	require.NoError(t, repo.SaveSettings(ctx, user, settings))
	s, err = repo.LoadSettings(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, settings, *s)
}

func TestBalancesAndUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	at := time.UnixMilli(1700000000000).UTC()

	stats := []ledger.BucketStats{
		{SavingsID: "s1", Name: "Car", TotalDeposited: 1500, TotalWithdrawn: 300, CurrentBalance: 1200},
		{SavingsID: "s2", Name: "Trip", TotalDeposited: 200, CurrentBalance: 200, Orphaned: true},
	}
	require.NoError(t, repo.SaveBalances(ctx, user, stats, at))
	require.NoError(t, repo.SaveBalances(ctx, user, stats[:1], at))

	got, err := repo.ListBalances(ctx, user)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stats[0], got[0].BucketStats)
	assert.Equal(t, at, got[0].UpdatedAt)

	require.NoError(t, repo.SaveBalances(ctx, user, stats, at))
	got, _ = repo.ListBalances(ctx, user)
	require.Len(t, got, 2)
	assert.True(t, got[1].Orphaned)

	require.NoError(t, repo.SavePlan(ctx, "b-user", core.DefaultFinancialData()))
	require.NoError(t, repo.SaveReport(ctx, user, core.MonthlyReport{Year: 2025, Month: 1, Plan: core.EmptyFinancialData()}))
	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []identity.User{user, "b-user"}, users)
}
