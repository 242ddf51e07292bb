// Package ports declares the persistence contracts the budget service and
// the worker depend on.
package ports

import (
	"context"
	"errors"
	"time"

	"budgetplan/internal/core"
	"budgetplan/internal/identity"
	"budgetplan/internal/ledger"
)

var ErrReportNotFound = errors.New("report not found")

type (
	PlanStore interface {
		// LoadPlan returns nil when the user has no stored plan.
		LoadPlan(ctx context.Context, user identity.User) (*core.FinancialData, error)
		SavePlan(ctx context.Context, user identity.User, plan core.FinancialData) error
	}

	ReportStore interface {
		// LoadReports returns reports ordered year desc, month desc.
		LoadReports(ctx context.Context, user identity.User) ([]core.MonthlyReport, error)
		// SaveReport upserts on (user, year, month).
		SaveReport(ctx context.Context, user identity.User, report core.MonthlyReport) error
		DeleteReport(ctx context.Context, user identity.User, year, month int) error
	}

	WithdrawalStore interface {
		LoadWithdrawals(ctx context.Context, user identity.User) ([]core.SavingsTransaction, error)
		SaveWithdrawals(ctx context.Context, user identity.User, withdrawals []core.SavingsTransaction) error
	}

	SettingsStore interface {
		// LoadSettings returns nil when nothing was saved yet.
		LoadSettings(ctx context.Context, user identity.User) (*core.Settings, error)
		SaveSettings(ctx context.Context, user identity.User, settings core.Settings) error
	}

	// Store is the full persistence collaborator.
	Store interface {
		PlanStore
		ReportStore
		WithdrawalStore
		SettingsStore
	}

	// BalanceSnapshot is one materialised bucket balance.
	BalanceSnapshot struct {
		ledger.BucketStats
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// BalanceStore holds the balances computed by the worker.
	BalanceStore interface {
		SaveBalances(ctx context.Context, user identity.User, stats []ledger.BucketStats, at time.Time) error
		ListBalances(ctx context.Context, user identity.User) ([]BalanceSnapshot, error)
	}

	// UserLister enumerates users with stored data, for reconciliation.
	UserLister interface {
		ListUsers(ctx context.Context) ([]identity.User, error)
	}
)
