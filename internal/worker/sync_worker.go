package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budgetplan/internal/amqp"
	"budgetplan/internal/core"
	"budgetplan/internal/identity"
	"budgetplan/internal/ledger"
	applog "budgetplan/internal/log"
	"budgetplan/internal/ports"
	"budgetplan/internal/sheets"
)

var ErrMissingUser = errors.New("event without user")

// SyncWorker keeps the derived read models in step with budget events: the
// materialised savings balances and, when configured, the report mirror.
type SyncWorker struct {
	store    ports.Store
	balances ports.BalanceStore
	users    ports.UserLister
	mirror   sheets.ReportMirror
	now      func() time.Time
}

// NewSyncWorker builds a worker. mirror and users may be nil.
func NewSyncWorker(store ports.Store, balances ports.BalanceStore, users ports.UserLister, mirror sheets.ReportMirror) *SyncWorker {
	return &SyncWorker{
		store:    store,
		balances: balances,
		users:    users,
		mirror:   mirror,
		now:      time.Now,
	}
}

// HandleBudgetEvent processes one event from AMQP.
func (w *SyncWorker) HandleBudgetEvent(ctx context.Context, event *amqp.BudgetEvent) error {
	if event == nil || event.UserID == "" {
		return ErrMissingUser
	}
	user := identity.User(event.UserID)

	fields := applog.NewFields().WithUser(event.UserID).WithPeriod(event.Year, event.Month)
	slog.InfoContext(ctx, "Processing budget event",
		append(fields.ToSlice(), applog.FieldEventType, event.Type)...)

	if err := w.RecomputeBalances(ctx, user); err != nil {
		return fmt.Errorf("recompute balances: %w", err)
	}
	if event.IsReportEvent() {
		if err := w.MirrorMonth(ctx, user, event.Year, event.Month); err != nil {
			return fmt.Errorf("mirror report: %w", err)
		}
	}
	return nil
}

// RecomputeBalances rebuilds the user's ledger and stores the bucket stats.
func (w *SyncWorker) RecomputeBalances(ctx context.Context, user identity.User) error {
	plan, err := w.store.LoadPlan(ctx, user)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	reports, err := w.store.LoadReports(ctx, user)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}
	withdrawals, err := w.store.LoadWithdrawals(ctx, user)
	if err != nil {
		return fmt.Errorf("load withdrawals: %w", err)
	}

	var current []core.SavingsItem
	if plan != nil {
		current = plan.Savings
	}
	view := ledger.Build(current, reports, withdrawals)
	if err := w.balances.SaveBalances(ctx, user, view.Stats, w.now()); err != nil {
		return fmt.Errorf("save balances: %w", err)
	}

	slog.DebugContext(ctx, "Balances recomputed",
		applog.FieldUserID, user,
		"buckets", len(view.Stats),
		"transactions", len(view.Transactions))
	return nil
}

// MirrorMonth writes the month's summary row, or clears it when the report
// no longer exists.
func (w *SyncWorker) MirrorMonth(ctx context.Context, user identity.User, year, month int) error {
	fields := applog.NewFields().WithUser(user.String()).WithPeriod(year, month).WithOperation(applog.OpSync)
	if w.mirror == nil {
		slog.WarnContext(ctx, "No report mirror configured, skipping sheet sync", fields.ToSlice()...)
		return nil
	}
	if err := core.ValidateMonth(month); err != nil {
		return err
	}
	reports, err := w.store.LoadReports(ctx, user)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}
	for _, r := range reports {
		if r.Year == year && r.Month == month {
			if err := w.mirror.UpsertMonth(ctx, user, sheets.RowFromReport(r)); err != nil {
				return fmt.Errorf("upsert month: %w", err)
			}
			slog.InfoContext(ctx, "Report mirrored", fields.ToSlice()...)
			return nil
		}
	}
	if err := w.mirror.ClearMonth(ctx, user, year, month); err != nil {
		return fmt.Errorf("clear month: %w", err)
	}
	slog.InfoContext(ctx, "Report row cleared", fields.WithOperation(applog.OpDelete).ToSlice()...)
	return nil
}

// Reconcile recomputes balances for every user with stored data. It is a
// backup for lost events. Per-user failures are logged and counted.
func (w *SyncWorker) Reconcile(ctx context.Context) error {
	if w.users == nil {
		return nil
	}
	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	successCount := 0
	errorCount := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.RecomputeBalances(ctx, u); err != nil {
			slog.ErrorContext(ctx, "Failed to reconcile balances",
				applog.NewFields().WithUser(u.String()).WithOperation(applog.OpSync).WithError(err).ToSlice()...)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Reconcile completed",
		"total", len(users),
		"synced", successCount,
		"errors", errorCount)
	return nil
}

// Run reconciles at startup and then every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) {
	if err := w.Reconcile(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup reconcile failed", applog.NewFields().WithOperation(applog.OpStartup).WithError(err).ToSlice()...)
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Reconcile(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic reconcile failed", applog.FieldError, err)
			}
		}
	}
}
