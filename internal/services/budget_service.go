package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"budgetplan/internal/aggregate"
	"budgetplan/internal/amqp"
	"budgetplan/internal/core"
	"budgetplan/internal/identity"
	"budgetplan/internal/ledger"
	applog "budgetplan/internal/log"
	"budgetplan/internal/ports"
)

var (
	// ErrInvalidInput wraps every validation failure so callers can map it
	// to a single status.
	ErrInvalidInput        = errors.New("invalid input")
	ErrBucketNotFound      = errors.New("savings bucket not found")
	ErrBalancesUnavailable = errors.New("balance snapshots not available")
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishBudgetEvent(ctx context.Context, event *amqp.BudgetEvent) error
}

type (
	MonthView struct {
		Report       core.MonthlyReport              `json:"report"`
		Comparison   []aggregate.ComparisonRow       `json:"comparison"`
		Distribution aggregate.DistributionBreakdown `json:"distribution"`
		Balance      int64                           `json:"balance"`
	}

	PeriodView struct {
		Year       int                       `json:"year"`
		Half       int                       `json:"half,omitempty"`
		Reports    []core.MonthlyReport      `json:"reports"`
		Comparison []aggregate.ComparisonRow `json:"comparison"`
		Trend      aggregate.Trend           `json:"trend"`
	}

	SavingsOverview struct {
		Stats  []ledger.BucketStats `json:"stats"`
		Totals ledger.Totals        `json:"totals"`
	}
)

// BudgetService orchestrates the stores and the pure engines. Without a user
// in the context every load returns defaults and every save is a no-op.
type BudgetService struct {
	store    ports.Store
	balances ports.BalanceStore
	events   EventPublisher
	saver    *PlanSaver
	views    *expirable.LRU[identity.User, ledger.View]
	now      func() time.Time
	newID    func() string

	// versions counts writes per user; a view built across a write is
	// not cached.
	mu       sync.Mutex
	versions map[identity.User]uint64
}

type Option func(*BudgetService)

// WithEvents enables change notifications. Pass only a non-nil publisher.
func WithEvents(p EventPublisher) Option {
	return func(s *BudgetService) { s.events = p }
}

func WithBalances(b ports.BalanceStore) Option {
	return func(s *BudgetService) { s.balances = b }
}

// WithLedgerCache caches ledger views per user. size <= 0 disables caching.
func WithLedgerCache(size int, ttl time.Duration) Option {
	return func(s *BudgetService) {
		if size <= 0 {
			s.views = nil
			return
		}
		s.views = expirable.NewLRU[identity.User, ledger.View](size, nil, ttl)
	}
}

// WithAutosave sets the debounce window and clock of plan saves.
func WithAutosave(window time.Duration, clock Clock) Option {
	return func(s *BudgetService) {
		s.saver = NewPlanSaver(window, s.writePlan, clock)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *BudgetService) { s.now = now }
}

func NewBudgetService(store ports.Store, opts ...Option) *BudgetService {
	s := &BudgetService{
		store:    store,
		versions: make(map[identity.User]uint64),
		now:      time.Now,
		newID: func() string { return ledger.WithdrawalIDPrefix + uuid.NewString() },
	}
	s.saver = NewPlanSaver(DefaultAutosaveWindow, s.writePlan, nil)
	s.views = expirable.NewLRU[identity.User, ledger.View](256, nil, 5*time.Minute)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// Plan returns the live plan. A debounced edit that is not written yet is
// returned in place of the stored one.
func (s *BudgetService) Plan(ctx context.Context) (core.FinancialData, error) {
	user, ok := identity.FromContext(ctx)
	if !ok {
		return core.DefaultFinancialData(), nil
	}
	if p, ok := s.saver.Pending(user); ok {
		return p, nil
	}
	plan, err := s.store.LoadPlan(ctx, user)
	if err != nil {
		return core.FinancialData{}, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil {
		return core.DefaultFinancialData(), nil
	}
	return *plan, nil
}

func (s *BudgetService) SavePlan(ctx context.Context, plan core.FinancialData, mode SaveMode) error {
	if err := plan.Validate(); err != nil {
		return invalid(err)
	}
	user, ok := identity.FromContext(ctx)
	if !ok {
		return nil
	}
	// amountUsd is derived, never taken from the client.
	plan = aggregate.WithExchangeRate(plan, plan.ExchangeRate)
	if mode == Debounced {
		s.invalidate(user)
		return s.saver.Schedule(user, plan)
	}
	return s.saver.SaveNow(ctx, user, plan)
}

func (s *BudgetService) writePlan(ctx context.Context, user identity.User, plan core.FinancialData) error {
	if err := s.store.SavePlan(ctx, user, plan); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	s.invalidate(user)
	s.publish(ctx, amqp.EventPlanSaved, user, 0, 0)
	return nil
}

// FlushPlans writes pending debounced plans.
func (s *BudgetService) FlushPlans(ctx context.Context) error {
	return s.saver.Flush(ctx)
}

func (s *BudgetService) PlanSummary(ctx context.Context) (aggregate.PlanSummary, error) {
	plan, err := s.Plan(ctx)
	if err != nil {
		return aggregate.PlanSummary{}, err
	}
	settings, err := s.Settings(ctx)
	if err != nil {
		return aggregate.PlanSummary{}, err
	}
	return aggregate.Summarize(plan, settings), nil
}

func (s *BudgetService) Settings(ctx context.Context) (core.Settings, error) {
	user, ok := identity.FromContext(ctx)
	if !ok {
		return core.DefaultSettings(), nil
	}
	st, err := s.store.LoadSettings(ctx, user)
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if st == nil {
		return core.DefaultSettings(), nil
	}
	return *st, nil
}

// SaveSettings stores settings. The mandatory percentage follows the preset;
// savings amounts are never touched here.
func (s *BudgetService) SaveSettings(ctx context.Context, st core.Settings) (core.Settings, error) {
	if err := st.Validate(); err != nil {
		return core.Settings{}, invalid(err)
	}
	st.MandatoryExpensesPercentage = st.MandatoryPercentage()
	if st.DistributionRules == nil {
		st.DistributionRules = []core.DistributionRule{}
	}
	if st.SelectedSavingsForStats == nil {
		st.SelectedSavingsForStats = []string{}
	}
	user, ok := identity.FromContext(ctx)
	if !ok {
		return st, nil
	}
	if err := s.store.SaveSettings(ctx, user, st); err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	s.publish(ctx, amqp.EventSettingsSaved, user, 0, 0)
	return st, nil
}

// ApplyRules stamps rule percentages on non-custom buckets and saves the plan.
func (s *BudgetService) ApplyRules(ctx context.Context) (core.FinancialData, error) {
	plan, err := s.Plan(ctx)
	if err != nil {
		return core.FinancialData{}, err
	}
	st, err := s.Settings(ctx)
	if err != nil {
		return core.FinancialData{}, err
	}
	plan.Savings = aggregate.ApplyDistributionRules(plan.Savings, st.DistributionRules)
	if err := s.SavePlan(ctx, plan, Immediate); err != nil {
		return core.FinancialData{}, err
	}
	return plan, nil
}

func (s *BudgetService) SetExchangeRate(ctx context.Context, rate float64) (core.FinancialData, error) {
	if rate <= 0 {
		return core.FinancialData{}, invalid(core.ErrInvalidRate)
	}
	plan, err := s.Plan(ctx)
	if err != nil {
		return core.FinancialData{}, err
	}
	plan = aggregate.WithExchangeRate(plan, rate)
	if err := s.SavePlan(ctx, plan, Immediate); err != nil {
		return core.FinancialData{}, err
	}
	return plan, nil
}

// RemoveSavingsBucket drops a bucket from the plan and from every rule. Its
// history is kept, so the ledger reports it as orphaned afterwards.
func (s *BudgetService) RemoveSavingsBucket(ctx context.Context, savingsID string) (core.FinancialData, error) {
	plan, err := s.Plan(ctx)
	if err != nil {
		return core.FinancialData{}, err
	}
	kept := make([]core.SavingsItem, 0, len(plan.Savings))
	for _, it := range plan.Savings {
		if it.ID != savingsID {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(plan.Savings) {
		return core.FinancialData{}, ErrBucketNotFound
	}
	plan.Savings = kept

	st, err := s.Settings(ctx)
	if err != nil {
		return core.FinancialData{}, err
	}
	st.DistributionRules = aggregate.PruneRules(st.DistributionRules, savingsID)
	selected := make([]string, 0, len(st.SelectedSavingsForStats))
	for _, id := range st.SelectedSavingsForStats {
		if id != savingsID {
			selected = append(selected, id)
		}
	}
	st.SelectedSavingsForStats = selected

	if err := s.SavePlan(ctx, plan, Immediate); err != nil {
		return core.FinancialData{}, err
	}
	if _, err := s.SaveSettings(ctx, st); err != nil {
		return core.FinancialData{}, err
	}
	return plan, nil
}

func (s *BudgetService) Reports(ctx context.Context) ([]core.MonthlyReport, error) {
	user, ok := identity.FromContext(ctx)
	if !ok {
		return []core.MonthlyReport{}, nil
	}
	reports, err := s.store.LoadReports(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}
	return reports, nil
}

func (s *BudgetService) Report(ctx context.Context, year, month int) (core.MonthlyReport, error) {
	reports, err := s.Reports(ctx)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	for _, r := range reports {
		if r.Year == year && r.Month == month {
			return r, nil
		}
	}
	return core.MonthlyReport{}, ports.ErrReportNotFound
}

func validPeriod(year, month int) error {
	if err := core.ValidateYear(year); err != nil {
		return invalid(err)
	}
	if err := core.ValidateMonth(month); err != nil {
		return invalid(err)
	}
	return nil
}

// SnapshotPlan freezes a deep copy of the live plan into the month's report,
// creating the report or refreshing its plan.
func (s *BudgetService) SnapshotPlan(ctx context.Context, year, month int) (core.MonthlyReport, error) {
	if err := validPeriod(year, month); err != nil {
		return core.MonthlyReport{}, err
	}
	plan, err := s.Plan(ctx)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	r, err := s.Report(ctx, year, month)
	switch {
	case errors.Is(err, ports.ErrReportNotFound):
		r = s.newReport(year, month, plan)
	case err != nil:
		return core.MonthlyReport{}, err
	default:
		r.Plan = plan.Clone()
	}
	return r, s.saveReport(ctx, r)
}

// SaveActual records the month's outcome. A missing report is created from
// a copy of the live plan.
func (s *BudgetService) SaveActual(ctx context.Context, year, month int, actual core.ActualFinancialData) (core.MonthlyReport, error) {
	if err := validPeriod(year, month); err != nil {
		return core.MonthlyReport{}, err
	}
	if err := actual.Validate(); err != nil {
		return core.MonthlyReport{}, invalid(err)
	}
	r, err := s.Report(ctx, year, month)
	switch {
	case errors.Is(err, ports.ErrReportNotFound):
		plan, err := s.Plan(ctx)
		if err != nil {
			return core.MonthlyReport{}, err
		}
		r = s.newReport(year, month, plan)
	case err != nil:
		return core.MonthlyReport{}, err
	}
	a := actual.Clone()
	r.Actual = &a
	return r, s.saveReport(ctx, r)
}

func (s *BudgetService) newReport(year, month int, plan core.FinancialData) core.MonthlyReport {
	return core.MonthlyReport{
		ID:        uuid.NewString(),
		Year:      year,
		Month:     month,
		Plan:      plan.Clone(),
		CreatedAt: s.now().UnixMilli(),
	}
}

func (s *BudgetService) saveReport(ctx context.Context, r core.MonthlyReport) error {
	user, ok := identity.FromContext(ctx)
	if !ok {
		return nil
	}
	if err := s.store.SaveReport(ctx, user, r); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	s.invalidate(user)
	s.publish(ctx, amqp.EventReportSaved, user, r.Year, r.Month)
	return nil
}

func (s *BudgetService) DeleteReport(ctx context.Context, year, month int) error {
	user, ok := identity.FromContext(ctx)
	if !ok {
		return nil
	}
	if err := s.store.DeleteReport(ctx, user, year, month); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	s.invalidate(user)
	s.publish(ctx, amqp.EventReportDeleted, user, year, month)
	return nil
}

func (s *BudgetService) Years(ctx context.Context) ([]int, error) {
	reports, err := s.Reports(ctx)
	if err != nil {
		return nil, err
	}
	return aggregate.Years(reports), nil
}

func (s *BudgetService) MonthComparison(ctx context.Context, year, month int) (MonthView, error) {
	r, err := s.Report(ctx, year, month)
	if err != nil {
		return MonthView{}, err
	}
	return MonthView{
		Report:       r,
		Comparison:   aggregate.CompareMonth(r),
		Distribution: aggregate.Distribution(r.Plan, r.Actual),
		Balance:      aggregate.PlanBalance(r.Plan),
	}, nil
}

func (s *BudgetService) HalfYearComparison(ctx context.Context, year, half int) (PeriodView, error) {
	if half != 1 && half != 2 {
		return PeriodView{}, invalid(fmt.Errorf("half must be 1 or 2, got %d", half))
	}
	reports, err := s.Reports(ctx)
	if err != nil {
		return PeriodView{}, err
	}
	return periodView(year, half, aggregate.ReportsForHalfYear(reports, year, half)), nil
}

func (s *BudgetService) YearComparison(ctx context.Context, year int) (PeriodView, error) {
	reports, err := s.Reports(ctx)
	if err != nil {
		return PeriodView{}, err
	}
	return periodView(year, 0, aggregate.ReportsForYear(reports, year)), nil
}

func periodView(year, half int, reports []core.MonthlyReport) PeriodView {
	return PeriodView{
		Year:       year,
		Half:       half,
		Reports:    reports,
		Comparison: aggregate.ComparePeriod(reports),
		Trend:      aggregate.MonthlyTrend(reports),
	}
}

// Ledger loads plan, reports and withdrawals concurrently and builds the
// savings ledger. Views are cached per user until the next write.
func (s *BudgetService) Ledger(ctx context.Context) (ledger.View, error) {
	user, authed := identity.FromContext(ctx)
	if authed && s.views != nil {
		if v, ok := s.views.Get(user); ok {
			return v, nil
		}
	}
	version := s.version(user)

	var (
		plan        core.FinancialData
		reports     []core.MonthlyReport
		withdrawals []core.SavingsTransaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		plan, err = s.Plan(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		reports, err = s.Reports(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		withdrawals, err = s.withdrawals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return ledger.View{}, fmt.Errorf("load ledger: %w", err)
	}

	v := ledger.Build(plan.Savings, reports, withdrawals)
	if authed && s.views != nil {
		s.mu.Lock()
		if s.versions[user] == version {
			s.views.Add(user, v)
		}
		s.mu.Unlock()
	}
	return v, nil
}

func (s *BudgetService) Savings(ctx context.Context) (SavingsOverview, error) {
	v, err := s.Ledger(ctx)
	if err != nil {
		return SavingsOverview{}, err
	}
	return SavingsOverview{Stats: v.Stats, Totals: v.Totals()}, nil
}

// Transactions lists ledger entries newest first, optionally for one bucket.
func (s *BudgetService) Transactions(ctx context.Context, savingsID string) ([]core.SavingsTransaction, error) {
	v, err := s.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	if savingsID == "" {
		return v.Transactions, nil
	}
	return v.TransactionsFor(savingsID), nil
}

func (s *BudgetService) withdrawals(ctx context.Context) ([]core.SavingsTransaction, error) {
	user, ok := identity.FromContext(ctx)
	if !ok {
		return []core.SavingsTransaction{}, nil
	}
	ws, err := s.store.LoadWithdrawals(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load withdrawals: %w", err)
	}
	return ws, nil
}

// AddWithdrawal records a withdrawal of a positive magnitude from a bucket
// known to the ledger.
func (s *BudgetService) AddWithdrawal(ctx context.Context, savingsID string, amount int64, description string) (core.SavingsTransaction, error) {
	tx, err := ledger.NewWithdrawal(savingsID, amount, description, s.now(), s.newID)
	if err != nil {
		return core.SavingsTransaction{}, invalid(err)
	}
	user, ok := identity.FromContext(ctx)
	if !ok {
		return tx, nil
	}
	v, err := s.Ledger(ctx)
	if err != nil {
		return core.SavingsTransaction{}, err
	}
	if _, known := v.Bucket(savingsID); !known {
		return core.SavingsTransaction{}, invalid(ledger.ErrUnknownBucket)
	}
	ws, err := s.withdrawals(ctx)
	if err != nil {
		return core.SavingsTransaction{}, err
	}
	if err := s.saveWithdrawals(ctx, user, ledger.AddWithdrawal(ws, tx)); err != nil {
		return core.SavingsTransaction{}, err
	}
	fields := applog.NewFields().WithUser(user.String()).WithOperation(applog.OpCreate)
	slog.InfoContext(ctx, "Withdrawal recorded",
		append(fields.ToSlice(), applog.FieldSavingsID, savingsID, applog.FieldAmount, tx.Amount)...)
	return tx, nil
}

func (s *BudgetService) DeleteWithdrawal(ctx context.Context, id string) error {
	if strings.HasPrefix(id, ledger.DepositIDPrefix) {
		return ledger.ErrDepositNotDeletable
	}
	user, ok := identity.FromContext(ctx)
	if !ok {
		return nil
	}
	ws, err := s.withdrawals(ctx)
	if err != nil {
		return err
	}
	left, err := ledger.DeleteWithdrawal(ws, id)
	if err != nil {
		return err
	}
	return s.saveWithdrawals(ctx, user, left)
}

func (s *BudgetService) saveWithdrawals(ctx context.Context, user identity.User, ws []core.SavingsTransaction) error {
	if err := s.store.SaveWithdrawals(ctx, user, ws); err != nil {
		return fmt.Errorf("save withdrawals: %w", err)
	}
	s.invalidate(user)
	s.publish(ctx, amqp.EventWithdrawalsChanged, user, 0, 0)
	return nil
}

// Balances returns the snapshot materialised by the worker.
func (s *BudgetService) Balances(ctx context.Context) ([]ports.BalanceSnapshot, error) {
	if s.balances == nil {
		return nil, ErrBalancesUnavailable
	}
	user, ok := identity.FromContext(ctx)
	if !ok {
		return []ports.BalanceSnapshot{}, nil
	}
	return s.balances.ListBalances(ctx, user)
}

// Invalidate drops the cached ledger view of user.
func (s *BudgetService) Invalidate(user identity.User) { s.invalidate(user) }

func (s *BudgetService) invalidate(user identity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[user]++
	if s.views != nil {
		s.views.Remove(user)
	}
}

func (s *BudgetService) version(user identity.User) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[user]
}

// publish never fails the write that triggered it.
func (s *BudgetService) publish(ctx context.Context, t amqp.EventType, user identity.User, year, month int) {
	if s.events == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping budget event", applog.FieldEventType, t)
		return
	}
	if err := s.events.PublishBudgetEvent(ctx, amqp.NewBudgetEvent(t, user.String(), year, month)); err != nil {
		fields := applog.NewFields().WithUser(user.String()).WithPeriod(year, month).WithError(err)
		slog.ErrorContext(ctx, "Failed to publish budget event",
			append(fields.ToSlice(), applog.FieldEventType, t)...)
	}
}

// Close flushes pending plan writes.
func (s *BudgetService) Close(ctx context.Context) error {
	return s.saver.Close(ctx)
}
