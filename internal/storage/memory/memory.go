// Package memory is an in-process implementation of the budget stores.
// Values are deep-copied on the way in and out.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetplan/internal/core"
	"budgetplan/internal/identity"
	"budgetplan/internal/ledger"
	"budgetplan/internal/ports"
)

type userData struct {
	plan        *core.FinancialData
	reports     []core.MonthlyReport
	withdrawals []core.SavingsTransaction
	settings    *core.Settings
	balances    []ports.BalanceSnapshot
}

type Store struct {
	mu    sync.Mutex
	users map[identity.User]*userData
	now   func() time.Time
}

func New() *Store {
	return &Store{users: make(map[identity.User]*userData), now: time.Now}
}

func (s *Store) data(u identity.User) *userData {
	d, ok := s.users[u]
	if !ok {
		d = &userData{}
		s.users[u] = d
	}
	return d
}

func (s *Store) LoadPlan(_ context.Context, u identity.User) (*core.FinancialData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.users[u]
	if !ok || d.plan == nil {
		return nil, nil
	}
	p := d.plan.Clone()
	return &p, nil
}

func (s *Store) SavePlan(_ context.Context, u identity.User, plan core.FinancialData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := plan.Clone()
	s.data(u).plan = &p
	return nil
}

func (s *Store) LoadReports(_ context.Context, u identity.User) ([]core.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.users[u]
	if !ok {
		return []core.MonthlyReport{}, nil
	}
	out := core.CloneReports(d.reports)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

// SaveReport upserts by (year, month). An existing report keeps its id and
// creation time so derived deposit ids stay stable.
func (s *Store) SaveReport(_ context.Context, u identity.User, r core.MonthlyReport) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.data(u)
	r = r.Clone()
	for i, existing := range d.reports {
		if existing.Year == r.Year && existing.Month == r.Month {
			r.ID = existing.ID
			r.CreatedAt = existing.CreatedAt
			d.reports[i] = r
			return nil
		}
	}
	if _, err := uuid.Parse(r.ID); err != nil {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = s.now().UnixMilli()
	}
	d.reports = append(d.reports, r)
	return nil
}

func (s *Store) DeleteReport(_ context.Context, u identity.User, year, month int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.users[u]
	if !ok {
		return ports.ErrReportNotFound
	}
	for i, r := range d.reports {
		if r.Year == year && r.Month == month {
			d.reports = append(d.reports[:i:i], d.reports[i+1:]...)
			return nil
		}
	}
	return ports.ErrReportNotFound
}

func (s *Store) LoadWithdrawals(_ context.Context, u identity.User) ([]core.SavingsTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.users[u]
	if !ok {
		return []core.SavingsTransaction{}, nil
	}
	return append([]core.SavingsTransaction{}, d.withdrawals...), nil
}

func (s *Store) SaveWithdrawals(_ context.Context, u identity.User, ws []core.SavingsTransaction) error {
	for _, w := range ws {
		if err := w.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data(u).withdrawals = append([]core.SavingsTransaction{}, ws...)
	return nil
}

func (s *Store) LoadSettings(_ context.Context, u identity.User) (*core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.users[u]
	if !ok || d.settings == nil {
		return nil, nil
	}
	st := d.settings.Clone()
	return &st, nil
}

func (s *Store) SaveSettings(_ context.Context, u identity.User, st core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := st.Clone()
	s.data(u).settings = &c
	return nil
}

// SaveBalances replaces the user's balance snapshot.
func (s *Store) SaveBalances(_ context.Context, u identity.User, stats []ledger.BucketStats, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.BalanceSnapshot, len(stats))
	for i, st := range stats {
		out[i] = ports.BalanceSnapshot{BucketStats: st, UpdatedAt: at}
	}
	s.data(u).balances = out
	return nil
}

func (s *Store) ListBalances(_ context.Context, u identity.User) ([]ports.BalanceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.users[u]
	if !ok {
		return []ports.BalanceSnapshot{}, nil
	}
	return append([]ports.BalanceSnapshot{}, d.balances...), nil
}

func (s *Store) ListUsers(_ context.Context) ([]identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]identity.User, 0, len(s.users))
	for u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

var (
	_ ports.Store        = (*Store)(nil)
	_ ports.BalanceStore = (*Store)(nil)
	_ ports.UserLister   = (*Store)(nil)
)
