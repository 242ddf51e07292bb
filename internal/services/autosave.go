package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgetplan/internal/core"
	"budgetplan/internal/identity"
	applog "budgetplan/internal/log"
)

// SaveMode selects how a plan edit reaches storage.
type SaveMode int

const (
	// Immediate writes synchronously and drops any pending debounced write.
	Immediate SaveMode = iota
	// Debounced coalesces edits within the autosave window; only the last
	// plan of a burst is written.
	Debounced
)

const DefaultAutosaveWindow = time.Second

var ErrSaverClosed = errors.New("plan saver closed")

// ParseSaveMode accepts "immediate", "debounced" or empty for immediate.
func ParseSaveMode(s string) (SaveMode, error) {
	switch s {
	case "", "immediate":
		return Immediate, nil
	case "debounced":
		return Debounced, nil
	}
	return Immediate, fmt.Errorf("unknown save mode %q", s)
}

type (
	Timer interface {
		Stop() bool
	}

	// Clock schedules deferred writes. Tests inject a manual clock.
	Clock interface {
		AfterFunc(d time.Duration, f func()) Timer
	}

	PlanWriter func(ctx context.Context, user identity.User, plan core.FinancialData) error

	systemClock struct{}

	pendingPlan struct {
		plan  core.FinancialData
		timer Timer
		gen   uint64
	}
)

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// PlanSaver debounces plan writes per user. Writes of one user are
// serialised and a write is dropped when a newer save was requested after it,
// so an older debounced plan never lands on top of a newer one.
type PlanSaver struct {
	mu      sync.Mutex
	window  time.Duration
	clock   Clock
	write   PlanWriter
	pending map[identity.User]*pendingPlan
	latest  map[identity.User]uint64
	locks   map[identity.User]*sync.Mutex
	gen     uint64
	closed  bool
	timeout time.Duration
}

func NewPlanSaver(window time.Duration, write PlanWriter, clock Clock) *PlanSaver {
	if window <= 0 {
		window = DefaultAutosaveWindow
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &PlanSaver{
		window:  window,
		clock:   clock,
		write:   write,
		pending: make(map[identity.User]*pendingPlan),
		latest:  make(map[identity.User]uint64),
		locks:   make(map[identity.User]*sync.Mutex),
		timeout: 10 * time.Second,
	}
}

// next hands out the generation of a new save request. Callers hold mu.
func (s *PlanSaver) next(user identity.User) uint64 {
	s.gen++
	s.latest[user] = s.gen
	return s.gen
}

func (s *PlanSaver) userLock(user identity.User) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[user]
	if !ok {
		l = &sync.Mutex{}
		s.locks[user] = l
	}
	return l
}

// writeIfLatest writes plan under the user's write lock unless a newer save
// of generation > gen was requested meanwhile.
func (s *PlanSaver) writeIfLatest(ctx context.Context, user identity.User, plan core.FinancialData, gen uint64) (bool, error) {
	l := s.userLock(user)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	stale := s.latest[user] != gen
	s.mu.Unlock()
	if stale {
		return false, nil
	}
	return true, s.write(ctx, user, plan)
}

// Schedule replaces the user's pending plan and restarts the window.
func (s *PlanSaver) Schedule(user identity.User, plan core.FinancialData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSaverClosed
	}
	gen := s.next(user)
	if p, ok := s.pending[user]; ok {
		p.timer.Stop()
	}
	s.pending[user] = &pendingPlan{
		plan:  plan.Clone(),
		gen:   gen,
		timer: s.clock.AfterFunc(s.window, func() { s.fire(user, gen) }),
	}
	return nil
}

func (s *PlanSaver) fire(user identity.User, gen uint64) {
	s.mu.Lock()
	p, ok := s.pending[user]
	if !ok || p.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, user)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	written, err := s.writeIfLatest(ctx, user, p.plan, gen)
	if err != nil {
		slog.ErrorContext(ctx, "Debounced plan save failed", applog.FieldUserID, user, applog.FieldError, err)
		return
	}
	if !written {
		slog.DebugContext(ctx, "Debounced plan superseded", applog.FieldUserID, user)
	}
}

// SaveNow cancels any pending write for the user and writes plan
// synchronously. A debounced write already in progress finishes first.
func (s *PlanSaver) SaveNow(ctx context.Context, user identity.User, plan core.FinancialData) error {
	s.mu.Lock()
	if p, ok := s.pending[user]; ok {
		p.timer.Stop()
		delete(s.pending, user)
	}
	gen := s.next(user)
	s.mu.Unlock()

	_, err := s.writeIfLatest(ctx, user, plan, gen)
	return err
}

// Pending returns the plan waiting to be written for user, if any.
func (s *PlanSaver) Pending(user identity.User) (core.FinancialData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[user]
	if !ok {
		return core.FinancialData{}, false
	}
	return p.plan.Clone(), true
}

// Flush writes every pending plan now.
func (s *PlanSaver) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[identity.User]*pendingPlan)
	s.mu.Unlock()

	var errs []error
	for user, p := range batch {
		p.timer.Stop()
		if _, err := s.writeIfLatest(ctx, user, p.plan, p.gen); err != nil {
			errs = append(errs, fmt.Errorf("flush plan for %s: %w", user, err))
		}
	}
	return errors.Join(errs...)
}

// Close flushes pending writes and rejects further debounced saves.
func (s *PlanSaver) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Flush(ctx)
}
