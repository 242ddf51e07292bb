package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"budgetplan/internal/core"
	"budgetplan/internal/identity"
	"budgetplan/internal/ledger"
	applog "budgetplan/internal/log"
	"budgetplan/internal/ports"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var ErrUnknownDialect = errors.New("unknown sql dialect")

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// SQLRepository stores budget documents as JSON columns in sqlite or
// postgres.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(DialectSQLite, dbPath)
}

func NewPostgresRepository(databaseURL string) (*SQLRepository, error) {
	return open(DialectPostgres, databaseURL)
}

func open(d Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if d == DialectSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{db: db, dialect: d, now: time.Now}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rebind turns ? placeholders into $n for postgres.
func (r *SQLRepository) rebind(q string) string {
	if r.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *SQLRepository) exec(ctx context.Context, q string, args ...any) error {
	_, err := r.db.ExecContext(ctx, r.rebind(q), args...)
	return err
}

func (r *SQLRepository) loadDocument(ctx context.Context, table string, u identity.User, dst any) (bool, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, r.rebind("SELECT data FROM "+table+" WHERE user_id = ?"), string(u)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", table, err)
	}
	return true, nil
}

func (r *SQLRepository) saveDocument(ctx context.Context, table string, u identity.User, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", table, err)
	}
	return r.exec(ctx,
		"INSERT INTO "+table+" (user_id, data, updated_at) VALUES (?, ?, ?) "+
			"ON CONFLICT (user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at",
		string(u), string(raw), r.now().UnixMilli())
}

func (r *SQLRepository) LoadPlan(ctx context.Context, u identity.User) (*core.FinancialData, error) {
	var plan core.FinancialData
	ok, err := r.loadDocument(ctx, "plans", u, &plan)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &plan, nil
}

func (r *SQLRepository) SavePlan(ctx context.Context, u identity.User, plan core.FinancialData) error {
	if err := r.saveDocument(ctx, "plans", u, plan); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	slog.DebugContext(ctx, "Plan saved", applog.FieldUserID, u)
	return nil
}

func (r *SQLRepository) LoadReports(ctx context.Context, u identity.User) ([]core.MonthlyReport, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(
		"SELECT id, year, month, plan, actual, created_at FROM reports WHERE user_id = ? ORDER BY year DESC, month DESC"),
		string(u))
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}
	defer rows.Close()

	reports := []core.MonthlyReport{}
	for rows.Next() {
		var (
			rep    core.MonthlyReport
			plan   []byte
			actual []byte
		)
		if err := rows.Scan(&rep.ID, &rep.Year, &rep.Month, &plan, &actual, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		// fields missing from older documents keep the empty plan defaults
		rep.Plan = core.EmptyFinancialData()
		if err := json.Unmarshal(plan, &rep.Plan); err != nil {
			return nil, fmt.Errorf("decode report plan %s: %w", rep.ID, err)
		}
		if len(actual) > 0 {
			var a core.ActualFinancialData
			if err := json.Unmarshal(actual, &a); err != nil {
				return nil, fmt.Errorf("decode report actual %s: %w", rep.ID, err)
			}
			rep.Actual = &a
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// SaveReport upserts on (user, year, month). On conflict the stored id and
// created_at are kept.
func (r *SQLRepository) SaveReport(ctx context.Context, u identity.User, rep core.MonthlyReport) error {
	if err := rep.Validate(); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	if _, err := uuid.Parse(rep.ID); err != nil {
		rep.ID = uuid.NewString()
	}
	now := r.now().UnixMilli()
	if rep.CreatedAt == 0 {
		rep.CreatedAt = now
	}
	plan, err := json.Marshal(rep.Plan)
	if err != nil {
		return fmt.Errorf("encode report plan: %w", err)
	}
	var actual any
	if rep.Actual != nil {
		raw, err := json.Marshal(rep.Actual)
		if err != nil {
			return fmt.Errorf("encode report actual: %w", err)
		}
		actual = string(raw)
	}

	err = r.exec(ctx,
		"INSERT INTO reports (id, user_id, year, month, plan, actual, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT (user_id, year, month) DO UPDATE SET plan = excluded.plan, actual = excluded.actual, updated_at = excluded.updated_at",
		rep.ID, string(u), rep.Year, rep.Month, string(plan), actual, rep.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	slog.InfoContext(ctx, "Report saved", applog.NewFields().WithUser(u.String()).WithPeriod(rep.Year, rep.Month).ToSlice()...)
	return nil
}

func (r *SQLRepository) DeleteReport(ctx context.Context, u identity.User, year, month int) error {
	res, err := r.db.ExecContext(ctx, r.rebind("DELETE FROM reports WHERE user_id = ? AND year = ? AND month = ?"), string(u), year, month)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n == 0 {
		return ports.ErrReportNotFound
	}
	slog.InfoContext(ctx, "Report deleted", applog.NewFields().WithUser(u.String()).WithPeriod(year, month).ToSlice()...)
	return nil
}

func (r *SQLRepository) LoadWithdrawals(ctx context.Context, u identity.User) ([]core.SavingsTransaction, error) {
	ws := []core.SavingsTransaction{}
	if _, err := r.loadDocument(ctx, "withdrawals", u, &ws); err != nil {
		return nil, fmt.Errorf("load withdrawals: %w", err)
	}
	return ws, nil
}

func (r *SQLRepository) SaveWithdrawals(ctx context.Context, u identity.User, ws []core.SavingsTransaction) error {
	for _, w := range ws {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("save withdrawals: %s: %w", w.ID, err)
		}
	}
	if ws == nil {
		ws = []core.SavingsTransaction{}
	}
	if err := r.saveDocument(ctx, "withdrawals", u, ws); err != nil {
		return fmt.Errorf("save withdrawals: %w", err)
	}
	return nil
}

func (r *SQLRepository) LoadSettings(ctx context.Context, u identity.User) (*core.Settings, error) {
	var s core.Settings
	ok, err := r.loadDocument(ctx, "settings", u, &s)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *SQLRepository) SaveSettings(ctx context.Context, u identity.User, s core.Settings) error {
	if err := r.saveDocument(ctx, "settings", u, s); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SaveBalances replaces the user's materialised balances in one transaction.
func (r *SQLRepository) SaveBalances(ctx context.Context, u identity.User, stats []ledger.BucketStats, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin balances tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind("DELETE FROM savings_balances WHERE user_id = ?"), string(u)); err != nil {
		return fmt.Errorf("clear balances: %w", err)
	}
	insert := r.rebind("INSERT INTO savings_balances " +
		"(user_id, savings_id, position, name, icon, total_deposited, total_withdrawn, current_balance, orphaned, updated_at) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	for i, s := range stats {
		orphaned := 0
		if s.Orphaned {
			orphaned = 1
		}
		if _, err := tx.ExecContext(ctx, insert, string(u), s.SavingsID, i, s.Name, s.Icon,
			s.TotalDeposited, s.TotalWithdrawn, s.CurrentBalance, orphaned, at.UnixMilli()); err != nil {
			return fmt.Errorf("insert balance %s: %w", s.SavingsID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit balances: %w", err)
	}
	return nil
}

func (r *SQLRepository) ListBalances(ctx context.Context, u identity.User) ([]ports.BalanceSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(
		"SELECT savings_id, name, icon, total_deposited, total_withdrawn, current_balance, orphaned, updated_at "+
			"FROM savings_balances WHERE user_id = ? ORDER BY position"), string(u))
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	out := []ports.BalanceSnapshot{}
	for rows.Next() {
		var (
			b        ports.BalanceSnapshot
			orphaned int64
			updated  int64
		)
		if err := rows.Scan(&b.SavingsID, &b.Name, &b.Icon, &b.TotalDeposited, &b.TotalWithdrawn,
			&b.CurrentBalance, &orphaned, &updated); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		b.Orphaned = orphaned != 0
		b.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListUsers returns every user that has a plan, a report or withdrawals.
func (r *SQLRepository) ListUsers(ctx context.Context) ([]identity.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id FROM plans UNION SELECT user_id FROM reports UNION SELECT user_id FROM withdrawals ORDER BY 1")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []identity.User{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, identity.User(id))
	}
	return out, rows.Err()
}

var (
	_ ports.Store        = (*SQLRepository)(nil)
	_ ports.BalanceStore = (*SQLRepository)(nil)
	_ ports.UserLister   = (*SQLRepository)(nil)
)
