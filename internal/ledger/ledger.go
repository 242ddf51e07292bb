// Package ledger reconstructs per-bucket savings balances from two sources:
// deposits derived from monthly report history and persisted withdrawals.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"budgetplan/internal/core"
)

const (
	DepositIDPrefix    = "deposit-"
	WithdrawalIDPrefix = "withdrawal-"

	// DeletedBucketName labels an orphaned bucket whose name never appeared
	// in report history.
	DeletedBucketName = "Deleted bucket"
)

var (
	ErrNonPositiveAmount   = errors.New("withdrawal amount must be positive")
	ErrUnknownBucket       = errors.New("unknown savings bucket")
	ErrDepositNotDeletable = errors.New("deposits are derived from reports and cannot be deleted")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type (
	BucketStats struct {
		SavingsID      string `json:"savingsId"`
		Name           string `json:"savingsName"`
		Icon           string `json:"icon,omitempty"`
		TotalDeposited int64  `json:"totalDeposited"`
		TotalWithdrawn int64  `json:"totalWithdrawn"`
		CurrentBalance int64  `json:"currentBalance"`
		// Orphaned marks a bucket that is no longer in the current plan but
		// still has history.
		Orphaned bool `json:"orphaned"`
	}

	Totals struct {
		Deposited int64 `json:"totalDeposited"`
		Withdrawn int64 `json:"totalWithdrawn"`
		Balance   int64 `json:"currentBalance"`
	}

	// View is the full ledger: every transaction newest first and the stats
	// of every bucket.
	View struct {
		Transactions []core.SavingsTransaction `json:"transactions"`
		Stats        []BucketStats             `json:"stats"`
	}
)

// DepositID is the deterministic id of a derived deposit.
func DepositID(year, month int, savingsID string, createdAt int64) string {
	return fmt.Sprintf("%s%d-%d-%s-%d", DepositIDPrefix, year, month, savingsID, createdAt)
}

type entry struct {
	id, name string
	amount   int64
}

// savingsSource picks the actual savings of a report when they are present
// and non-empty, else the planned ones.
func savingsSource(r core.MonthlyReport) []entry {
	if r.Actual != nil && len(r.Actual.Savings) > 0 {
		out := make([]entry, len(r.Actual.Savings))
		for i, s := range r.Actual.Savings {
			out[i] = entry{s.ID, s.Name, s.Amount}
		}
		return out
	}
	out := make([]entry, len(r.Plan.Savings))
	for i, s := range r.Plan.Savings {
		out[i] = entry{s.ID, s.Name, s.Amount}
	}
	return out
}

// DeriveDeposits synthesizes one deposit per positive savings entry of each
// report. The result depends only on the reports, so calling it twice yields
// the same transactions.
func DeriveDeposits(reports []core.MonthlyReport) []core.SavingsTransaction {
	deposits := []core.SavingsTransaction{}
	for _, r := range reports {
		for _, s := range savingsSource(r) {
			if s.amount <= 0 {
				continue
			}
			deposits = append(deposits, core.SavingsTransaction{
				ID:        DepositID(r.Year, r.Month, s.id, r.CreatedAt),
				SavingsID: s.id,
				Amount:    s.amount,
				Year:      r.Year,
				Month:     r.Month,
				Type:      core.Deposit,
				CreatedAt: r.CreatedAt,
			})
		}
	}
	return deposits
}

// Merge concatenates deposits and withdrawals ordered by year, month and
// creation time, newest first. Ties keep their input order.
func Merge(deposits, withdrawals []core.SavingsTransaction) []core.SavingsTransaction {
	all := make([]core.SavingsTransaction, 0, len(deposits)+len(withdrawals))
	all = append(all, deposits...)
	all = append(all, withdrawals...)
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		return a.CreatedAt > b.CreatedAt
	})
	return all
}

// Stats aggregates transactions per bucket. Buckets of the current plan come
// first in plan order, even without transactions. Buckets only known from
// history follow in order of first appearance in transactions and are
// marked orphaned.
func Stats(current []core.SavingsItem, reports []core.MonthlyReport, transactions []core.SavingsTransaction) []BucketStats {
	names := make(map[string]string)
	for _, r := range reports {
		for _, s := range savingsSource(r) {
			if _, ok := names[s.id]; !ok {
				names[s.id] = s.name
			}
		}
	}

	index := make(map[string]int, len(current))
	stats := make([]BucketStats, 0, len(current))
	for _, s := range current {
		if _, dup := index[s.ID]; dup {
			continue
		}
		index[s.ID] = len(stats)
		stats = append(stats, BucketStats{SavingsID: s.ID, Name: s.Name, Icon: s.Icon})
	}

	for _, tx := range transactions {
		i, ok := index[tx.SavingsID]
		if !ok {
			name, known := names[tx.SavingsID]
			if !known || name == "" {
				name = DeletedBucketName
			}
			i = len(stats)
			index[tx.SavingsID] = i
			stats = append(stats, BucketStats{SavingsID: tx.SavingsID, Name: name, Orphaned: true})
		}
		if tx.Type == core.Deposit {
			stats[i].TotalDeposited += tx.Amount
		} else {
			stats[i].TotalWithdrawn += abs(tx.Amount)
		}
	}

	for i := range stats {
		stats[i].CurrentBalance = stats[i].TotalDeposited - stats[i].TotalWithdrawn
	}
	return stats
}

// Build runs the whole pipeline.
func Build(current []core.SavingsItem, reports []core.MonthlyReport, withdrawals []core.SavingsTransaction) View {
	txs := Merge(DeriveDeposits(reports), withdrawals)
	return View{
		Transactions: txs,
		Stats:        Stats(current, reports, txs),
	}
}

// TransactionsFor keeps the newest-first order of the view.
func (v View) TransactionsFor(savingsID string) []core.SavingsTransaction {
	out := []core.SavingsTransaction{}
	for _, tx := range v.Transactions {
		if tx.SavingsID == savingsID {
			out = append(out, tx)
		}
	}
	return out
}

func (v View) Bucket(savingsID string) (BucketStats, bool) {
	for _, s := range v.Stats {
		if s.SavingsID == savingsID {
			return s, true
		}
	}
	return BucketStats{}, false
}

func (v View) Totals() Totals {
	var t Totals
	for _, s := range v.Stats {
		t.Deposited += s.TotalDeposited
		t.Withdrawn += s.TotalWithdrawn
	}
	t.Balance = t.Deposited - t.Withdrawn
	return t
}

// NewWithdrawal builds a withdrawal of magnitude from a bucket dated at now.
// The stored amount is always negative.
func NewWithdrawal(savingsID string, magnitude int64, description string, now time.Time, newID func() string) (core.SavingsTransaction, error) {
	if magnitude <= 0 {
		return core.SavingsTransaction{}, ErrNonPositiveAmount
	}
	if strings.TrimSpace(savingsID) == "" {
		return core.SavingsTransaction{}, ErrUnknownBucket
	}
	return core.SavingsTransaction{
		ID:          newID(),
		SavingsID:   savingsID,
		Amount:      -abs(magnitude),
		Year:        now.Year(),
		Month:       int(now.Month()),
		Type:        core.Withdrawal,
		CreatedAt:   now.UnixMilli(),
		Description: strings.TrimSpace(description),
	}, nil
}

// AddWithdrawal returns a new list with tx appended.
func AddWithdrawal(withdrawals []core.SavingsTransaction, tx core.SavingsTransaction) []core.SavingsTransaction {
	out := make([]core.SavingsTransaction, 0, len(withdrawals)+1)
	out = append(out, withdrawals...)
	return append(out, tx)
}

// DeleteWithdrawal returns a new list without the transaction id.
func DeleteWithdrawal(withdrawals []core.SavingsTransaction, id string) ([]core.SavingsTransaction, error) {
	if strings.HasPrefix(id, DepositIDPrefix) {
		return nil, ErrDepositNotDeletable
	}
	out := make([]core.SavingsTransaction, 0, len(withdrawals))
	found := false
	for _, tx := range withdrawals {
		if tx.ID == id {
			found = true
			continue
		}
		out = append(out, tx)
	}
	if !found {
		return nil, ErrTransactionNotFound
	}
	return out, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
