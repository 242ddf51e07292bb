// Package memory is an in-process ReportMirror used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"budgetplan/internal/identity"
	"budgetplan/internal/sheets"
)

type key struct {
	user  identity.User
	year  int
	month int
}

type Mirror struct {
	mu   sync.Mutex
	rows map[key]sheets.MonthRow
}

var _ sheets.ReportMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: make(map[key]sheets.MonthRow)}
}

func (m *Mirror) UpsertMonth(_ context.Context, user identity.User, row sheets.MonthRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key{user, row.Year, row.Month}] = row
	return nil
}

func (m *Mirror) ClearMonth(_ context.Context, user identity.User, year, month int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key{user, year, month})
	return nil
}

// Row returns the mirrored row of a month.
func (m *Mirror) Row(user identity.User, year, month int) (sheets.MonthRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[key{user, year, month}]
	return r, ok
}

// Rows lists a user's rows in calendar order.
func (m *Mirror) Rows(user identity.User) []sheets.MonthRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sheets.MonthRow
	for k, r := range m.rows {
		if k.user == user {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}
