package memory

import (
	"context"
	"testing"

	"budgetplan/internal/identity"
	"budgetplan/internal/sheets"
)

func TestMirrorUpsertAndClear(t *testing.T) {
	m := New()
	ctx := context.Background()
	u := identity.User("u1")

	if err := m.UpsertMonth(ctx, u, sheets.MonthRow{Year: 2024, Month: 3, IncomePlan: 10}); err != nil {
		t.Fatalf("UpsertMonth: %v", err)
	}
	if err := m.UpsertMonth(ctx, u, sheets.MonthRow{Year: 2024, Month: 3, IncomePlan: 20}); err != nil {
		t.Fatalf("UpsertMonth: %v", err)
	}
	_ = m.UpsertMonth(ctx, u, sheets.MonthRow{Year: 2023, Month: 12})
	_ = m.UpsertMonth(ctx, identity.User("u2"), sheets.MonthRow{Year: 2024, Month: 1})

	rows := m.Rows(u)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Year != 2023 || rows[1].IncomePlan != 20 {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	if err := m.ClearMonth(ctx, u, 2024, 3); err != nil {
		t.Fatalf("ClearMonth: %v", err)
	}
	if _, ok := m.Row(u, 2024, 3); ok {
		t.Fatal("expected row to be cleared")
	}
}
