// Package storetest holds behaviour checks shared by every storage.Store.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"expenses/internal/core"
	"expenses/internal/storage"
)

// Run exercises a fresh store produced by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("expenses", func(t *testing.T) { testExpenses(t, newStore(t)) })
	t.Run("filters", func(t *testing.T) { testFilters(t, newStore(t)) })
	t.Run("summaries", func(t *testing.T) { testSummaries(t, newStore(t)) })
	t.Run("limits", func(t *testing.T) { testLimits(t, newStore(t)) })
}

func mustUser(t *testing.T, s storage.Store, name string) core.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), name, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func mustExpense(t *testing.T, s storage.Store, userID, cents int64, category, date string) core.Expense {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	e, err := s.CreateExpense(context.Background(), core.Expense{
		UserID:   userID,
		Amount:   core.Money{Cents: cents},
		Category: category,
		Date:     d,
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return e
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "alice")
	if u.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}
	if _, err := s.CreateUser(ctx, "alice", "other"); !errors.Is(err, core.ErrDuplicateUsername) {
		t.Fatalf("duplicate user: got %v", err)
	}
	got, err := s.GetUserByUsername(ctx, "alice")
	if err != nil || got.ID != u.ID || got.PasswordHash != "hash" {
		t.Fatalf("get user: %+v %v", got, err)
	}
	if _, err := s.GetUserByUsername(ctx, "bob"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing user: got %v", err)
	}
}

func testSessions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "alice")
	now := time.Unix(1_700_000_000, 0)
	live := core.Session{Token: "live", UserID: u.ID, Username: u.Username, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	dead := core.Session{Token: "dead", UserID: u.ID, Username: u.Username, CreatedAt: now, ExpiresAt: now.Add(-time.Second)}
	for _, sess := range []core.Session{live, dead} {
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	got, err := s.GetSession(ctx, "live")
	if err != nil || got.UserID != u.ID || got.Username != "alice" || !got.ExpiresAt.Equal(live.ExpiresAt) {
		t.Fatalf("get session: %+v %v", got, err)
	}

	n, err := s.DeleteExpiredSessions(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("sweep: n=%d err=%v", n, err)
	}
	if _, err := s.GetSession(ctx, "dead"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expired session survived sweep: %v", err)
	}

	if err := s.DeleteSession(ctx, "live"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := s.GetSession(ctx, "live"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleted session still present: %v", err)
	}
}

func testExpenses(t *testing.T, s storage.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	e := mustExpense(t, s, alice.ID, 1250, "food", "2024-03-10")
	if e.ID == 0 {
		t.Fatalf("expected id")
	}

	got, err := s.GetExpense(ctx, alice.ID, e.ID)
	if err != nil || got.Amount.Cents != 1250 || got.Date.String() != "2024-03-10" {
		t.Fatalf("get expense: %+v %v", got, err)
	}
	if _, err := s.GetExpense(ctx, bob.ID, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign get: got %v", err)
	}

	e.Amount = core.Money{Cents: 900}
	e.Category = "groceries"
	e.Description = "market"
	if err := s.UpdateExpense(ctx, e); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.GetExpense(ctx, alice.ID, e.ID)
	if got.Amount.Cents != 900 || got.Category != "groceries" || got.Description != "market" {
		t.Fatalf("update not applied: %+v", got)
	}

	foreign := e
	foreign.UserID = bob.ID
	if err := s.UpdateExpense(ctx, foreign); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign update: got %v", err)
	}

	removed, err := s.DeleteExpense(ctx, bob.ID, e.ID)
	if err != nil || removed {
		t.Fatalf("foreign delete removed=%v err=%v", removed, err)
	}
	removed, err = s.DeleteExpense(ctx, alice.ID, e.ID)
	if err != nil || !removed {
		t.Fatalf("delete removed=%v err=%v", removed, err)
	}
	removed, err = s.DeleteExpense(ctx, alice.ID, e.ID)
	if err != nil || removed {
		t.Fatalf("second delete removed=%v err=%v", removed, err)
	}
}

func testFilters(t *testing.T, s storage.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	a := mustExpense(t, s, alice.ID, 100, "food", "2024-01-31")
	b := mustExpense(t, s, alice.ID, 200, "food", "2024-02-01")
	c := mustExpense(t, s, alice.ID, 300, "rent", "2024-02-01")
	mustExpense(t, s, bob.ID, 999, "food", "2024-02-01")

	ids := func(es []core.Expense) []int64 {
		out := make([]int64, len(es))
		for i, e := range es {
			out[i] = e.ID
		}
		return out
	}

	tests := []struct {
		name  string
		f     core.Filter
		order core.Order
		want  []int64
		total int64
	}{
		{"all desc", core.NewFilter(alice.ID), core.DateDesc, []int64{c.ID, b.ID, a.ID}, 600},
		{"all asc", core.NewFilter(alice.ID), core.DateAsc, []int64{a.ID, b.ID, c.ID}, 600},
		{"category", core.NewFilter(alice.ID).Category("food"), core.DateDesc, []int64{b.ID, a.ID}, 300},
		{"inclusive range", core.NewFilter(alice.ID).From("2024-01-31").To("2024-01-31"), core.DateDesc, []int64{a.ID}, 100},
		{"month", core.NewFilter(alice.ID).Month("2024-02"), core.DateAsc, []int64{b.ID, c.ID}, 500},
		{"exclude id", core.NewFilter(alice.ID).Category("food").ExcludeID(b.ID), core.DateDesc, []int64{a.ID}, 100},
		{"no match", core.NewFilter(alice.ID).Category("travel"), core.DateDesc, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListExpenses(ctx, tt.f, tt.order)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			gotIDs := ids(got)
			if len(gotIDs) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", gotIDs, tt.want)
			}
			for i := range gotIDs {
				if gotIDs[i] != tt.want[i] {
					t.Fatalf("ids = %v, want %v", gotIDs, tt.want)
				}
			}
			sum, err := s.SumExpenses(ctx, tt.f)
			if err != nil || sum.Cents != tt.total {
				t.Fatalf("sum = %d (%v), want %d", sum.Cents, err, tt.total)
			}
		})
	}
}

func testSummaries(t *testing.T, s storage.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	mustExpense(t, s, alice.ID, 500, "rent", "2024-01-05")
	mustExpense(t, s, alice.ID, 150, "food", "2024-01-20")
	mustExpense(t, s, alice.ID, 250, "food", "2024-02-02")
	mustExpense(t, s, bob.ID, 7, "food", "2024-03-01")

	cats, err := s.SumByCategory(ctx, alice.ID)
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	if len(cats) != 2 || cats[0].Name != "food" || cats[0].Amount.Cents != 400 || cats[1].Name != "rent" || cats[1].Amount.Cents != 500 {
		t.Fatalf("by category: %+v", cats)
	}

	months, err := s.SumByMonth(ctx, alice.ID)
	if err != nil {
		t.Fatalf("by month: %v", err)
	}
	if len(months) != 2 || months[0].Month != "2024-02" || months[0].Amount.Cents != 250 || months[1].Month != "2024-01" || months[1].Amount.Cents != 650 {
		t.Fatalf("by month: %+v", months)
	}

	empty, err := s.SumByMonth(ctx, 12345)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty user: %+v %v", empty, err)
	}
}

func testLimits(t *testing.T, s storage.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	if _, err := s.GetLimit(ctx, alice.ID, "food"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing limit: got %v", err)
	}
	first, err := s.UpsertLimit(ctx, core.CategoryLimit{UserID: alice.ID, Category: "food", Limit: core.Money{Cents: 10000}})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := s.UpsertLimit(ctx, core.CategoryLimit{UserID: alice.ID, Category: "food", Limit: core.Money{Cents: 5000}})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("upsert created a second row: %d vs %d", first.ID, second.ID)
	}
	if _, err := s.UpsertLimit(ctx, core.CategoryLimit{UserID: alice.ID, Category: "bills", Limit: core.Money{Cents: -100}}); err != nil {
		t.Fatalf("non-positive limit rejected by store: %v", err)
	}
	if _, err := s.UpsertLimit(ctx, core.CategoryLimit{UserID: bob.ID, Category: "food", Limit: core.Money{Cents: 1}}); err != nil {
		t.Fatalf("upsert bob: %v", err)
	}

	got, err := s.GetLimit(ctx, alice.ID, "food")
	if err != nil || got.Limit.Cents != 5000 {
		t.Fatalf("get limit: %+v %v", got, err)
	}

	list, err := s.ListLimits(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list limits: %v", err)
	}
	if len(list) != 2 || list[0].Category != "bills" || list[1].Category != "food" {
		t.Fatalf("list limits: %+v", list)
	}
}
