package core

import "testing"

func expense(id, user int64, cents int64, cat, date string) Expense {
	d, err := ParseDate(date)
	if err != nil {
		panic(err)
	}
	return Expense{ID: id, UserID: user, Amount: Money{Cents: cents}, Category: cat, Date: d}
}

func TestFilterMatchIsOwnerScoped(t *testing.T) {
	e := expense(1, 2, 100, "food", "2024-01-10")
	if NewFilter(3).Match(e) {
		t.Fatal("filter for another user must not match")
	}
	if !NewFilter(2).Match(e) {
		t.Fatal("empty filter must match owner's expense")
	}
}

func TestFilterComposesConjunctively(t *testing.T) {
	items := []Expense{
		expense(1, 1, 100, "food", "2024-01-01"),
		expense(2, 1, 200, "food", "2024-01-15"),
		expense(3, 1, 300, "rent", "2024-01-15"),
		expense(4, 1, 400, "food", "2024-02-01"),
	}
	f := NewFilter(1).Apply(ListQuery{Category: "food", FromDate: "2024-01-10", ToDate: "2024-01-31"})
	var got []int64
	for _, e := range items {
		if f.Match(e) {
			got = append(got, e.ID)
		}
	}
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected only expense 2, got %v", got)
	}
}

func TestFilterInclusiveBounds(t *testing.T) {
	e := expense(1, 1, 100, "food", "2024-01-15")
	f := NewFilter(1).From("2024-01-15").To("2024-01-15")
	if !f.Match(e) {
		t.Fatal("date bounds must be inclusive")
	}
}

func TestFilterExcludeIDAndMonth(t *testing.T) {
	a := expense(7, 1, 100, "food", "2024-01-31")
	b := expense(8, 1, 100, "food", "2024-02-01")
	f := NewFilter(1).Month("2024-01").ExcludeID(8)
	if !f.Match(a) || f.Match(b) {
		t.Fatal("month filter mismatch")
	}
	if NewFilter(1).ExcludeID(7).Match(a) {
		t.Fatal("excluded id must not match")
	}
}

func TestFilterBuilderDoesNotAlias(t *testing.T) {
	base := NewFilter(1).Category("food")
	a := base.From("2024-01-01")
	b := base.To("2024-12-31")
	if len(a.Predicates) != 2 || len(b.Predicates) != 2 {
		t.Fatalf("unexpected predicate counts %d %d", len(a.Predicates), len(b.Predicates))
	}
	if a.Predicates[1].Op != OpGte || b.Predicates[1].Op != OpLte {
		t.Fatal("derived filters share backing storage")
	}
}

func TestFilterIgnoresEmptyValues(t *testing.T) {
	f := NewFilter(1).Apply(ListQuery{Category: " ", FromDate: "", ToDate: ""})
	if len(f.Predicates) != 0 {
		t.Fatalf("expected no predicates, got %v", f.Predicates)
	}
}
