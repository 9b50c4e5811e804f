package core

import (
	"strconv"
	"strings"
)

// Field names an expense attribute that a Predicate can test.
type Field string

const (
	FieldID       Field = "id"
	FieldUserID   Field = "user_id"
	FieldCategory Field = "category"
	FieldDate     Field = "date"
	FieldMonth    Field = "month"
)

// Op is a comparison operator. Comparisons on dates are lexicographic, which
// matches calendar order for YYYY-MM-DD strings.
type Op string

const (
	OpEq  Op = "="
	OpNeq Op = "!="
	OpGte Op = ">="
	OpLte Op = "<="
)

// Predicate is one conjunct of a Filter.
type Predicate struct {
	Field Field
	Op    Op
	Value string
}

// Filter is a conjunction of predicates scoped to a single owner. The owner is
// mandatory so that no query built from a Filter can cross users.
type Filter struct {
	UserID     int64
	Predicates []Predicate
}

// Order selects the date ordering of listings.
type Order int

const (
	DateDesc Order = iota
	DateAsc
)

// ListQuery is the user-supplied part of a listing request. Empty fields are
// not applied.
type ListQuery struct {
	Category string
	FromDate string
	ToDate   string
}

// NewFilter starts a filter for the given owner.
func NewFilter(userID int64) Filter {
	return Filter{UserID: userID}
}

func (f Filter) with(p Predicate) Filter {
	preds := make([]Predicate, len(f.Predicates), len(f.Predicates)+1)
	copy(preds, f.Predicates)
	f.Predicates = append(preds, p)
	return f
}

// Category restricts to an exact category. An empty value is ignored.
func (f Filter) Category(category string) Filter {
	if category == "" {
		return f
	}
	return f.with(Predicate{Field: FieldCategory, Op: OpEq, Value: category})
}

// From keeps expenses dated on or after date. An empty value is ignored.
func (f Filter) From(date string) Filter {
	if date == "" {
		return f
	}
	return f.with(Predicate{Field: FieldDate, Op: OpGte, Value: date})
}

// To keeps expenses dated on or before date. An empty value is ignored.
func (f Filter) To(date string) Filter {
	if date == "" {
		return f
	}
	return f.with(Predicate{Field: FieldDate, Op: OpLte, Value: date})
}

// Month keeps expenses whose date falls in the YYYY-MM bucket.
func (f Filter) Month(month string) Filter {
	return f.with(Predicate{Field: FieldMonth, Op: OpEq, Value: month})
}

// ExcludeID drops a single expense, used to leave an edited row out of totals.
func (f Filter) ExcludeID(id int64) Filter {
	return f.with(Predicate{Field: FieldID, Op: OpNeq, Value: strconv.FormatInt(id, 10)})
}

// Apply adds every non-empty field of q.
func (f Filter) Apply(q ListQuery) Filter {
	return f.Category(strings.TrimSpace(q.Category)).
		From(strings.TrimSpace(q.FromDate)).
		To(strings.TrimSpace(q.ToDate))
}

// Match evaluates the filter against an expense in memory.
func (f Filter) Match(e Expense) bool {
	if e.UserID != f.UserID {
		return false
	}
	for _, p := range f.Predicates {
		if !p.Match(e) {
			return false
		}
	}
	return true
}

// Match evaluates a single predicate against an expense.
func (p Predicate) Match(e Expense) bool {
	var got string
	switch p.Field {
	case FieldID, FieldUserID:
		want, err := strconv.ParseInt(p.Value, 10, 64)
		if err != nil {
			return false
		}
		if p.Field == FieldID {
			return compareInt(e.ID, p.Op, want)
		}
		return compareInt(e.UserID, p.Op, want)
	case FieldCategory:
		got = e.Category
	case FieldDate:
		got = e.Date.String()
	case FieldMonth:
		got = e.Date.MonthKey()
	default:
		return false
	}
	return compare(got, p.Op, p.Value)
}

func compare(got string, op Op, want string) bool {
	switch op {
	case OpEq:
		return got == want
	case OpNeq:
		return got != want
	case OpGte:
		return got >= want
	case OpLte:
		return got <= want
	}
	return false
}

func compareInt(got int64, op Op, want int64) bool {
	switch op {
	case OpEq:
		return got == want
	case OpNeq:
		return got != want
	case OpGte:
		return got >= want
	case OpLte:
		return got <= want
	}
	return false
}
