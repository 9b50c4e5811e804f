package core

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthAmount represents an amount aggregated by YYYY-MM bucket.
type MonthAmount struct {
	Month  string
	Amount Money
}

// Listing is a filtered set of expenses plus the sum of their amounts.
type Listing struct {
	Expenses []Expense
	Total    Money
}

// LimitStatus pairs a configured limit with the category's current spend.
type LimitStatus struct {
	CategoryLimit
	Spent Money
}

// Remaining is the headroom left under the limit; negative when already over.
func (l LimitStatus) Remaining() Money {
	return Money{Cents: l.Limit.Cents - l.Spent.Cents}
}

// CSVHeader is the first line of a month export.
const CSVHeader = "Date,Amount,Category,Description"

// WriteExpensesCSV writes the export format: a header line followed by one
// comma-joined line per expense. Fields are not quoted or escaped, so commas
// inside category or description shift columns for CSV readers.
func WriteExpensesCSV(w io.Writer, expenses []Expense) error {
	if _, err := io.WriteString(w, CSVHeader+"\n"); err != nil {
		return err
	}
	for _, e := range expenses {
		line := strings.Join([]string{e.Date.String(), e.Amount.String(), e.Category, e.Description}, ",")
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// SumByCategory aggregates expenses into one row per category, sorted by name.
func SumByCategory(expenses []Expense) []CategoryAmount {
	totals := map[string]int64{}
	for _, e := range expenses {
		totals[e.Category] += e.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(totals))
	for name, cents := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SumByMonth aggregates expenses into YYYY-MM buckets, newest month first.
func SumByMonth(expenses []Expense) []MonthAmount {
	totals := map[string]int64{}
	for _, e := range expenses {
		totals[e.Date.MonthKey()] += e.Amount.Cents
	}
	out := make([]MonthAmount, 0, len(totals))
	for month, cents := range totals {
		out = append(out, MonthAmount{Month: month, Amount: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// Total sums the amounts of expenses.
func Total(expenses []Expense) Money {
	var m Money
	for _, e := range expenses {
		m = m.Add(e.Amount)
	}
	return m
}
