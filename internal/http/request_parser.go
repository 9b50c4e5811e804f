package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"expenses/internal/core"
	"expenses/internal/services"
)

// parseExpenseForm reads the add/edit form fields.
func parseExpenseForm(r *http.Request) services.ExpenseInput {
	return services.ExpenseInput{
		Amount:      strings.TrimSpace(r.PostFormValue("amount")),
		Category:    sanitizeInput(r.PostFormValue("category")),
		Description: sanitizeInput(r.PostFormValue("description")),
		Date:        strings.TrimSpace(r.PostFormValue("date")),
	}
}

// inputFromExpense pre-fills the edit form with stored values.
func inputFromExpense(e core.Expense) services.ExpenseInput {
	return services.ExpenseInput{
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date.String(),
	}
}

// defaultExpenseInput is the empty add form, dated today.
func defaultExpenseInput(now time.Time) services.ExpenseInput {
	return services.ExpenseInput{Date: now.Format(core.DateLayout)}
}

// parseListQuery reads the listing filters from the query string. Empty
// values mean no filter.
func parseListQuery(r *http.Request) core.ListQuery {
	q := r.URL.Query()
	return core.ListQuery{
		Category: sanitizeInput(q.Get("category")),
		FromDate: strings.TrimSpace(q.Get("from_date")),
		ToDate:   strings.TrimSpace(q.Get("to_date")),
	}
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sanitizeInput trims and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
