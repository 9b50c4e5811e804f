// Package sheets mirrors stored expenses into a spreadsheet, one row per
// expense keyed by its ID.
package sheets

import (
	"context"
	"strconv"

	"expenses/internal/core"
)

// Header is the first row of the mirror sheet.
var Header = []any{"ID", "User", "Date", "Amount", "Category", "Description"}

// Row is one mirrored expense.
type Row struct {
	ID          int64
	UserID      int64
	Date        string
	Amount      core.Money
	Category    string
	Description string
}

// Values renders the row in Header order.
func (r Row) Values() []any {
	return []any{
		strconv.FormatInt(r.ID, 10),
		strconv.FormatInt(r.UserID, 10),
		r.Date,
		r.Amount.String(),
		r.Category,
		r.Description,
	}
}

// Mirror is the outbound port the worker writes to.
type Mirror interface {
	// Append adds a row at the end of the sheet.
	Append(ctx context.Context, row Row) error
	// Update rewrites the row with the same ID, appending when none exists.
	Update(ctx context.Context, row Row) error
	// Clear blanks the row with the given ID. Unknown IDs are not an error.
	Clear(ctx context.Context, id int64) error
}
