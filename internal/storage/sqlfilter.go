package storage

import (
	"fmt"
	"strconv"
	"strings"

	"expenses/internal/core"
)

// Placeholder renders the n-th (1-based) bind parameter for a SQL dialect.
type Placeholder func(n int) string

// QuestionMark is the SQLite placeholder style.
func QuestionMark(int) string { return "?" }

// Dollar is the PostgreSQL placeholder style.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// filterColumns whitelists the SQL expression behind each filter field.
var filterColumns = map[core.Field]string{
	core.FieldID:       "id",
	core.FieldUserID:   "user_id",
	core.FieldCategory: "category",
	core.FieldDate:     "date",
	core.FieldMonth:    "substr(date, 1, 7)",
}

var filterOps = map[core.Op]string{
	core.OpEq:  "=",
	core.OpNeq: "<>",
	core.OpGte: ">=",
	core.OpLte: "<=",
}

// CompileFilter turns a filter into a WHERE clause (without the keyword) and
// its bind arguments. The owner condition always comes first.
func CompileFilter(f core.Filter, ph Placeholder) (string, []any, error) {
	args := []any{f.UserID}
	conds := []string{"user_id = " + ph(1)}
	for _, p := range f.Predicates {
		col, ok := filterColumns[p.Field]
		if !ok {
			return "", nil, fmt.Errorf("unsupported filter field %q", p.Field)
		}
		op, ok := filterOps[p.Op]
		if !ok {
			return "", nil, fmt.Errorf("unsupported filter operator %q", p.Op)
		}
		var arg any = p.Value
		if p.Field == core.FieldID || p.Field == core.FieldUserID {
			id, err := parseID(p.Value)
			if err != nil {
				return "", nil, fmt.Errorf("filter %s: %w", p.Field, err)
			}
			arg = id
		}
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf("%s %s %s", col, op, ph(len(args))))
	}
	return strings.Join(conds, " AND "), args, nil
}

// OrderClause returns the ORDER BY expression for a listing order.
func OrderClause(order core.Order) string {
	if order == core.DateAsc {
		return "date ASC, id ASC"
	}
	return "date DESC, id DESC"
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
