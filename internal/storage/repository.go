package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"expenses/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository implements Store on a single SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	u, err := r.queries.CreateUser(ctx, CreateUserParams{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrDuplicateUsername
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "id", u.ID, "username", u.Username)
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		return core.User{}, notFound(err, "get user")
	}
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	err := r.queries.CreateSession(ctx, CreateSessionParams{
		Token:     s.Token,
		UserID:    s.UserID,
		Username:  s.Username,
		CreatedAt: s.CreatedAt.Unix(),
		ExpiresAt: s.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (core.Session, error) {
	s, err := r.queries.GetSession(ctx, token)
	if err != nil {
		return core.Session{}, notFound(err, "get session")
	}
	return core.Session{
		Token:     s.Token,
		UserID:    s.UserID,
		Username:  s.Username,
		CreatedAt: time.Unix(s.CreatedAt, 0),
		ExpiresAt: time.Unix(s.ExpiresAt, 0),
	}, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if err := r.queries.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.queries.DeleteExpiredSessions(ctx, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, f core.Filter, order core.Order) ([]core.Expense, error) {
	where, args, err := CompileFilter(f, QuestionMark)
	if err != nil {
		return nil, err
	}
	query := "SELECT id, user_id, amount_cents, category, description, date, created_at, updated_at FROM expenses WHERE " +
		where + " ORDER BY " + OrderClause(order)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.AmountCents, &e.Category, &e.Description, &e.Date, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		ce, err := toCoreExpense(e)
		if err != nil {
			return nil, err
		}
		out = append(out, ce)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SumExpenses(ctx context.Context, f core.Filter) (core.Money, error) {
	where, args, err := CompileFilter(f, QuestionMark)
	if err != nil {
		return core.Money{}, err
	}
	var total int64
	err = r.db.QueryRowContext(ctx, "SELECT CAST(COALESCE(SUM(amount_cents), 0) AS INTEGER) FROM expenses WHERE "+where, args...).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: total}, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	e, err := r.queries.GetExpense(ctx, GetExpenseParams{ID: id, UserID: userID})
	if err != nil {
		return core.Expense{}, notFound(err, "get expense")
	}
	return toCoreExpense(e)
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := time.Now().Unix()
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		UserID:      e.UserID,
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date.String(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"user_id", row.UserID,
		"amount_cents", row.AmountCents,
		"category", row.Category,
		"date", row.Date)

	return toCoreExpense(row)
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	n, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date.String(),
		UpdatedAt:   time.Now().Unix(),
		ID:          e.ID,
		UserID:      e.UserID,
	})
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) (bool, error) {
	n, err := r.queries.DeleteExpense(ctx, DeleteExpenseParams{ID: id, UserID: userID})
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) SumByCategory(ctx context.Context, userID int64) ([]core.CategoryAmount, error) {
	rows, err := r.queries.GetCategorySums(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get category sums: %w", err)
	}
	out := make([]core.CategoryAmount, 0, len(rows))
	for _, cs := range rows {
		out = append(out, core.CategoryAmount{Name: cs.Category, Amount: core.Money{Cents: cs.TotalAmount}})
	}
	return out, nil
}

func (r *SQLiteRepository) SumByMonth(ctx context.Context, userID int64) ([]core.MonthAmount, error) {
	rows, err := r.queries.GetMonthSums(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get month sums: %w", err)
	}
	out := make([]core.MonthAmount, 0, len(rows))
	for _, ms := range rows {
		out = append(out, core.MonthAmount{Month: ms.Month, Amount: core.Money{Cents: ms.TotalAmount}})
	}
	return out, nil
}

func (r *SQLiteRepository) GetLimit(ctx context.Context, userID int64, category string) (core.CategoryLimit, error) {
	l, err := r.queries.GetLimit(ctx, GetLimitParams{UserID: userID, Category: category})
	if err != nil {
		return core.CategoryLimit{}, notFound(err, "get limit")
	}
	return toCoreLimit(l), nil
}

func (r *SQLiteRepository) UpsertLimit(ctx context.Context, l core.CategoryLimit) (core.CategoryLimit, error) {
	row, err := r.queries.UpsertLimit(ctx, UpsertLimitParams{
		UserID:     l.UserID,
		Category:   l.Category,
		LimitCents: l.Limit.Cents,
	})
	if err != nil {
		return core.CategoryLimit{}, fmt.Errorf("upsert limit: %w", err)
	}
	slog.InfoContext(ctx, "Category limit saved", "user_id", row.UserID, "category", row.Category, "limit_cents", row.LimitCents)
	return toCoreLimit(row), nil
}

func (r *SQLiteRepository) ListLimits(ctx context.Context, userID int64) ([]core.CategoryLimit, error) {
	rows, err := r.queries.ListLimits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list limits: %w", err)
	}
	out := make([]core.CategoryLimit, 0, len(rows))
	for _, l := range rows {
		out = append(out, toCoreLimit(l))
	}
	return out, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func toCoreUser(u User) core.User {
	return core.User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    time.Unix(u.CreatedAt, 0),
	}
}

func toCoreExpense(e Expense) (core.Expense, error) {
	d, err := core.ParseDate(e.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has malformed date %q: %w", e.ID, e.Date, err)
	}
	return core.Expense{
		ID:          e.ID,
		UserID:      e.UserID,
		Amount:      core.Money{Cents: e.AmountCents},
		Category:    e.Category,
		Description: e.Description,
		Date:        d,
		CreatedAt:   time.Unix(e.CreatedAt, 0),
		UpdatedAt:   time.Unix(e.UpdatedAt, 0),
	}, nil
}

func toCoreLimit(l Limit) core.CategoryLimit {
	return core.CategoryLimit{
		ID:       l.ID,
		UserID:   l.UserID,
		Category: l.Category,
		Limit:    core.Money{Cents: l.LimitCents},
	}
}
