// Package postgres implements storage.Store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expenses/internal/core"
	"expenses/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const expenseColumns = "id, user_id, amount_cents, category, description, date, created_at, updated_at"

type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// Open connects, migrates and returns a ready store.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	version, err := RunMigrations(databaseURL)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "PostgreSQL schema ready", "version", version)
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	u := core.User{Username: username, PasswordHash: passwordHash}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id, created_at`,
		username, passwordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.User{}, core.ErrDuplicateUsername
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "id", u.ID, "username", u.Username)
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return core.User{}, notFound(err, "get user")
	}
	return u, nil
}

func (s *Store) CreateSession(ctx context.Context, sess core.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (token, user_id, username, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		sess.Token, sess.UserID, sess.Username, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (core.Session, error) {
	var sess core.Session
	err := s.pool.QueryRow(ctx,
		`SELECT token, user_id, username, created_at, expires_at FROM sessions WHERE token = $1`,
		token).Scan(&sess.Token, &sess.UserID, &sess.Username, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return core.Session{}, notFound(err, "get session")
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ListExpenses(ctx context.Context, f core.Filter, order core.Order) ([]core.Expense, error) {
	where, args, err := storage.CompileFilter(f, storage.Dollar)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE "+where+" ORDER BY "+storage.OrderClause(order),
		args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (s *Store) SumExpenses(ctx context.Context, f core.Filter) (core.Money, error) {
	where, args, err := storage.CompileFilter(f, storage.Dollar)
	if err != nil {
		return core.Money{}, err
	}
	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COALESCE(SUM(amount_cents), 0)::BIGINT FROM expenses WHERE "+where, args...).Scan(&total); err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: total}, nil
}

func (s *Store) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = $1 AND user_id = $2", id, userID)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, notFound(err, "get expense")
	}
	return e, nil
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO expenses (user_id, amount_cents, category, description, date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+expenseColumns,
		e.UserID, e.Amount.Cents, e.Category, e.Description, e.Date.String())
	created, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense saved to PostgreSQL",
		"id", created.ID,
		"user_id", created.UserID,
		"amount_cents", created.Amount.Cents,
		"category", created.Category,
		"date", created.Date.String())
	return created, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE expenses SET amount_cents = $1, category = $2, description = $3, date = $4, updated_at = now()
		 WHERE id = $5 AND user_id = $6`,
		e.Amount.Cents, e.Category, e.Description, e.Date.String(), e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) SumByCategory(ctx context.Context, userID int64) ([]core.CategoryAmount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category, SUM(amount_cents)::BIGINT FROM expenses WHERE user_id = $1 GROUP BY category ORDER BY category`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("get category sums: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.CategoryAmount, error) {
		var ca core.CategoryAmount
		err := row.Scan(&ca.Name, &ca.Amount.Cents)
		return ca, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan category sums: %w", err)
	}
	return out, nil
}

func (s *Store) SumByMonth(ctx context.Context, userID int64) ([]core.MonthAmount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT substr(date, 1, 7) AS month, SUM(amount_cents)::BIGINT FROM expenses
		 WHERE user_id = $1 GROUP BY month ORDER BY month DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("get month sums: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.MonthAmount, error) {
		var ma core.MonthAmount
		err := row.Scan(&ma.Month, &ma.Amount.Cents)
		return ma, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan month sums: %w", err)
	}
	return out, nil
}

func (s *Store) GetLimit(ctx context.Context, userID int64, category string) (core.CategoryLimit, error) {
	var l core.CategoryLimit
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, category, limit_cents FROM limits WHERE user_id = $1 AND category = $2`,
		userID, category).Scan(&l.ID, &l.UserID, &l.Category, &l.Limit.Cents)
	if err != nil {
		return core.CategoryLimit{}, notFound(err, "get limit")
	}
	return l, nil
}

func (s *Store) UpsertLimit(ctx context.Context, l core.CategoryLimit) (core.CategoryLimit, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO limits (user_id, category, limit_cents) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, category) DO UPDATE SET limit_cents = EXCLUDED.limit_cents
		 RETURNING id`,
		l.UserID, l.Category, l.Limit.Cents).Scan(&l.ID)
	if err != nil {
		return core.CategoryLimit{}, fmt.Errorf("upsert limit: %w", err)
	}
	slog.InfoContext(ctx, "Category limit saved", "user_id", l.UserID, "category", l.Category, "limit_cents", l.Limit.Cents)
	return l, nil
}

func (s *Store) ListLimits(ctx context.Context, userID int64) ([]core.CategoryLimit, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, category, limit_cents FROM limits WHERE user_id = $1 ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("list limits: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.CategoryLimit, error) {
		var l core.CategoryLimit
		err := row.Scan(&l.ID, &l.UserID, &l.Category, &l.Limit.Cents)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan limits: %w", err)
	}
	return out, nil
}

func scanExpense(row pgx.Row) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &e.Description, &date, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has malformed date %q: %w", e.ID, date, err)
	}
	e.Date = d
	return e, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
