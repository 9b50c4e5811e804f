package storage

import (
	"context"
)

const createUser = `-- name: CreateUser :one
INSERT INTO users (username, password_hash, created_at)
VALUES (?, ?, ?)
RETURNING id, username, password_hash, created_at
`

type CreateUserParams struct {
	Username     string
	PasswordHash string
	CreatedAt    int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Username, arg.PasswordHash, arg.CreatedAt)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const getUserByUsername = `-- name: GetUserByUsername :one
SELECT id, username, password_hash, created_at FROM users
WHERE username = ?
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const createSession = `-- name: CreateSession :exec
INSERT INTO sessions (token, user_id, username, created_at, expires_at)
VALUES (?, ?, ?, ?, ?)
`

type CreateSessionParams struct {
	Token     string
	UserID    int64
	Username  string
	CreatedAt int64
	ExpiresAt int64
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) error {
	_, err := q.db.ExecContext(ctx, createSession,
		arg.Token,
		arg.UserID,
		arg.Username,
		arg.CreatedAt,
		arg.ExpiresAt,
	)
	return err
}

const getSession = `-- name: GetSession :one
SELECT token, user_id, username, created_at, expires_at FROM sessions
WHERE token = ?
`

func (q *Queries) GetSession(ctx context.Context, token string) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, token)
	var i Session
	err := row.Scan(&i.Token, &i.UserID, &i.Username, &i.CreatedAt, &i.ExpiresAt)
	return i, err
}

const deleteSession = `-- name: DeleteSession :exec
DELETE FROM sessions WHERE token = ?
`

func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, token)
	return err
}

const deleteExpiredSessions = `-- name: DeleteExpiredSessions :execrows
DELETE FROM sessions WHERE expires_at <= ?
`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getExpense = `-- name: GetExpense :one
SELECT id, user_id, amount_cents, category, description, date, created_at, updated_at FROM expenses
WHERE id = ? AND user_id = ?
`

type GetExpenseParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) GetExpense(ctx context.Context, arg GetExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, getExpense, arg.ID, arg.UserID)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.AmountCents,
		&i.Category,
		&i.Description,
		&i.Date,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createExpense = `-- name: CreateExpense :one
INSERT INTO expenses (user_id, amount_cents, category, description, date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, user_id, amount_cents, category, description, date, created_at, updated_at
`

type CreateExpenseParams struct {
	UserID      int64
	AmountCents int64
	Category    string
	Description string
	Date        string
	CreatedAt   int64
	UpdatedAt   int64
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.UserID,
		arg.AmountCents,
		arg.Category,
		arg.Description,
		arg.Date,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.AmountCents,
		&i.Category,
		&i.Description,
		&i.Date,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateExpense = `-- name: UpdateExpense :execrows
UPDATE expenses
SET amount_cents = ?, category = ?, description = ?, date = ?, updated_at = ?
WHERE id = ? AND user_id = ?
`

type UpdateExpenseParams struct {
	AmountCents int64
	Category    string
	Description string
	Date        string
	UpdatedAt   int64
	ID          int64
	UserID      int64
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateExpense,
		arg.AmountCents,
		arg.Category,
		arg.Description,
		arg.Date,
		arg.UpdatedAt,
		arg.ID,
		arg.UserID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpense = `-- name: DeleteExpense :execrows
DELETE FROM expenses WHERE id = ? AND user_id = ?
`

type DeleteExpenseParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) DeleteExpense(ctx context.Context, arg DeleteExpenseParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getCategorySums = `-- name: GetCategorySums :many
SELECT category, CAST(SUM(amount_cents) AS INTEGER) AS total_amount
FROM expenses
WHERE user_id = ?
GROUP BY category
ORDER BY category
`

type GetCategorySumsRow struct {
	Category    string
	TotalAmount int64
}

func (q *Queries) GetCategorySums(ctx context.Context, userID int64) ([]GetCategorySumsRow, error) {
	rows, err := q.db.QueryContext(ctx, getCategorySums, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetCategorySumsRow
	for rows.Next() {
		var i GetCategorySumsRow
		if err := rows.Scan(&i.Category, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMonthSums = `-- name: GetMonthSums :many
SELECT substr(date, 1, 7) AS month, CAST(SUM(amount_cents) AS INTEGER) AS total_amount
FROM expenses
WHERE user_id = ?
GROUP BY month
ORDER BY month DESC
`

type GetMonthSumsRow struct {
	Month       string
	TotalAmount int64
}

func (q *Queries) GetMonthSums(ctx context.Context, userID int64) ([]GetMonthSumsRow, error) {
	rows, err := q.db.QueryContext(ctx, getMonthSums, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetMonthSumsRow
	for rows.Next() {
		var i GetMonthSumsRow
		if err := rows.Scan(&i.Month, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getLimit = `-- name: GetLimit :one
SELECT id, user_id, category, limit_cents FROM limits
WHERE user_id = ? AND category = ?
`

type GetLimitParams struct {
	UserID   int64
	Category string
}

func (q *Queries) GetLimit(ctx context.Context, arg GetLimitParams) (Limit, error) {
	row := q.db.QueryRowContext(ctx, getLimit, arg.UserID, arg.Category)
	var i Limit
	err := row.Scan(&i.ID, &i.UserID, &i.Category, &i.LimitCents)
	return i, err
}

const upsertLimit = `-- name: UpsertLimit :one
INSERT INTO limits (user_id, category, limit_cents)
VALUES (?, ?, ?)
ON CONFLICT (user_id, category) DO UPDATE SET limit_cents = excluded.limit_cents
RETURNING id, user_id, category, limit_cents
`

type UpsertLimitParams struct {
	UserID     int64
	Category   string
	LimitCents int64
}

func (q *Queries) UpsertLimit(ctx context.Context, arg UpsertLimitParams) (Limit, error) {
	row := q.db.QueryRowContext(ctx, upsertLimit, arg.UserID, arg.Category, arg.LimitCents)
	var i Limit
	err := row.Scan(&i.ID, &i.UserID, &i.Category, &i.LimitCents)
	return i, err
}

const listLimits = `-- name: ListLimits :many
SELECT id, user_id, category, limit_cents FROM limits
WHERE user_id = ?
ORDER BY category
`

func (q *Queries) ListLimits(ctx context.Context, userID int64) ([]Limit, error) {
	rows, err := q.db.QueryContext(ctx, listLimits, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Limit
	for rows.Next() {
		var i Limit
		if err := rows.Scan(&i.ID, &i.UserID, &i.Category, &i.LimitCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
