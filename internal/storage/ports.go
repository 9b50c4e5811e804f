package storage

import (
	"context"
	"time"

	"expenses/internal/core"
)

// Ports implemented by every persistence backend.
type (
	UserStore interface {
		// CreateUser fails with core.ErrDuplicateUsername when the name is taken.
		CreateUser(ctx context.Context, username, passwordHash string) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
	}

	SessionStore interface {
		CreateSession(ctx context.Context, s core.Session) error
		GetSession(ctx context.Context, token string) (core.Session, error)
		DeleteSession(ctx context.Context, token string) error
		DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	}

	ExpenseStore interface {
		ListExpenses(ctx context.Context, f core.Filter, order core.Order) ([]core.Expense, error)
		// SumExpenses returns zero, not an error, when nothing matches.
		SumExpenses(ctx context.Context, f core.Filter) (core.Money, error)
		// GetExpense returns core.ErrNotFound when the id is absent or owned by someone else.
		GetExpense(ctx context.Context, userID, id int64) (core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		// DeleteExpense reports whether a row owned by userID was removed.
		DeleteExpense(ctx context.Context, userID, id int64) (bool, error)
		SumByCategory(ctx context.Context, userID int64) ([]core.CategoryAmount, error)
		SumByMonth(ctx context.Context, userID int64) ([]core.MonthAmount, error)
	}

	LimitStore interface {
		// GetLimit returns core.ErrNotFound when no limit is configured.
		GetLimit(ctx context.Context, userID int64, category string) (core.CategoryLimit, error)
		UpsertLimit(ctx context.Context, l core.CategoryLimit) (core.CategoryLimit, error)
		ListLimits(ctx context.Context, userID int64) ([]core.CategoryLimit, error)
	}

	Store interface {
		UserStore
		SessionStore
		ExpenseStore
		LimitStore
		Ping(ctx context.Context) error
		Close() error
	}
)
