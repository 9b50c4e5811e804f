package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/storage"
)

// ExpenseRepository is the slice of storage the expense service needs.
type ExpenseRepository interface {
	storage.ExpenseStore
	storage.LimitStore
}

// ExpenseInput is the raw form submission for add and edit.
type ExpenseInput struct {
	Amount      string
	Category    string
	Description string
	Date        string
}

const summaryCacheSize = 1024

// ExpenseService owns expense CRUD, aggregation and limit enforcement.
type ExpenseService struct {
	repo   ExpenseRepository
	events EventPublisher
	locks  *keyedMutex

	byCategory *cache.Loading[[]core.CategoryAmount]
	byMonth    *cache.Loading[[]core.MonthAmount]
}

// NewExpenseService wires the service. events may be nil; summaryTTL <= 0
// disables summary caching.
func NewExpenseService(repo ExpenseRepository, events EventPublisher, summaryTTL time.Duration) *ExpenseService {
	return &ExpenseService{
		repo:       repo,
		events:     events,
		locks:      newKeyedMutex(),
		byCategory: cache.NewLoading[[]core.CategoryAmount](summaryCacheSize, summaryTTL),
		byMonth:    cache.NewLoading[[]core.MonthAmount](summaryCacheSize, summaryTTL),
	}
}

// Caches exposes the summary caches for periodic cleanup.
func (s *ExpenseService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.byCategory, s.byMonth}
}

// CacheStats sums hits and misses over both summary caches.
func (s *ExpenseService) CacheStats() (hits, misses int64) {
	h1, m1 := s.byCategory.Stats()
	h2, m2 := s.byMonth.Stats()
	return h1 + h2, m1 + m2
}

// List returns the user's expenses matching q, newest first, with their total.
func (s *ExpenseService) List(ctx context.Context, userID int64, q core.ListQuery) (core.Listing, error) {
	expenses, err := s.repo.ListExpenses(ctx, core.NewFilter(userID).Apply(q), core.DateDesc)
	if err != nil {
		return core.Listing{}, fmt.Errorf("list expenses: %w", err)
	}
	return core.Listing{Expenses: expenses, Total: core.Total(expenses)}, nil
}

// Get returns an expense owned by userID, or core.ErrNotFound.
func (s *ExpenseService) Get(ctx context.Context, userID, id int64) (core.Expense, error) {
	return s.repo.GetExpense(ctx, userID, id)
}

// Create validates and stores a new expense. Events go out after the
// category lock is released.
func (s *ExpenseService) Create(ctx context.Context, userID int64, in ExpenseInput) (core.Expense, error) {
	e, err := in.toExpense(userID)
	if err != nil {
		return core.Expense{}, err
	}

	created, err := s.createLocked(ctx, e)
	if err != nil {
		s.publishRejection(ctx, e, err)
		return core.Expense{}, err
	}
	publish(ctx, s.events, amqp.NewExpenseEvent(amqp.EventExpenseCreated, created))
	return created, nil
}

func (s *ExpenseService) createLocked(ctx context.Context, e core.Expense) (core.Expense, error) {
	unlock := s.locks.Lock(lockKey(e.UserID, e.Category))
	defer unlock()

	if err := s.checkLimit(ctx, core.NewFilter(e.UserID).Category(e.Category), e); err != nil {
		return core.Expense{}, err
	}

	created, err := s.repo.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.invalidate(e.UserID)
	return created, nil
}

// Update replaces an owned expense. Ownership is checked before the input.
func (s *ExpenseService) Update(ctx context.Context, userID, id int64, in ExpenseInput) (core.Expense, error) {
	existing, err := s.repo.GetExpense(ctx, userID, id)
	if err != nil {
		return core.Expense{}, err
	}

	e, err := in.toExpense(userID)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = existing.ID
	e.CreatedAt = existing.CreatedAt

	if err := s.updateLocked(ctx, e); err != nil {
		s.publishRejection(ctx, e, err)
		return core.Expense{}, err
	}
	publish(ctx, s.events, amqp.NewExpenseEvent(amqp.EventExpenseUpdated, e))
	return e, nil
}

func (s *ExpenseService) updateLocked(ctx context.Context, e core.Expense) error {
	unlock := s.locks.Lock(lockKey(e.UserID, e.Category))
	defer unlock()

	// The row being edited must not count against its own limit.
	if err := s.checkLimit(ctx, core.NewFilter(e.UserID).Category(e.Category).ExcludeID(e.ID), e); err != nil {
		return err
	}

	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update expense: %w", err)
	}
	s.invalidate(e.UserID)
	return nil
}

// Delete removes an owned expense. Absent or foreign ids are ignored.
func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	existing, err := s.repo.GetExpense(ctx, userID, id)
	if errors.Is(err, core.ErrNotFound) {
		slog.DebugContext(ctx, "Delete ignored, expense not owned or absent", "user_id", userID, "expense_id", id)
		return nil
	}
	if err != nil {
		return err
	}

	removed, err := s.repo.DeleteExpense(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if !removed {
		return nil
	}
	s.invalidate(userID)

	publish(ctx, s.events, amqp.NewExpenseEvent(amqp.EventExpenseDeleted, existing))
	return nil
}

// CategorySummary returns one row per category with spending, ordered by name.
func (s *ExpenseService) CategorySummary(ctx context.Context, userID int64) ([]core.CategoryAmount, error) {
	return s.byCategory.Get(ctx, summaryKey(userID, "category"), func(ctx context.Context) ([]core.CategoryAmount, error) {
		return s.repo.SumByCategory(ctx, userID)
	})
}

// MonthlySummary returns one row per YYYY-MM with spending, newest first.
func (s *ExpenseService) MonthlySummary(ctx context.Context, userID int64) ([]core.MonthAmount, error) {
	return s.byMonth.Get(ctx, summaryKey(userID, "month"), func(ctx context.Context) ([]core.MonthAmount, error) {
		return s.repo.SumByMonth(ctx, userID)
	})
}

// ExportMonth returns the user's expenses in month (YYYY-MM), oldest first.
func (s *ExpenseService) ExportMonth(ctx context.Context, userID int64, month string) ([]core.Expense, error) {
	if err := core.ValidateMonth(month); err != nil {
		return nil, &core.ValidationError{Field: "month", Err: err}
	}
	expenses, err := s.repo.ListExpenses(ctx, core.NewFilter(userID).Month(month), core.DateAsc)
	if err != nil {
		return nil, fmt.Errorf("export month: %w", err)
	}
	return expenses, nil
}

// checkLimit rejects e when the category total selected by f plus e.Amount
// would exceed the configured limit. No limit means no check.
func (s *ExpenseService) checkLimit(ctx context.Context, f core.Filter, e core.Expense) error {
	limit, err := s.repo.GetLimit(ctx, e.UserID, e.Category)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get limit: %w", err)
	}

	current, err := s.repo.SumExpenses(ctx, f)
	if err != nil {
		return fmt.Errorf("sum category: %w", err)
	}

	if current.Add(e.Amount).Cents > limit.Limit.Cents {
		slog.InfoContext(ctx, "Expense rejected by category limit",
			"user_id", e.UserID,
			"category", e.Category,
			"current_cents", current.Cents,
			"amount_cents", e.Amount.Cents,
			"limit_cents", limit.Limit.Cents)
		return &core.LimitExceededError{Category: e.Category, Limit: limit.Limit}
	}
	return nil
}

// publishRejection announces a limit rejection. Call it after the category
// lock is released.
func (s *ExpenseService) publishRejection(ctx context.Context, e core.Expense, err error) {
	var le *core.LimitExceededError
	if errors.As(err, &le) {
		publish(ctx, s.events, amqp.NewLimitExceededEvent(e, le.Limit))
	}
}

func (s *ExpenseService) invalidate(userID int64) {
	prefix := summaryKey(userID, "")
	s.byCategory.Invalidate(prefix)
	s.byMonth.Invalidate(prefix)
}

func (in ExpenseInput) toExpense(userID int64) (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.Expense{}, &core.ValidationError{Field: "amount", Err: err}
	}
	date, err := core.ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return core.Expense{}, &core.ValidationError{Field: "date", Err: err}
	}
	e := core.Expense{
		UserID:      userID,
		Amount:      core.Money{Cents: cents},
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Date:        date,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func lockKey(userID int64, category string) string {
	return strconv.FormatInt(userID, 10) + "\x00" + category
}

func summaryKey(userID int64, kind string) string {
	return "u:" + strconv.FormatInt(userID, 10) + ":" + kind
}
