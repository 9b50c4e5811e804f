package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"expenses/internal/core"
	"expenses/internal/storage"
)

type LimitService struct {
	limits   storage.LimitStore
	expenses storage.ExpenseStore
}

func NewLimitService(limits storage.LimitStore, expenses storage.ExpenseStore) *LimitService {
	return &LimitService{limits: limits, expenses: expenses}
}

// SetLimit creates or replaces the user's limit for category. Any numeric
// value is stored as given, including zero and negatives.
func (s *LimitService) SetLimit(ctx context.Context, userID int64, category, limitText string) (core.CategoryLimit, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return core.CategoryLimit{}, &core.ValidationError{Field: "category", Err: core.ErrEmptyCategory}
	}
	if utf8.RuneCountInString(category) > core.MaxCategoryLen {
		return core.CategoryLimit{}, &core.ValidationError{Field: "category", Err: core.ErrCategoryTooLong}
	}
	amount, err := core.ParseAmount(limitText)
	if err != nil {
		return core.CategoryLimit{}, &core.ValidationError{Field: "limit", Err: err}
	}

	l, err := s.limits.UpsertLimit(ctx, core.CategoryLimit{UserID: userID, Category: category, Limit: amount})
	if err != nil {
		return core.CategoryLimit{}, fmt.Errorf("set limit: %w", err)
	}
	return l, nil
}

// ListLimits returns the user's limits with the current spend per category.
func (s *LimitService) ListLimits(ctx context.Context, userID int64) ([]core.LimitStatus, error) {
	limits, err := s.limits.ListLimits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list limits: %w", err)
	}
	if len(limits) == 0 {
		return nil, nil
	}

	sums, err := s.expenses.SumByCategory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	spent := make(map[string]core.Money, len(sums))
	for _, ca := range sums {
		spent[ca.Name] = ca.Amount
	}

	out := make([]core.LimitStatus, 0, len(limits))
	for _, l := range limits {
		out = append(out, core.LimitStatus{CategoryLimit: l, Spent: spent[l.Category]})
	}
	return out, nil
}
