package services

import (
	"context"
	"errors"
	"testing"

	"expenses/internal/core"
	"expenses/internal/storage/memory"
)

func TestLimitService_SetLimit(t *testing.T) {
	store := memory.New()
	s := NewLimitService(store, store)
	ctx := context.Background()

	tests := []struct {
		name     string
		category string
		limit    string
		want     int64
		field    string
	}{
		{"plain", "food", "100", 10000, ""},
		{"decimal comma", "travel", "12,5", 1250, ""},
		{"zero allowed", "misc", "0", 0, ""},
		{"negative allowed", "gifts", "-10", -1000, ""},
		{"non-numeric", "food", "lots", 0, "limit"},
		{"empty category", "  ", "10", 0, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := s.SetLimit(ctx, 1, tt.category, tt.limit)
			if tt.field != "" {
				var ve *core.ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.field {
					t.Fatalf("err = %v, want validation error on %s", err, tt.field)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetLimit: %v", err)
			}
			if l.Limit.Cents != tt.want {
				t.Errorf("limit = %d, want %d", l.Limit.Cents, tt.want)
			}
		})
	}
}

func TestLimitService_UpsertKeepsOneRow(t *testing.T) {
	store := memory.New()
	s := NewLimitService(store, store)
	ctx := context.Background()

	s.SetLimit(ctx, 1, "food", "100")
	s.SetLimit(ctx, 1, "food", "50")

	list, err := s.ListLimits(ctx, 1)
	if err != nil {
		t.Fatalf("ListLimits: %v", err)
	}
	if len(list) != 1 || list[0].Limit.Cents != 5000 {
		t.Fatalf("limits = %+v", list)
	}
}

func TestLimitService_ListLimitsWithSpend(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	limits := NewLimitService(store, store)
	expenses := NewExpenseService(store, nil, 0)

	limits.SetLimit(ctx, 1, "food", "100")
	limits.SetLimit(ctx, 1, "rent", "1000")
	limits.SetLimit(ctx, 2, "food", "1")
	mustCreate(t, expenses, 1, "30", "food", "2024-01-01")
	mustCreate(t, expenses, 1, "5", "food", "2024-02-01")

	list, err := limits.ListLimits(ctx, 1)
	if err != nil {
		t.Fatalf("ListLimits: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("limits = %+v", list)
	}
	food, rent := list[0], list[1]
	if food.Category != "food" || food.Spent.Cents != 3500 || food.Remaining().Cents != 6500 {
		t.Errorf("food = %+v", food)
	}
	if rent.Category != "rent" || rent.Spent.Cents != 0 {
		t.Errorf("rent = %+v", rent)
	}

	none, err := limits.ListLimits(ctx, 3)
	if err != nil || len(none) != 0 {
		t.Errorf("user without limits: %+v %v", none, err)
	}
}
