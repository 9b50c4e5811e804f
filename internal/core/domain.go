package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the storage and wire format of expense dates. Dates in this
// format sort lexicographically in calendar order.
const DateLayout = "2006-01-02"

// MonthLayout is the year-month bucket format used by summaries and exports.
const MonthLayout = "2006-01"

// Field limits, counted in characters.
const (
	MaxCategoryLen    = 64
	MaxDescriptionLen = 200
)

type (
	Date struct {
		time.Time
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}

	Expense struct {
		ID          int64
		UserID      int64
		Amount      Money
		Category    string
		Description string
		Date        Date
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// CategoryLimit is a per-user spending ceiling for one category.
	CategoryLimit struct {
		ID       int64
		UserID   int64
		Category string
		Limit    Money
	}

	Session struct {
		Token     string
		UserID    int64
		Username  string
		CreatedAt time.Time
		ExpiresAt time.Time
	}
)

var (
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidDate      = errors.New("expected YYYY-MM-DD")
	ErrInvalidMonth     = errors.New("expected YYYY-MM")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrEmptyUsername    = errors.New("empty username")
	ErrEmptyPassword    = errors.New("empty password")
	ErrUsernameTooLong  = errors.New("username too long (max 64 characters)")
	ErrCategoryTooLong  = errors.New("category too long (max 64 characters)")
	ErrMissingExpenseID = errors.New("missing expense id")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey truncates the date to its year-month bucket ("2024-01").
func (d Date) MonthKey() string {
	return MonthKeyOf(d.String())
}

// MonthKeyOf returns the first seven characters of an ISO date string.
func MonthKeyOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// ValidateMonth checks a YYYY-MM bucket key.
func ValidateMonth(month string) error {
	if _, err := time.Parse(MonthLayout, month); err != nil || len(month) != 7 {
		return ErrInvalidMonth
	}
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Validate checks the user-editable fields of an expense.
func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	if strings.TrimSpace(e.Category) == "" {
		return &ValidationError{Field: "category", Err: ErrEmptyCategory}
	}
	if utf8.RuneCountInString(e.Category) > MaxCategoryLen {
		return &ValidationError{Field: "category", Err: ErrCategoryTooLong}
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLen {
		return &ValidationError{Field: "description", Err: ErrDescriptionLong}
	}
	if err := e.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	return nil
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
