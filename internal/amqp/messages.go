package amqp

import (
	"encoding/json"
	"time"

	"expenses/internal/core"
)

// Event types carried by ExpenseEvent.
const (
	EventExpenseCreated = "expense.created"
	EventExpenseUpdated = "expense.updated"
	EventExpenseDeleted = "expense.deleted"
	EventLimitExceeded  = "limit.exceeded"
)

// ExpenseEvent describes a change to (or a rejected attempt at) a user's
// expenses. It carries the full row so consumers never read the database.
type ExpenseEvent struct {
	Type        string    `json:"type"`
	UserID      int64     `json:"user_id"`
	ExpenseID   int64     `json:"expense_id,omitempty"`
	Date        string    `json:"date,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	LimitCents  int64     `json:"limit_cents,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseEvent builds a created/updated/deleted event from a stored expense.
func NewExpenseEvent(eventType string, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:        eventType,
		UserID:      e.UserID,
		ExpenseID:   e.ID,
		Date:        e.Date.String(),
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		Description: e.Description,
		Timestamp:   time.Now(),
	}
}

// NewLimitExceededEvent records an expense that was refused by a category limit.
func NewLimitExceededEvent(e core.Expense, limit core.Money) *ExpenseEvent {
	ev := NewExpenseEvent(EventLimitExceeded, e)
	ev.LimitCents = limit.Cents
	return ev
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
