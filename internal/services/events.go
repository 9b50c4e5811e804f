package services

import (
	"context"
	"log/slog"

	"expenses/internal/amqp"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// publish never fails the caller; the change is already stored.
func publish(ctx context.Context, p EventPublisher, ev *amqp.ExpenseEvent) {
	if p == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping event", "type", ev.Type)
		return
	}
	if err := p.PublishEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"type", ev.Type,
			"expense_id", ev.ExpenseID,
			"error", err)
	}
}
