package audit

import (
	"context"
	"errors"
	"log/slog"

	"fellowship/internal/queue"
	"fellowship/internal/store"
)

// Sink stores decoded entries.
type Sink interface {
	Insert(ctx context.Context, e Entry) error
}

// Consumer drains admission messages into a Sink.
type Consumer struct {
	sink   Sink
	logger *slog.Logger
}

// NewConsumer constructs a Consumer.
func NewConsumer(sink Sink, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{sink: sink, logger: logger}
}

// Run processes messages until ch closes or ctx is done. Malformed and
// duplicate messages are skipped; a failed insert is logged and the message
// dropped.
func (c *Consumer) Run(ctx context.Context, ch <-chan queue.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg queue.Message) {
	if msg.Type != MessageType {
		c.logger.WarnContext(ctx, "skipping unknown message type", "type", msg.Type)
		return
	}
	var e Entry
	if err := msg.Decode(&e); err != nil {
		c.logger.WarnContext(ctx, "skipping malformed audit entry", "error", err)
		return
	}
	err := c.sink.Insert(ctx, e)
	switch {
	case err == nil:
		c.logger.DebugContext(ctx, "audit entry stored", "id", e.ID, "event_id", e.EventID, "outcome", e.Outcome)
	case errors.Is(err, store.ErrConflict):
		c.logger.DebugContext(ctx, "audit entry already stored", "id", e.ID)
	default:
		c.logger.ErrorContext(ctx, "store audit entry failed", "id", e.ID, "error", err)
	}
}
