// Package audit keeps a durable trail of admission decisions. Entries travel
// over the queue and are persisted by a Consumer, so recording one never
// blocks or fails a check-in.
package audit

import (
	"context"
	"fmt"
	"time"

	"fellowship/internal/queue"
)

// MessageType tags admission entries on the queue.
const MessageType = "admission"

// Kinds of admission.
const (
	KindMember = "member"
	KindGuest  = "guest"
)

// Entry is one admission decision.
type Entry struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Kind       string    `json:"kind"`
	Subject    string    `json:"subject"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher pushes entries onto a queue.
type Publisher struct {
	q queue.Queue
}

// NewPublisher wraps q.
func NewPublisher(q queue.Queue) *Publisher {
	return &Publisher{q: q}
}

// Record enqueues e.
func (p *Publisher) Record(ctx context.Context, e Entry) error {
	msg, err := queue.NewMessage(MessageType, e)
	if err != nil {
		return err
	}
	if err := p.q.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish audit entry: %w", err)
	}
	return nil
}
