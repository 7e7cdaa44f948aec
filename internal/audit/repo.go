package audit

import (
	"context"

	"fellowship/internal/store"
)

// Repository persists audit entries.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes e. A redelivered entry yields store.ErrConflict.
func (r *Repository) Insert(ctx context.Context, e Entry) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, `
		INSERT INTO checkin_audit (id, event_id, kind, subject, outcome, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.EventID, e.Kind, e.Subject, e.Outcome, e.Reason, e.OccurredAt.UTC())
	return store.Translate(err)
}

// ListForEvent returns up to limit entries for an event, newest first.
func (r *Repository) ListForEvent(ctx context.Context, eventID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.db.Conn(ctx).QueryContext(ctx, `
		SELECT id, event_id, kind, subject, outcome, reason, occurred_at
		FROM checkin_audit
		WHERE event_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EventID, &e.Kind, &e.Subject, &e.Outcome, &e.Reason, &e.OccurredAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
