package events

import (
	"context"
	"fmt"
	"strings"

	"fellowship/internal/store"
)

const eventColumns = `id, name, event_date, start_time, end_time, event_type, venue, is_recurring, recurrence_rule, is_active, allow_guest_checkin, created_at`

// Repository persists events.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new event.
func (r *Repository) Insert(ctx context.Context, e *Event) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, e.ID, e.Name, e.Date, e.StartTime, e.EndTime, e.Type, e.Venue, e.IsRecurring, e.RecurrenceRule,
		e.IsActive, e.AllowGuestCheckin, e.CreatedAt)
	return store.Translate(err)
}

// Update overwrites the mutable fields of an existing event.
func (r *Repository) Update(ctx context.Context, e *Event) error {
	res, err := r.db.Conn(ctx).ExecContext(ctx, `
		UPDATE events
		SET name = $1, event_date = $2, start_time = $3, end_time = $4, event_type = $5, venue = $6,
			is_recurring = $7, recurrence_rule = $8, is_active = $9, allow_guest_checkin = $10
		WHERE id = $11
	`, e.Name, e.Date, e.StartTime, e.EndTime, e.Type, e.Venue, e.IsRecurring, e.RecurrenceRule,
		e.IsActive, e.AllowGuestCheckin, e.ID)
	if err != nil {
		return store.Translate(err)
	}
	return requireAffected(res)
}

// Delete removes an event row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Get returns a single event by id.
func (r *Repository) Get(ctx context.Context, id string) (*Event, error) {
	e, err := scanEvent(r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		return nil, store.Translate(err)
	}
	return e, nil
}

// FirstActive returns the earliest-dated event whose active flag is set.
func (r *Repository) FirstActive(ctx context.Context) (*Event, error) {
	e, err := scanEvent(r.db.Conn(ctx).QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE is_active = $1
		ORDER BY event_date, start_time
		LIMIT 1
	`, true))
	if err != nil {
		return nil, store.Translate(err)
	}
	return e, nil
}

// PreviousOfType returns the most recent event of the given type dated
// strictly before the given date.
func (r *Repository) PreviousOfType(ctx context.Context, eventType string, before Date) (*Event, error) {
	e, err := scanEvent(r.db.Conn(ctx).QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE event_type = $1 AND event_date < $2
		ORDER BY event_date DESC, start_time DESC
		LIMIT 1
	`, eventType, before))
	if err != nil {
		return nil, store.Translate(err)
	}
	return e, nil
}

// Recent returns up to limit events, most recently dated first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Event, error) {
	return r.query(ctx, `
		SELECT `+eventColumns+` FROM events
		ORDER BY event_date DESC, start_time DESC
		LIMIT $1
	`, limit)
}

// List returns events matching f. Results are ordered by date, newest first
// unless ascending is set.
func (r *Repository) List(ctx context.Context, f Filter, ascending bool) ([]Event, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.Active != nil {
		add("is_active = $%d", *f.Active)
	}
	if f.Type != "" {
		add("event_type = $%d", f.Type)
	}
	if !f.From.IsZero() {
		add("event_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("event_date <= $%d", f.To)
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if ascending {
		query += " ORDER BY event_date, start_time"
	} else {
		query += " ORDER BY event_date DESC, start_time DESC"
	}
	return r.query(ctx, query, args...)
}

// Count returns the number of events.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// HasAttendance reports whether any member or guest attendance references id.
func (r *Repository) HasAttendance(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.Conn(ctx).QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM attendances WHERE event_id = $1)
			+ (SELECT COUNT(*) FROM guest_attendances WHERE event_id = $1)
			+ (SELECT COUNT(*) FROM transport_bookings WHERE event_id = $1)
	`, id).Scan(&n)
	return n > 0, err
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *e)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var e Event
	if err := row.Scan(&e.ID, &e.Name, &e.Date, &e.StartTime, &e.EndTime, &e.Type, &e.Venue,
		&e.IsRecurring, &e.RecurrenceRule, &e.IsActive, &e.AllowGuestCheckin, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func requireAffected(res rowsAffecter) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
