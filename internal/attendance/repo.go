package attendance

import (
	"context"
	"database/sql"
	"strconv"

	"fellowship/internal/events"
	"fellowship/internal/store"
)

// Repository is the attendance ledger. The (member_id, event_id) UNIQUE
// constraint is the authoritative at-most-once guarantee.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// Create appends a member attendance. A second row for the same member and
// event yields store.ErrConflict.
func (r *Repository) Create(ctx context.Context, a *Attendance) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, `
		INSERT INTO attendances (id, member_id, event_id, method, checked_in_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.MemberID, a.EventID, a.Method, a.CheckedInAt)
	return store.Translate(err)
}

// FindByMemberAndEvent returns the attendance of a member at an event.
func (r *Repository) FindByMemberAndEvent(ctx context.Context, memberID, eventID string) (*Attendance, error) {
	var a Attendance
	err := r.db.Conn(ctx).QueryRowContext(ctx, `
		SELECT id, member_id, event_id, method, checked_in_at
		FROM attendances
		WHERE member_id = $1 AND event_id = $2
	`, memberID, eventID).Scan(&a.ID, &a.MemberID, &a.EventID, &a.Method, &a.CheckedInAt)
	if err != nil {
		return nil, store.Translate(err)
	}
	return &a, nil
}

// CountForEvent returns the number of member attendances at an event.
func (r *Repository) CountForEvent(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendances WHERE event_id = $1`, eventID).Scan(&n)
	return n, err
}

// ListForEvent returns the member attendances of an event in check-in order.
// With withMember set, each record carries its member summary.
func (r *Repository) ListForEvent(ctx context.Context, eventID string, withMember bool) ([]Record, error) {
	if !withMember {
		rows, err := r.db.Conn(ctx).QueryContext(ctx, `
			SELECT id, member_id, event_id, method, checked_in_at
			FROM attendances
			WHERE event_id = $1
			ORDER BY checked_in_at, id
		`, eventID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		res := []Record{}
		for rows.Next() {
			var rec Record
			if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.EventID, &rec.Method, &rec.CheckedInAt); err != nil {
				return nil, err
			}
			res = append(res, rec)
		}
		return res, rows.Err()
	}

	rows, err := r.db.Conn(ctx).QueryContext(ctx, `
		SELECT a.id, a.member_id, a.event_id, a.method, a.checked_in_at,
			m.full_name, m.phone_number, m.gender, m.fellowship_number
		FROM attendances a
		JOIN members m ON m.id = a.member_id
		WHERE a.event_id = $1
		ORDER BY a.checked_in_at, a.id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Record{}
	for rows.Next() {
		var (
			rec Record
			m   MemberSummary
		)
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.EventID, &rec.Method, &rec.CheckedInAt,
			&m.FullName, &m.PhoneNumber, &m.Gender, &m.FellowshipNumber); err != nil {
			return nil, err
		}
		m.ID = rec.MemberID
		rec.Member = &m
		res = append(res, rec)
	}
	return res, rows.Err()
}

// FindDistinctMembersBefore returns the subset of memberIDs that attended at
// least one event dated strictly before the given date.
func (r *Repository) FindDistinctMembersBefore(ctx context.Context, memberIDs []string, before events.Date) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	if len(memberIDs) == 0 {
		return seen, nil
	}
	args := append(stringArgs(memberIDs), before)

	rows, err := r.db.Conn(ctx).QueryContext(ctx, `
		SELECT DISTINCT a.member_id
		FROM attendances a
		JOIN events e ON e.id = a.event_id
		WHERE a.member_id IN (`+store.Placeholders(1, len(memberIDs))+`)
			AND e.event_date < $`+strconv.Itoa(len(memberIDs)+1), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		seen[id] = struct{}{}
	}
	return seen, rows.Err()
}

// AttendeesOf returns every member attendance at the given events with the
// member's gender.
func (r *Repository) AttendeesOf(ctx context.Context, eventIDs []string) ([]Attendee, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Conn(ctx).QueryContext(ctx, `
		SELECT a.event_id, a.member_id, m.gender
		FROM attendances a
		JOIN members m ON m.id = a.member_id
		WHERE a.event_id IN (`+store.Placeholders(1, len(eventIDs))+`)
	`, stringArgs(eventIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Attendee
	for rows.Next() {
		var at Attendee
		if err := rows.Scan(&at.EventID, &at.MemberID, &at.Gender); err != nil {
			return nil, err
		}
		res = append(res, at)
	}
	return res, rows.Err()
}

// CountsFor returns member and guest headcounts keyed by event id. Events
// without any attendance are absent from the map.
func (r *Repository) CountsFor(ctx context.Context, eventIDs []string) (map[string]Counts, error) {
	res := make(map[string]Counts, len(eventIDs))
	if len(eventIDs) == 0 {
		return res, nil
	}
	in := store.Placeholders(1, len(eventIDs))
	args := stringArgs(eventIDs)

	tally := func(query string, add func(c *Counts, n int)) error {
		rows, err := r.db.Conn(ctx).QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id string
				n  int
			)
			if err := rows.Scan(&id, &n); err != nil {
				return err
			}
			c := res[id]
			add(&c, n)
			res[id] = c
		}
		return rows.Err()
	}

	if err := tally(`SELECT event_id, COUNT(*) FROM attendances WHERE event_id IN (`+in+`) GROUP BY event_id`,
		func(c *Counts, n int) { c.Members = n }); err != nil {
		return nil, err
	}
	if err := tally(`SELECT event_id, COUNT(*) FROM guest_attendances WHERE event_id IN (`+in+`) GROUP BY event_id`,
		func(c *Counts, n int) { c.Guests = n }); err != nil {
		return nil, err
	}
	return res, nil
}

// CreateGuest appends a guest attendance.
func (r *Repository) CreateGuest(ctx context.Context, g *GuestAttendance) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, `
		INSERT INTO guest_attendances (id, event_id, guest_name, guest_phone, purpose, checked_in_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, g.ID, g.EventID, g.GuestName, g.GuestPhone, g.Purpose, g.CheckedInAt)
	return store.Translate(err)
}

// ListGuests returns the guest attendances of an event in check-in order.
func (r *Repository) ListGuests(ctx context.Context, eventID string) ([]GuestAttendance, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, `
		SELECT id, event_id, guest_name, guest_phone, purpose, checked_in_at
		FROM guest_attendances
		WHERE event_id = $1
		ORDER BY checked_in_at, id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []GuestAttendance{}
	for rows.Next() {
		var (
			g              GuestAttendance
			phone, purpose sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.EventID, &g.GuestName, &phone, &purpose, &g.CheckedInAt); err != nil {
			return nil, err
		}
		g.GuestPhone = nullable(phone)
		g.Purpose = nullable(purpose)
		res = append(res, g)
	}
	return res, rows.Err()
}

// CountGuests returns the number of guest attendances at an event.
func (r *Repository) CountGuests(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guest_attendances WHERE event_id = $1`, eventID).Scan(&n)
	return n, err
}

// EventAttendance lists member attendances with member details and guest
// attendances of an event.
func (r *Repository) EventAttendance(ctx context.Context, eventID string) (*EventAttendance, error) {
	records, err := r.ListForEvent(ctx, eventID, true)
	if err != nil {
		return nil, err
	}
	guests, err := r.ListGuests(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &EventAttendance{
		Members:      records,
		Guests:       guests,
		TotalMembers: len(records),
		TotalGuests:  len(guests),
		Total:        len(records) + len(guests),
	}, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
