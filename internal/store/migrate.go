package store

import (
	"context"
	"fmt"
)

// The schema is written in the common subset of Postgres and SQLite. Dates are
// stored as YYYY-MM-DD text and times of day as HH:MM text, so ordering and
// range filters compare lexicographically on both engines.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id                TEXT PRIMARY KEY,
		full_name         TEXT NOT NULL,
		phone_number      TEXT NOT NULL,
		gender            TEXT NOT NULL,
		residence         TEXT,
		course            TEXT,
		year_of_study     INTEGER,
		fellowship_number TEXT NOT NULL,
		credential        TEXT NOT NULL,
		created_at        TIMESTAMP NOT NULL,
		CONSTRAINT members_fellowship_number_key UNIQUE (fellowship_number),
		CONSTRAINT members_credential_key UNIQUE (credential)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_members_phone ON members (phone_number)`,

	`CREATE TABLE IF NOT EXISTS events (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL,
		event_date          TEXT NOT NULL,
		start_time          TEXT NOT NULL,
		end_time            TEXT NOT NULL,
		event_type          TEXT NOT NULL,
		venue               TEXT NOT NULL DEFAULT '',
		is_recurring        BOOLEAN NOT NULL DEFAULT FALSE,
		recurrence_rule     TEXT NOT NULL DEFAULT '',
		is_active           BOOLEAN NOT NULL DEFAULT FALSE,
		allow_guest_checkin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at          TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_type_date ON events (event_type, event_date)`,

	`CREATE TABLE IF NOT EXISTS attendances (
		id            TEXT PRIMARY KEY,
		member_id     TEXT NOT NULL REFERENCES members (id),
		event_id      TEXT NOT NULL REFERENCES events (id),
		method        TEXT NOT NULL,
		checked_in_at TIMESTAMP NOT NULL,
		CONSTRAINT attendances_member_event_key UNIQUE (member_id, event_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendances_event ON attendances (event_id)`,

	`CREATE TABLE IF NOT EXISTS guest_attendances (
		id            TEXT PRIMARY KEY,
		event_id      TEXT NOT NULL REFERENCES events (id),
		guest_name    TEXT NOT NULL,
		guest_phone   TEXT,
		purpose       TEXT,
		checked_in_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_guest_attendances_event ON guest_attendances (event_id)`,

	`CREATE TABLE IF NOT EXISTS transport_bookings (
		id           TEXT PRIMARY KEY,
		member_id    TEXT NOT NULL REFERENCES members (id),
		event_id     TEXT NOT NULL REFERENCES events (id),
		pickup_point TEXT NOT NULL,
		created_at   TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transport_bookings_event ON transport_bookings (event_id)`,

	`CREATE TABLE IF NOT EXISTS checkin_audit (
		id          TEXT PRIMARY KEY,
		event_id    TEXT NOT NULL,
		kind        TEXT NOT NULL,
		subject     TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		reason      TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_checkin_audit_event ON checkin_audit (event_id, occurred_at)`,
}

// Migrate creates the schema if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
