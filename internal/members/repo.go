package members

import (
	"context"
	"database/sql"
	"errors"

	"fellowship/internal/store"
)

const memberColumns = `id, full_name, phone_number, gender, residence, course, year_of_study, fellowship_number, credential, created_at`

// Repository persists members.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// LastFellowshipNumber returns the greatest fellowship number, or "" if none.
func (r *Repository) LastFellowshipNumber(ctx context.Context) (string, error) {
	var last string
	err := r.db.Conn(ctx).QueryRowContext(ctx, `
		SELECT fellowship_number FROM members
		ORDER BY fellowship_number DESC
		LIMIT 1
	`).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return last, err
}

// Insert writes a new member. A duplicate fellowship number or credential
// yields store.ErrConflict.
func (r *Repository) Insert(ctx context.Context, m *Member) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.FullName, m.PhoneNumber, string(m.Gender), m.Residence, m.Course, m.YearOfStudy,
		m.FellowshipNumber, m.Credential, m.CreatedAt)
	return store.Translate(err)
}

// FindByID returns a member by primary key.
func (r *Repository) FindByID(ctx context.Context, id string) (*Member, error) {
	return r.findOne(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
}

// FindByCredential returns the member holding a scan credential.
func (r *Repository) FindByCredential(ctx context.Context, credential string) (*Member, error) {
	return r.findOne(ctx, `SELECT `+memberColumns+` FROM members WHERE credential = $1`, credential)
}

// FindByFellowshipNumber returns the member with the display identifier.
func (r *Repository) FindByFellowshipNumber(ctx context.Context, number string) (*Member, error) {
	return r.findOne(ctx, `SELECT `+memberColumns+` FROM members WHERE fellowship_number = $1`, number)
}

// FindByPhone returns the earliest registered member with the phone number.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*Member, error) {
	return r.findOne(ctx, `SELECT `+memberColumns+` FROM members WHERE phone_number = $1 ORDER BY created_at LIMIT 1`, phone)
}

// Count returns the number of registered members.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&n)
	return n, err
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*Member, error) {
	m, err := scanMember(r.db.Conn(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, store.Translate(err)
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*Member, error) {
	var (
		m      Member
		gender string
		year   sql.NullInt64
	)
	if err := row.Scan(&m.ID, &m.FullName, &m.PhoneNumber, &gender, &m.Residence, &m.Course, &year,
		&m.FellowshipNumber, &m.Credential, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Gender = Gender(gender)
	if year.Valid {
		y := int(year.Int64)
		m.YearOfStudy = &y
	}
	return &m, nil
}
