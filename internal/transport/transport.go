// Package transport records members' requests for a ride to an event.
package transport

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fellowship/internal/apperr"
	"fellowship/internal/events"
	"fellowship/internal/members"
	"fellowship/internal/store"
)

// ErrEventNotActive is returned when booking for an event that is not open
// for sign-up.
var ErrEventNotActive = apperr.New(apperr.CodePreconditionFailed, "transport can only be booked for an active event")

// Booking is a member's transport request.
type Booking struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	EventID     string    `json:"event_id"`
	PickupPoint string    `json:"pickup_point"`
	CreatedAt   time.Time `json:"created_at"`
}

// Passenger is a booking joined with its member's contact details.
type Passenger struct {
	Booking
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
}

// BookInput is the payload for a booking.
type BookInput struct {
	MemberID    string `json:"member_id"`
	EventID     string `json:"event_id"`
	PickupPoint string `json:"pickup_point"`
}

// Store persists bookings.
type Store interface {
	Insert(ctx context.Context, b *Booking) error
	ListForEvent(ctx context.Context, eventID string) ([]Passenger, error)
}

// MemberFinder loads members by id.
type MemberFinder interface {
	GetByID(ctx context.Context, id string) (*members.Member, error)
}

// EventFinder loads events by id.
type EventFinder interface {
	Find(ctx context.Context, id string) (*events.Event, error)
}

// Service books transport.
type Service struct {
	repo    Store
	members MemberFinder
	events  EventFinder
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService constructs a Service.
func NewService(repo Store, mf MemberFinder, ef EventFinder, opts ...Option) *Service {
	s := &Service{repo: repo, members: mf, events: ef, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book records a pickup request for an administratively active event.
func (s *Service) Book(ctx context.Context, in BookInput) (*Booking, error) {
	in.MemberID = strings.TrimSpace(in.MemberID)
	in.EventID = strings.TrimSpace(in.EventID)
	in.PickupPoint = strings.TrimSpace(in.PickupPoint)
	switch {
	case in.MemberID == "":
		return nil, apperr.Validation("member id is required")
	case in.EventID == "":
		return nil, apperr.Validation("event id is required")
	case in.PickupPoint == "":
		return nil, apperr.Validation("pickup point is required")
	}

	if _, err := s.members.GetByID(ctx, in.MemberID); err != nil {
		return nil, err
	}
	event, err := s.events.Find(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsActive {
		return nil, ErrEventNotActive
	}

	b := &Booking{
		ID:          uuid.NewString(),
		MemberID:    in.MemberID,
		EventID:     event.ID,
		PickupPoint: in.PickupPoint,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, b); err != nil {
		s.logger.ErrorContext(ctx, "book transport failed", "event_id", b.EventID, "error", err)
		return nil, apperr.Wrap(err, apperr.CodeInternal, "book transport")
	}
	s.logger.InfoContext(ctx, "transport booked", "event_id", b.EventID, "member_id", b.MemberID)
	return b, nil
}

// ListForEvent returns an event's bookings with passenger details.
func (s *Service) ListForEvent(ctx context.Context, eventID string) ([]Passenger, error) {
	if _, err := s.events.Find(ctx, eventID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListForEvent(ctx, eventID)
	if err != nil {
		s.logger.ErrorContext(ctx, "list transport bookings failed", "event_id", eventID, "error", err)
		return nil, apperr.Wrap(err, apperr.CodeInternal, "list transport bookings")
	}
	return list, nil
}

// Repository persists bookings.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a booking.
func (r *Repository) Insert(ctx context.Context, b *Booking) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, `
		INSERT INTO transport_bookings (id, member_id, event_id, pickup_point, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, b.ID, b.MemberID, b.EventID, b.PickupPoint, b.CreatedAt)
	return store.Translate(err)
}

// ListForEvent returns the bookings of an event, oldest first.
func (r *Repository) ListForEvent(ctx context.Context, eventID string) ([]Passenger, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, `
		SELECT b.id, b.member_id, b.event_id, b.pickup_point, b.created_at, m.full_name, m.phone_number
		FROM transport_bookings b
		JOIN members m ON m.id = b.member_id
		WHERE b.event_id = $1
		ORDER BY b.created_at, b.id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Passenger{}
	for rows.Next() {
		var p Passenger
		if err := rows.Scan(&p.ID, &p.MemberID, &p.EventID, &p.PickupPoint, &p.CreatedAt, &p.FullName, &p.PhoneNumber); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
