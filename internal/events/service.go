package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fellowship/internal/apperr"
	"fellowship/internal/store"
)

var (
	ErrEventNotFound = apperr.New(apperr.CodeNotFound, "event not found")
	ErrNoActiveEvent = apperr.New(apperr.CodeNotFound, "no active event found")
	ErrEventInUse    = apperr.New(apperr.CodeConflict, "event has recorded attendance or bookings and cannot be deleted")
)

// Store is the persistence contract the service needs.
type Store interface {
	Insert(ctx context.Context, e *Event) error
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Event, error)
	FirstActive(ctx context.Context) (*Event, error)
	List(ctx context.Context, f Filter, ascending bool) ([]Event, error)
	HasAttendance(ctx context.Context, id string) (bool, error)
}

// AttendanceCounter returns headcounts keyed by event id. Ids without
// attendance may be absent.
type AttendanceCounter interface {
	CountsFor(ctx context.Context, eventIDs []string) (map[string]Counts, error)
}

// Transactor scopes fn in a store transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages events. Status is always computed through the Window.
type Service struct {
	tx     Transactor
	repo   Store
	window Window
	counts AttendanceCounter
	now    func() time.Time
	logger *slog.Logger
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

// WithAttendanceCounter makes Get, Active and List report headcounts.
func WithAttendanceCounter(c AttendanceCounter) Option {
	return func(s *Service) {
		s.counts = c
	}
}

// NewService constructs a Service.
func NewService(tx Transactor, repo Store, window Window, opts ...Option) *Service {
	s := &Service{tx: tx, repo: repo, window: window, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the evaluator the service classifies with.
func (s *Service) Window() Window { return s.window }

// Create validates and stores a new event. Events start inactive.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Event, error) {
	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	start, err := ParseClock(in.StartTime)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	end, err := ParseClock(in.EndTime)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	e := &Event{
		ID:                uuid.NewString(),
		Name:              in.Name,
		Date:              date,
		StartTime:         start,
		EndTime:           end,
		Type:              in.Type,
		Venue:             in.Venue,
		IsRecurring:       in.IsRecurring,
		RecurrenceRule:    in.RecurrenceRule,
		AllowGuestCheckin: in.AllowGuestCheckin,
		CreatedAt:         s.now().UTC(),
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return nil, s.internal(ctx, err, "create event")
	}
	s.logger.InfoContext(ctx, "event created", "event_id", e.ID, "date", e.Date.String(), "type", e.Type)
	return e, nil
}

// Get returns an event with its current status.
func (s *Service) Get(ctx context.Context, id string) (*WithStatus, error) {
	e, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.annotate(ctx, []Event{*e})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Find returns the stored event without status.
func (s *Service) Find(ctx context.Context, id string) (*Event, error) {
	e, err := s.repo.Get(ctx, id)
	switch {
	case err == nil:
		return e, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrEventNotFound
	default:
		return nil, s.internal(ctx, err, "load event")
	}
}

// Active returns the first administratively active event.
func (s *Service) Active(ctx context.Context) (*WithStatus, error) {
	e, err := s.repo.FirstActive(ctx)
	switch {
	case err == nil:
		out, err := s.annotate(ctx, []Event{*e})
		if err != nil {
			return nil, err
		}
		return &out[0], nil
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrNoActiveEvent
	default:
		return nil, s.internal(ctx, err, "load active event")
	}
}

// List returns events matching f, newest first. Upcoming limits the result to
// events dated today or later.
func (s *Service) List(ctx context.Context, f Filter) ([]WithStatus, error) {
	if f.Upcoming {
		if today := s.window.Today(s.now()); f.From.IsZero() || f.From.Before(today) {
			f.From = today
		}
	}
	list, err := s.repo.List(ctx, f, false)
	if err != nil {
		return nil, s.internal(ctx, err, "list events")
	}
	return s.annotate(ctx, list)
}

// annotate attaches status and, when a counter is set, headcounts fetched in
// one call for the whole slice.
func (s *Service) annotate(ctx context.Context, list []Event) ([]WithStatus, error) {
	now := s.now()
	out := make([]WithStatus, 0, len(list))
	for _, e := range list {
		out = append(out, s.window.Annotate(e, now))
	}
	if s.counts == nil || len(list) == 0 {
		return out, nil
	}
	ids := make([]string, len(list))
	for i, e := range list {
		ids[i] = e.ID
	}
	counts, err := s.counts.CountsFor(ctx, ids)
	if err != nil {
		return nil, s.internal(ctx, err, "count event attendance")
	}
	for i := range out {
		c := counts[out[i].ID]
		out[i].Attendance = &c
	}
	return out, nil
}

// Update applies a partial update and revalidates the event.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Event, error) {
	var updated *Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		e, err := s.Find(ctx, id)
		if err != nil {
			return err
		}
		if err := in.apply(e); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, e); err != nil {
			return s.notFoundOr(ctx, err, "update event")
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ToggleActive flips the administrative check-in switch.
func (s *Service) ToggleActive(ctx context.Context, id string) (*Event, error) {
	return s.toggle(ctx, id, func(e *Event) { e.IsActive = !e.IsActive })
}

// ToggleGuestCheckin flips whether guests may check in.
func (s *Service) ToggleGuestCheckin(ctx context.Context, id string) (*Event, error) {
	return s.toggle(ctx, id, func(e *Event) { e.AllowGuestCheckin = !e.AllowGuestCheckin })
}

// Delete removes an event that has no ledger rows referencing it.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.Find(ctx, id); err != nil {
			return err
		}
		used, err := s.repo.HasAttendance(ctx, id)
		if err != nil {
			return s.internal(ctx, err, "check event usage")
		}
		if used {
			return ErrEventInUse
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return s.notFoundOr(ctx, err, "delete event")
		}
		s.logger.InfoContext(ctx, "event deleted", "event_id", id)
		return nil
	})
}

func (s *Service) toggle(ctx context.Context, id string, flip func(*Event)) (*Event, error) {
	var updated *Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		e, err := s.Find(ctx, id)
		if err != nil {
			return err
		}
		flip(e)
		if err := s.repo.Update(ctx, e); err != nil {
			return s.notFoundOr(ctx, err, "update event")
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "event flags changed",
		"event_id", updated.ID,
		"active", updated.IsActive,
		"allow_guest_checkin", updated.AllowGuestCheckin)
	return updated, nil
}

func (s *Service) notFoundOr(ctx context.Context, err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrEventNotFound
	}
	return s.internal(ctx, err, op)
}

func (s *Service) internal(ctx context.Context, err error, op string) error {
	s.logger.ErrorContext(ctx, op+" failed", "error", err)
	return apperr.Wrap(err, apperr.CodeInternal, op)
}
