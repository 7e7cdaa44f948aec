package attendance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fellowship/internal/apperr"
	"fellowship/internal/audit"
	"fellowship/internal/events"
	"fellowship/internal/members"
	"fellowship/internal/metrics"
	"fellowship/internal/store"
)

var (
	ErrMemberNotFound       = members.ErrMemberNotFound
	ErrEventNotFound        = events.ErrEventNotFound
	ErrCheckInClosed        = apperr.New(apperr.CodePreconditionFailed, "check-in not available, event is not active or not currently ongoing")
	ErrAlreadyCheckedIn     = apperr.New(apperr.CodeConflict, "you have already checked in for this event")
	ErrGuestCheckInDisabled = apperr.New(apperr.CodePreconditionFailed, "guest check-in is not enabled for this event")
)

// DefaultMethod is recorded when a check-in names no method.
const DefaultMethod = "QR"

// Outcome labels shared by metrics and the audit trail.
const (
	OutcomeAccepted       = "accepted"
	OutcomeMemberNotFound = "member_not_found"
	OutcomeEventNotFound  = "event_not_found"
	OutcomeClosed         = "closed"
	OutcomeDuplicate      = "duplicate"
	OutcomeGuestsDisabled = "guests_disabled"
	OutcomeInvalid        = "invalid"
	OutcomeError          = "error"
)

// Ledger is the write side of the attendance ledger used for admission.
type Ledger interface {
	Create(ctx context.Context, a *Attendance) error
	FindByMemberAndEvent(ctx context.Context, memberID, eventID string) (*Attendance, error)
	CreateGuest(ctx context.Context, g *GuestAttendance) error
}

// MemberResolver resolves scan credentials.
type MemberResolver interface {
	GetByCredential(ctx context.Context, credential string) (*members.Member, error)
}

// EventFinder loads events by id.
type EventFinder interface {
	Find(ctx context.Context, id string) (*events.Event, error)
}

// Auditor receives every admission decision.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Transactor scopes fn in a store transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the admission controller for members and guests.
type Service struct {
	tx      Transactor
	ledger  Ledger
	members MemberResolver
	events  EventFinder
	window  events.Window
	auditor Auditor
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditor sends every admission decision to a.
func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService constructs a Service.
func NewService(tx Transactor, ledger Ledger, mr MemberResolver, ef EventFinder, window events.Window, opts ...Option) *Service {
	s := &Service{
		tx:      tx,
		ledger:  ledger,
		members: mr,
		events:  ef,
		window:  window,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckIn admits a member to an event at most once.
func (s *Service) CheckIn(ctx context.Context, in CheckInInput) (*CheckInResult, error) {
	in.Credential = strings.TrimSpace(in.Credential)
	in.EventID = strings.TrimSpace(in.EventID)
	in.Method = strings.ToUpper(strings.TrimSpace(in.Method))
	if in.Method == "" {
		in.Method = DefaultMethod
	}

	entry := audit.Entry{EventID: in.EventID, Kind: audit.KindMember}
	res, err := s.checkIn(ctx, in, &entry)
	s.finish(ctx, entry, err)
	return res, err
}

func (s *Service) checkIn(ctx context.Context, in CheckInInput, entry *audit.Entry) (*CheckInResult, error) {
	if in.Credential == "" {
		return nil, apperr.Validation("scan credential is required")
	}
	if in.EventID == "" {
		return nil, apperr.Validation("event id is required")
	}

	member, err := s.members.GetByCredential(ctx, in.Credential)
	if err != nil {
		return nil, err
	}
	entry.Subject = member.FellowshipNumber

	event, err := s.events.Find(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !s.window.IsCheckInOpen(event, now) {
		return nil, ErrCheckInClosed
	}

	att := &Attendance{
		ID:          uuid.NewString(),
		MemberID:    member.ID,
		EventID:     event.ID,
		Method:      in.Method,
		CheckedInAt: now.UTC(),
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		_, err := s.ledger.FindByMemberAndEvent(ctx, member.ID, event.ID)
		switch {
		case err == nil:
			return ErrAlreadyCheckedIn
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		return s.ledger.Create(ctx, att)
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyCheckedIn), errors.Is(err, store.ErrConflict):
		return nil, ErrAlreadyCheckedIn
	default:
		s.logger.ErrorContext(ctx, "record attendance failed", "event_id", event.ID, "error", err)
		return nil, apperr.Wrap(err, apperr.CodeInternal, "record attendance")
	}

	return &CheckInResult{
		Message:    "Check-in successful",
		Attendance: *att,
		Member:     summarize(member),
	}, nil
}

// GuestCheckIn records a guest. Every call creates a new row.
func (s *Service) GuestCheckIn(ctx context.Context, in GuestInput) (*GuestResult, error) {
	in.EventID = strings.TrimSpace(in.EventID)
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = trimOptional(in.Phone)
	in.Purpose = trimOptional(in.Purpose)

	entry := audit.Entry{EventID: in.EventID, Kind: audit.KindGuest, Subject: in.Name}
	res, err := s.guestCheckIn(ctx, in)
	s.finish(ctx, entry, err)
	return res, err
}

func (s *Service) guestCheckIn(ctx context.Context, in GuestInput) (*GuestResult, error) {
	if in.EventID == "" {
		return nil, apperr.Validation("event id is required")
	}
	if in.Name == "" {
		return nil, apperr.Validation("guest name is required")
	}

	event, err := s.events.Find(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !s.window.IsCheckInOpen(event, now) {
		return nil, ErrCheckInClosed
	}
	if !event.AllowGuestCheckin {
		return nil, ErrGuestCheckInDisabled
	}

	g := &GuestAttendance{
		ID:          uuid.NewString(),
		EventID:     event.ID,
		GuestName:   in.Name,
		GuestPhone:  in.Phone,
		Purpose:     in.Purpose,
		CheckedInAt: now.UTC(),
	}
	if err := s.ledger.CreateGuest(ctx, g); err != nil {
		s.logger.ErrorContext(ctx, "record guest attendance failed", "event_id", event.ID, "error", err)
		return nil, apperr.Wrap(err, apperr.CodeInternal, "record guest attendance")
	}
	return &GuestResult{Message: "Guest check-in successful", Guest: *g}, nil
}

// finish records metrics and the audit entry for an admission decision.
// Internal failures were already logged where they occurred. Audit failures
// are logged only.
func (s *Service) finish(ctx context.Context, entry audit.Entry, err error) {
	entry.Outcome = outcomeOf(err)
	if err != nil {
		entry.Reason = apperr.MessageOf(err)
	}
	s.metrics.ObserveCheckIn(entry.Kind, entry.Outcome)
	s.logger.InfoContext(ctx, "admission decided",
		"kind", entry.Kind,
		"event_id", entry.EventID,
		"subject", entry.Subject,
		"outcome", entry.Outcome)

	if s.auditor == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.OccurredAt = s.now().UTC()
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if aerr := s.auditor.Record(actx, entry); aerr != nil {
		s.logger.WarnContext(ctx, "audit publish failed", "event_id", entry.EventID, "error", aerr)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, ErrMemberNotFound):
		return OutcomeMemberNotFound
	case errors.Is(err, ErrEventNotFound):
		return OutcomeEventNotFound
	case errors.Is(err, ErrCheckInClosed):
		return OutcomeClosed
	case errors.Is(err, ErrAlreadyCheckedIn):
		return OutcomeDuplicate
	case errors.Is(err, ErrGuestCheckInDisabled):
		return OutcomeGuestsDisabled
	case apperr.HasCode(err, apperr.CodeValidation):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
