package members

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fellowship/internal/apperr"
	"fellowship/internal/metrics"
	"fellowship/internal/store"
)

// ErrMemberNotFound is returned by lookups that match no member.
var ErrMemberNotFound = apperr.New(apperr.CodeNotFound, "member not found, please register first")

// Store is the persistence contract the service needs.
type Store interface {
	LastNumberReader
	Insert(ctx context.Context, m *Member) error
	FindByID(ctx context.Context, id string) (*Member, error)
	FindByCredential(ctx context.Context, credential string) (*Member, error)
	FindByPhone(ctx context.Context, phone string) (*Member, error)
	FindByFellowshipNumber(ctx context.Context, number string) (*Member, error)
	Count(ctx context.Context) (int, error)
}

// Transactor scopes fn in a store transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service registers members and resolves them for check-in.
type Service struct {
	tx       Transactor
	repo     Store
	alloc    *Allocator
	attempts int
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

// WithAllocationAttempts bounds how often allocate-and-insert is retried.
func WithAllocationAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService constructs a Service.
func NewService(tx Transactor, repo Store, opts ...Option) *Service {
	s := &Service{
		tx:       tx,
		repo:     repo,
		alloc:    NewAllocator(repo),
		attempts: 5,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates input, allocates a fellowship number and a fresh scan
// credential, and creates the member. The allocation and insert run in one
// transaction; a uniqueness conflict restarts the whole sequence.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Member, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		var member *Member
		err := s.tx.InTx(ctx, func(ctx context.Context) error {
			number, err := s.alloc.Allocate(ctx)
			if err != nil {
				return err
			}
			member = &Member{
				ID:               uuid.NewString(),
				FullName:         in.FullName,
				PhoneNumber:      in.PhoneNumber,
				Gender:           in.Gender,
				Residence:        in.Residence,
				Course:           in.Course,
				YearOfStudy:      in.YearOfStudy,
				FellowshipNumber: number,
				Credential:       uuid.NewString(),
				CreatedAt:        s.now().UTC(),
			}
			return s.repo.Insert(ctx, member)
		})
		switch {
		case err == nil:
			s.metrics.IncrementMembersRegistered()
			s.logger.InfoContext(ctx, "member registered",
				"member_id", member.ID,
				"fellowship_number", member.FellowshipNumber,
				"attempt", attempt)
			return member, nil
		case errors.Is(err, store.ErrConflict):
			s.metrics.IncrementAllocationRetries()
			s.logger.WarnContext(ctx, "fellowship number collided, retrying",
				"fellowship_number", member.FellowshipNumber,
				"attempt", attempt)
			continue
		case errors.Is(err, ErrIdentifierSpaceExhausted):
			s.logger.ErrorContext(ctx, "fellowship number space exhausted")
			return nil, err
		default:
			s.logger.ErrorContext(ctx, "member registration failed", "error", err)
			return nil, apperr.Wrap(err, apperr.CodeInternal, "register member")
		}
	}
	return nil, ErrAllocationConflict
}

// GetByID returns a member by id.
func (s *Service) GetByID(ctx context.Context, id string) (*Member, error) {
	m, err := s.repo.FindByID(ctx, id)
	return s.translate(ctx, m, err)
}

// GetByCredential resolves a scan credential to its member.
func (s *Service) GetByCredential(ctx context.Context, credential string) (*Member, error) {
	m, err := s.repo.FindByCredential(ctx, credential)
	return s.translate(ctx, m, err)
}

// GetByPhone returns a member by phone number.
func (s *Service) GetByPhone(ctx context.Context, phone string) (*Member, error) {
	m, err := s.repo.FindByPhone(ctx, phone)
	return s.translate(ctx, m, err)
}

// GetByFellowshipNumber returns a member by fellowship number.
func (s *Service) GetByFellowshipNumber(ctx context.Context, number string) (*Member, error) {
	m, err := s.repo.FindByFellowshipNumber(ctx, number)
	return s.translate(ctx, m, err)
}

// Count returns the number of registered members.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeInternal, "count members")
	}
	return n, nil
}

func (s *Service) translate(ctx context.Context, m *Member, err error) (*Member, error) {
	switch {
	case err == nil:
		return m, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrMemberNotFound
	default:
		s.logger.ErrorContext(ctx, "load member failed", "error", err)
		return nil, apperr.Wrap(err, apperr.CodeInternal, "load member")
	}
}
