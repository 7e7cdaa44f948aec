// Package reports derives attendance analytics from the ledger and event
// metadata.
package reports

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fellowship/internal/apperr"
	"fellowship/internal/attendance"
	"fellowship/internal/events"
	"fellowship/internal/metrics"
	"fellowship/internal/store"
)

// recentWindow is how many of the latest events the dashboard averages over.
const recentWindow = 5

// dashboardTimeout bounds one shared dashboard computation.
const dashboardTimeout = 30 * time.Second

// EventStore is the read side of event storage.
type EventStore interface {
	Get(ctx context.Context, id string) (*events.Event, error)
	PreviousOfType(ctx context.Context, eventType string, before events.Date) (*events.Event, error)
	Recent(ctx context.Context, limit int) ([]events.Event, error)
	List(ctx context.Context, f events.Filter, ascending bool) ([]events.Event, error)
	Count(ctx context.Context) (int, error)
}

// Ledger is the read side of the attendance ledger.
type Ledger interface {
	ListForEvent(ctx context.Context, eventID string, withMember bool) ([]attendance.Record, error)
	ListGuests(ctx context.Context, eventID string) ([]attendance.GuestAttendance, error)
	FindDistinctMembersBefore(ctx context.Context, memberIDs []string, before events.Date) (map[string]struct{}, error)
	CountsFor(ctx context.Context, eventIDs []string) (map[string]attendance.Counts, error)
	AttendeesOf(ctx context.Context, eventIDs []string) ([]attendance.Attendee, error)
}

// MemberCounter counts registered members.
type MemberCounter interface {
	Count(ctx context.Context) (int, error)
}

// Engine computes reports. Only the dashboard is cached.
type Engine struct {
	events  EventStore
	ledger  Ledger
	members MemberCounter
	window  events.Window
	cache   DashboardCache
	flight  singleflight.Group
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(e *Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithDashboardCache replaces the default in-process memo.
func WithDashboardCache(c DashboardCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// NewEngine constructs an Engine with a five-minute in-process dashboard memo
// unless another cache is supplied.
func NewEngine(es EventStore, ledger Ledger, mc MemberCounter, window events.Window, opts ...Option) *Engine {
	e := &Engine{
		events:  es,
		ledger:  ledger,
		members: mc,
		window:  window,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewMemo(DefaultDashboardTTL, e.now)
	}
	return e
}

// EventReport counts an event's attendance, splits members by gender and
// finds members with no attendance at any earlier-dated event.
func (e *Engine) EventReport(ctx context.Context, eventID string) (*EventReport, error) {
	ev, err := e.event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	records, err := e.ledger.ListForEvent(ctx, ev.ID, true)
	if err != nil {
		return nil, e.internal(ctx, err, "list event attendance")
	}
	guests, err := e.ledger.ListGuests(ctx, ev.ID)
	if err != nil {
		return nil, e.internal(ctx, err, "list event guests")
	}

	breakdown := newGenderBreakdown()
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.MemberID)
		if r.Member != nil {
			breakdown[r.Member.Gender]++
		}
	}
	returning, err := e.ledger.FindDistinctMembersBefore(ctx, ids, ev.Date)
	if err != nil {
		return nil, e.internal(ctx, err, "find returning members")
	}
	firstTimers := 0
	for _, id := range ids {
		if _, ok := returning[id]; !ok {
			firstTimers++
		}
	}

	details := make([]GuestDetail, 0, len(guests))
	for _, g := range guests {
		details = append(details, GuestDetail{Name: g.GuestName, Purpose: g.Purpose})
	}

	summary := ev.Summary()
	summary.Status = e.window.Classify(ev, e.now())
	return &EventReport{
		Event: summary,
		Stats: EventStats{
			TotalAttendance:  len(records) + len(guests),
			MemberCount:      len(records),
			GuestCount:       len(guests),
			GenderBreakdown:  breakdown,
			FirstTimersCount: firstTimers,
		},
		Guests: details,
	}, nil
}

// Comparative compares an event's total with the most recent earlier-dated
// event of the same type. A previous total of zero is reported as a 100%
// change.
func (e *Engine) Comparative(ctx context.Context, eventID string) (*ComparativeReport, error) {
	current, err := e.event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	previous, err := e.events.PreviousOfType(ctx, current.Type, current.Date)
	switch {
	case errors.Is(err, store.ErrNotFound):
		previous = nil
	case err != nil:
		return nil, e.internal(ctx, err, "find previous event")
	}

	ids := []string{current.ID}
	if previous != nil {
		ids = append(ids, previous.ID)
	}
	counts, err := e.ledger.CountsFor(ctx, ids)
	if err != nil {
		return nil, e.internal(ctx, err, "count attendance")
	}

	report := &ComparativeReport{CurrentEvent: totalOf(current, counts)}
	if previous != nil {
		prev := totalOf(previous, counts)
		diff := report.CurrentEvent.TotalAttendance - prev.TotalAttendance
		report.Comparison = &Comparison{
			PreviousEvent:    prev,
			Difference:       diff,
			PercentageChange: percentageChange(diff, prev.TotalAttendance),
		}
	}
	return report, nil
}

// Dashboard returns the summary from cache, computing it on a miss.
// Concurrent misses share one computation.
func (e *Engine) Dashboard(ctx context.Context) (Dashboard, error) {
	d, ok, err := e.cache.Get(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "dashboard cache read failed", "error", err)
	}
	e.metrics.ObserveDashboardCache(ok)
	if ok {
		return d, nil
	}

	// The shared computation outlives any single caller; each caller only
	// stops waiting when its own context ends.
	ch := e.flight.DoChan("dashboard", func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dashboardTimeout)
		defer cancel()
		d, err := e.computeDashboard(cctx)
		if err != nil {
			return Dashboard{}, err
		}
		if err := e.cache.Set(cctx, d); err != nil {
			e.logger.WarnContext(cctx, "dashboard cache write failed", "error", err)
		}
		return d, nil
	})
	select {
	case <-ctx.Done():
		return Dashboard{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Dashboard{}, e.internal(ctx, res.Err, "compute dashboard")
		}
		return res.Val.(Dashboard), nil
	}
}

func (e *Engine) computeDashboard(ctx context.Context) (Dashboard, error) {
	var (
		d      Dashboard
		recent []events.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.members.Count(gctx)
		d.TotalMembers = n
		return err
	})
	g.Go(func() error {
		n, err := e.events.Count(gctx)
		d.TotalEvents = n
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = e.events.Recent(gctx, recentWindow)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	counts, err := e.ledger.CountsFor(ctx, idsOf(recent))
	if err != nil {
		return Dashboard{}, err
	}
	total := 0
	for _, ev := range recent {
		total += counts[ev.ID].Total()
	}
	d.AverageAttendance = average(total, len(recent))
	return d, nil
}

// Custom aggregates attendance over the events matching q, oldest first.
func (e *Engine) Custom(ctx context.Context, q CustomQuery) (*CustomReport, error) {
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, apperr.Validation("end date must not be before start date")
	}
	list, err := e.events.List(ctx, events.Filter{Type: q.Type, From: q.From, To: q.To}, true)
	if err != nil {
		return nil, e.internal(ctx, err, "list events")
	}
	ids := idsOf(list)
	counts, err := e.ledger.CountsFor(ctx, ids)
	if err != nil {
		return nil, e.internal(ctx, err, "count attendance")
	}
	attendees, err := e.ledger.AttendeesOf(ctx, ids)
	if err != nil {
		return nil, e.internal(ctx, err, "list attendees")
	}

	report := &CustomReport{
		Stats:     CustomStats{TotalEvents: len(list), GenderBreakdown: newGenderBreakdown()},
		ChartData: make([]ChartPoint, 0, len(list)),
	}
	for _, ev := range list {
		n := counts[ev.ID].Total()
		report.Stats.TotalAttendance += n
		report.ChartData = append(report.ChartData, ChartPoint{Date: ev.Date, Name: ev.Name, Attendance: n})
	}
	unique := make(map[string]struct{})
	for _, a := range attendees {
		unique[a.MemberID] = struct{}{}
		if _, known := report.Stats.GenderBreakdown[a.Gender]; known {
			report.Stats.GenderBreakdown[a.Gender]++
		}
	}
	report.Stats.UniqueMembers = len(unique)
	report.Stats.AverageAttendance = average(report.Stats.TotalAttendance, len(list))
	return report, nil
}

func (e *Engine) event(ctx context.Context, id string) (*events.Event, error) {
	ev, err := e.events.Get(ctx, id)
	switch {
	case err == nil:
		return ev, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, events.ErrEventNotFound
	default:
		return nil, e.internal(ctx, err, "load event")
	}
}

func (e *Engine) internal(ctx context.Context, err error, op string) error {
	e.logger.ErrorContext(ctx, op+" failed", "error", err)
	return apperr.Wrap(err, apperr.CodeInternal, op)
}

func totalOf(ev *events.Event, counts map[string]attendance.Counts) EventTotal {
	return EventTotal{ID: ev.ID, Name: ev.Name, Date: ev.Date, TotalAttendance: counts[ev.ID].Total()}
}

func idsOf(list []events.Event) []string {
	ids := make([]string, 0, len(list))
	for _, ev := range list {
		ids = append(ids, ev.ID)
	}
	return ids
}

// percentageChange is diff relative to previous, rounded to one decimal.
func percentageChange(diff, previous int) float64 {
	if previous == 0 {
		return 100
	}
	return math.Round(float64(diff)/float64(previous)*1000) / 10
}

func average(total, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(n)))
}
