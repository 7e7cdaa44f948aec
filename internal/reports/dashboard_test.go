package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fellowship/internal/attendance"
	"fellowship/internal/events"
	"fellowship/internal/members"
	"fellowship/internal/reports"
	"fellowship/internal/testutil"
)

// gatedEvents holds Count until release is closed or ctx ends.
type gatedEvents struct {
	*events.Repository
	started chan struct{}
	release chan struct{}
}

func (g *gatedEvents) Count(ctx context.Context) (int, error) {
	select {
	case g.started <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
		return g.Repository.Count(ctx)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func TestDashboardSurvivesCancelledCaller(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	window := events.NewWindow(time.UTC)

	mem := members.NewService(db, members.NewRepository(db))
	_, err := mem.Register(ctx, members.RegisterInput{FullName: "Jane Doe", PhoneNumber: "0711111111", Gender: members.GenderFemale})
	require.NoError(t, err)
	evs := events.NewService(db, events.NewRepository(db), window)
	_, err = evs.Create(ctx, events.CreateInput{Name: "Service", Date: "2026-03-08", StartTime: "09:00", EndTime: "12:00", Type: "SERVICE"})
	require.NoError(t, err)

	gated := &gatedEvents{
		Repository: events.NewRepository(db),
		started:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	engine := reports.NewEngine(gated, attendance.NewRepository(db), mem, window)

	first, cancelFirst := context.WithCancel(ctx)
	firstErr := make(chan error, 1)
	go func() {
		_, err := engine.Dashboard(first)
		firstErr <- err
	}()

	select {
	case <-gated.started:
	case <-time.After(5 * time.Second):
		t.Fatal("dashboard computation never started")
	}

	type result struct {
		d   reports.Dashboard
		err error
	}
	second := make(chan result, 1)
	go func() {
		d, err := engine.Dashboard(ctx)
		second <- result{d, err}
	}()
	// Let the second caller join the in-flight computation.
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(gated.release)
	select {
	case r := <-second:
		require.NoError(t, r.err)
		assert.Equal(t, reports.Dashboard{TotalMembers: 1, TotalEvents: 1}, r.d)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never got the dashboard")
	}
}
