//go:build integration

package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"fellowship/internal/attendance"
	"fellowship/internal/events"
	"fellowship/internal/members"
	"fellowship/internal/testutil"
)

// Postgres runs transactions concurrently, so the pre-check can pass for
// several callers and the unique constraint decides.
func TestPostgresConcurrentCheckInsAdmitOnce(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewPostgres(t)
	clock := &testutil.Clock{Now: time.Date(2026, time.March, 8, 10, 0, 0, 0, time.UTC)}
	window := events.NewWindow(time.UTC)

	mem := members.NewService(db, members.NewRepository(db), members.WithClock(clock.Func()))
	evs := events.NewService(db, events.NewRepository(db), window, events.WithClock(clock.Func()))
	ledger := attendance.NewRepository(db)
	svc := attendance.NewService(db, ledger, mem, evs, window, attendance.WithClock(clock.Func()))

	jane, err := mem.Register(ctx, members.RegisterInput{FullName: "Jane Doe", PhoneNumber: "0711111111", Gender: members.GenderFemale})
	require.NoError(t, err)
	e, err := evs.Create(ctx, events.CreateInput{Name: "Service", Date: "2026-03-08", StartTime: "09:00", EndTime: "12:00", Type: "SERVICE"})
	require.NoError(t, err)
	_, err = evs.ToggleActive(ctx, e.ID)
	require.NoError(t, err)

	const callers = 16
	errs := make([]error, callers)
	var g errgroup.Group
	for i := range callers {
		g.Go(func() error {
			_, errs[i] = svc.CheckIn(ctx, attendance.CheckInInput{Credential: jane.Credential, EventID: e.ID})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)
	}
	assert.Equal(t, 1, accepted)

	n, err := ledger.CountForEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
