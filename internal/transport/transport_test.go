package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fellowship/internal/apperr"
	"fellowship/internal/events"
	"fellowship/internal/members"
	"fellowship/internal/testutil"
	"fellowship/internal/transport"
)

func TestBook(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	clock := &testutil.Clock{Now: time.Date(2026, time.March, 6, 18, 0, 0, 0, time.UTC)}

	memberSvc := members.NewService(db, members.NewRepository(db))
	eventSvc := events.NewService(db, events.NewRepository(db), events.NewWindow(time.UTC), events.WithClock(clock.Func()))
	svc := transport.NewService(transport.NewRepository(db), memberSvc, eventSvc, transport.WithClock(clock.Func()))

	jane, err := memberSvc.Register(ctx, members.RegisterInput{FullName: "Jane Doe", PhoneNumber: "0711111111", Gender: "female"})
	require.NoError(t, err)
	e, err := eventSvc.Create(ctx, events.CreateInput{
		Name: "Sunday Service", Date: "2026-03-08", StartTime: "09:00", EndTime: "12:00", Type: "SERVICE",
	})
	require.NoError(t, err)

	_, err = svc.Book(ctx, transport.BookInput{MemberID: jane.ID, EventID: e.ID, PickupPoint: "Main Gate"})
	require.ErrorIs(t, err, transport.ErrEventNotActive)

	_, err = eventSvc.ToggleActive(ctx, e.ID)
	require.NoError(t, err)

	// Active is enough; the event has not started yet.
	b, err := svc.Book(ctx, transport.BookInput{MemberID: jane.ID, EventID: e.ID, PickupPoint: " Main Gate "})
	require.NoError(t, err)
	assert.Equal(t, "Main Gate", b.PickupPoint)

	_, err = svc.Book(ctx, transport.BookInput{MemberID: "ghost", EventID: e.ID, PickupPoint: "Main Gate"})
	assert.ErrorIs(t, err, members.ErrMemberNotFound)
	_, err = svc.Book(ctx, transport.BookInput{MemberID: jane.ID, EventID: "ghost", PickupPoint: "Main Gate"})
	assert.ErrorIs(t, err, events.ErrEventNotFound)
	_, err = svc.Book(ctx, transport.BookInput{MemberID: jane.ID, EventID: e.ID})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	list, err := svc.ListForEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Jane Doe", list[0].FullName)
	assert.Equal(t, "0711111111", list[0].PhoneNumber)
	assert.True(t, list[0].CreatedAt.Equal(clock.Now))

	used, err := events.NewRepository(db).HasAttendance(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, used)
	assert.ErrorIs(t, eventSvc.Delete(ctx, e.ID), events.ErrEventInUse)
}
