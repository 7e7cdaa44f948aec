package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fellowship/internal/apperr"
	"fellowship/internal/events"
	"fellowship/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctx   context.Context
	clock *testutil.Clock
	svc   *events.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = &testutil.Clock{Now: time.Date(2026, time.March, 8, 10, 0, 0, 0, time.UTC)}
	db := testutil.NewDB(s.T())
	s.svc = events.NewService(db, events.NewRepository(db), events.NewWindow(time.UTC),
		events.WithClock(s.clock.Func()))
}

func (s *ServiceSuite) create(name, date, typ string) *events.Event {
	e, err := s.svc.Create(s.ctx, events.CreateInput{
		Name:      name,
		Date:      date,
		StartTime: "09:00",
		EndTime:   "12:00",
		Type:      typ,
	})
	s.Require().NoError(err)
	return e
}

func (s *ServiceSuite) TestCreateStartsInactive() {
	e := s.create("Sunday Service", "2026-03-08", "SERVICE")
	s.False(e.IsActive)

	got, err := s.svc.Get(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("Sunday Service", got.Name)
	s.Equal(events.StatusOngoing, got.Status)
	s.Equal("2026-03-08", got.Date.String())
	s.Equal("12:00", got.EndTime.String())
}

func (s *ServiceSuite) TestCreateValidation() {
	cases := map[string]events.CreateInput{
		"end before start": {Name: "X", Date: "2026-03-08", StartTime: "12:00", EndTime: "09:00", Type: "SERVICE"},
		"equal times":      {Name: "X", Date: "2026-03-08", StartTime: "09:00", EndTime: "09:00", Type: "SERVICE"},
		"bad date":         {Name: "X", Date: "March 8", StartTime: "09:00", EndTime: "10:00", Type: "SERVICE"},
		"bad time":         {Name: "X", Date: "2026-03-08", StartTime: "9am", EndTime: "10:00", Type: "SERVICE"},
		"missing name":     {Name: " ", Date: "2026-03-08", StartTime: "09:00", EndTime: "10:00", Type: "SERVICE"},
		"missing type":     {Name: "X", Date: "2026-03-08", StartTime: "09:00", EndTime: "10:00"},
	}
	for name, in := range cases {
		s.Run(name, func() {
			_, err := s.svc.Create(s.ctx, in)
			s.Require().Error(err)
			s.True(apperr.HasCode(err, apperr.CodeValidation))
		})
	}
}

func (s *ServiceSuite) TestTogglesAndActive() {
	_, err := s.svc.Active(s.ctx)
	s.ErrorIs(err, events.ErrNoActiveEvent)

	e := s.create("Sunday Service", "2026-03-08", "SERVICE")

	toggled, err := s.svc.ToggleActive(s.ctx, e.ID)
	s.Require().NoError(err)
	s.True(toggled.IsActive)

	guests, err := s.svc.ToggleGuestCheckin(s.ctx, e.ID)
	s.Require().NoError(err)
	s.True(guests.AllowGuestCheckin)
	s.True(guests.IsActive)

	active, err := s.svc.Active(s.ctx)
	s.Require().NoError(err)
	s.Equal(e.ID, active.ID)

	_, err = s.svc.ToggleActive(s.ctx, "missing")
	s.ErrorIs(err, events.ErrEventNotFound)
}

func (s *ServiceSuite) TestUpdateRevalidates() {
	e := s.create("Sunday Service", "2026-03-08", "SERVICE")

	end := "08:00"
	_, err := s.svc.Update(s.ctx, e.ID, events.UpdateInput{EndTime: &end})
	s.True(apperr.HasCode(err, apperr.CodeValidation))

	name, venue := "Evening Service", "Main Hall"
	updated, err := s.svc.Update(s.ctx, e.ID, events.UpdateInput{Name: &name, Venue: &venue})
	s.Require().NoError(err)
	s.Equal("Evening Service", updated.Name)

	got, err := s.svc.Find(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("Main Hall", got.Venue)
	s.Equal("12:00", got.EndTime.String())
}

func (s *ServiceSuite) TestListFilters() {
	s.create("Past Service", "2026-03-01", "SERVICE")
	today := s.create("Today Service", "2026-03-08", "SERVICE")
	s.create("Next Bible Study", "2026-03-11", "BIBLE_STUDY")
	_, err := s.svc.ToggleActive(s.ctx, today.ID)
	s.Require().NoError(err)

	all, err := s.svc.List(s.ctx, events.Filter{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("Next Bible Study", all[0].Name)
	s.Equal(events.StatusUpcoming, all[0].Status)
	s.Equal(events.StatusPast, all[2].Status)

	upcoming, err := s.svc.List(s.ctx, events.Filter{Upcoming: true})
	s.Require().NoError(err)
	s.Len(upcoming, 2)

	services, err := s.svc.List(s.ctx, events.Filter{Type: "SERVICE"})
	s.Require().NoError(err)
	s.Len(services, 2)

	active := true
	onlyActive, err := s.svc.List(s.ctx, events.Filter{Active: &active})
	s.Require().NoError(err)
	s.Require().Len(onlyActive, 1)
	s.Equal(today.ID, onlyActive[0].ID)
}

func (s *ServiceSuite) TestDelete() {
	e := s.create("Sunday Service", "2026-03-08", "SERVICE")
	s.Require().NoError(s.svc.Delete(s.ctx, e.ID))

	_, err := s.svc.Find(s.ctx, e.ID)
	s.ErrorIs(err, events.ErrEventNotFound)
	s.ErrorIs(s.svc.Delete(s.ctx, e.ID), events.ErrEventNotFound)
}

type countsStub struct {
	calls  int
	counts map[string]events.Counts
}

func (c *countsStub) CountsFor(_ context.Context, ids []string) (map[string]events.Counts, error) {
	c.calls++
	out := make(map[string]events.Counts, len(ids))
	for _, id := range ids {
		if n, ok := c.counts[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (s *ServiceSuite) TestListingsCarryHeadcounts() {
	db := testutil.NewDB(s.T())
	stub := &countsStub{counts: map[string]events.Counts{}}
	s.svc = events.NewService(db, events.NewRepository(db), events.NewWindow(time.UTC),
		events.WithClock(s.clock.Func()),
		events.WithAttendanceCounter(stub))

	busy := s.create("Sunday Service", "2026-03-08", "SERVICE")
	quiet := s.create("Bible Study", "2026-03-04", "BIBLE_STUDY")
	stub.counts[busy.ID] = events.Counts{Members: 12, Guests: 3}

	list, err := s.svc.List(s.ctx, events.Filter{})
	s.Require().NoError(err)
	s.Equal(1, stub.calls, "one count query per listing")
	s.Require().Len(list, 2)
	s.Equal(busy.ID, list[0].ID)
	s.Require().NotNil(list[0].Attendance)
	s.Equal(15, list[0].Attendance.Total())
	s.Equal(quiet.ID, list[1].ID)
	s.Require().NotNil(list[1].Attendance)
	s.Equal(events.Counts{}, *list[1].Attendance)

	_, err = s.svc.ToggleActive(s.ctx, busy.ID)
	s.Require().NoError(err)
	active, err := s.svc.Active(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(active.Attendance)
	s.Equal(events.Counts{Members: 12, Guests: 3}, *active.Attendance)

	got, err := s.svc.Get(s.ctx, quiet.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Attendance)
	s.Zero(got.Attendance.Total())
}
