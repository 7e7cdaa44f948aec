package events

import "time"

// Status is the temporal state of an event. It is never stored.
type Status string

const (
	StatusUpcoming Status = "UPCOMING"
	StatusOngoing  Status = "ONGOING"
	StatusPast     Status = "PAST"
)

// Window evaluates events against the wall clock of the location the
// gatherings take place in.
type Window struct {
	loc *time.Location
}

// NewWindow returns an evaluator for loc; nil means time.Local.
func NewWindow(loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	return Window{loc: loc}
}

// Location returns the evaluator's time zone.
func (w Window) Location() *time.Location {
	if w.loc == nil {
		return time.Local
	}
	return w.loc
}

// Bounds returns the start and end instants of e. Both are inclusive and fall
// on e.Date.
func (w Window) Bounds(e *Event) (start, end time.Time) {
	loc := w.Location()
	return e.Date.At(e.StartTime, loc), e.Date.At(e.EndTime, loc)
}

// Classify places now relative to the event's time window.
func (w Window) Classify(e *Event, now time.Time) Status {
	start, end := w.Bounds(e)
	switch {
	case now.Before(start):
		return StatusUpcoming
	case now.After(end):
		return StatusPast
	default:
		return StatusOngoing
	}
}

// IsCheckInOpen requires both the administrative flag and an ONGOING window.
// The two gates are independent.
func (w Window) IsCheckInOpen(e *Event, now time.Time) bool {
	return e.IsActive && w.Classify(e, now) == StatusOngoing
}

// Today returns the current calendar day in the evaluator's location.
func (w Window) Today(now time.Time) Date {
	return DateOf(now.In(w.Location()))
}

// Annotate pairs e with its current status.
func (w Window) Annotate(e Event, now time.Time) WithStatus {
	return WithStatus{Event: e, Status: w.Classify(&e, now)}
}
