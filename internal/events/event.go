package events

import (
	"strings"
	"time"

	"fellowship/internal/apperr"
)

// Event is a scheduled gathering. StartTime is strictly before EndTime on the
// same Date; overnight events are not representable.
type Event struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Date              Date      `json:"date"`
	StartTime         ClockTime `json:"start_time"`
	EndTime           ClockTime `json:"end_time"`
	Type              string    `json:"type"`
	Venue             string    `json:"venue"`
	IsRecurring       bool      `json:"is_recurring"`
	RecurrenceRule    string    `json:"recurrence_rule,omitempty"`
	IsActive          bool      `json:"is_active"`
	AllowGuestCheckin bool      `json:"allow_guest_checkin"`
	CreatedAt         time.Time `json:"created_at"`
}

// Summary is the compact form of an event embedded in reports.
type Summary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Date   Date   `json:"date"`
	Type   string `json:"type"`
	Status Status `json:"status,omitempty"`
}

// Summary returns the compact form without a status.
func (e *Event) Summary() Summary {
	return Summary{ID: e.ID, Name: e.Name, Date: e.Date, Type: e.Type}
}

// WithStatus pairs an event with its status computed at read time.
// Attendance is filled when the service has an AttendanceCounter.
type WithStatus struct {
	Event
	Status     Status  `json:"status"`
	Attendance *Counts `json:"attendance,omitempty"`
}

// Counts are the member and guest headcounts of one event.
type Counts struct {
	Members int `json:"member_count"`
	Guests  int `json:"guest_count"`
}

// Total is members plus guests.
func (c Counts) Total() int { return c.Members + c.Guests }

func (e *Event) validate() error {
	e.Name = strings.TrimSpace(e.Name)
	e.Type = strings.TrimSpace(e.Type)
	e.Venue = strings.TrimSpace(e.Venue)
	if e.Name == "" {
		return apperr.Validation("event name is required")
	}
	if e.Type == "" {
		return apperr.Validation("event type is required")
	}
	if e.Date.IsZero() {
		return apperr.Validation("event date is required")
	}
	if !e.StartTime.Before(e.EndTime) {
		return apperr.Validation("start time must be before end time")
	}
	if !e.IsRecurring {
		e.RecurrenceRule = ""
	}
	return nil
}

// CreateInput is the payload for creating an event.
type CreateInput struct {
	Name              string `json:"name"`
	Date              string `json:"date"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Type              string `json:"type"`
	Venue             string `json:"venue"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurrenceRule    string `json:"recurrence_rule"`
	AllowGuestCheckin bool   `json:"allow_guest_checkin"`
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name              *string `json:"name"`
	Date              *string `json:"date"`
	StartTime         *string `json:"start_time"`
	EndTime           *string `json:"end_time"`
	Type              *string `json:"type"`
	Venue             *string `json:"venue"`
	IsRecurring       *bool   `json:"is_recurring"`
	RecurrenceRule    *string `json:"recurrence_rule"`
	IsActive          *bool   `json:"is_active"`
	AllowGuestCheckin *bool   `json:"allow_guest_checkin"`
}

func (in UpdateInput) apply(e *Event) error {
	if in.Name != nil {
		e.Name = *in.Name
	}
	if in.Date != nil {
		d, err := ParseDate(*in.Date)
		if err != nil {
			return apperr.Validation(err.Error())
		}
		e.Date = d
	}
	if in.StartTime != nil {
		c, err := ParseClock(*in.StartTime)
		if err != nil {
			return apperr.Validation(err.Error())
		}
		e.StartTime = c
	}
	if in.EndTime != nil {
		c, err := ParseClock(*in.EndTime)
		if err != nil {
			return apperr.Validation(err.Error())
		}
		e.EndTime = c
	}
	if in.Type != nil {
		e.Type = *in.Type
	}
	if in.Venue != nil {
		e.Venue = *in.Venue
	}
	if in.IsRecurring != nil {
		e.IsRecurring = *in.IsRecurring
	}
	if in.RecurrenceRule != nil {
		e.RecurrenceRule = *in.RecurrenceRule
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
	if in.AllowGuestCheckin != nil {
		e.AllowGuestCheckin = *in.AllowGuestCheckin
	}
	return e.validate()
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Active   *bool
	Type     string
	From     Date
	To       Date
	Upcoming bool
}
