package reports

import (
	"fellowship/internal/events"
	"fellowship/internal/members"
)

// GenderBreakdown tallies member attendances by gender. Every accepted gender
// is present, zero or not.
type GenderBreakdown map[members.Gender]int

func newGenderBreakdown() GenderBreakdown {
	g := make(GenderBreakdown, len(members.Genders))
	for _, k := range members.Genders {
		g[k] = 0
	}
	return g
}

// EventStats are the headline numbers of one event.
type EventStats struct {
	TotalAttendance  int             `json:"total_attendance"`
	MemberCount      int             `json:"member_count"`
	GuestCount       int             `json:"guest_count"`
	GenderBreakdown  GenderBreakdown `json:"gender_breakdown"`
	FirstTimersCount int             `json:"first_timers_count"`
}

// GuestDetail is a guest as shown in an event report.
type GuestDetail struct {
	Name    string  `json:"name"`
	Purpose *string `json:"purpose"`
}

// EventReport summarizes a single event.
type EventReport struct {
	Event  events.Summary `json:"event"`
	Stats  EventStats     `json:"stats"`
	Guests []GuestDetail  `json:"guests"`
}

// EventTotal is an event with its combined member and guest attendance.
type EventTotal struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Date            events.Date `json:"date"`
	TotalAttendance int         `json:"total_attendance"`
}

// Comparison relates an event to the previous event of the same type.
type Comparison struct {
	PreviousEvent    EventTotal `json:"previous_event"`
	Difference       int        `json:"difference"`
	PercentageChange float64    `json:"percentage_change"`
}

// ComparativeReport is an event's total with an optional comparison. A nil
// Comparison means no earlier event of the same type exists.
type ComparativeReport struct {
	CurrentEvent EventTotal  `json:"current_event"`
	Comparison   *Comparison `json:"comparison"`
}

// Dashboard is the cached summary shown on the manager home page.
type Dashboard struct {
	TotalMembers      int `json:"total_members"`
	TotalEvents       int `json:"total_events"`
	AverageAttendance int `json:"average_attendance"`
}

// CustomQuery narrows a custom report. Zero fields are ignored.
type CustomQuery struct {
	From events.Date
	To   events.Date
	Type string
}

// CustomStats aggregates attendance across the matching events.
type CustomStats struct {
	TotalEvents       int             `json:"total_events"`
	TotalAttendance   int             `json:"total_attendance"`
	AverageAttendance int             `json:"average_attendance"`
	UniqueMembers     int             `json:"unique_members"`
	GenderBreakdown   GenderBreakdown `json:"gender_breakdown"`
}

// ChartPoint is one event in the attendance time series.
type ChartPoint struct {
	Date       events.Date `json:"date"`
	Name       string      `json:"name"`
	Attendance int         `json:"attendance"`
}

// CustomReport is the aggregate plus its time series, oldest event first.
type CustomReport struct {
	Stats     CustomStats  `json:"stats"`
	ChartData []ChartPoint `json:"chart_data"`
}
