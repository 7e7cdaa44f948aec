package attendance

import (
	"time"

	"fellowship/internal/events"
	"fellowship/internal/members"
)

// Attendance is a member's admission to an event. At most one exists per
// (MemberID, EventID); rows are never updated.
type Attendance struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	EventID     string    `json:"event_id"`
	Method      string    `json:"method"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// MemberSummary is the member detail joined onto ledger listings.
type MemberSummary struct {
	ID               string         `json:"id"`
	FullName         string         `json:"full_name"`
	PhoneNumber      string         `json:"phone_number"`
	Gender           members.Gender `json:"gender"`
	FellowshipNumber string         `json:"fellowship_number"`
}

// Record is an attendance row, optionally with its member.
type Record struct {
	Attendance
	Member *MemberSummary `json:"member,omitempty"`
}

// GuestAttendance is a non-member admission. Guests are never deduplicated.
type GuestAttendance struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	GuestName   string    `json:"guest_name"`
	GuestPhone  *string   `json:"guest_phone,omitempty"`
	Purpose     *string   `json:"purpose,omitempty"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// Counts are the member and guest headcounts of one event.
type Counts = events.Counts

// Attendee is one member attendance reduced to what aggregates need.
type Attendee struct {
	EventID  string
	MemberID string
	Gender   members.Gender
}

// CheckInInput is the payload for a member check-in.
type CheckInInput struct {
	Credential string `json:"credential"`
	EventID    string `json:"event_id"`
	Method     string `json:"method"`
}

// CheckInResult is returned to the operator after a successful check-in.
type CheckInResult struct {
	Message    string        `json:"message"`
	Attendance Attendance    `json:"attendance"`
	Member     MemberSummary `json:"member"`
}

// GuestInput is the payload for a guest check-in.
type GuestInput struct {
	EventID string  `json:"event_id"`
	Name    string  `json:"guest_name"`
	Phone   *string `json:"guest_phone"`
	Purpose *string `json:"purpose"`
}

// GuestResult is returned after a successful guest check-in.
type GuestResult struct {
	Message string          `json:"message"`
	Guest   GuestAttendance `json:"guest_attendance"`
}

// EventAttendance is the full attendance listing of an event.
type EventAttendance struct {
	Members      []Record          `json:"member_attendance"`
	Guests       []GuestAttendance `json:"guest_attendance"`
	TotalMembers int               `json:"total_members"`
	TotalGuests  int               `json:"total_guests"`
	Total        int               `json:"total_attendance"`
}

func summarize(m *members.Member) MemberSummary {
	return MemberSummary{
		ID:               m.ID,
		FullName:         m.FullName,
		PhoneNumber:      m.PhoneNumber,
		Gender:           m.Gender,
		FellowshipNumber: m.FellowshipNumber,
	}
}
