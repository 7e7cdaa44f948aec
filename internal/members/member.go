package members

import (
	"strings"
	"time"

	"fellowship/internal/apperr"
)

// Gender is the demographic field used by attendance breakdowns.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Genders lists every accepted gender in display order.
var Genders = []Gender{GenderMale, GenderFemale}

// Valid reports whether g is an accepted value.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Member is a registered individual. FellowshipNumber and Credential are
// unique and never change after creation.
type Member struct {
	ID               string    `json:"id"`
	FullName         string    `json:"full_name"`
	PhoneNumber      string    `json:"phone_number"`
	Gender           Gender    `json:"gender"`
	Residence        *string   `json:"residence,omitempty"`
	Course           *string   `json:"course,omitempty"`
	YearOfStudy      *int      `json:"year_of_study,omitempty"`
	FellowshipNumber string    `json:"fellowship_number"`
	Credential       string    `json:"credential"`
	CreatedAt        time.Time `json:"created_at"`
}

// RegisterInput is the payload accepted by Service.Register.
type RegisterInput struct {
	FullName    string  `json:"full_name"`
	PhoneNumber string  `json:"phone_number"`
	Gender      Gender  `json:"gender"`
	Residence   *string `json:"residence"`
	Course      *string `json:"course"`
	YearOfStudy *int    `json:"year_of_study"`
}

// Normalize trims free-text fields and drops empty optional values.
func (in *RegisterInput) Normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Gender = Gender(strings.ToUpper(strings.TrimSpace(string(in.Gender))))
	in.Residence = trimOptional(in.Residence)
	in.Course = trimOptional(in.Course)
}

// Validate checks registration fields.
func (in RegisterInput) Validate() error {
	if len([]rune(in.FullName)) < 2 {
		return apperr.Validation("name must be at least 2 characters")
	}
	if len(in.PhoneNumber) < 10 {
		return apperr.Validation("phone number must be at least 10 digits")
	}
	if !in.Gender.Valid() {
		return apperr.Validation("gender must be MALE or FEMALE")
	}
	if in.YearOfStudy != nil && (*in.YearOfStudy < 1 || *in.YearOfStudy > 6) {
		return apperr.Validation("year of study must be between 1 and 6")
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
