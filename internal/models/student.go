package models

import (
	"strings"
	"time"
)

// Application status values for students.
const (
	StatusNotApplying       = "Not Applying"
	StatusCurrentlyApplying = "Currently Applying"
	StatusApplyingNextCycle = "Applying Next Cycle"
)

// Student represents an advisee in the house.
type Student struct {
	ID                 int       `db:"id" json:"id"`
	FirstName          string    `db:"first_name" json:"first_name"`
	LastName           string    `db:"last_name" json:"last_name"`
	PrimaryEmail       string    `db:"primary_email" json:"primary_email"`
	SecondaryEmail     string    `db:"secondary_email" json:"secondary_email"`
	ClassYear          string    `db:"class_year" json:"class_year"`
	RTAssignment       string    `db:"rt_assignment" json:"rt_assignment"`
	NRTAssignment      string    `db:"nrt_assignment" json:"nrt_assignment"`
	Status             string    `db:"status" json:"status"`
	PhoneNumber        string    `db:"phone_number" json:"phone_number"`
	Hometown           string    `db:"hometown" json:"hometown"`
	Concentration      string    `db:"concentration" json:"concentration"`
	Secondary          string    `db:"secondary" json:"secondary"`
	Extracurriculars   string    `db:"extracurriculars" json:"extracurriculars"`
	ClinicalShadowing  string    `db:"clinical_shadowing" json:"clinical_shadowing"`
	ResearchActivities string    `db:"research_activities" json:"research_activities"`
	MedicalInterests   string    `db:"medical_interests" json:"medical_interests"`
	ProgramInterests   string    `db:"program_interests" json:"program_interests"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins the first and last names with trimming.
func (s Student) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
}

// HasIdentity reports whether the record carries enough to be a real
// student row: both names and at least one email.
func (s Student) HasIdentity() bool {
	return strings.TrimSpace(s.FirstName) != "" &&
		strings.TrimSpace(s.LastName) != "" &&
		(strings.TrimSpace(s.PrimaryEmail) != "" || strings.TrimSpace(s.SecondaryEmail) != "")
}

// BestEmail prefers the primary email, falling back to the secondary.
func (s Student) BestEmail() string {
	if strings.TrimSpace(s.PrimaryEmail) != "" {
		return strings.TrimSpace(s.PrimaryEmail)
	}
	return strings.TrimSpace(s.SecondaryEmail)
}

// StudentFilter captures search criteria for listing students.
type StudentFilter struct {
	Search     string
	ClassYear  string
	Status     string
	Unassigned string // "rt" or "nrt"
}
