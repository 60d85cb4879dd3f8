package models

import (
	"strings"
	"time"
)

// ResidentTutor is an advisor who lives in the house. The student count
// is a derived cache; readers recompute it from the student roster.
type ResidentTutor struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	StudentCount int       `db:"student_count" json:"student_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HasIdentity reports whether the record has a name and email.
func (t ResidentTutor) HasIdentity() bool {
	return strings.TrimSpace(t.Name) != "" && strings.TrimSpace(t.Email) != ""
}

// Non-resident tutor status vocabulary. These are the literal values
// operators type into the status column; comparisons are normalized.
const (
	NRTStatusActive          = "active"
	NRTStatusPendingApproval = "pending approval"
	NRTStatusNoNewStudents   = "active, but does not want additional students"
	NRTStatusLeaving         = "leaving, but keeping students"
)

// NonResidentTutor is a volunteer advisor outside the house. Both
// TotalStudents and ClassYearCounts are derived caches recomputed from
// the student roster on read.
type NonResidentTutor struct {
	ID                int        `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	Email             string     `db:"email" json:"email"`
	Status            string     `db:"status" json:"status"`
	TotalStudents     int        `db:"total_students" json:"total_students"`
	ClassYearCounts   YearCounts `db:"class_year_counts" json:"class_year_counts"`
	PhoneNumber       string     `db:"phone_number" json:"phone_number"`
	Affiliation       string     `db:"affiliation" json:"affiliation"`
	IDNumber          string     `db:"id_number" json:"id_number"`
	StageOfTraining   string     `db:"stage_of_training" json:"stage_of_training"`
	TimeInTown        string     `db:"time_in_town" json:"time_in_town"`
	MedicalInterests  string     `db:"medical_interests" json:"medical_interests"`
	OutsideInterests  string     `db:"outside_interests" json:"outside_interests"`
	ShadowingInterest string     `db:"shadowing_interest" json:"shadowing_interest"`
	ResearchInterest  string     `db:"research_interest" json:"research_interest"`
	EventsInterest    string     `db:"events_interest" json:"events_interest"`
	SpecificEvents    string     `db:"specific_events" json:"specific_events"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// HasIdentity reports whether the record has a name and email.
func (t NonResidentTutor) HasIdentity() bool {
	return strings.TrimSpace(t.Name) != "" && strings.TrimSpace(t.Email) != ""
}

// NormalizedStatus lowercases and trims the status; a blank status
// means active.
func (t NonResidentTutor) NormalizedStatus() string {
	status := strings.ToLower(strings.TrimSpace(t.Status))
	if status == "" {
		return NRTStatusActive
	}
	return status
}

// IsApproved reports whether the tutor has cleared intake review.
func (t NonResidentTutor) IsApproved() bool {
	return t.NormalizedStatus() != NRTStatusPendingApproval
}

// AcceptingNewStudents is the single eligibility gate for new
// assignments: only an approved, active tutor can take a new student.
// Existing assignments are never affected by this.
func (t NonResidentTutor) AcceptingNewStudents() bool {
	return t.NormalizedStatus() == NRTStatusActive
}

// TutorFilter captures search criteria for listing tutors.
type TutorFilter struct {
	Search string
	Status string
}

// RTCountUpdate is a resident tutor derived-count write queued for a
// single assignment transaction.
type RTCountUpdate struct {
	ID           int
	StudentCount int
}

// NRTCountUpdate is a non-resident tutor derived-count write queued for
// a single assignment transaction.
type NRTCountUpdate struct {
	ID              int
	TotalStudents   int
	ClassYearCounts YearCounts
}
