package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/winslow-house/advising-api/internal/models"
)

func TestRecomputeRTCounts(t *testing.T) {
	tutors := []models.ResidentTutor{
		{ID: 1, Name: "Sam Ortiz", StudentCount: 9},
		{ID: 2, Name: "Kim Doyle", StudentCount: 1},
	}
	students := []models.Student{
		{RTAssignment: "sam ortiz"},
		{RTAssignment: " Sam Ortiz "},
		{RTAssignment: "Kim Doyle"},
		{RTAssignment: ""},
		{RTAssignment: "Nobody Here"},
	}

	stale := recomputeRTCounts(tutors, students)

	assert.Equal(t, 2, tutors[0].StudentCount)
	assert.Equal(t, 1, tutors[1].StudentCount)
	// Only Sam's stored count was wrong.
	assert.Equal(t, []int{1}, stale)
}

func TestRecomputeNRTCountsBuildsYearBuckets(t *testing.T) {
	tutors := []models.NonResidentTutor{
		{ID: 1, Name: "Dr. Lee", TotalStudents: 0, ClassYearCounts: models.YearCounts{}},
	}
	students := []models.Student{
		{NRTAssignment: "dr. lee", ClassYear: "2025"},
		{NRTAssignment: "Dr. Lee", ClassYear: "2025"},
		{NRTAssignment: "DR. LEE", ClassYear: "2026"},
		{NRTAssignment: "Dr. Lee", ClassYear: ""},
		{NRTAssignment: "someone else", ClassYear: "2025"},
	}

	stale := recomputeNRTCounts(tutors, students)

	assert.Equal(t, 4, tutors[0].TotalStudents)
	assert.Equal(t, models.YearCounts{"2025": 2, "2026": 1}, tutors[0].ClassYearCounts)
	assert.Equal(t, []int{1}, stale)
}

func TestRecomputeNRTCountsNoChangeReturnsNoStaleIDs(t *testing.T) {
	tutors := []models.NonResidentTutor{
		{ID: 1, Name: "Dr. Lee", TotalStudents: 1, ClassYearCounts: models.YearCounts{"2025": 1}},
	}
	students := []models.Student{
		{NRTAssignment: "Dr. Lee", ClassYear: "2025"},
	}

	stale := recomputeNRTCounts(tutors, students)
	assert.Empty(t, stale)
}

func TestSameNameRequiresNonEmpty(t *testing.T) {
	assert.False(t, models.SameName("", ""))
	assert.False(t, models.SameName("  ", "  "))
	assert.True(t, models.SameName(" Dr. Lee ", "dr. lee"))
}
