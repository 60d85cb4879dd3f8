package service

import "github.com/winslow-house/advising-api/internal/models"

// The stored tutor counts are advisory caches. Whenever a roster is
// read or exported, the real numbers are recomputed from the student
// table by normalized-name matching and written back over the stored
// values. A tutor rename therefore self-heals at the count level even
// though the orphaned assignments themselves are not rewritten.

// recomputeRTCounts overwrites each tutor's StudentCount from the
// student roster and returns the IDs whose stored value was stale.
func recomputeRTCounts(tutors []models.ResidentTutor, students []models.Student) []int {
	var stale []int
	for i := range tutors {
		count := 0
		for _, student := range students {
			if models.SameName(student.RTAssignment, tutors[i].Name) {
				count++
			}
		}
		if tutors[i].StudentCount != count {
			stale = append(stale, tutors[i].ID)
		}
		tutors[i].StudentCount = count
	}
	return stale
}

// recomputeNRTCounts overwrites each tutor's TotalStudents and
// ClassYearCounts from the student roster and returns the IDs whose
// stored values were stale.
func recomputeNRTCounts(tutors []models.NonResidentTutor, students []models.Student) []int {
	var stale []int
	for i := range tutors {
		total := 0
		counts := models.YearCounts{}
		for _, student := range students {
			if !models.SameName(student.NRTAssignment, tutors[i].Name) {
				continue
			}
			total++
			if student.ClassYear != "" {
				counts[student.ClassYear]++
			}
		}
		if tutors[i].TotalStudents != total || !sameYearCounts(tutors[i].ClassYearCounts, counts) {
			stale = append(stale, tutors[i].ID)
		}
		tutors[i].TotalStudents = total
		tutors[i].ClassYearCounts = counts
	}
	return stale
}

func sameYearCounts(a, b models.YearCounts) bool {
	if len(a) != len(b) {
		return false
	}
	for year, count := range a {
		if b[year] != count {
			return false
		}
	}
	return true
}
