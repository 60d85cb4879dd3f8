package models

// Stats summarizes the advising rosters. All counts derive from a
// fresh recompute pass over the student table.
type Stats struct {
	TotalStudents      int                   `json:"total_students"`
	TotalRTs           int                   `json:"total_rts"`
	TotalNRTs          int                   `json:"total_nrts"`
	ActiveNRTs         int                   `json:"active_nrts"`
	StudentsWithoutRT  int                   `json:"students_without_rt"`
	StudentsWithoutNRT int                   `json:"students_without_nrt"`
	RTAssignments      map[string]int        `json:"rt_assignments"`
	NRTAssignments     map[string]int        `json:"nrt_assignments"`
	NRTClassYears      map[string]YearCounts `json:"nrt_class_years"`
}
