package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
)

type statsStudentRepo interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

type statsRTRepo interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.ResidentTutor, error)
}

type statsNRTRepo interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.NonResidentTutor, error)
}

// StatsService builds roster summaries from a live recompute pass, so
// the numbers always match the student table regardless of what the
// stored tutor counts say.
type StatsService struct {
	students statsStudentRepo
	rts      statsRTRepo
	nrts     statsNRTRepo
	logger   *zap.Logger
}

// NewStatsService creates a service instance.
func NewStatsService(students statsStudentRepo, rts statsRTRepo, nrts statsNRTRepo, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{students: students, rts: rts, nrts: nrts, logger: logger}
}

// Overview computes the dashboard summary.
func (s *StatsService) Overview(ctx context.Context) (*models.Stats, error) {
	students, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	rts, err := s.rts.List(ctx, models.TutorFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resident tutors")
	}
	nrts, err := s.nrts.List(ctx, models.TutorFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load non-resident tutors")
	}

	recomputeRTCounts(rts, students)
	recomputeNRTCounts(nrts, students)

	stats := &models.Stats{
		TotalStudents:  len(students),
		TotalRTs:       len(rts),
		TotalNRTs:      len(nrts),
		RTAssignments:  make(map[string]int, len(rts)),
		NRTAssignments: make(map[string]int, len(nrts)),
		NRTClassYears:  make(map[string]models.YearCounts, len(nrts)),
	}

	for _, student := range students {
		if strings.TrimSpace(student.RTAssignment) == "" {
			stats.StudentsWithoutRT++
		}
		if strings.TrimSpace(student.NRTAssignment) == "" {
			stats.StudentsWithoutNRT++
		}
	}
	for _, rt := range rts {
		stats.RTAssignments[rt.Name] = rt.StudentCount
	}
	for _, nrt := range nrts {
		if nrt.AcceptingNewStudents() {
			stats.ActiveNRTs++
		}
		stats.NRTAssignments[nrt.Name] = nrt.TotalStudents
		stats.NRTClassYears[nrt.Name] = nrt.ClassYearCounts
	}

	return stats, nil
}
