package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
)

type assignmentStudentRepo interface {
	FindByID(ctx context.Context, id int) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

type assignmentRTRepo interface {
	FindByID(ctx context.Context, id int) (*models.ResidentTutor, error)
	FindByName(ctx context.Context, name string) (*models.ResidentTutor, error)
}

type assignmentNRTRepo interface {
	FindByID(ctx context.Context, id int) (*models.NonResidentTutor, error)
	FindByName(ctx context.Context, name string) (*models.NonResidentTutor, error)
}

type assignmentWriter interface {
	SetRTAssignment(ctx context.Context, studentID int, assignment string, counts []models.RTCountUpdate) error
	SetNRTAssignment(ctx context.Context, studentID int, assignment string, counts []models.NRTCountUpdate) error
}

// AssignmentService pairs students with tutors. Assignment fields store
// tutor names; all count maintenance floors at zero and tolerates stale
// names, since the workbook can drift while we are not looking.
type AssignmentService struct {
	students    assignmentStudentRepo
	rts         assignmentRTRepo
	nrts        assignmentNRTRepo
	assignments assignmentWriter
	nrtCapacity int
	logger      *zap.Logger
}

// NewAssignmentService creates a service instance. nrtCapacity is the
// maximum number of students per non-resident tutor.
func NewAssignmentService(
	students assignmentStudentRepo,
	rts assignmentRTRepo,
	nrts assignmentNRTRepo,
	assignments assignmentWriter,
	nrtCapacity int,
	logger *zap.Logger,
) *AssignmentService {
	if nrtCapacity <= 0 {
		nrtCapacity = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		students:    students,
		rts:         rts,
		nrts:        nrts,
		assignments: assignments,
		nrtCapacity: nrtCapacity,
		logger:      logger,
	}
}

// AssignRT assigns a resident tutor to a student, moving the student
// off their previous tutor if they had one. There is no capacity limit
// for resident tutors.
func (s *AssignmentService) AssignRT(ctx context.Context, studentID, rtID int) (*models.ResidentTutor, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	rt, err := s.rts.FindByID(ctx, rtID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resident tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resident tutor")
	}

	var counts []models.RTCountUpdate
	if !models.SameName(student.RTAssignment, rt.Name) {
		rt.StudentCount++
		counts = append(counts, models.RTCountUpdate{ID: rt.ID, StudentCount: rt.StudentCount})

		if previous := s.findRTByName(ctx, student.RTAssignment); previous != nil {
			counts = append(counts, models.RTCountUpdate{
				ID:           previous.ID,
				StudentCount: floorZero(previous.StudentCount - 1),
			})
		}
	}

	if err := s.assignments.SetRTAssignment(ctx, student.ID, rt.Name, counts); err != nil {
		return nil, persistenceError(err, "failed to record rt assignment")
	}

	s.logger.Info("rt_assigned",
		zap.Int("student_id", student.ID),
		zap.Int("rt_id", rt.ID),
	)
	return rt, nil
}

// RemoveRT clears a student's resident tutor assignment. A stale
// assignment name (tutor renamed or deleted) still clears cleanly.
func (s *AssignmentService) RemoveRT(ctx context.Context, studentID int) error {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(student.RTAssignment) == "" {
		return appErrors.Clone(appErrors.ErrNotFound, "student has no rt assignment")
	}

	var counts []models.RTCountUpdate
	if previous := s.findRTByName(ctx, student.RTAssignment); previous != nil {
		counts = append(counts, models.RTCountUpdate{
			ID:           previous.ID,
			StudentCount: floorZero(previous.StudentCount - 1),
		})
	}

	if err := s.assignments.SetRTAssignment(ctx, student.ID, "", counts); err != nil {
		return persistenceError(err, "failed to clear rt assignment")
	}

	s.logger.Info("rt_removed", zap.Int("student_id", student.ID))
	return nil
}

// AssignNRT assigns a non-resident tutor to a student. Occupancy is
// counted from the live student roster, never from the stored total.
// The capacity gate applies only when the student is not already with
// this tutor; the status gate applies always.
func (s *AssignmentService) AssignNRT(ctx context.Context, studentID, nrtID int) (*models.NonResidentTutor, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	nrt, err := s.nrts.FindByID(ctx, nrtID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "non-resident tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load non-resident tutor")
	}

	roster, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student roster")
	}

	occupancy := 0
	for _, other := range roster {
		if models.SameName(other.NRTAssignment, nrt.Name) {
			occupancy++
		}
	}

	alreadyAssigned := models.SameName(student.NRTAssignment, nrt.Name)
	if !alreadyAssigned && occupancy >= s.nrtCapacity {
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded,
			fmt.Sprintf("non-resident tutor already has the maximum number of students (%d)", s.nrtCapacity))
	}

	if !nrt.IsApproved() {
		return nil, appErrors.Clone(appErrors.ErrNotEligible, "non-resident tutor is pending approval and cannot take students yet")
	}
	if !nrt.AcceptingNewStudents() {
		return nil, appErrors.Clone(appErrors.ErrNotEligible,
			fmt.Sprintf("non-resident tutor is not active (status: %s)", nrt.Status))
	}

	var counts []models.NRTCountUpdate
	if !alreadyAssigned {
		nrt.TotalStudents++
		nextCounts := cloneYearCounts(nrt.ClassYearCounts)
		if student.ClassYear != "" {
			nextCounts[student.ClassYear]++
		}
		nrt.ClassYearCounts = nextCounts
		counts = append(counts, models.NRTCountUpdate{
			ID:              nrt.ID,
			TotalStudents:   nrt.TotalStudents,
			ClassYearCounts: nextCounts,
		})

		if previous := s.findNRTByName(ctx, student.NRTAssignment); previous != nil {
			counts = append(counts, nrtDecrement(previous, student.ClassYear))
		}
	}

	if err := s.assignments.SetNRTAssignment(ctx, student.ID, nrt.Name, counts); err != nil {
		return nil, persistenceError(err, "failed to record nrt assignment")
	}

	s.logger.Info("nrt_assigned",
		zap.Int("student_id", student.ID),
		zap.Int("nrt_id", nrt.ID),
		zap.Int("occupancy", occupancy),
	)
	return nrt, nil
}

// RemoveNRT clears a student's non-resident tutor assignment.
func (s *AssignmentService) RemoveNRT(ctx context.Context, studentID int) error {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(student.NRTAssignment) == "" {
		return appErrors.Clone(appErrors.ErrNotFound, "student has no nrt assignment")
	}

	var counts []models.NRTCountUpdate
	if previous := s.findNRTByName(ctx, student.NRTAssignment); previous != nil {
		counts = append(counts, nrtDecrement(previous, student.ClassYear))
	}

	if err := s.assignments.SetNRTAssignment(ctx, student.ID, "", counts); err != nil {
		return persistenceError(err, "failed to clear nrt assignment")
	}

	s.logger.Info("nrt_removed", zap.Int("student_id", student.ID))
	return nil
}

func (s *AssignmentService) loadStudent(ctx context.Context, id int) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// findRTByName resolves an assignment name to a tutor, returning nil
// for blank or stale names.
func (s *AssignmentService) findRTByName(ctx context.Context, name string) *models.ResidentTutor {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	tutor, err := s.rts.FindByName(ctx, name)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("rt_lookup_failed", zap.String("name", name), zap.Error(err))
		}
		return nil
	}
	return tutor
}

func (s *AssignmentService) findNRTByName(ctx context.Context, name string) *models.NonResidentTutor {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	tutor, err := s.nrts.FindByName(ctx, name)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("nrt_lookup_failed", zap.String("name", name), zap.Error(err))
		}
		return nil
	}
	return tutor
}

// nrtDecrement builds the count update for a tutor losing one student.
// The class-year bucket only shrinks when it already exists.
func nrtDecrement(tutor *models.NonResidentTutor, classYear string) models.NRTCountUpdate {
	counts := cloneYearCounts(tutor.ClassYearCounts)
	if classYear != "" {
		if current, ok := counts[classYear]; ok {
			counts[classYear] = floorZero(current - 1)
		}
	}
	return models.NRTCountUpdate{
		ID:              tutor.ID,
		TotalStudents:   floorZero(tutor.TotalStudents - 1),
		ClassYearCounts: counts,
	}
}

func cloneYearCounts(counts models.YearCounts) models.YearCounts {
	clone := models.YearCounts{}
	for year, count := range counts {
		clone[year] = count
	}
	return clone
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func persistenceError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, message)
}
