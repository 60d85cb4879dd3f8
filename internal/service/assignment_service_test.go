package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
)

type mockAssignStudentRepo struct {
	students map[int]models.Student
}

func (m *mockAssignStudentRepo) FindByID(ctx context.Context, id int) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, nil
}

type mockAssignRTRepo struct {
	tutors map[int]models.ResidentTutor
}

func (m *mockAssignRTRepo) FindByID(ctx context.Context, id int) (*models.ResidentTutor, error) {
	if t, ok := m.tutors[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignRTRepo) FindByName(ctx context.Context, name string) (*models.ResidentTutor, error) {
	for _, t := range m.tutors {
		if models.SameName(t.Name, name) {
			tutor := t
			return &tutor, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockAssignNRTRepo struct {
	tutors map[int]models.NonResidentTutor
}

func (m *mockAssignNRTRepo) FindByID(ctx context.Context, id int) (*models.NonResidentTutor, error) {
	if t, ok := m.tutors[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignNRTRepo) FindByName(ctx context.Context, name string) (*models.NonResidentTutor, error) {
	for _, t := range m.tutors {
		if models.SameName(t.Name, name) {
			tutor := t
			return &tutor, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockAssignmentWriter struct {
	rtAssignment  string
	rtCounts      []models.RTCountUpdate
	nrtAssignment string
	nrtCounts     []models.NRTCountUpdate
	calls         int
	err           error
}

func (m *mockAssignmentWriter) SetRTAssignment(ctx context.Context, studentID int, assignment string, counts []models.RTCountUpdate) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.rtAssignment = assignment
	m.rtCounts = counts
	return nil
}

func (m *mockAssignmentWriter) SetNRTAssignment(ctx context.Context, studentID int, assignment string, counts []models.NRTCountUpdate) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.nrtAssignment = assignment
	m.nrtCounts = counts
	return nil
}

func newAssignmentFixture(students map[int]models.Student, rts map[int]models.ResidentTutor, nrts map[int]models.NonResidentTutor) (*AssignmentService, *mockAssignmentWriter) {
	writer := &mockAssignmentWriter{}
	svc := NewAssignmentService(
		&mockAssignStudentRepo{students: students},
		&mockAssignRTRepo{tutors: rts},
		&mockAssignNRTRepo{tutors: nrts},
		writer,
		3,
		zap.NewNop(),
	)
	return svc, writer
}

func TestAssignRTMovesStudentBetweenTutors(t *testing.T) {
	students := map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz", RTAssignment: "Sam Ortiz"},
	}
	rts := map[int]models.ResidentTutor{
		10: {ID: 10, Name: "Sam Ortiz", StudentCount: 4},
		11: {ID: 11, Name: "Kim Doyle", StudentCount: 2},
	}

	svc, writer := newAssignmentFixture(students, rts, nil)

	tutor, err := svc.AssignRT(context.Background(), 1, 11)
	require.NoError(t, err)
	assert.Equal(t, "Kim Doyle", tutor.Name)
	assert.Equal(t, 3, tutor.StudentCount)

	assert.Equal(t, "Kim Doyle", writer.rtAssignment)
	require.Len(t, writer.rtCounts, 2)
	assert.Equal(t, models.RTCountUpdate{ID: 11, StudentCount: 3}, writer.rtCounts[0])
	assert.Equal(t, models.RTCountUpdate{ID: 10, StudentCount: 3}, writer.rtCounts[1])
}

func TestAssignRTSameTutorIsNetZero(t *testing.T) {
	students := map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz", RTAssignment: "  sam ortiz "},
	}
	rts := map[int]models.ResidentTutor{
		10: {ID: 10, Name: "Sam Ortiz", StudentCount: 4},
	}

	svc, writer := newAssignmentFixture(students, rts, nil)

	_, err := svc.AssignRT(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, writer.rtCounts)
	assert.Equal(t, "Sam Ortiz", writer.rtAssignment)
}

func TestAssignRTStalePreviousNameIsTolerated(t *testing.T) {
	students := map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz", RTAssignment: "Departed Tutor"},
	}
	rts := map[int]models.ResidentTutor{
		11: {ID: 11, Name: "Kim Doyle", StudentCount: 0},
	}

	svc, writer := newAssignmentFixture(students, rts, nil)

	_, err := svc.AssignRT(context.Background(), 1, 11)
	require.NoError(t, err)
	// Only the new tutor's count changes; the stale name is skipped.
	require.Len(t, writer.rtCounts, 1)
	assert.Equal(t, models.RTCountUpdate{ID: 11, StudentCount: 1}, writer.rtCounts[0])
}

func TestAssignRTStudentNotFound(t *testing.T) {
	svc, _ := newAssignmentFixture(nil, map[int]models.ResidentTutor{10: {ID: 10, Name: "Sam"}}, nil)

	_, err := svc.AssignRT(context.Background(), 99, 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRemoveRTDecrementsFloorsAtZero(t *testing.T) {
	students := map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz", RTAssignment: "Sam Ortiz"},
	}
	rts := map[int]models.ResidentTutor{
		10: {ID: 10, Name: "Sam Ortiz", StudentCount: 0},
	}

	svc, writer := newAssignmentFixture(students, rts, nil)

	require.NoError(t, svc.RemoveRT(context.Background(), 1))
	assert.Equal(t, "", writer.rtAssignment)
	require.Len(t, writer.rtCounts, 1)
	assert.Equal(t, 0, writer.rtCounts[0].StudentCount)
}

func TestRemoveRTWithoutAssignment(t *testing.T) {
	students := map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz"},
	}
	svc, _ := newAssignmentFixture(students, nil, nil)

	err := svc.RemoveRT(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignNRTCapacityGate(t *testing.T) {
	students := map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz"},
		2: {ID: 2, FirstName: "Bo", LastName: "Chan", NRTAssignment: "Dr. Lee"},
		3: {ID: 3, FirstName: "Cy", LastName: "Diaz", NRTAssignment: "dr. lee"},
		4: {ID: 4, FirstName: "Di", LastName: "Egan", NRTAssignment: " Dr. Lee "},
	}
	nrts := map[int]models.NonResidentTutor{
		20: {ID: 20, Name: "Dr. Lee", Status: models.NRTStatusActive},
	}

	svc, writer := newAssignmentFixture(students, nil, nrts)

	_, err := svc.AssignNRT(context.Background(), 1, 20)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
	assert.Zero(t, writer.calls)
}

func TestAssignNRTAlreadyAssignedBypassesCapacity(t *testing.T) {
	students := map[int]models.Student{
		2: {ID: 2, FirstName: "Bo", LastName: "Chan", NRTAssignment: "DR. LEE"},
		3: {ID: 3, FirstName: "Cy", LastName: "Diaz", NRTAssignment: "dr. lee"},
		4: {ID: 4, FirstName: "Di", LastName: "Egan", NRTAssignment: "Dr. Lee"},
	}
	nrts := map[int]models.NonResidentTutor{
		20: {ID: 20, Name: "Dr. Lee", Status: models.NRTStatusActive},
	}

	svc, writer := newAssignmentFixture(students, nil, nrts)

	// Tutor is full, but student 2 is already theirs. Reassignment is
	// idempotent and changes no counts.
	tutor, err := svc.AssignNRT(context.Background(), 2, 20)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Lee", tutor.Name)
	assert.Empty(t, writer.nrtCounts)
}

func TestAssignNRTPendingApprovalRejected(t *testing.T) {
	students := map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz"},
	}
	nrts := map[int]models.NonResidentTutor{
		20: {ID: 20, Name: "Dr. New", Status: models.NRTStatusPendingApproval},
	}

	svc, _ := newAssignmentFixture(students, nil, nrts)

	_, err := svc.AssignNRT(context.Background(), 1, 20)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEligible.Code, appErrors.FromError(err).Code)
}

func TestAssignNRTInactiveStatusRejected(t *testing.T) {
	students := map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz"},
	}
	nrts := map[int]models.NonResidentTutor{
		20: {ID: 20, Name: "Dr. Done", Status: models.NRTStatusNoNewStudents},
	}

	svc, _ := newAssignmentFixture(students, nil, nrts)

	_, err := svc.AssignNRT(context.Background(), 1, 20)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEligible.Code, appErrors.FromError(err).Code)
}

func TestAssignNRTBlankStatusTreatedAsActive(t *testing.T) {
	students := map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz", ClassYear: "2026"},
	}
	nrts := map[int]models.NonResidentTutor{
		20: {ID: 20, Name: "Dr. Lee", Status: "", ClassYearCounts: models.YearCounts{"2025": 1}},
	}

	svc, writer := newAssignmentFixture(students, nil, nrts)

	_, err := svc.AssignNRT(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, writer.nrtCounts, 1)
	assert.Equal(t, 1, writer.nrtCounts[0].TotalStudents)
	assert.Equal(t, models.YearCounts{"2025": 1, "2026": 1}, writer.nrtCounts[0].ClassYearCounts)
}

func TestAssignNRTMovesStudentAndUpdatesBothTutors(t *testing.T) {
	students := map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz", ClassYear: "2026", NRTAssignment: "Dr. Old"},
	}
	nrts := map[int]models.NonResidentTutor{
		20: {ID: 20, Name: "Dr. Lee", Status: models.NRTStatusActive},
		21: {ID: 21, Name: "Dr. Old", Status: models.NRTStatusActive, TotalStudents: 2, ClassYearCounts: models.YearCounts{"2026": 2}},
	}

	svc, writer := newAssignmentFixture(students, nil, nrts)

	_, err := svc.AssignNRT(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, writer.nrtCounts, 2)

	assert.Equal(t, 20, writer.nrtCounts[0].ID)
	assert.Equal(t, 1, writer.nrtCounts[0].TotalStudents)
	assert.Equal(t, models.YearCounts{"2026": 1}, writer.nrtCounts[0].ClassYearCounts)

	assert.Equal(t, 21, writer.nrtCounts[1].ID)
	assert.Equal(t, 1, writer.nrtCounts[1].TotalStudents)
	assert.Equal(t, models.YearCounts{"2026": 1}, writer.nrtCounts[1].ClassYearCounts)
}

func TestRemoveNRTMissingBucketLeavesOtherBuckets(t *testing.T) {
	students := map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz", ClassYear: "2027", NRTAssignment: "Dr. Lee"},
	}
	nrts := map[int]models.NonResidentTutor{
		20: {ID: 20, Name: "Dr. Lee", Status: models.NRTStatusActive, TotalStudents: 1, ClassYearCounts: models.YearCounts{"2025": 1}},
	}

	svc, writer := newAssignmentFixture(students, nil, nrts)

	require.NoError(t, svc.RemoveNRT(context.Background(), 1))
	require.Len(t, writer.nrtCounts, 1)
	// No "2027" bucket existed, so only the total shrinks.
	assert.Equal(t, 0, writer.nrtCounts[0].TotalStudents)
	assert.Equal(t, models.YearCounts{"2025": 1}, writer.nrtCounts[0].ClassYearCounts)
}

func TestAssignRTWriterFailureIsPersistenceError(t *testing.T) {
	students := map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz"},
	}
	rts := map[int]models.ResidentTutor{
		10: {ID: 10, Name: "Sam Ortiz"},
	}

	svc, writer := newAssignmentFixture(students, rts, nil)
	writer.err = errors.New("connection reset")

	_, err := svc.AssignRT(context.Background(), 1, 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPersistence.Code, appErrors.FromError(err).Code)
}
