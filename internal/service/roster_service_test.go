package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
)

type mockRosterStudents struct {
	students []models.Student
}

func (m *mockRosterStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	return m.students, nil
}

type mockRTRepo struct {
	tutors       map[int]models.ResidentTutor
	countUpdates map[int]int
}

func (m *mockRTRepo) List(ctx context.Context, filter models.TutorFilter) ([]models.ResidentTutor, error) {
	out := make([]models.ResidentTutor, 0, len(m.tutors))
	for _, t := range m.tutors {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockRTRepo) FindByID(ctx context.Context, id int) (*models.ResidentTutor, error) {
	if t, ok := m.tutors[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRTRepo) Create(ctx context.Context, tutor *models.ResidentTutor) error {
	if m.tutors == nil {
		m.tutors = make(map[int]models.ResidentTutor)
	}
	tutor.ID = len(m.tutors) + 1
	m.tutors[tutor.ID] = *tutor
	return nil
}

func (m *mockRTRepo) Update(ctx context.Context, tutor *models.ResidentTutor) error {
	m.tutors[tutor.ID] = *tutor
	return nil
}

func (m *mockRTRepo) UpdateStudentCount(ctx context.Context, id, count int) error {
	if m.countUpdates == nil {
		m.countUpdates = make(map[int]int)
	}
	m.countUpdates[id] = count
	return nil
}

type mockNRTRepo struct {
	tutors         map[int]models.NonResidentTutor
	derivedUpdates map[int]models.NRTCountUpdate
}

func (m *mockNRTRepo) List(ctx context.Context, filter models.TutorFilter) ([]models.NonResidentTutor, error) {
	out := make([]models.NonResidentTutor, 0, len(m.tutors))
	for _, t := range m.tutors {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockNRTRepo) FindByID(ctx context.Context, id int) (*models.NonResidentTutor, error) {
	if t, ok := m.tutors[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNRTRepo) Create(ctx context.Context, tutor *models.NonResidentTutor) error {
	if m.tutors == nil {
		m.tutors = make(map[int]models.NonResidentTutor)
	}
	tutor.ID = len(m.tutors) + 1
	m.tutors[tutor.ID] = *tutor
	return nil
}

func (m *mockNRTRepo) Update(ctx context.Context, tutor *models.NonResidentTutor) error {
	m.tutors[tutor.ID] = *tutor
	return nil
}

func (m *mockNRTRepo) UpdateDerived(ctx context.Context, id, total int, counts models.YearCounts) error {
	if m.derivedUpdates == nil {
		m.derivedUpdates = make(map[int]models.NRTCountUpdate)
	}
	m.derivedUpdates[id] = models.NRTCountUpdate{ID: id, TotalStudents: total, ClassYearCounts: counts}
	return nil
}

type mockCascade struct {
	affected []models.Student
	err      error
	lastName string
}

func (m *mockCascade) DeleteResidentTutor(ctx context.Context, id int, name string) ([]models.Student, error) {
	m.lastName = name
	return m.affected, m.err
}

func (m *mockCascade) DeleteNonResidentTutor(ctx context.Context, id int, name string) ([]models.Student, error) {
	m.lastName = name
	return m.affected, m.err
}

func newRosterFixture(students []models.Student, rts map[int]models.ResidentTutor, nrts map[int]models.NonResidentTutor) (*RosterService, *mockRTRepo, *mockNRTRepo, *mockCascade) {
	rtRepo := &mockRTRepo{tutors: rts}
	nrtRepo := &mockNRTRepo{tutors: nrts}
	cascade := &mockCascade{}
	svc := NewRosterService(&mockRosterStudents{students: students}, rtRepo, nrtRepo, cascade, validator.New(), zap.NewNop())
	return svc, rtRepo, nrtRepo, cascade
}

func TestListRTsRecomputesAndPersistsStaleCounts(t *testing.T) {
	students := []models.Student{
		{RTAssignment: "Sam Ortiz"},
		{RTAssignment: "sam ortiz"},
	}
	rts := map[int]models.ResidentTutor{
		1: {ID: 1, Name: "Sam Ortiz", StudentCount: 7},
	}

	svc, rtRepo, _, _ := newRosterFixture(students, rts, nil)

	tutors, err := svc.ListRTs(context.Background(), models.TutorFilter{})
	require.NoError(t, err)
	require.Len(t, tutors, 1)
	assert.Equal(t, 2, tutors[0].StudentCount)
	assert.Equal(t, 2, rtRepo.countUpdates[1])
}

func TestListNRTsRecomputesDerivedCounts(t *testing.T) {
	students := []models.Student{
		{NRTAssignment: "Dr. Lee", ClassYear: "2025"},
		{NRTAssignment: "Dr. Lee", ClassYear: "2025"},
		{NRTAssignment: "Dr. Lee", ClassYear: "2026"},
	}
	nrts := map[int]models.NonResidentTutor{
		1: {ID: 1, Name: "Dr. Lee", TotalStudents: 0, ClassYearCounts: models.YearCounts{}},
	}

	svc, _, nrtRepo, _ := newRosterFixture(students, nil, nrts)

	tutors, err := svc.ListNRTs(context.Background(), models.TutorFilter{})
	require.NoError(t, err)
	require.Len(t, tutors, 1)
	assert.Equal(t, 3, tutors[0].TotalStudents)
	assert.Equal(t, models.YearCounts{"2025": 2, "2026": 1}, tutors[0].ClassYearCounts)

	update, ok := nrtRepo.derivedUpdates[1]
	require.True(t, ok)
	assert.Equal(t, 3, update.TotalStudents)
}

func TestCreateRTRequiresEmail(t *testing.T) {
	svc, _, _, _ := newRosterFixture(nil, nil, nil)

	_, err := svc.CreateRT(context.Background(), CreateRTRequest{Name: "Sam Ortiz", Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateNRTDefaultsStatusToActive(t *testing.T) {
	svc, _, _, _ := newRosterFixture(nil, nil, nil)

	tutor, err := svc.CreateNRT(context.Background(), CreateNRTRequest{Name: "Dr. Lee", Email: "lee@example.org"})
	require.NoError(t, err)
	assert.Equal(t, models.NRTStatusActive, tutor.Status)
	assert.NotNil(t, tutor.ClassYearCounts)
}

func TestUpdateNRTPreservesDerivedCounts(t *testing.T) {
	nrts := map[int]models.NonResidentTutor{
		1: {ID: 1, Name: "Dr. Lee", Email: "lee@example.org", TotalStudents: 2, ClassYearCounts: models.YearCounts{"2025": 2}},
	}
	svc, _, nrtRepo, _ := newRosterFixture(nil, nil, nrts)

	updated, err := svc.UpdateNRT(context.Background(), 1, UpdateNRTRequest{
		Name:   "Dr. Lee",
		Email:  "lee@newplace.org",
		Status: models.NRTStatusLeaving,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.TotalStudents)
	assert.Equal(t, models.YearCounts{"2025": 2}, updated.ClassYearCounts)
	assert.Equal(t, "lee@newplace.org", nrtRepo.tutors[1].Email)
}

func TestBulkAddNRTsSkipsInvalidRows(t *testing.T) {
	svc, _, nrtRepo, _ := newRosterFixture(nil, nil, nil)

	result, err := svc.BulkAddNRTs(context.Background(), []CreateNRTRequest{
		{Name: "Dr. Lee", Email: "lee@example.org"},
		{Name: "", Email: "missing-name@example.org"},
		{Name: "Dr. Kay", Email: "kay@example.org"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, nrtRepo.tutors, 2)
}

func TestDeleteRTReturnsAffectedStudents(t *testing.T) {
	rts := map[int]models.ResidentTutor{
		1: {ID: 1, Name: "Sam Ortiz", Email: "sam@example.edu"},
	}
	svc, _, _, cascade := newRosterFixture(nil, rts, nil)
	cascade.affected = []models.Student{
		{ID: 5, FirstName: "Ana", LastName: "Ruiz"},
	}

	result, err := svc.DeleteRT(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, result.AffectedStudents, 1)
	assert.Equal(t, "Sam Ortiz", cascade.lastName)
}

func TestDeleteNRTNotFound(t *testing.T) {
	svc, _, _, _ := newRosterFixture(nil, nil, nil)

	_, err := svc.DeleteNRT(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
