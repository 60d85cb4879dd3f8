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

type mockStudentStore struct {
	students map[int]models.Student
	deleted  []int
	nextID   int
}

func (m *mockStudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockStudentStore) FindByID(ctx context.Context, id int) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentStore) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[int]models.Student)
	}
	m.nextID++
	student.ID = m.nextID
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentStore) Update(ctx context.Context, student *models.Student) error {
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentStore) Delete(ctx context.Context, id int) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func TestStudentCreateRequiresAnEmail(t *testing.T) {
	repo := &mockStudentStore{}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), StudentRequest{FirstName: "Ana", LastName: "Ruiz"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	student, err := svc.Create(context.Background(), StudentRequest{
		FirstName:      "Ana",
		LastName:       "Ruiz",
		SecondaryEmail: "ana.backup@example.edu",
	})
	require.NoError(t, err)
	assert.NotZero(t, student.ID)
}

func TestStudentCreateDefaultsStatus(t *testing.T) {
	repo := &mockStudentStore{}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	student, err := svc.Create(context.Background(), StudentRequest{
		FirstName:    "  Ana ",
		LastName:     "Ruiz",
		PrimaryEmail: " ana@example.edu ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotApplying, student.Status)
	assert.Equal(t, "Ana", student.FirstName)
	assert.Equal(t, "ana@example.edu", student.PrimaryEmail)
}

func TestStudentDeleteReturnsRecordForUndo(t *testing.T) {
	repo := &mockStudentStore{students: map[int]models.Student{
		1: {ID: 1, FirstName: "Ana", LastName: "Ruiz", PrimaryEmail: "ana@example.edu", RTAssignment: "Sam Ortiz"},
	}}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	deleted, err := svc.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Sam Ortiz", deleted.RTAssignment)
	assert.Contains(t, repo.deleted, 1)
}

func TestStudentRestoreGetsFreshIdentity(t *testing.T) {
	repo := &mockStudentStore{nextID: 40}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	restored, err := svc.Restore(context.Background(), StudentRequest{
		FirstName:    "Ana",
		LastName:     "Ruiz",
		PrimaryEmail: "ana@example.edu",
		RTAssignment: "Sam Ortiz",
	})
	require.NoError(t, err)
	assert.Equal(t, 41, restored.ID)
	assert.Equal(t, "Sam Ortiz", restored.RTAssignment)
}

func TestStudentBulkAddSkipsInvalidRows(t *testing.T) {
	repo := &mockStudentStore{}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	result, err := svc.BulkAdd(context.Background(), []StudentRequest{
		{FirstName: "Ana", LastName: "Ruiz", PrimaryEmail: "ana@example.edu"},
		{FirstName: "", LastName: "Chan", PrimaryEmail: "bo@example.edu"},
		{FirstName: "Cy", LastName: "Diaz"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 2, result.Failed)
}

func TestStudentUpdateNotFound(t *testing.T) {
	svc := NewStudentService(&mockStudentStore{}, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), 9, StudentRequest{
		FirstName:    "Ana",
		LastName:     "Ruiz",
		PrimaryEmail: "ana@example.edu",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
