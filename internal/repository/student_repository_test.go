package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winslow-house/advising-api/internal/models"
)

func TestStudentRepositoryListUnassignedFilter(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "primary_email", "class_year", "status", "created_at", "updated_at"}).
		AddRow(1, "Ana", "Ruiz", "ana@example.edu", "2026", models.StatusNotApplying, time.Now(), time.Now())
	mock.ExpectQuery(`FROM students WHERE 1=1 AND TRIM\(rt_assignment\) = '' ORDER BY last_name, first_name`).
		WillReturnRows(rows)

	students, err := repo.List(context.Background(), models.StudentFilter{Unassigned: "rt"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Ana", students[0].FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListSearchLowercasesTerm(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`FROM students WHERE 1=1 AND \(LOWER\(first_name\) LIKE \$1`).
		WithArgs("%ruiz%").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.List(context.Background(), models.StudentFilter{Search: "RuiZ"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateScansReturnedID(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("INSERT INTO students").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	student := &models.Student{FirstName: "Ana", LastName: "Ruiz", PrimaryEmail: "ana@example.edu"}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.Equal(t, 7, student.ID)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET first_name").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Student{ID: 99, FirstName: "Ana"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("DELETE FROM students WHERE id").
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 99)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryReplaceAllRunsInOneTransaction(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM students").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := repo.ReplaceAll(context.Background(), []models.Student{
		{FirstName: "Ana", LastName: "Ruiz", PrimaryEmail: "ana@example.edu"},
		{FirstName: "Bo", LastName: "Chan", PrimaryEmail: "bo@example.edu"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
