package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winslow-house/advising-api/internal/models"
)

func newAssignmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSetRTAssignmentCommitsStudentAndCounts(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET rt_assignment").
		WithArgs(1, "Kim Doyle", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE resident_tutors SET student_count").
		WithArgs(11, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE resident_tutors SET student_count").
		WithArgs(10, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetRTAssignment(context.Background(), 1, "Kim Doyle", []models.RTCountUpdate{
		{ID: 11, StudentCount: 3},
		{ID: 10, StudentCount: 2},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRTAssignmentMissingStudentRollsBack(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET rt_assignment").
		WithArgs(99, "Kim Doyle", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetRTAssignment(context.Background(), 99, "Kim Doyle", []models.RTCountUpdate{
		{ID: 11, StudentCount: 3},
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetNRTAssignmentWritesDerivedCounts(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET nrt_assignment").
		WithArgs(1, "Dr. Lee", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE nonresident_tutors SET total_students").
		WithArgs(20, 2, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetNRTAssignment(context.Background(), 1, "Dr. Lee", []models.NRTCountUpdate{
		{ID: 20, TotalStudents: 2, ClassYearCounts: models.YearCounts{"2026": 2}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetNRTAssignmentCountUpdateFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET nrt_assignment").
		WithArgs(1, "Dr. Lee", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE nonresident_tutors SET total_students").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.SetNRTAssignment(context.Background(), 1, "Dr. Lee", []models.NRTCountUpdate{
		{ID: 20, TotalStudents: 2},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteResidentTutorCascade(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	affected := sqlmock.NewRows([]string{"id", "first_name", "last_name"}).
		AddRow(5, "Ana", "Ruiz")

	mock.ExpectBegin()
	mock.ExpectQuery("FROM students WHERE LOWER").
		WithArgs("sam ortiz").
		WillReturnRows(affected)
	mock.ExpectExec("UPDATE students SET rt_assignment").
		WithArgs("sam ortiz", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM resident_tutors").
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	students, err := repo.DeleteResidentTutor(context.Background(), 10, " Sam Ortiz ")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Ana", students[0].FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNonResidentTutorMissingRowRollsBack(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM students WHERE LOWER").
		WithArgs("dr. gone").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("UPDATE students SET nrt_assignment").
		WithArgs("dr. gone", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM nonresident_tutors").
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.DeleteNonResidentTutor(context.Background(), 42, "Dr. Gone")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
