package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/winslow-house/advising-api/internal/models"
)

// AssignmentRepository executes the multi-entity writes of the
// assignment engine. Each method runs its student update and every
// tutor count update in a single transaction, so a failure leaves no
// partial state behind.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// SetRTAssignment writes the student's rt_assignment field and the
// given resident tutor counts atomically. An empty assignment clears
// the field.
func (r *AssignmentRepository) SetRTAssignment(ctx context.Context, studentID int, assignment string, counts []models.RTCountUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rt assignment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := updateStudentAssignment(ctx, tx, studentID, "rt_assignment", assignment); err != nil {
		return err
	}
	for _, c := range counts {
		const query = `UPDATE resident_tutors SET student_count = $2, updated_at = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, c.ID, c.StudentCount, time.Now().UTC()); err != nil {
			return fmt.Errorf("update resident tutor %d count: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rt assignment: %w", err)
	}
	return nil
}

// SetNRTAssignment writes the student's nrt_assignment field and the
// given non-resident tutor counts atomically. An empty assignment
// clears the field.
func (r *AssignmentRepository) SetNRTAssignment(ctx context.Context, studentID int, assignment string, counts []models.NRTCountUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin nrt assignment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := updateStudentAssignment(ctx, tx, studentID, "nrt_assignment", assignment); err != nil {
		return err
	}
	for _, c := range counts {
		yearCounts := c.ClassYearCounts
		if yearCounts == nil {
			yearCounts = models.YearCounts{}
		}
		const query = `UPDATE nonresident_tutors SET total_students = $2, class_year_counts = $3, updated_at = $4 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, c.ID, c.TotalStudents, yearCounts, time.Now().UTC()); err != nil {
			return fmt.Errorf("update nonresident tutor %d counts: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit nrt assignment: %w", err)
	}
	return nil
}

// DeleteResidentTutor removes the tutor and clears the matching
// assignment field on every affected student, atomically. The affected
// students are returned.
func (r *AssignmentRepository) DeleteResidentTutor(ctx context.Context, id int, name string) ([]models.Student, error) {
	return r.deleteTutorCascade(ctx, "resident_tutors", "rt_assignment", id, name)
}

// DeleteNonResidentTutor removes the tutor and clears the matching
// assignment field on every affected student, atomically. The affected
// students are returned.
func (r *AssignmentRepository) DeleteNonResidentTutor(ctx context.Context, id int, name string) ([]models.Student, error) {
	return r.deleteTutorCascade(ctx, "nonresident_tutors", "nrt_assignment", id, name)
}

func (r *AssignmentRepository) deleteTutorCascade(ctx context.Context, table, column string, id int, name string) ([]models.Student, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tutor delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	normalized := models.NormalizeName(name)

	selectQuery := fmt.Sprintf("SELECT %s FROM students WHERE LOWER(TRIM(%s)) = $1", studentColumns, column)
	var affected []models.Student
	if err := tx.SelectContext(ctx, &affected, selectQuery, normalized); err != nil {
		return nil, fmt.Errorf("select affected students: %w", err)
	}

	clearQuery := fmt.Sprintf("UPDATE students SET %s = '', updated_at = $2 WHERE LOWER(TRIM(%s)) = $1", column, column)
	if _, err := tx.ExecContext(ctx, clearQuery, normalized, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("clear student assignments: %w", err)
	}

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE id = $1", table)
	result, err := tx.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		return nil, fmt.Errorf("delete tutor: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tutor delete: %w", err)
	}
	return affected, nil
}

func updateStudentAssignment(ctx context.Context, tx *sqlx.Tx, studentID int, column, value string) error {
	query := fmt.Sprintf("UPDATE students SET %s = $2, updated_at = $3 WHERE id = $1", column)
	result, err := tx.ExecContext(ctx, query, studentID, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student %s: %w", column, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
