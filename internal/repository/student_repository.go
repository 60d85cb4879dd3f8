package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/winslow-house/advising-api/internal/models"
)

const studentColumns = `id, first_name, last_name, primary_email, secondary_email, class_year,
        rt_assignment, nrt_assignment, status, phone_number, hometown, concentration, secondary,
        extracurriculars, clinical_shadowing, research_activities, medical_interests, program_interests,
        created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters, ordered by last
// then first name.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(primary_email) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.ClassYear != "" {
		conditions = append(conditions, fmt.Sprintf("class_year = $%d", len(args)+1))
		args = append(args, filter.ClassYear)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	switch filter.Unassigned {
	case "rt":
		conditions = append(conditions, "TRIM(rt_assignment) = ''")
	case "nrt":
		conditions = append(conditions, "TRIM(nrt_assignment) = ''")
	}

	query := fmt.Sprintf("SELECT %s FROM students WHERE %s ORDER BY last_name, first_name",
		studentColumns, strings.Join(conditions, " AND "))

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id int) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student record and fills in its assigned ID.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (first_name, last_name, primary_email, secondary_email, class_year,
        rt_assignment, nrt_assignment, status, phone_number, hometown, concentration, secondary,
        extracurriculars, clinical_shadowing, research_activities, medical_interests, program_interests,
        created_at, updated_at)
        VALUES (:first_name, :last_name, :primary_email, :secondary_email, :class_year,
        :rt_assignment, :nrt_assignment, :status, :phone_number, :hometown, :concentration, :secondary,
        :extracurriculars, :clinical_shadowing, :research_activities, :medical_interests, :program_interests,
        :created_at, :updated_at)
        RETURNING id`

	rows, err := r.db.NamedQueryContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&student.ID); err != nil {
			return fmt.Errorf("scan student id: %w", err)
		}
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name,
        primary_email = :primary_email, secondary_email = :secondary_email, class_year = :class_year,
        rt_assignment = :rt_assignment, nrt_assignment = :nrt_assignment, status = :status,
        phone_number = :phone_number, hometown = :hometown, concentration = :concentration,
        secondary = :secondary, extracurriculars = :extracurriculars, clinical_shadowing = :clinical_shadowing,
        research_activities = :research_activities, medical_interests = :medical_interests,
        program_interests = :program_interests, updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a student permanently.
func (r *StudentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReplaceAll swaps the entire student table for the provided rows in
// one transaction. Identities are renumbered from scratch.
func (r *StudentRepository) ReplaceAll(ctx context.Context, students []models.Student) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace students: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM students`); err != nil {
		return fmt.Errorf("clear students: %w", err)
	}

	now := time.Now().UTC()
	const query = `INSERT INTO students (first_name, last_name, primary_email, secondary_email, class_year,
        rt_assignment, nrt_assignment, status, phone_number, hometown, concentration, secondary,
        extracurriculars, clinical_shadowing, research_activities, medical_interests, program_interests,
        created_at, updated_at)
        VALUES (:first_name, :last_name, :primary_email, :secondary_email, :class_year,
        :rt_assignment, :nrt_assignment, :status, :phone_number, :hometown, :concentration, :secondary,
        :extracurriculars, :clinical_shadowing, :research_activities, :medical_interests, :program_interests,
        :created_at, :updated_at)`
	for i := range students {
		students[i].CreatedAt = now
		students[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, students[i]); err != nil {
			return fmt.Errorf("insert imported student: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace students: %w", err)
	}
	return nil
}
