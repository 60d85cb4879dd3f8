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

const residentTutorColumns = `id, name, email, student_count, created_at, updated_at`

// ResidentTutorRepository manages persistence for resident tutors.
type ResidentTutorRepository struct {
	db *sqlx.DB
}

// NewResidentTutorRepository constructs a ResidentTutorRepository.
func NewResidentTutorRepository(db *sqlx.DB) *ResidentTutorRepository {
	return &ResidentTutorRepository{db: db}
}

// List returns resident tutors matching the filter, ordered by name.
func (r *ResidentTutorRepository) List(ctx context.Context, filter models.TutorFilter) ([]models.ResidentTutor, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d)",
			len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	query := fmt.Sprintf("SELECT %s FROM resident_tutors WHERE %s ORDER BY name",
		residentTutorColumns, strings.Join(conditions, " AND "))

	var tutors []models.ResidentTutor
	if err := r.db.SelectContext(ctx, &tutors, query, args...); err != nil {
		return nil, fmt.Errorf("list resident tutors: %w", err)
	}
	return tutors, nil
}

// FindByID fetches a resident tutor by ID.
func (r *ResidentTutorRepository) FindByID(ctx context.Context, id int) (*models.ResidentTutor, error) {
	query := fmt.Sprintf("SELECT %s FROM resident_tutors WHERE id = $1", residentTutorColumns)
	var tutor models.ResidentTutor
	if err := r.db.GetContext(ctx, &tutor, query, id); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// FindByName fetches a resident tutor by normalized name match.
func (r *ResidentTutorRepository) FindByName(ctx context.Context, name string) (*models.ResidentTutor, error) {
	query := fmt.Sprintf("SELECT %s FROM resident_tutors WHERE LOWER(TRIM(name)) = $1", residentTutorColumns)
	var tutor models.ResidentTutor
	if err := r.db.GetContext(ctx, &tutor, query, models.NormalizeName(name)); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// Create inserts a resident tutor and fills in its assigned ID.
func (r *ResidentTutorRepository) Create(ctx context.Context, tutor *models.ResidentTutor) error {
	now := time.Now().UTC()
	if tutor.CreatedAt.IsZero() {
		tutor.CreatedAt = now
	}
	tutor.UpdatedAt = now

	const query = `INSERT INTO resident_tutors (name, email, student_count, created_at, updated_at)
        VALUES (:name, :email, :student_count, :created_at, :updated_at)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, tutor)
	if err != nil {
		return fmt.Errorf("create resident tutor: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&tutor.ID); err != nil {
			return fmt.Errorf("scan resident tutor id: %w", err)
		}
	}
	return nil
}

// Update modifies a resident tutor.
func (r *ResidentTutorRepository) Update(ctx context.Context, tutor *models.ResidentTutor) error {
	tutor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE resident_tutors SET name = :name, email = :email,
        student_count = :student_count, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, tutor)
	if err != nil {
		return fmt.Errorf("update resident tutor: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStudentCount overwrites the derived student count.
func (r *ResidentTutorRepository) UpdateStudentCount(ctx context.Context, id, count int) error {
	const query = `UPDATE resident_tutors SET student_count = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, count, time.Now().UTC()); err != nil {
		return fmt.Errorf("update resident tutor count: %w", err)
	}
	return nil
}

// ReplaceAll swaps the entire resident tutor table for the provided
// rows in one transaction.
func (r *ResidentTutorRepository) ReplaceAll(ctx context.Context, tutors []models.ResidentTutor) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace resident tutors: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM resident_tutors`); err != nil {
		return fmt.Errorf("clear resident tutors: %w", err)
	}

	now := time.Now().UTC()
	const query = `INSERT INTO resident_tutors (name, email, student_count, created_at, updated_at)
        VALUES (:name, :email, :student_count, :created_at, :updated_at)`
	for i := range tutors {
		tutors[i].CreatedAt = now
		tutors[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, tutors[i]); err != nil {
			return fmt.Errorf("insert imported resident tutor: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace resident tutors: %w", err)
	}
	return nil
}
