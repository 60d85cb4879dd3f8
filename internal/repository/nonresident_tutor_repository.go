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

const nonResidentTutorColumns = `id, name, email, status, total_students, class_year_counts,
        phone_number, affiliation, id_number, stage_of_training, time_in_town, medical_interests,
        outside_interests, shadowing_interest, research_interest, events_interest, specific_events,
        created_at, updated_at`

// NonResidentTutorRepository manages persistence for non-resident tutors.
type NonResidentTutorRepository struct {
	db *sqlx.DB
}

// NewNonResidentTutorRepository constructs a NonResidentTutorRepository.
func NewNonResidentTutorRepository(db *sqlx.DB) *NonResidentTutorRepository {
	return &NonResidentTutorRepository{db: db}
}

// List returns non-resident tutors matching the filter, ordered by name.
func (r *NonResidentTutorRepository) List(ctx context.Context, filter models.TutorFilter) ([]models.NonResidentTutor, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d)",
			len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(TRIM(status)) = $%d", len(args)+1))
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Status)))
	}

	query := fmt.Sprintf("SELECT %s FROM nonresident_tutors WHERE %s ORDER BY name",
		nonResidentTutorColumns, strings.Join(conditions, " AND "))

	var tutors []models.NonResidentTutor
	if err := r.db.SelectContext(ctx, &tutors, query, args...); err != nil {
		return nil, fmt.Errorf("list nonresident tutors: %w", err)
	}
	return tutors, nil
}

// FindByID fetches a non-resident tutor by ID.
func (r *NonResidentTutorRepository) FindByID(ctx context.Context, id int) (*models.NonResidentTutor, error) {
	query := fmt.Sprintf("SELECT %s FROM nonresident_tutors WHERE id = $1", nonResidentTutorColumns)
	var tutor models.NonResidentTutor
	if err := r.db.GetContext(ctx, &tutor, query, id); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// FindByName fetches a non-resident tutor by normalized name match.
func (r *NonResidentTutorRepository) FindByName(ctx context.Context, name string) (*models.NonResidentTutor, error) {
	query := fmt.Sprintf("SELECT %s FROM nonresident_tutors WHERE LOWER(TRIM(name)) = $1", nonResidentTutorColumns)
	var tutor models.NonResidentTutor
	if err := r.db.GetContext(ctx, &tutor, query, models.NormalizeName(name)); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// Create inserts a non-resident tutor and fills in its assigned ID.
func (r *NonResidentTutorRepository) Create(ctx context.Context, tutor *models.NonResidentTutor) error {
	now := time.Now().UTC()
	if tutor.CreatedAt.IsZero() {
		tutor.CreatedAt = now
	}
	tutor.UpdatedAt = now
	if tutor.ClassYearCounts == nil {
		tutor.ClassYearCounts = models.YearCounts{}
	}

	const query = `INSERT INTO nonresident_tutors (name, email, status, total_students, class_year_counts,
        phone_number, affiliation, id_number, stage_of_training, time_in_town, medical_interests,
        outside_interests, shadowing_interest, research_interest, events_interest, specific_events,
        created_at, updated_at)
        VALUES (:name, :email, :status, :total_students, :class_year_counts,
        :phone_number, :affiliation, :id_number, :stage_of_training, :time_in_town, :medical_interests,
        :outside_interests, :shadowing_interest, :research_interest, :events_interest, :specific_events,
        :created_at, :updated_at)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, tutor)
	if err != nil {
		return fmt.Errorf("create nonresident tutor: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&tutor.ID); err != nil {
			return fmt.Errorf("scan nonresident tutor id: %w", err)
		}
	}
	return nil
}

// Update modifies a non-resident tutor.
func (r *NonResidentTutorRepository) Update(ctx context.Context, tutor *models.NonResidentTutor) error {
	tutor.UpdatedAt = time.Now().UTC()
	if tutor.ClassYearCounts == nil {
		tutor.ClassYearCounts = models.YearCounts{}
	}
	const query = `UPDATE nonresident_tutors SET name = :name, email = :email, status = :status,
        total_students = :total_students, class_year_counts = :class_year_counts,
        phone_number = :phone_number, affiliation = :affiliation, id_number = :id_number,
        stage_of_training = :stage_of_training, time_in_town = :time_in_town,
        medical_interests = :medical_interests, outside_interests = :outside_interests,
        shadowing_interest = :shadowing_interest, research_interest = :research_interest,
        events_interest = :events_interest, specific_events = :specific_events,
        updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, tutor)
	if err != nil {
		return fmt.Errorf("update nonresident tutor: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateDerived overwrites the derived total and class-year counts.
func (r *NonResidentTutorRepository) UpdateDerived(ctx context.Context, id, total int, counts models.YearCounts) error {
	if counts == nil {
		counts = models.YearCounts{}
	}
	const query = `UPDATE nonresident_tutors SET total_students = $2, class_year_counts = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, total, counts, time.Now().UTC()); err != nil {
		return fmt.Errorf("update nonresident tutor derived counts: %w", err)
	}
	return nil
}

// ReplaceAll swaps the entire non-resident tutor table for the provided
// rows in one transaction.
func (r *NonResidentTutorRepository) ReplaceAll(ctx context.Context, tutors []models.NonResidentTutor) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace nonresident tutors: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM nonresident_tutors`); err != nil {
		return fmt.Errorf("clear nonresident tutors: %w", err)
	}

	now := time.Now().UTC()
	const query = `INSERT INTO nonresident_tutors (name, email, status, total_students, class_year_counts,
        phone_number, affiliation, id_number, stage_of_training, time_in_town, medical_interests,
        outside_interests, shadowing_interest, research_interest, events_interest, specific_events,
        created_at, updated_at)
        VALUES (:name, :email, :status, :total_students, :class_year_counts,
        :phone_number, :affiliation, :id_number, :stage_of_training, :time_in_town, :medical_interests,
        :outside_interests, :shadowing_interest, :research_interest, :events_interest, :specific_events,
        :created_at, :updated_at)`
	for i := range tutors {
		tutors[i].CreatedAt = now
		tutors[i].UpdatedAt = now
		if tutors[i].ClassYearCounts == nil {
			tutors[i].ClassYearCounts = models.YearCounts{}
		}
		if _, err := tx.NamedExecContext(ctx, query, tutors[i]); err != nil {
			return fmt.Errorf("insert imported nonresident tutor: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace nonresident tutors: %w", err)
	}
	return nil
}
