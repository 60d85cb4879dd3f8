package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/winslow-house/advising-api/internal/models"
)

// EmailTemplateRepository manages persistence for email templates.
type EmailTemplateRepository struct {
	db *sqlx.DB
}

// NewEmailTemplateRepository constructs an EmailTemplateRepository.
func NewEmailTemplateRepository(db *sqlx.DB) *EmailTemplateRepository {
	return &EmailTemplateRepository{db: db}
}

// List returns all templates ordered by name.
func (r *EmailTemplateRepository) List(ctx context.Context) ([]models.EmailTemplate, error) {
	const query = `SELECT id, name, subject, body, created_at, updated_at FROM email_templates ORDER BY name`
	var templates []models.EmailTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list email templates: %w", err)
	}
	return templates, nil
}

// FindByID fetches a template by ID.
func (r *EmailTemplateRepository) FindByID(ctx context.Context, id int) (*models.EmailTemplate, error) {
	const query = `SELECT id, name, subject, body, created_at, updated_at FROM email_templates WHERE id = $1`
	var template models.EmailTemplate
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		return nil, err
	}
	return &template, nil
}

// ExistsByName checks template name uniqueness, optionally excluding an ID.
func (r *EmailTemplateRepository) ExistsByName(ctx context.Context, name string, excludeID int) (bool, error) {
	query := "SELECT 1 FROM email_templates WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID > 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check template name: %w", err)
	}
	return true, nil
}

// Create inserts a template and fills in its assigned ID.
func (r *EmailTemplateRepository) Create(ctx context.Context, template *models.EmailTemplate) error {
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}
	template.UpdatedAt = now

	const query = `INSERT INTO email_templates (name, subject, body, created_at, updated_at)
        VALUES (:name, :subject, :body, :created_at, :updated_at)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, template)
	if err != nil {
		return fmt.Errorf("create email template: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&template.ID); err != nil {
			return fmt.Errorf("scan email template id: %w", err)
		}
	}
	return nil
}

// Update modifies a template.
func (r *EmailTemplateRepository) Update(ctx context.Context, template *models.EmailTemplate) error {
	template.UpdatedAt = time.Now().UTC()
	const query = `UPDATE email_templates SET name = :name, subject = :subject, body = :body,
        updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, template)
	if err != nil {
		return fmt.Errorf("update email template: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a template.
func (r *EmailTemplateRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM email_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete email template: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
