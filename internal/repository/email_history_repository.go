package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/winslow-house/advising-api/internal/models"
)

// EmailHistoryRepository manages the append-only email send log.
type EmailHistoryRepository struct {
	db *sqlx.DB
}

// NewEmailHistoryRepository constructs an EmailHistoryRepository.
func NewEmailHistoryRepository(db *sqlx.DB) *EmailHistoryRepository {
	return &EmailHistoryRepository{db: db}
}

// Append records one sent email.
func (r *EmailHistoryRepository) Append(ctx context.Context, entry *models.EmailHistory) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now().UTC()
	}
	if entry.Recipients == nil {
		entry.Recipients = models.StringList{}
	}
	if entry.CCRecipients == nil {
		entry.CCRecipients = models.StringList{}
	}

	const query = `INSERT INTO email_history (student_id, subject, body, recipients, cc_recipients, batch_id, sent_by, sent_at)
        VALUES (:student_id, :subject, :body, :recipients, :cc_recipients, :batch_id, :sent_by, :sent_at)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("append email history: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&entry.ID); err != nil {
			return fmt.Errorf("scan email history id: %w", err)
		}
	}
	return nil
}

// ListByStudent returns a student's send log, newest first.
func (r *EmailHistoryRepository) ListByStudent(ctx context.Context, studentID int) ([]models.EmailHistory, error) {
	const query = `SELECT id, student_id, subject, body, recipients, cc_recipients, batch_id, sent_by, sent_at
        FROM email_history WHERE student_id = $1 ORDER BY sent_at DESC`
	var entries []models.EmailHistory
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("list email history: %w", err)
	}
	return entries, nil
}
