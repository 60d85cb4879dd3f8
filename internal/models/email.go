package models

import "time"

// Placeholder tokens recognized in email template subjects and bodies.
const (
	PlaceholderStudent          = "{Student}"
	PlaceholderStudentFirstName = "{StudentFirstName}"
	PlaceholderStudentLastName  = "{StudentLastName}"
	PlaceholderClassYear        = "{ClassYear}"
	PlaceholderRT               = "{RT}"
	PlaceholderRTEmail          = "{RTEmail}"
	PlaceholderNRT              = "{NRT}"
	PlaceholderNRTEmail         = "{NRTEmail}"
)

// EmailTemplate is a reusable notification template with placeholder
// tokens resolved against a student and their assigned tutors.
type EmailTemplate struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Subject   string    `db:"subject" json:"subject"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EmailHistory is one entry in the append-only send log.
type EmailHistory struct {
	ID           int        `db:"id" json:"id"`
	StudentID    int        `db:"student_id" json:"student_id"`
	Subject      string     `db:"subject" json:"subject"`
	Body         string     `db:"body" json:"body"`
	Recipients   StringList `db:"recipients" json:"recipients"`
	CCRecipients StringList `db:"cc_recipients" json:"cc_recipients"`
	BatchID      string     `db:"batch_id" json:"batch_id"`
	SentBy       string     `db:"sent_by" json:"sent_by"`
	SentAt       time.Time  `db:"sent_at" json:"sent_at"`
}
