package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
	"github.com/winslow-house/advising-api/pkg/mailer"
)

type emailTemplateRepo interface {
	List(ctx context.Context) ([]models.EmailTemplate, error)
	FindByID(ctx context.Context, id int) (*models.EmailTemplate, error)
	ExistsByName(ctx context.Context, name string, excludeID int) (bool, error)
	Create(ctx context.Context, template *models.EmailTemplate) error
	Update(ctx context.Context, template *models.EmailTemplate) error
	Delete(ctx context.Context, id int) error
}

type emailHistoryRepo interface {
	Append(ctx context.Context, entry *models.EmailHistory) error
	ListByStudent(ctx context.Context, studentID int) ([]models.EmailHistory, error)
}

type emailStudentRepo interface {
	FindByID(ctx context.Context, id int) (*models.Student, error)
}

type emailRTRepo interface {
	FindByName(ctx context.Context, name string) (*models.ResidentTutor, error)
}

type emailNRTRepo interface {
	FindByName(ctx context.Context, name string) (*models.NonResidentTutor, error)
}

// TemplateRequest is the payload for creating or updating a template.
type TemplateRequest struct {
	Name    string `json:"name" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

// SendEmailRequest sends a template to one or more students.
type SendEmailRequest struct {
	TemplateID int      `json:"template_id" validate:"required"`
	StudentIDs []int    `json:"student_ids" validate:"required,min=1"`
	CC         []string `json:"cc" validate:"omitempty,dive,email"`
	CCAdvisors bool     `json:"cc_advisors"`
}

// RenderedEmail is a template resolved against one student.
type RenderedEmail struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	To      []string `json:"to"`
	CC      []string `json:"cc"`
}

// SendReport summarizes a send batch.
type SendReport struct {
	BatchID string `json:"batch_id"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
}

// EmailService manages templates and sends placeholder-resolved
// notifications to students, optionally copying their advisors.
type EmailService struct {
	templates emailTemplateRepo
	history   emailHistoryRepo
	students  emailStudentRepo
	rts       emailRTRepo
	nrts      emailNRTRepo
	sender    mailer.Sender
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEmailService creates a service instance.
func NewEmailService(
	templates emailTemplateRepo,
	history emailHistoryRepo,
	students emailStudentRepo,
	rts emailRTRepo,
	nrts emailNRTRepo,
	sender mailer.Sender,
	validate *validator.Validate,
	logger *zap.Logger,
) *EmailService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailService{
		templates: templates,
		history:   history,
		students:  students,
		rts:       rts,
		nrts:      nrts,
		sender:    sender,
		validator: validate,
		logger:    logger,
	}
}

// ListTemplates returns all templates.
func (s *EmailService) ListTemplates(ctx context.Context) ([]models.EmailTemplate, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}
	return templates, nil
}

// GetTemplate fetches one template.
func (s *EmailService) GetTemplate(ctx context.Context, id int) (*models.EmailTemplate, error) {
	template, err := s.templates.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "email template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	return template, nil
}

// CreateTemplate adds a template. Names must be unique.
func (s *EmailService) CreateTemplate(ctx context.Context, req TemplateRequest) (*models.EmailTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	exists, err := s.templates.ExistsByName(ctx, req.Name, 0)
	if err != nil {
		return nil, persistenceError(err, "failed to check template name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a template with this name already exists")
	}

	template := &models.EmailTemplate{
		Name:    strings.TrimSpace(req.Name),
		Subject: req.Subject,
		Body:    req.Body,
	}
	if err := s.templates.Create(ctx, template); err != nil {
		return nil, persistenceError(err, "failed to create template")
	}
	return template, nil
}

// UpdateTemplate modifies a template.
func (s *EmailService) UpdateTemplate(ctx context.Context, id int, req TemplateRequest) (*models.EmailTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	existing, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.templates.ExistsByName(ctx, req.Name, id)
	if err != nil {
		return nil, persistenceError(err, "failed to check template name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a template with this name already exists")
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.Subject = req.Subject
	existing.Body = req.Body
	if err := s.templates.Update(ctx, existing); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "email template not found")
		}
		return nil, persistenceError(err, "failed to update template")
	}
	return existing, nil
}

// DeleteTemplate removes a template.
func (s *EmailService) DeleteTemplate(ctx context.Context, id int) error {
	if err := s.templates.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "email template not found")
		}
		return persistenceError(err, "failed to delete template")
	}
	return nil
}

// Preview renders a template against a student without sending.
func (s *EmailService) Preview(ctx context.Context, templateID, studentID int) (*RenderedEmail, error) {
	template, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, persistenceError(err, "failed to load student")
	}
	rendered := s.render(ctx, template, student, true, nil)
	return rendered, nil
}

// Send delivers a template to each listed student. Every message in
// the batch shares a batch ID in the history log. Failures are counted
// per student and do not abort the batch.
func (s *EmailService) Send(ctx context.Context, req SendEmailRequest, sentBy string) (SendReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return SendReport{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid send payload")
	}
	template, err := s.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return SendReport{}, err
	}

	report := SendReport{BatchID: uuid.NewString()}
	for _, studentID := range req.StudentIDs {
		student, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			s.logger.Warn("send_skip_missing_student", zap.Int("student_id", studentID), zap.Error(err))
			report.Failed++
			continue
		}
		rendered := s.render(ctx, template, student, req.CCAdvisors, req.CC)
		if len(rendered.To) == 0 {
			s.logger.Warn("send_skip_no_recipients", zap.Int("student_id", studentID))
			report.Failed++
			continue
		}

		msg := mailer.Message{
			To:      rendered.To,
			CC:      rendered.CC,
			Subject: rendered.Subject,
			Body:    rendered.Body,
		}
		if err := s.sender.Send(msg); err != nil {
			s.logger.Error("send_failed", zap.Int("student_id", studentID), zap.Error(err))
			report.Failed++
			continue
		}

		entry := &models.EmailHistory{
			StudentID:    student.ID,
			Subject:      rendered.Subject,
			Body:         rendered.Body,
			Recipients:   rendered.To,
			CCRecipients: rendered.CC,
			BatchID:      report.BatchID,
			SentBy:       sentBy,
		}
		if err := s.history.Append(ctx, entry); err != nil {
			s.logger.Warn("history_append_failed", zap.Int("student_id", studentID), zap.Error(err))
		}
		report.Sent++
	}

	s.logger.Info("email_batch_sent",
		zap.String("batch_id", report.BatchID),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// History returns a student's send log.
func (s *EmailService) History(ctx context.Context, studentID int) ([]models.EmailHistory, error) {
	entries, err := s.history.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list email history")
	}
	return entries, nil
}

// render resolves placeholders and builds the recipient lists. Stale
// advisor names on the student resolve to empty placeholder values.
func (s *EmailService) render(ctx context.Context, template *models.EmailTemplate, student *models.Student, ccAdvisors bool, extraCC []string) *RenderedEmail {
	var rtName, rtEmail, nrtName, nrtEmail string
	if name := models.NormalizeName(student.RTAssignment); name != "" {
		if rt, err := s.rts.FindByName(ctx, student.RTAssignment); err == nil && rt != nil {
			rtName = rt.Name
			rtEmail = rt.Email
		} else {
			rtName = strings.TrimSpace(student.RTAssignment)
		}
	}
	if name := models.NormalizeName(student.NRTAssignment); name != "" {
		if nrt, err := s.nrts.FindByName(ctx, student.NRTAssignment); err == nil && nrt != nil {
			nrtName = nrt.Name
			nrtEmail = nrt.Email
		} else {
			nrtName = strings.TrimSpace(student.NRTAssignment)
		}
	}

	replacer := strings.NewReplacer(
		models.PlaceholderStudent, student.FullName(),
		models.PlaceholderStudentFirstName, student.FirstName,
		models.PlaceholderStudentLastName, student.LastName,
		models.PlaceholderClassYear, student.ClassYear,
		models.PlaceholderRT, rtName,
		models.PlaceholderRTEmail, rtEmail,
		models.PlaceholderNRT, nrtName,
		models.PlaceholderNRTEmail, nrtEmail,
	)

	to := make([]string, 0, 2)
	if email := strings.TrimSpace(student.PrimaryEmail); email != "" {
		to = append(to, email)
	}
	if email := strings.TrimSpace(student.SecondaryEmail); email != "" {
		to = append(to, email)
	}

	cc := make([]string, 0, len(extraCC)+2)
	if ccAdvisors {
		if rtEmail != "" {
			cc = append(cc, rtEmail)
		}
		if nrtEmail != "" {
			cc = append(cc, nrtEmail)
		}
	}
	for _, addr := range extraCC {
		if addr = strings.TrimSpace(addr); addr != "" {
			cc = append(cc, addr)
		}
	}

	return &RenderedEmail{
		Subject: replacer.Replace(template.Subject),
		Body:    replacer.Replace(template.Body),
		To:      to,
		CC:      cc,
	}
}
