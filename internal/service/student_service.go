package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
)

type studentRepo interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id int) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int) error
}

// StudentRequest is the shared payload for creating, updating, and
// restoring students. At least one email is required.
type StudentRequest struct {
	FirstName          string `json:"first_name" validate:"required"`
	LastName           string `json:"last_name" validate:"required"`
	PrimaryEmail       string `json:"primary_email" validate:"omitempty,email"`
	SecondaryEmail     string `json:"secondary_email" validate:"omitempty,email"`
	ClassYear          string `json:"class_year"`
	RTAssignment       string `json:"rt_assignment"`
	NRTAssignment      string `json:"nrt_assignment"`
	Status             string `json:"status"`
	PhoneNumber        string `json:"phone_number"`
	Hometown           string `json:"hometown"`
	Concentration      string `json:"concentration"`
	Secondary          string `json:"secondary"`
	Extracurriculars   string `json:"extracurriculars"`
	ClinicalShadowing  string `json:"clinical_shadowing"`
	ResearchActivities string `json:"research_activities"`
	MedicalInterests   string `json:"medical_interests"`
	ProgramInterests   string `json:"program_interests"`
}

// StudentService manages the advisee roster.
type StudentService struct {
	students  studentRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService creates a service instance.
func NewStudentService(students studentRepo, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, validator: validate, logger: logger}
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	students, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// Get fetches one student.
func (s *StudentService) Get(ctx context.Context, id int) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create adds a student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	student := studentFromRequest(req)
	if err := s.students.Create(ctx, student); err != nil {
		return nil, persistenceError(err, "failed to create student")
	}
	return student, nil
}

// Update replaces a student's fields.
func (s *StudentService) Update(ctx context.Context, id int, req StudentRequest) (*models.Student, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	student := studentFromRequest(req)
	student.ID = existing.ID
	student.CreatedAt = existing.CreatedAt
	if err := s.students.Update(ctx, student); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, persistenceError(err, "failed to update student")
	}
	return student, nil
}

// Delete removes a student permanently. The response of the handler
// includes the deleted record so the client can offer a restore.
func (s *StudentService) Delete(ctx context.Context, id int) (*models.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.students.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, persistenceError(err, "failed to delete student")
	}
	s.logger.Info("student_deleted", zap.Int("student_id", id))
	return student, nil
}

// Restore re-inserts a previously deleted student, assignments
// included. The record gets a fresh identity.
func (s *StudentService) Restore(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	student := studentFromRequest(req)
	if err := s.students.Create(ctx, student); err != nil {
		return nil, persistenceError(err, "failed to restore student")
	}
	s.logger.Info("student_restored", zap.Int("student_id", student.ID))
	return student, nil
}

// BulkAdd inserts many students, skipping rows that lack an identity
// (both names plus at least one email).
func (s *StudentService) BulkAdd(ctx context.Context, reqs []StudentRequest) (BulkResult, error) {
	result := BulkResult{}
	for _, req := range reqs {
		if s.validateRequest(req) != nil {
			result.Failed++
			continue
		}
		if err := s.students.Create(ctx, studentFromRequest(req)); err != nil {
			s.logger.Warn("bulk_student_insert_failed",
				zap.String("email", req.PrimaryEmail),
				zap.Error(err),
			)
			result.Failed++
			continue
		}
		result.Success++
	}
	return result, nil
}

func (s *StudentService) validateRequest(req StudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if strings.TrimSpace(req.PrimaryEmail) == "" && strings.TrimSpace(req.SecondaryEmail) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "at least one email is required")
	}
	return nil
}

func studentFromRequest(req StudentRequest) *models.Student {
	status := req.Status
	if status == "" {
		status = models.StatusNotApplying
	}
	return &models.Student{
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		PrimaryEmail:       strings.TrimSpace(req.PrimaryEmail),
		SecondaryEmail:     strings.TrimSpace(req.SecondaryEmail),
		ClassYear:          strings.TrimSpace(req.ClassYear),
		RTAssignment:       req.RTAssignment,
		NRTAssignment:      req.NRTAssignment,
		Status:             status,
		PhoneNumber:        req.PhoneNumber,
		Hometown:           req.Hometown,
		Concentration:      req.Concentration,
		Secondary:          req.Secondary,
		Extracurriculars:   req.Extracurriculars,
		ClinicalShadowing:  req.ClinicalShadowing,
		ResearchActivities: req.ResearchActivities,
		MedicalInterests:   req.MedicalInterests,
		ProgramInterests:   req.ProgramInterests,
	}
}
