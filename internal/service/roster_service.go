package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
)

type rosterStudentRepo interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

type residentTutorRepo interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.ResidentTutor, error)
	FindByID(ctx context.Context, id int) (*models.ResidentTutor, error)
	Create(ctx context.Context, tutor *models.ResidentTutor) error
	Update(ctx context.Context, tutor *models.ResidentTutor) error
	UpdateStudentCount(ctx context.Context, id, count int) error
}

type nonResidentTutorRepo interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.NonResidentTutor, error)
	FindByID(ctx context.Context, id int) (*models.NonResidentTutor, error)
	Create(ctx context.Context, tutor *models.NonResidentTutor) error
	Update(ctx context.Context, tutor *models.NonResidentTutor) error
	UpdateDerived(ctx context.Context, id, total int, counts models.YearCounts) error
}

type tutorCascadeRepo interface {
	DeleteResidentTutor(ctx context.Context, id int, name string) ([]models.Student, error)
	DeleteNonResidentTutor(ctx context.Context, id int, name string) ([]models.Student, error)
}

// CreateRTRequest describes a new resident tutor.
type CreateRTRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// UpdateRTRequest describes resident tutor edits.
type UpdateRTRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// CreateNRTRequest describes a new non-resident tutor.
type CreateNRTRequest struct {
	Name              string `json:"name" validate:"required"`
	Email             string `json:"email" validate:"required,email"`
	Status            string `json:"status"`
	PhoneNumber       string `json:"phone_number"`
	Affiliation       string `json:"affiliation"`
	IDNumber          string `json:"id_number"`
	StageOfTraining   string `json:"stage_of_training"`
	TimeInTown        string `json:"time_in_town"`
	MedicalInterests  string `json:"medical_interests"`
	OutsideInterests  string `json:"outside_interests"`
	ShadowingInterest string `json:"shadowing_interest"`
	ResearchInterest  string `json:"research_interest"`
	EventsInterest    string `json:"events_interest"`
	SpecificEvents    string `json:"specific_events"`
}

// UpdateNRTRequest describes non-resident tutor edits.
type UpdateNRTRequest CreateNRTRequest

// BulkResult reports how many bulk rows were accepted.
type BulkResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// DeleteTutorResult reports a tutor removal and which students lost
// their assignment as a result.
type DeleteTutorResult struct {
	AffectedStudents []models.Student `json:"affected_students"`
}

// RosterService manages the tutor rosters and keeps their derived
// counts honest by recomputing from the student table on every read.
type RosterService struct {
	students  rosterStudentRepo
	rts       residentTutorRepo
	nrts      nonResidentTutorRepo
	cascade   tutorCascadeRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService creates a service instance.
func NewRosterService(
	students rosterStudentRepo,
	rts residentTutorRepo,
	nrts nonResidentTutorRepo,
	cascade tutorCascadeRepo,
	validate *validator.Validate,
	logger *zap.Logger,
) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		students:  students,
		rts:       rts,
		nrts:      nrts,
		cascade:   cascade,
		validator: validate,
		logger:    logger,
	}
}

// ListRTs returns the resident tutor roster with freshly recomputed
// student counts. Stale stored counts are written back.
func (s *RosterService) ListRTs(ctx context.Context, filter models.TutorFilter) ([]models.ResidentTutor, error) {
	tutors, err := s.rts.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resident tutors")
	}
	students, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student roster")
	}

	stale := recomputeRTCounts(tutors, students)
	s.persistRTCounts(ctx, tutors, stale)
	return tutors, nil
}

// ListNRTs returns the non-resident tutor roster with freshly
// recomputed totals and class-year counts.
func (s *RosterService) ListNRTs(ctx context.Context, filter models.TutorFilter) ([]models.NonResidentTutor, error) {
	tutors, err := s.nrts.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list non-resident tutors")
	}
	students, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student roster")
	}

	stale := recomputeNRTCounts(tutors, students)
	s.persistNRTCounts(ctx, tutors, stale)
	return tutors, nil
}

// GetRT fetches one resident tutor.
func (s *RosterService) GetRT(ctx context.Context, id int) (*models.ResidentTutor, error) {
	tutor, err := s.rts.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resident tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resident tutor")
	}
	return tutor, nil
}

// GetNRT fetches one non-resident tutor.
func (s *RosterService) GetNRT(ctx context.Context, id int) (*models.NonResidentTutor, error) {
	tutor, err := s.nrts.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "non-resident tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load non-resident tutor")
	}
	return tutor, nil
}

// CreateRT adds a resident tutor.
func (s *RosterService) CreateRT(ctx context.Context, req CreateRTRequest) (*models.ResidentTutor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resident tutor payload")
	}
	tutor := &models.ResidentTutor{Name: req.Name, Email: req.Email}
	if err := s.rts.Create(ctx, tutor); err != nil {
		return nil, persistenceError(err, "failed to create resident tutor")
	}
	return tutor, nil
}

// UpdateRT edits a resident tutor. Renaming does not rewrite student
// assignment fields; the old name simply orphans.
func (s *RosterService) UpdateRT(ctx context.Context, id int, req UpdateRTRequest) (*models.ResidentTutor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resident tutor payload")
	}
	tutor, err := s.GetRT(ctx, id)
	if err != nil {
		return nil, err
	}
	tutor.Name = req.Name
	tutor.Email = req.Email
	if err := s.rts.Update(ctx, tutor); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resident tutor not found")
		}
		return nil, persistenceError(err, "failed to update resident tutor")
	}
	return tutor, nil
}

// CreateNRT adds a non-resident tutor.
func (s *RosterService) CreateNRT(ctx context.Context, req CreateNRTRequest) (*models.NonResidentTutor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid non-resident tutor payload")
	}
	tutor := nrtFromRequest(req)
	if err := s.nrts.Create(ctx, tutor); err != nil {
		return nil, persistenceError(err, "failed to create non-resident tutor")
	}
	return tutor, nil
}

// UpdateNRT edits a non-resident tutor.
func (s *RosterService) UpdateNRT(ctx context.Context, id int, req UpdateNRTRequest) (*models.NonResidentTutor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid non-resident tutor payload")
	}
	tutor, err := s.GetNRT(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := nrtFromRequest(CreateNRTRequest(req))
	updated.ID = tutor.ID
	updated.TotalStudents = tutor.TotalStudents
	updated.ClassYearCounts = tutor.ClassYearCounts
	updated.CreatedAt = tutor.CreatedAt
	if err := s.nrts.Update(ctx, updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "non-resident tutor not found")
		}
		return nil, persistenceError(err, "failed to update non-resident tutor")
	}
	return updated, nil
}

// BulkAddNRTs inserts many tutors, skipping rows without an identity.
func (s *RosterService) BulkAddNRTs(ctx context.Context, reqs []CreateNRTRequest) (BulkResult, error) {
	result := BulkResult{}
	for _, req := range reqs {
		if err := s.validator.Struct(req); err != nil {
			result.Failed++
			continue
		}
		if err := s.nrts.Create(ctx, nrtFromRequest(req)); err != nil {
			s.logger.Warn("bulk_nrt_insert_failed", zap.String("email", req.Email), zap.Error(err))
			result.Failed++
			continue
		}
		result.Success++
	}
	return result, nil
}

// DeleteRT removes a resident tutor and clears the assignment of every
// student matched to it by name, in one transaction.
func (s *RosterService) DeleteRT(ctx context.Context, id int) (*DeleteTutorResult, error) {
	tutor, err := s.GetRT(ctx, id)
	if err != nil {
		return nil, err
	}
	affected, err := s.cascade.DeleteResidentTutor(ctx, tutor.ID, tutor.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resident tutor not found")
		}
		return nil, persistenceError(err, "failed to delete resident tutor")
	}
	s.logger.Info("rt_deleted", zap.Int("rt_id", id), zap.Int("affected_students", len(affected)))
	return &DeleteTutorResult{AffectedStudents: affected}, nil
}

// DeleteNRT removes a non-resident tutor with the same cascade.
func (s *RosterService) DeleteNRT(ctx context.Context, id int) (*DeleteTutorResult, error) {
	tutor, err := s.GetNRT(ctx, id)
	if err != nil {
		return nil, err
	}
	affected, err := s.cascade.DeleteNonResidentTutor(ctx, tutor.ID, tutor.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "non-resident tutor not found")
		}
		return nil, persistenceError(err, "failed to delete non-resident tutor")
	}
	s.logger.Info("nrt_deleted", zap.Int("nrt_id", id), zap.Int("affected_students", len(affected)))
	return &DeleteTutorResult{AffectedStudents: affected}, nil
}

func (s *RosterService) persistRTCounts(ctx context.Context, tutors []models.ResidentTutor, stale []int) {
	staleSet := make(map[int]struct{}, len(stale))
	for _, id := range stale {
		staleSet[id] = struct{}{}
	}
	for _, tutor := range tutors {
		if _, ok := staleSet[tutor.ID]; !ok {
			continue
		}
		if err := s.rts.UpdateStudentCount(ctx, tutor.ID, tutor.StudentCount); err != nil {
			s.logger.Warn("rt_count_writeback_failed", zap.Int("rt_id", tutor.ID), zap.Error(err))
		}
	}
}

func (s *RosterService) persistNRTCounts(ctx context.Context, tutors []models.NonResidentTutor, stale []int) {
	staleSet := make(map[int]struct{}, len(stale))
	for _, id := range stale {
		staleSet[id] = struct{}{}
	}
	for _, tutor := range tutors {
		if _, ok := staleSet[tutor.ID]; !ok {
			continue
		}
		if err := s.nrts.UpdateDerived(ctx, tutor.ID, tutor.TotalStudents, tutor.ClassYearCounts); err != nil {
			s.logger.Warn("nrt_count_writeback_failed", zap.Int("nrt_id", tutor.ID), zap.Error(err))
		}
	}
}

func nrtFromRequest(req CreateNRTRequest) *models.NonResidentTutor {
	status := req.Status
	if status == "" {
		status = models.NRTStatusActive
	}
	return &models.NonResidentTutor{
		Name:              req.Name,
		Email:             req.Email,
		Status:            status,
		ClassYearCounts:   models.YearCounts{},
		PhoneNumber:       req.PhoneNumber,
		Affiliation:       req.Affiliation,
		IDNumber:          req.IDNumber,
		StageOfTraining:   req.StageOfTraining,
		TimeInTown:        req.TimeInTown,
		MedicalInterests:  req.MedicalInterests,
		OutsideInterests:  req.OutsideInterests,
		ShadowingInterest: req.ShadowingInterest,
		ResearchInterest:  req.ResearchInterest,
		EventsInterest:    req.EventsInterest,
		SpecificEvents:    req.SpecificEvents,
	}
}
