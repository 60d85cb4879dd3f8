package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
	"github.com/winslow-house/advising-api/pkg/sheets"
)

// Worksheet names in the house workbook.
const (
	SheetStudents = "Students"
	SheetNRTs     = "Non-Resident Tutors"
	SheetRTs      = "Resident Tutors"
)

var studentSheetHeaders = []string{
	"First Name", "Last Name", "Primary Email", "Secondary Email",
	"Class Year", "Status", "NRT Assignment", "RT Assignment",
	"Phone Number", "Hometown", "Concentration", "Secondary",
	"Extracurricular Activities", "Clinical Shadowing", "Research Activities",
	"Medical Interests", "Program Interests",
}

var rtSheetHeaders = []string{"Name", "Email", "Student Count"}

var nrtBaseHeaders = []string{"Name", "Email", "Status"}

var nrtOptionalHeaders = []string{
	"Phone Number", "Affiliation", "ID Number",
	"Stage of Training", "Time in Town", "Medical Interests",
	"Outside Interests", "Shadowing Interest",
	"Research Interest", "Events Interest",
	"Specific Events",
}

var defaultClassYearHeaders = []string{
	"<= 2019", "2020", "2021", "2022", "2023",
	"2024", "2025", "2026", "2027", "2028", "2029",
}

type syncStudentRepo interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	ReplaceAll(ctx context.Context, students []models.Student) error
}

type syncRTRepo interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.ResidentTutor, error)
	ReplaceAll(ctx context.Context, tutors []models.ResidentTutor) error
}

type syncNRTRepo interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.NonResidentTutor, error)
	ReplaceAll(ctx context.Context, tutors []models.NonResidentTutor) error
}

type syncStateStore interface {
	Get(ctx context.Context, direction string) (*models.SyncState, error)
	Set(ctx context.Context, direction string, state models.SyncState) error
	Clear(ctx context.Context) error
}

type workbookClient interface {
	Configured() bool
	ModificationToken() (string, error)
	ReadTable(sheet string) (sheets.Table, error)
	OverwriteTable(sheet string, headers []string, rows [][]string) error
}

// NewSyncService creates a service instance.
func NewSyncService(
	students syncStudentRepo,
	rts syncRTRepo,
	nrts syncNRTRepo,
	state syncStateStore,
	workbook workbookClient,
	cacheExpiry time.Duration,
	logger *zap.Logger,
) *SyncCoordinator {
	if cacheExpiry <= 0 {
		cacheExpiry = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncCoordinator{
		students:    students,
		rts:         rts,
		nrts:        nrts,
		state:       state,
		workbook:    workbook,
		cacheExpiry: cacheExpiry,
		logger:      logger,
		now:         time.Now,
	}
}

// SyncCoordinator runs the two-way sync between the record store and
// the house workbook. Each direction is cache-gated: within the expiry
// window a sync request is a no-op unless forced, and imports also run
// when the workbook file changed since the last import. Per-direction
// locks serialize the gate check with the sync body.
type SyncCoordinator struct {
	students    syncStudentRepo
	rts         syncRTRepo
	nrts        syncNRTRepo
	state       syncStateStore
	workbook    workbookClient
	cacheExpiry time.Duration
	logger      *zap.Logger

	exportMu sync.Mutex
	importMu sync.Mutex

	// now is swappable in tests.
	now func() time.Time
}

// ExportToWorkbook pushes the full record store into the workbook,
// destructively overwriting all three worksheets. Derived tutor counts
// are recomputed before writing so the workbook never shows stale
// numbers. The export time is recorded only after every sheet wrote
// successfully.
func (s *SyncCoordinator) ExportToWorkbook(ctx context.Context, force bool) (*models.SyncResult, error) {
	if !s.workbook.Configured() {
		return nil, appErrors.ErrSyncUnavailable
	}

	s.exportMu.Lock()
	defer s.exportMu.Unlock()

	if !force {
		should, err := s.shouldSync(ctx, models.SyncDirectionExport, "")
		if err != nil {
			return nil, err
		}
		if !should {
			return &models.SyncResult{Success: true, Cached: true, Message: "sync skipped, cache is still valid"}, nil
		}
	}

	students, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return s.failure("load students", err)
	}
	rts, err := s.rts.List(ctx, models.TutorFilter{})
	if err != nil {
		return s.failure("load resident tutors", err)
	}
	nrts, err := s.nrts.List(ctx, models.TutorFilter{})
	if err != nil {
		return s.failure("load non-resident tutors", err)
	}

	recomputeRTCounts(rts, students)
	recomputeNRTCounts(nrts, students)

	if err := s.workbook.OverwriteTable(SheetStudents, studentSheetHeaders, studentRows(students)); err != nil {
		return s.failure("write students sheet", err)
	}

	yearHeaders, err := s.classYearHeaders()
	if err != nil {
		return s.failure("read workbook headers", err)
	}
	nrtHeaders := buildNRTHeaders(yearHeaders)
	if err := s.workbook.OverwriteTable(SheetNRTs, nrtHeaders, nrtRows(nrts, yearHeaders)); err != nil {
		return s.failure("write non-resident tutors sheet", err)
	}

	if err := s.workbook.OverwriteTable(SheetRTs, rtSheetHeaders, rtRows(rts)); err != nil {
		return s.failure("write resident tutors sheet", err)
	}

	if err := s.state.Set(ctx, models.SyncDirectionExport, models.SyncState{LastSync: s.now()}); err != nil {
		return s.failure("record export time", err)
	}

	s.logger.Info("workbook_export_complete",
		zap.Int("students", len(students)),
		zap.Int("nrts", len(nrts)),
		zap.Int("rts", len(rts)),
	)
	return &models.SyncResult{
		Success: true,
		Message: fmt.Sprintf("synced %d students, %d non-resident tutors, %d resident tutors to workbook", len(students), len(nrts), len(rts)),
	}, nil
}

// ImportFromWorkbook pulls all three worksheets into the record store,
// replacing each table wholesale. Rows lacking identity fields are
// dropped. The import time and workbook token are recorded only on
// full success.
func (s *SyncCoordinator) ImportFromWorkbook(ctx context.Context, force bool) (*models.SyncResult, error) {
	if !s.workbook.Configured() {
		return nil, appErrors.ErrSyncUnavailable
	}

	s.importMu.Lock()
	defer s.importMu.Unlock()

	token, err := s.workbook.ModificationToken()
	if err != nil {
		return s.failure("read workbook token", err)
	}

	if !force {
		should, err := s.shouldSync(ctx, models.SyncDirectionImport, token)
		if err != nil {
			return nil, err
		}
		if !should {
			return &models.SyncResult{Success: true, Cached: true, Message: "sync skipped, workbook has not changed since last import"}, nil
		}
	}

	studentTable, err := s.workbook.ReadTable(SheetStudents)
	if err != nil {
		return s.failure("read students sheet", err)
	}
	nrtTable, err := s.workbook.ReadTable(SheetNRTs)
	if err != nil {
		return s.failure("read non-resident tutors sheet", err)
	}
	rtTable, err := s.workbook.ReadTable(SheetRTs)
	if err != nil {
		return s.failure("read resident tutors sheet", err)
	}

	students := parseStudentTable(studentTable)
	nrts := parseNRTTable(nrtTable)
	rts := parseRTTable(rtTable)

	if err := s.students.ReplaceAll(ctx, students); err != nil {
		return s.failure("replace students", err)
	}
	if err := s.nrts.ReplaceAll(ctx, nrts); err != nil {
		return s.failure("replace non-resident tutors", err)
	}
	if err := s.rts.ReplaceAll(ctx, rts); err != nil {
		return s.failure("replace resident tutors", err)
	}

	if err := s.state.Set(ctx, models.SyncDirectionImport, models.SyncState{LastSync: s.now(), Token: token}); err != nil {
		return s.failure("record import time", err)
	}

	s.logger.Info("workbook_import_complete",
		zap.Int("students", len(students)),
		zap.Int("nrts", len(nrts)),
		zap.Int("rts", len(rts)),
	)
	return &models.SyncResult{
		Success: true,
		Message: fmt.Sprintf("synced %d students, %d non-resident tutors, %d resident tutors from workbook", len(students), len(nrts), len(rts)),
	}, nil
}

// Status reports coordinator state for both directions.
func (s *SyncCoordinator) Status(ctx context.Context) (*models.SyncStatus, error) {
	status := &models.SyncStatus{
		Configured:    s.workbook.Configured(),
		ExpirySeconds: int(s.cacheExpiry.Seconds()),
	}

	if exportState, err := s.state.Get(ctx, models.SyncDirectionExport); err == nil {
		t := exportState.LastSync
		status.LastExport = &t
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read sync state")
	}

	if importState, err := s.state.Get(ctx, models.SyncDirectionImport); err == nil {
		t := importState.LastSync
		status.LastImport = &t
		status.WorkbookToken = importState.Token
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read sync state")
	}

	return status, nil
}

// ClearCache forgets both directions so the next sync runs.
func (s *SyncCoordinator) ClearCache(ctx context.Context) error {
	if err := s.state.Clear(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear sync cache")
	}
	return nil
}

// shouldSync is the cache gate: sync when never synced, when the
// expiry window lapsed, or (imports only) when the workbook token
// changed since the last import.
func (s *SyncCoordinator) shouldSync(ctx context.Context, direction, token string) (bool, error) {
	state, err := s.state.Get(ctx, direction)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return true, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read sync state")
	}

	if s.now().After(state.LastSync.Add(s.cacheExpiry)) {
		return true, nil
	}

	if direction == models.SyncDirectionImport && token != "" && state.Token != token {
		return true, nil
	}

	return false, nil
}

func (s *SyncCoordinator) failure(step string, err error) (*models.SyncResult, error) {
	s.logger.Error("sync_failed", zap.String("step", step), zap.Error(err))
	return &models.SyncResult{
		Success: false,
		Message: fmt.Sprintf("sync failed at %s: %v", step, err),
	}, nil
}

// classYearHeaders reads the NRT sheet header and keeps any class-year
// bucket columns the operators added, falling back to the defaults.
func (s *SyncCoordinator) classYearHeaders() ([]string, error) {
	table, err := s.workbook.ReadTable(SheetNRTs)
	if err != nil {
		return nil, err
	}
	return reconcileClassYearHeaders(table.Headers), nil
}

// reconcileClassYearHeaders extracts class-year bucket columns from an
// existing header row, preserving custom buckets, and returns them in
// canonical order: cumulative "<= YEAR" buckets by threshold, then
// numeric years ascending, then anything else lexicographically.
func reconcileClassYearHeaders(existing []string) []string {
	known := make(map[string]struct{})
	for _, h := range nrtBaseHeaders {
		known[h] = struct{}{}
	}
	for _, h := range nrtOptionalHeaders {
		known[h] = struct{}{}
	}
	known["Total Students"] = struct{}{}

	var yearHeaders []string
	for _, header := range existing {
		clean := strings.TrimSpace(header)
		if clean == "" {
			continue
		}
		if _, ok := known[clean]; ok {
			continue
		}
		if isClassYearHeader(clean) {
			yearHeaders = append(yearHeaders, clean)
		}
	}

	if len(yearHeaders) == 0 {
		yearHeaders = append(yearHeaders, defaultClassYearHeaders...)
	}

	sort.SliceStable(yearHeaders, func(i, j int) bool {
		gi, vi, si := classYearSortKey(yearHeaders[i])
		gj, vj, sj := classYearSortKey(yearHeaders[j])
		if gi != gj {
			return gi < gj
		}
		if gi < 2 {
			return vi < vj
		}
		return si < sj
	})
	return yearHeaders
}

func isClassYearHeader(header string) bool {
	if strings.HasPrefix(header, "<=") {
		return true
	}
	if len(header) == 4 && isDigits(header) {
		return true
	}
	return strings.Contains(strings.ToLower(header), "class")
}

// classYearSortKey groups headers: 0 cumulative, 1 numeric year,
// 2 everything else.
func classYearSortKey(header string) (int, int, string) {
	clean := strings.TrimSpace(header)
	if strings.HasPrefix(clean, "<=") {
		if year, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(clean, "<="))); err == nil {
			return 0, year, ""
		}
		return 0, 0, ""
	}
	if isDigits(clean) {
		year, _ := strconv.Atoi(clean)
		return 1, year, ""
	}
	return 2, 0, clean
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func buildNRTHeaders(yearHeaders []string) []string {
	headers := make([]string, 0, len(nrtBaseHeaders)+len(nrtOptionalHeaders)+1+len(yearHeaders))
	headers = append(headers, nrtBaseHeaders...)
	headers = append(headers, nrtOptionalHeaders...)
	headers = append(headers, "Total Students")
	headers = append(headers, yearHeaders...)
	return headers
}

func studentRows(students []models.Student) [][]string {
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		status := s.Status
		if status == "" {
			status = models.StatusNotApplying
		}
		rows = append(rows, []string{
			s.FirstName, s.LastName, s.PrimaryEmail, s.SecondaryEmail,
			s.ClassYear, status, s.NRTAssignment, s.RTAssignment,
			s.PhoneNumber, s.Hometown, s.Concentration, s.Secondary,
			s.Extracurriculars, s.ClinicalShadowing, s.ResearchActivities,
			s.MedicalInterests, s.ProgramInterests,
		})
	}
	return rows
}

func rtRows(tutors []models.ResidentTutor) [][]string {
	rows := make([][]string, 0, len(tutors))
	for _, t := range tutors {
		rows = append(rows, []string{t.Name, t.Email, strconv.Itoa(t.StudentCount)})
	}
	return rows
}

func nrtRows(tutors []models.NonResidentTutor, yearHeaders []string) [][]string {
	rows := make([][]string, 0, len(tutors))
	for _, t := range tutors {
		status := t.Status
		if status == "" {
			status = models.NRTStatusActive
		}
		row := []string{
			t.Name, t.Email, status,
			t.PhoneNumber, t.Affiliation, t.IDNumber,
			t.StageOfTraining, t.TimeInTown, t.MedicalInterests,
			t.OutsideInterests, t.ShadowingInterest,
			t.ResearchInterest, t.EventsInterest,
			t.SpecificEvents,
			strconv.Itoa(t.TotalStudents),
		}
		for _, header := range yearHeaders {
			row = append(row, strconv.Itoa(bucketValue(header, t.ClassYearCounts)))
		}
		rows = append(rows, row)
	}
	return rows
}

// bucketValue resolves one class-year bucket for one tutor. Cumulative
// "<= YEAR" buckets sum every numeric year at or below the threshold.
func bucketValue(header string, counts models.YearCounts) int {
	clean := strings.TrimSpace(header)

	if strings.HasPrefix(clean, "<=") {
		threshold, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(clean, "<=")))
		if err != nil {
			return 0
		}
		total := 0
		for yearKey, count := range counts {
			if year, err := strconv.Atoi(strings.TrimSpace(yearKey)); err == nil && year <= threshold {
				total += count
			}
		}
		return total
	}

	for yearKey, count := range counts {
		if clean == yearKey {
			return count
		}
		if strings.TrimPrefix(clean, "Class ") == yearKey {
			return count
		}
		headerYear, errH := strconv.Atoi(clean)
		keyYear, errK := strconv.Atoi(strings.TrimSpace(yearKey))
		if errH == nil && errK == nil && headerYear == keyYear {
			return count
		}
	}
	return 0
}

func parseStudentTable(table sheets.Table) []models.Student {
	var students []models.Student
	for _, row := range table.Rows {
		record := rowMap(table.Headers, row)
		student := models.Student{
			FirstName:          strings.TrimSpace(record["First Name"]),
			LastName:           strings.TrimSpace(record["Last Name"]),
			PrimaryEmail:       strings.TrimSpace(record["Primary Email"]),
			SecondaryEmail:     strings.TrimSpace(record["Secondary Email"]),
			ClassYear:          strings.TrimSpace(record["Class Year"]),
			RTAssignment:       record["RT Assignment"],
			NRTAssignment:      record["NRT Assignment"],
			Status:             record["Status"],
			PhoneNumber:        record["Phone Number"],
			Hometown:           record["Hometown"],
			Concentration:      record["Concentration"],
			Secondary:          record["Secondary"],
			Extracurriculars:   record["Extracurricular Activities"],
			ClinicalShadowing:  record["Clinical Shadowing"],
			ResearchActivities: record["Research Activities"],
			MedicalInterests:   record["Medical Interests"],
			ProgramInterests:   record["Program Interests"],
		}
		if student.Status == "" {
			student.Status = models.StatusNotApplying
		}
		if !student.HasIdentity() {
			continue
		}
		students = append(students, student)
	}
	return students
}

func parseRTTable(table sheets.Table) []models.ResidentTutor {
	var tutors []models.ResidentTutor
	for _, row := range table.Rows {
		record := rowMap(table.Headers, row)
		tutor := models.ResidentTutor{
			Name:         strings.TrimSpace(record["Name"]),
			Email:        strings.TrimSpace(record["Email"]),
			StudentCount: parseInt(record["Student Count"]),
		}
		if !tutor.HasIdentity() {
			continue
		}
		tutors = append(tutors, tutor)
	}
	return tutors
}

func parseNRTTable(table sheets.Table) []models.NonResidentTutor {
	known := make(map[string]struct{})
	for _, h := range nrtBaseHeaders {
		known[h] = struct{}{}
	}
	for _, h := range nrtOptionalHeaders {
		known[h] = struct{}{}
	}
	known["Total Students"] = struct{}{}

	var tutors []models.NonResidentTutor
	for _, row := range table.Rows {
		record := rowMap(table.Headers, row)

		status := strings.ToLower(strings.TrimSpace(record["Status"]))
		if status == "" {
			status = models.NRTStatusActive
		}

		counts := models.YearCounts{}
		for header, value := range record {
			clean := strings.TrimSpace(header)
			if _, ok := known[clean]; ok || clean == "" {
				continue
			}
			if !isClassYearHeader(clean) {
				continue
			}
			year := strings.TrimSpace(strings.TrimPrefix(clean, "Class "))
			counts[year] = parseInt(value)
		}

		tutor := models.NonResidentTutor{
			Name:              strings.TrimSpace(record["Name"]),
			Email:             strings.TrimSpace(record["Email"]),
			Status:            status,
			TotalStudents:     parseInt(record["Total Students"]),
			ClassYearCounts:   counts,
			PhoneNumber:       record["Phone Number"],
			Affiliation:       record["Affiliation"],
			IDNumber:          record["ID Number"],
			StageOfTraining:   record["Stage of Training"],
			TimeInTown:        record["Time in Town"],
			MedicalInterests:  record["Medical Interests"],
			OutsideInterests:  record["Outside Interests"],
			ShadowingInterest: record["Shadowing Interest"],
			ResearchInterest:  record["Research Interest"],
			EventsInterest:    record["Events Interest"],
			SpecificEvents:    record["Specific Events"],
		}
		if !tutor.HasIdentity() {
			continue
		}
		tutors = append(tutors, tutor)
	}
	return tutors
}

func rowMap(headers, row []string) map[string]string {
	record := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(row) {
			record[strings.TrimSpace(header)] = row[i]
		} else {
			record[strings.TrimSpace(header)] = ""
		}
	}
	return record
}

func parseInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
