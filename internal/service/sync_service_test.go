package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
	"github.com/winslow-house/advising-api/pkg/sheets"
)

type stubSyncStudents struct {
	students []models.Student
	replaced []models.Student
	listErr  error
}

func (s *stubSyncStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	return s.students, s.listErr
}

func (s *stubSyncStudents) ReplaceAll(ctx context.Context, students []models.Student) error {
	s.replaced = students
	return nil
}

type stubSyncRTs struct {
	tutors   []models.ResidentTutor
	replaced []models.ResidentTutor
}

func (s *stubSyncRTs) List(ctx context.Context, filter models.TutorFilter) ([]models.ResidentTutor, error) {
	return s.tutors, nil
}

func (s *stubSyncRTs) ReplaceAll(ctx context.Context, tutors []models.ResidentTutor) error {
	s.replaced = tutors
	return nil
}

type stubSyncNRTs struct {
	tutors   []models.NonResidentTutor
	replaced []models.NonResidentTutor
}

func (s *stubSyncNRTs) List(ctx context.Context, filter models.TutorFilter) ([]models.NonResidentTutor, error) {
	return s.tutors, nil
}

func (s *stubSyncNRTs) ReplaceAll(ctx context.Context, tutors []models.NonResidentTutor) error {
	s.replaced = tutors
	return nil
}

type memSyncState struct {
	states map[string]models.SyncState
}

func newMemSyncState() *memSyncState {
	return &memSyncState{states: make(map[string]models.SyncState)}
}

func (m *memSyncState) Get(ctx context.Context, direction string) (*models.SyncState, error) {
	state, ok := m.states[direction]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return &state, nil
}

func (m *memSyncState) Set(ctx context.Context, direction string, state models.SyncState) error {
	m.states[direction] = state
	return nil
}

func (m *memSyncState) Clear(ctx context.Context) error {
	m.states = make(map[string]models.SyncState)
	return nil
}

type writtenTable struct {
	headers []string
	rows    [][]string
}

type stubWorkbook struct {
	configured bool
	token      string
	tables     map[string]sheets.Table
	written    map[string]writtenTable
	writeErr   error
}

func newStubWorkbook() *stubWorkbook {
	return &stubWorkbook{
		configured: true,
		token:      "v1",
		tables:     make(map[string]sheets.Table),
		written:    make(map[string]writtenTable),
	}
}

func (w *stubWorkbook) Configured() bool { return w.configured }

func (w *stubWorkbook) ModificationToken() (string, error) { return w.token, nil }

func (w *stubWorkbook) ReadTable(sheet string) (sheets.Table, error) {
	return w.tables[sheet], nil
}

func (w *stubWorkbook) OverwriteTable(sheet string, headers []string, rows [][]string) error {
	if w.writeErr != nil {
		return w.writeErr
	}
	w.written[sheet] = writtenTable{headers: headers, rows: rows}
	return nil
}

func newSyncFixture(t *testing.T) (*SyncCoordinator, *stubSyncStudents, *stubWorkbook, *memSyncState, *time.Time) {
	t.Helper()
	students := &stubSyncStudents{}
	state := newMemSyncState()
	workbook := newStubWorkbook()
	svc := NewSyncService(students, &stubSyncRTs{}, &stubSyncNRTs{}, state, workbook, 5*time.Minute, zap.NewNop())

	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }
	return svc, students, workbook, state, &current
}

func TestExportUnconfiguredWorkbook(t *testing.T) {
	svc, _, workbook, _, _ := newSyncFixture(t)
	workbook.configured = false

	_, err := svc.ExportToWorkbook(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSyncUnavailable.Code, appErrors.FromError(err).Code)
}

func TestExportRunsThenSkipsWithinExpiry(t *testing.T) {
	svc, students, workbook, state, now := newSyncFixture(t)
	students.students = []models.Student{
		{FirstName: "Ana", LastName: "Ruiz", PrimaryEmail: "ana@example.edu"},
	}

	result, err := svc.ExportToWorkbook(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Cached)
	assert.Contains(t, workbook.written, SheetStudents)
	assert.Contains(t, workbook.written, SheetRTs)
	assert.Contains(t, workbook.written, SheetNRTs)
	assert.Equal(t, *now, state.states[models.SyncDirectionExport].LastSync)

	// Second attempt inside the expiry window is a no-op.
	result, err = svc.ExportToWorkbook(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, result.Cached)
	assert.Equal(t, "sync skipped, cache is still valid", result.Message)
}

func TestExportRunsAgainAfterExpiry(t *testing.T) {
	svc, _, _, _, now := newSyncFixture(t)

	_, err := svc.ExportToWorkbook(context.Background(), false)
	require.NoError(t, err)

	*now = now.Add(6 * time.Minute)

	result, err := svc.ExportToWorkbook(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, result.Cached)
}

func TestExportForceBypassesCache(t *testing.T) {
	svc, _, _, _, _ := newSyncFixture(t)

	_, err := svc.ExportToWorkbook(context.Background(), false)
	require.NoError(t, err)

	result, err := svc.ExportToWorkbook(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, result.Cached)
}

func TestExportFailureDoesNotRecordState(t *testing.T) {
	svc, _, workbook, state, _ := newSyncFixture(t)
	workbook.writeErr = errors.New("disk full")

	result, err := svc.ExportToWorkbook(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "sync failed at")
	assert.NotContains(t, state.states, models.SyncDirectionExport)
}

func TestImportSkipsWhenWorkbookUnchanged(t *testing.T) {
	svc, _, _, _, _ := newSyncFixture(t)

	result, err := svc.ImportFromWorkbook(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = svc.ImportFromWorkbook(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, result.Cached)
	assert.Equal(t, "sync skipped, workbook has not changed since last import", result.Message)
}

func TestImportRunsWhenTokenChanges(t *testing.T) {
	svc, _, workbook, state, _ := newSyncFixture(t)

	_, err := svc.ImportFromWorkbook(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "v1", state.states[models.SyncDirectionImport].Token)

	// Workbook edited outside the API within the expiry window.
	workbook.token = "v2"

	result, err := svc.ImportFromWorkbook(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, "v2", state.states[models.SyncDirectionImport].Token)
}

func TestImportDropsRowsWithoutIdentity(t *testing.T) {
	svc, students, workbook, _, _ := newSyncFixture(t)
	workbook.tables[SheetStudents] = sheets.Table{
		Headers: studentSheetHeaders,
		Rows: [][]string{
			{"Ana", "Ruiz", "ana@example.edu"},
			{"", "Ruiz", "orphan@example.edu"},
			{"Bo", "Chan", "", ""},
		},
	}

	_, err := svc.ImportFromWorkbook(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, students.replaced, 1)
	assert.Equal(t, "Ana", students.replaced[0].FirstName)
}

func TestImportNormalizesBlankStatuses(t *testing.T) {
	svc, students, workbook, _, _ := newSyncFixture(t)
	workbook.tables[SheetStudents] = sheets.Table{
		Headers: studentSheetHeaders,
		Rows: [][]string{
			{"Ana", "Ruiz", "ana@example.edu", "", "2026", ""},
		},
	}

	_, err := svc.ImportFromWorkbook(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, students.replaced, 1)
	assert.Equal(t, models.StatusNotApplying, students.replaced[0].Status)
}

func TestClearCacheForcesNextSync(t *testing.T) {
	svc, _, _, _, _ := newSyncFixture(t)

	_, err := svc.ExportToWorkbook(context.Background(), false)
	require.NoError(t, err)

	require.NoError(t, svc.ClearCache(context.Background()))

	result, err := svc.ExportToWorkbook(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, result.Cached)
}

func TestStatusReportsBothDirections(t *testing.T) {
	svc, _, _, _, _ := newSyncFixture(t)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Nil(t, status.LastExport)
	assert.Nil(t, status.LastImport)
	assert.Equal(t, 300, status.ExpirySeconds)

	_, err = svc.ExportToWorkbook(context.Background(), false)
	require.NoError(t, err)
	_, err = svc.ImportFromWorkbook(context.Background(), false)
	require.NoError(t, err)

	status, err = svc.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status.LastExport)
	require.NotNil(t, status.LastImport)
	assert.Equal(t, "v1", status.WorkbookToken)
}

func TestReconcileClassYearHeadersPreservesCustomBuckets(t *testing.T) {
	existing := []string{
		"Name", "Email", "Status", "Total Students",
		"2027", "<= 2020", "2025", "Class of 1999", "<= 2018",
	}

	headers := reconcileClassYearHeaders(existing)

	assert.Equal(t, []string{"<= 2018", "<= 2020", "2025", "2027", "Class of 1999"}, headers)
}

func TestReconcileClassYearHeadersFallsBackToDefaults(t *testing.T) {
	headers := reconcileClassYearHeaders([]string{"Name", "Email", "Status"})
	assert.Equal(t, defaultClassYearHeaders, headers)
}

func TestBucketValueCumulative(t *testing.T) {
	counts := models.YearCounts{"2018": 2, "2019": 1, "2020": 5, "abc": 9}

	assert.Equal(t, 3, bucketValue("<= 2019", counts))
	assert.Equal(t, 8, bucketValue("<= 2020", counts))
	assert.Equal(t, 5, bucketValue("2020", counts))
	assert.Equal(t, 0, bucketValue("2026", counts))
}

func TestExportImportRoundTripPreservesRosters(t *testing.T) {
	students := &stubSyncStudents{students: []models.Student{
		{FirstName: "Ana", LastName: "Ruiz", PrimaryEmail: "ana@example.edu", ClassYear: "2026",
			RTAssignment: "Sam Ortiz", NRTAssignment: "Dr. Lee", Status: models.StatusCurrentlyApplying},
		{FirstName: "Bo", LastName: "Chan", PrimaryEmail: "bo@example.edu", ClassYear: "2025",
			NRTAssignment: "Dr. Lee"},
		{FirstName: "Cy", LastName: "Diaz", PrimaryEmail: "cy@example.edu", ClassYear: "2018",
			NRTAssignment: "Dr. Lee"},
	}}
	// Stored derived counts are stale on purpose; export recomputes.
	rts := &stubSyncRTs{tutors: []models.ResidentTutor{
		{Name: "Sam Ortiz", Email: "sam@example.edu", StudentCount: 9},
	}}
	nrts := &stubSyncNRTs{tutors: []models.NonResidentTutor{
		{Name: "Dr. Lee", Email: "lee@example.org"},
	}}
	state := newMemSyncState()
	workbook := newStubWorkbook()
	svc := NewSyncService(students, rts, nrts, state, workbook, 5*time.Minute, zap.NewNop())

	result, err := svc.ExportToWorkbook(context.Background(), false)
	require.NoError(t, err)
	require.True(t, result.Success)

	// Read back exactly what was written.
	for sheet, table := range workbook.written {
		workbook.tables[sheet] = sheets.Table{Headers: table.headers, Rows: table.rows}
	}

	result, err = svc.ImportFromWorkbook(context.Background(), false)
	require.NoError(t, err)
	require.True(t, result.Success)

	require.Len(t, students.replaced, 3)
	ana := students.replaced[0]
	assert.Equal(t, "Ana", ana.FirstName)
	assert.Equal(t, "ana@example.edu", ana.PrimaryEmail)
	assert.Equal(t, "2026", ana.ClassYear)
	assert.Equal(t, "Sam Ortiz", ana.RTAssignment)
	assert.Equal(t, "Dr. Lee", ana.NRTAssignment)
	assert.Equal(t, models.StatusCurrentlyApplying, ana.Status)
	assert.Equal(t, models.StatusNotApplying, students.replaced[1].Status)

	require.Len(t, rts.replaced, 1)
	assert.Equal(t, "Sam Ortiz", rts.replaced[0].Name)
	assert.Equal(t, 1, rts.replaced[0].StudentCount)

	require.Len(t, nrts.replaced, 1)
	lee := nrts.replaced[0]
	assert.Equal(t, "Dr. Lee", lee.Name)
	assert.Equal(t, models.NRTStatusActive, lee.Status)
	assert.Equal(t, 3, lee.TotalStudents)
	assert.Equal(t, 1, lee.ClassYearCounts["2025"])
	assert.Equal(t, 1, lee.ClassYearCounts["2026"])
	// Cy's 2018 lands in the cumulative bucket.
	assert.Equal(t, 1, lee.ClassYearCounts["<= 2019"])
	assert.Equal(t, 0, lee.ClassYearCounts["2020"])
}

func TestNRTExportHeadersEndWithYearBuckets(t *testing.T) {
	headers := buildNRTHeaders([]string{"<= 2019", "2020"})

	require.Greater(t, len(headers), 5)
	assert.Equal(t, "Name", headers[0])
	assert.Equal(t, "Total Students", headers[len(headers)-3])
	assert.Equal(t, "<= 2019", headers[len(headers)-2])
	assert.Equal(t, "2020", headers[len(headers)-1])
}
