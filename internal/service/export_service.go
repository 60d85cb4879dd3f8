package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
	"github.com/winslow-house/advising-api/pkg/export"
)

// Export rosters.
const (
	ExportRosterStudents = "students"
	ExportRosterRTs      = "rts"
	ExportRosterNRTs     = "nrts"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders rosters as CSV or PDF downloads. Tutor counts
// are recomputed before rendering, same as the workbook export.
type ExportService struct {
	students statsStudentRepo
	rts      statsRTRepo
	nrts     statsNRTRepo
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService creates a service instance.
func NewExportService(students statsStudentRepo, rts statsRTRepo, nrts statsNRTRepo, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		students: students,
		rts:      rts,
		nrts:     nrts,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Roster renders one roster in the requested format.
func (s *ExportService) Roster(ctx context.Context, roster, format string) (*ExportFile, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	var (
		dataset export.Dataset
		title   string
		err     error
	)
	switch roster {
	case ExportRosterStudents:
		dataset, err = s.studentDataset(ctx)
		title = "Students"
	case ExportRosterRTs:
		dataset, err = s.rtDataset(ctx)
		title = "Resident Tutors"
	case ExportRosterNRTs:
		dataset, err = s.nrtDataset(ctx)
		title = "Non-Resident Tutors"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported roster %q", roster))
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s-%s.%s", roster, uuid.NewString()[:8], format)
	switch format {
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: filename, ContentType: "application/pdf", Data: data}, nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: filename, ContentType: "text/csv", Data: data}, nil
	}
}

func (s *ExportService) studentDataset(ctx context.Context) (export.Dataset, error) {
	students, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	rows := make([]map[string]string, 0, len(students))
	for _, row := range studentRows(students) {
		rows = append(rows, rowMap(studentSheetHeaders, row))
	}
	return export.Dataset{Headers: studentSheetHeaders, Rows: rows}, nil
}

func (s *ExportService) rtDataset(ctx context.Context) (export.Dataset, error) {
	rts, err := s.rts.List(ctx, models.TutorFilter{})
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resident tutors")
	}
	students, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	recomputeRTCounts(rts, students)

	rows := make([]map[string]string, 0, len(rts))
	for _, row := range rtRows(rts) {
		rows = append(rows, rowMap(rtSheetHeaders, row))
	}
	return export.Dataset{Headers: rtSheetHeaders, Rows: rows}, nil
}

func (s *ExportService) nrtDataset(ctx context.Context) (export.Dataset, error) {
	nrts, err := s.nrts.List(ctx, models.TutorFilter{})
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load non-resident tutors")
	}
	students, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	recomputeNRTCounts(nrts, students)

	headers := []string{"Name", "Email", "Status", "Total Students", "Class Year Counts"}
	rows := make([]map[string]string, 0, len(nrts))
	for _, nrt := range nrts {
		rows = append(rows, map[string]string{
			"Name":              nrt.Name,
			"Email":             nrt.Email,
			"Status":            nrt.NormalizedStatus(),
			"Total Students":    strconv.Itoa(nrt.TotalStudents),
			"Class Year Counts": formatYearCounts(nrt.ClassYearCounts),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}

func formatYearCounts(counts models.YearCounts) string {
	if len(counts) == 0 {
		return ""
	}
	years := make([]string, 0, len(counts))
	for year := range counts {
		years = append(years, year)
	}
	sort.Strings(years)

	parts := make([]string, 0, len(years))
	for _, year := range years {
		parts = append(parts, fmt.Sprintf("%s: %d", year, counts[year]))
	}
	return strings.Join(parts, ", ")
}
