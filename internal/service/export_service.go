package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/league-scheduler-api/internal/dto"
	"github.com/noah-isme/league-scheduler-api/pkg/export"
	appErrors "github.com/noah-isme/league-scheduler-api/pkg/errors"
)

// ExportFormat selects the rendering of a schedule export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered export ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type scheduleDetailReader interface {
	Get(ctx context.Context, id string) (*dto.LeagueScheduleDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders saved league schedules as CSV or PDF.
type ExportService struct {
	schedules scheduleDetailReader
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(schedules scheduleDetailReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{schedules: schedules, csv: csv, pdf: pdf, logger: logger}
}

// Export renders the saved schedule id in the requested format.
func (s *ExportService) Export(ctx context.Context, id string, format ExportFormat) (*ExportFile, error) {
	format = ExportFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	detail, err := s.schedules.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dataset := scheduleDataset(detail)

	var payload []byte
	contentType := "text/csv"
	switch format {
	case ExportFormatPDF:
		contentType = "application/pdf"
		payload, err = s.pdf.Render(dataset, detail.Name)
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule export")
	}

	s.logger.Debug("league schedule exported", zap.String("scheduleId", id), zap.String("format", string(format)), zap.Int("bytes", len(payload)))
	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", sanitizeFilename(detail.Name), time.Now().UTC().Format("20060102_150405"), format),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

func scheduleDataset(detail *dto.LeagueScheduleDetail) export.Dataset {
	rows := make([][]string, 0, len(detail.Teams)/2*detail.Weeks)
	for week := 1; week <= detail.Weeks; week++ {
		for _, m := range detail.Schedule[week] {
			rows = append(rows, []string{strconv.Itoa(week), m.Visitor(), m.Home()})
		}
	}

	notes := []string{fmt.Sprintf("%d teams, %d weeks", len(detail.Teams), detail.Weeks)}
	for _, div := range detail.Divisions {
		notes = append(notes, fmt.Sprintf("%s: %s", div.Name, strings.Join(div.Teams, ", ")))
	}
	for _, team := range detail.Report.Teams {
		notes = append(notes, fmt.Sprintf("%s: %d home, %d away, longest home run %d, longest away run %d",
			team.Team, team.Home, team.Away, team.MaxHomeStreak, team.MaxAwayStreak))
	}
	if detail.Report.Warnings > 0 {
		notes = append(notes, fmt.Sprintf("%d pairs meet less than 5 weeks apart", detail.Report.Warnings))
	}

	return export.Dataset{
		Headers: []string{"Week", "Visitor", "Home"},
		Rows:    rows,
		Notes:   notes,
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "schedule"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
