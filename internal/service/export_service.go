package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/export"
	"github.com/noah-isme/campus-billing-api/pkg/money"
)

type reportSource interface {
	EventStatistics(ctx context.Context, eventID string) (*models.EventStatistics, error)
	StudentSummary(ctx context.Context, studentID, eventID string) (*models.StudentSummary, error)
}

// ExportFile is a rendered report ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders statistics and statements to CSV, PDF or XLSX.
type ExportService struct {
	source reportSource
	title  string
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(source reportSource, title string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if title == "" {
		title = "Payment statistics"
	}
	return &ExportService{source: source, title: title, logger: logger, now: time.Now}
}

// EventStatistics renders the statistics of an event in the requested format.
func (s *ExportService) EventStatistics(ctx context.Context, eventID string, format export.Format) (*ExportFile, error) {
	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	stats, err := s.source.EventStatistics(ctx, eventID)
	if err != nil {
		return nil, err
	}

	doc := export.Document{
		Title: fmt.Sprintf("%s - %s", s.title, eventID),
		Summary: []export.Field{
			{Label: "Event", Value: eventID},
			{Label: "Plans", Value: strconv.Itoa(stats.PlanCount)},
			{Label: "Billed", Value: money.String(stats.TotalBilled)},
			{Label: "Collected", Value: money.String(stats.TotalCollected)},
			{Label: "Outstanding", Value: money.String(stats.TotalOutstanding)},
			{Label: "Generated", Value: stats.GeneratedAt.UTC().Format(time.RFC3339)},
		},
		Table: export.Dataset{
			Headers: []string{"Student", "Plan", "Overdue installments", "Overdue amount", "Oldest due date", "Days overdue"},
		},
	}
	for _, st := range stats.OverdueStudents {
		doc.Table.Rows = append(doc.Table.Rows, map[string]string{
			"Student":              st.StudentID,
			"Plan":                 st.PlanID,
			"Overdue installments": strconv.Itoa(st.OverdueCount),
			"Overdue amount":       money.String(st.OverdueAmount),
			"Oldest due date":      st.OldestDueDate.Format("2006-01-02"),
			"Days overdue":         strconv.Itoa(st.DaysOverdue),
		})
	}
	states := make([]string, 0, len(stats.ByState))
	for state := range stats.ByState {
		states = append(states, string(state))
	}
	sort.Strings(states)
	for _, state := range states {
		doc.Summary = append(doc.Summary, export.Field{
			Label: "Installments " + state,
			Value: strconv.Itoa(stats.ByState[models.InstallmentState(state)]),
		})
	}

	return s.render(renderer, doc, fmt.Sprintf("statistics_%s", sanitizeFilename(eventID)))
}

// StudentStatement renders the installment statement of a student in an event as PDF.
func (s *ExportService) StudentStatement(ctx context.Context, studentID, eventID string) (*ExportFile, error) {
	summary, err := s.source.StudentSummary(ctx, studentID, eventID)
	if err != nil {
		return nil, err
	}

	doc := export.Document{
		Title: "Statement of account",
		Summary: []export.Field{
			{Label: "Student", Value: studentID},
			{Label: "Event", Value: eventID},
			{Label: "Total", Value: money.String(summary.TotalAmount)},
			{Label: "Paid", Value: money.String(summary.TotalPaid)},
			{Label: "Outstanding", Value: money.String(summary.Outstanding)},
			{Label: "Progress", Value: money.String(summary.ProgressPercent) + "%"},
			{Label: "Standing", Value: string(summary.GeneralState)},
		},
		Table: export.Dataset{Headers: []string{"No.", "Due date", "Amount", "Paid", "State"}},
	}
	for _, item := range summary.Installments {
		doc.Table.Rows = append(doc.Table.Rows, map[string]string{
			"No.":      strconv.Itoa(item.Number),
			"Due date": item.DueDate.Format("2006-01-02"),
			"Amount":   money.String(item.Amount),
			"Paid":     money.String(item.AmountPaid),
			"State":    string(item.State),
		})
	}

	return s.render(export.NewPDFExporter(), doc, fmt.Sprintf("statement_%s_%s", sanitizeFilename(studentID), sanitizeFilename(eventID)))
}

func (s *ExportService) render(renderer export.Renderer, doc export.Document, baseName string) (*ExportFile, error) {
	body, err := renderer.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("%s_%s.%s", baseName, s.now().UTC().Format("20060102_150405"), renderer.Extension())
	s.logger.Debug("export rendered", zap.String("filename", filename), zap.Int("bytes", len(body)))
	return &ExportFile{Filename: filename, ContentType: renderer.ContentType(), Body: body}, nil
}
