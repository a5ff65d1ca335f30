package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-billing-api/internal/models"
	"github.com/noah-isme/campus-billing-api/internal/service"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/export"
	"github.com/noah-isme/campus-billing-api/pkg/response"
)

type statisticsService interface {
	EventStatistics(ctx context.Context, eventID string) (*models.EventStatistics, error)
}

type statisticsExporter interface {
	EventStatistics(ctx context.Context, eventID string, format export.Format) (*service.ExportFile, error)
}

type overdueService interface {
	Sweep(ctx context.Context) ([]models.Installment, error)
	ListOverdueStudents(ctx context.Context, eventID string) ([]models.OverdueStudent, error)
}

// StatisticsHandler exposes event roll-ups, exports and the overdue sweep.
type StatisticsHandler struct {
	stats    statisticsService
	exporter statisticsExporter
	overdue  overdueService
}

// NewStatisticsHandler constructs StatisticsHandler.
func NewStatisticsHandler(stats statisticsService, exporter statisticsExporter, overdue overdueService) *StatisticsHandler {
	return &StatisticsHandler{stats: stats, exporter: exporter, overdue: overdue}
}

// EventStatistics godoc
// @Summary Payment statistics of an event
// @Tags Statistics
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/statistics [get]
func (h *StatisticsHandler) EventStatistics(c *gin.Context) {
	stats, err := h.stats.EventStatistics(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export payment statistics of an event
// @Tags Statistics
// @Produce text/csv,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param eventId path string true "Event ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Router /events/{eventId}/statistics/export [get]
func (h *StatisticsHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid format"))
		return
	}
	file, err := h.exporter.EventStatistics(c.Request.Context(), c.Param("eventId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// OverdueStudents godoc
// @Summary Students with overdue installments
// @Tags Statistics
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/overdue-students [get]
func (h *StatisticsHandler) OverdueStudents(c *gin.Context) {
	students, err := h.overdue.ListOverdueStudents(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil, map[string]interface{}{"count": len(students)})
}

// Sweep godoc
// @Summary Run the overdue sweep now
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /installments/overdue/sweep [post]
func (h *StatisticsHandler) Sweep(c *gin.Context) {
	marked, err := h.overdue.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marked, nil, map[string]interface{}{"transitioned": len(marked)})
}
