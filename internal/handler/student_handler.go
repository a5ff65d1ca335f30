package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-billing-api/internal/models"
	"github.com/noah-isme/campus-billing-api/internal/service"
	"github.com/noah-isme/campus-billing-api/pkg/response"
)

type summaryService interface {
	StudentSummary(ctx context.Context, studentID, eventID string) (*models.StudentSummary, error)
}

type statusService interface {
	Eligibility(ctx context.Context, studentID, eventID string) (*models.Eligibility, error)
	RecomputeEventStatus(ctx context.Context, studentID, eventID string) (*models.EventPaymentStatus, error)
}

type statementExporter interface {
	StudentStatement(ctx context.Context, studentID, eventID string) (*service.ExportFile, error)
}

// StudentHandler exposes the per student, per event account views.
type StudentHandler struct {
	summaries  summaryService
	statuses   statusService
	statements statementExporter
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(summaries summaryService, statuses statusService, statements statementExporter) *StudentHandler {
	return &StudentHandler{summaries: summaries, statuses: statuses, statements: statements}
}

// Summary godoc
// @Summary Student account summary for an event
// @Tags Students
// @Produce json
// @Param studentId path string true "Student ID"
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/events/{eventId}/summary [get]
func (h *StudentHandler) Summary(c *gin.Context) {
	summary, err := h.summaries.StudentSummary(c.Request.Context(), c.Param("studentId"), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Eligibility godoc
// @Summary Certificate eligibility
// @Tags Students
// @Produce json
// @Param studentId path string true "Student ID"
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/events/{eventId}/eligibility [get]
func (h *StudentHandler) Eligibility(c *gin.Context) {
	result, err := h.statuses.Eligibility(c.Request.Context(), c.Param("studentId"), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RecomputeStatus godoc
// @Summary Rebuild the tuition flag from installments
// @Tags Students
// @Produce json
// @Param studentId path string true "Student ID"
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/events/{eventId}/status/recompute [post]
func (h *StudentHandler) RecomputeStatus(c *gin.Context) {
	status, err := h.statuses.RecomputeEventStatus(c.Request.Context(), c.Param("studentId"), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Statement godoc
// @Summary Download a PDF statement of account
// @Tags Students
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param eventId path string true "Event ID"
// @Success 200 {file} file
// @Router /students/{studentId}/events/{eventId}/statement [get]
func (h *StudentHandler) Statement(c *gin.Context) {
	file, err := h.statements.StudentStatement(c.Request.Context(), c.Param("studentId"), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
