package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-billing-api/internal/models"
	"github.com/noah-isme/campus-billing-api/internal/service"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/money"
	"github.com/noah-isme/campus-billing-api/pkg/response"
)

type planService interface {
	CreatePlan(ctx context.Context, req models.CreatePlanRequest) (*models.PlanDetail, error)
	GetPlan(ctx context.Context, planID string) (*models.PlanDetail, error)
	ListPlans(ctx context.Context, filter models.PlanFilter) ([]models.PaymentPlan, *models.Pagination, error)
	RestructurePlan(ctx context.Context, planID string, req models.RestructurePlanRequest) (*models.RestructureResult, error)
	CancelPlan(ctx context.Context, planID string, req models.CancelPlanRequest) (*models.PlanDetail, error)
}

type documentService interface {
	Store(planID, filename, contentType string, r io.Reader) (string, error)
	Discard(relPath string)
	Link(planID, relPath string) (*service.DocumentLink, error)
	Resolve(token string) (*os.File, string, error)
}

// PlanHandler exposes payment plan endpoints.
type PlanHandler struct {
	plans     planService
	documents documentService
}

// NewPlanHandler constructs PlanHandler.
func NewPlanHandler(plans planService, documents documentService) *PlanHandler {
	return &PlanHandler{plans: plans, documents: documents}
}

// Create godoc
// @Summary Create payment plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param payload body models.CreatePlanRequest true "Plan payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /plans [post]
func (h *PlanHandler) Create(c *gin.Context) {
	var req models.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	plan, err := h.plans.CreatePlan(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// List godoc
// @Summary List payment plans
// @Tags Plans
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param eventId query string false "Filter by event"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /plans [get]
func (h *PlanHandler) List(c *gin.Context) {
	filter := models.PlanFilter{
		StudentID: c.Query("studentId"),
		EventID:   c.Query("eventId"),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be a boolean"))
			return
		}
		filter.Active = &active
	}
	filter.Page, filter.PageSize = pageParams(c)

	plans, pagination, err := h.plans.ListPlans(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, pagination)
}

// Get godoc
// @Summary Get payment plan with installments
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /plans/{id} [get]
func (h *PlanHandler) Get(c *gin.Context) {
	plan, err := h.plans.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Restructure godoc
// @Summary Restructure payment plan
// @Description Accepts JSON, or multipart form data with an optional supporting_document file.
// @Tags Plans
// @Accept json,mpfd
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body models.RestructurePlanRequest false "Restructure payload"
// @Param supporting_document formData file false "Signed agreement"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /plans/{id}/restructure [patch]
func (h *PlanHandler) Restructure(c *gin.Context) {
	planID := c.Param("id")
	var req models.RestructurePlanRequest
	var storedPath string

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form"))
			return
		}
		if raw := strings.TrimSpace(c.PostForm("total_amount")); raw != "" {
			total, err := money.Parse(raw)
			if err != nil {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid total_amount"))
				return
			}
			req.TotalAmount = &total
		}
		path, err := h.storeDocument(c, planID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if path != "" {
			storedPath = path
			req.SupportingDocument = &storedPath
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.plans.RestructurePlan(c.Request.Context(), planID, req)
	if err != nil {
		if storedPath != "" {
			h.documents.Discard(storedPath)
		}
		response.Error(c, err)
		return
	}

	var meta map[string]interface{}
	if storedPath != "" {
		if link, err := h.documents.Link(planID, storedPath); err == nil {
			meta = map[string]interface{}{"document": link}
		}
	}
	response.JSON(c, http.StatusOK, result, nil, meta)
}

func (h *PlanHandler) storeDocument(c *gin.Context, planID string) (string, error) {
	header, err := c.FormFile("supporting_document")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid supporting_document")
	}
	if h.documents == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "document uploads are disabled")
	}
	file, err := header.Open()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable supporting_document")
	}
	defer file.Close() //nolint:errcheck
	return h.documents.Store(planID, header.Filename, header.Header.Get("Content-Type"), file)
}

// Cancel godoc
// @Summary Cancel payment plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body models.CancelPlanRequest true "Cancellation reason"
// @Success 200 {object} response.Envelope
// @Router /plans/{id}/cancel [post]
func (h *PlanHandler) Cancel(c *gin.Context) {
	var req models.CancelPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	plan, err := h.plans.CancelPlan(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}
