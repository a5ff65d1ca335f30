package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/response"
)

type benefitService interface {
	Preview(ctx context.Context, req models.BenefitQuoteRequest) (*models.BenefitQuote, error)
	ValidatePromoCode(ctx context.Context, code, studentID, eventID string) (*models.PromoCodeCheck, error)
}

// BenefitHandler exposes scholarship and discount quotes.
type BenefitHandler struct {
	benefits benefitService
}

// NewBenefitHandler constructs BenefitHandler.
func NewBenefitHandler(benefits benefitService) *BenefitHandler {
	return &BenefitHandler{benefits: benefits}
}

// Quote godoc
// @Summary Quote benefit reductions on a fee
// @Tags Benefits
// @Accept json
// @Produce json
// @Param payload body models.BenefitQuoteRequest true "Quote payload"
// @Success 200 {object} response.Envelope
// @Router /benefits/quote [post]
func (h *BenefitHandler) Quote(c *gin.Context) {
	var req models.BenefitQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	quote, err := h.benefits.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quote, nil)
}

// PromoCode godoc
// @Summary Validate a promotional code
// @Tags Benefits
// @Produce json
// @Param code path string true "Promo code"
// @Param studentId query string true "Student ID"
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /benefits/promo-codes/{code} [get]
func (h *BenefitHandler) PromoCode(c *gin.Context) {
	studentID, eventID := c.Query("studentId"), c.Query("eventId")
	if studentID == "" || eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId and eventId are required"))
		return
	}
	check, err := h.benefits.ValidatePromoCode(c.Request.Context(), c.Param("code"), studentID, eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}
