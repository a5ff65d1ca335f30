package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-billing-api/internal/models"
	"github.com/noah-isme/campus-billing-api/internal/service"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/money"
	"github.com/noah-isme/campus-billing-api/pkg/response"
)

type paymentService interface {
	Submit(ctx context.Context, req models.SubmitPaymentRequest) (*models.PaymentResult, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error)
}

type receiptStorage interface {
	StoreReceipt(studentID, filename, contentType string, r io.Reader) (string, error)
	Discard(relPath string)
	Link(owner, relPath string) (*service.DocumentLink, error)
}

// PaymentHandler exposes payment endpoints.
type PaymentHandler struct {
	payments paymentService
	receipts receiptStorage
}

// NewPaymentHandler constructs PaymentHandler. receipts may be nil, which disables receipt uploads.
func NewPaymentHandler(payments paymentService, receipts receiptStorage) *PaymentHandler {
	return &PaymentHandler{payments: payments, receipts: receipts}
}

// Submit godoc
// @Summary Record a payment
// @Description Tuition categories are allocated onto the plan's installments in the same transaction.
// @Description Send multipart/form-data with a receipt_image file to attach a receipt scan.
// @Tags Payments
// @Accept json
// @Accept mpfd
// @Produce json
// @Param payload body models.SubmitPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Submit(c *gin.Context) {
	var req models.SubmitPaymentRequest
	var storedPath string

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form"))
			return
		}
		amount, err := money.Parse(strings.TrimSpace(c.PostForm("amount")))
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid amount"))
			return
		}
		req.Amount = amount
		path, err := h.storeReceipt(c, req.StudentID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if path != "" {
			storedPath = path
			req.ReceiptImage = &storedPath
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.RecordedBy = actorID(c)

	result, err := h.payments.Submit(c.Request.Context(), req)
	if err != nil {
		if storedPath != "" {
			h.receipts.Discard(storedPath)
		}
		response.Error(c, err)
		return
	}

	var meta map[string]interface{}
	if storedPath != "" {
		if link, err := h.receipts.Link(req.StudentID, storedPath); err == nil {
			meta = map[string]interface{}{"receipt_image": link}
		}
	}
	response.JSON(c, http.StatusCreated, result, nil, meta)
}

func (h *PaymentHandler) storeReceipt(c *gin.Context, studentID string) (string, error) {
	header, err := c.FormFile("receipt_image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid receipt_image")
	}
	if h.receipts == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "receipt uploads are disabled")
	}
	file, err := header.Open()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable receipt_image")
	}
	defer file.Close() //nolint:errcheck
	return h.receipts.StoreReceipt(studentID, header.Filename, header.Header.Get("Content-Type"), file)
}

// List godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param eventId query string false "Filter by event"
// @Param category query string false "Filter by category"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	filter := models.PaymentFilter{
		StudentID: c.Query("studentId"),
		EventID:   c.Query("eventId"),
		Category:  models.PaymentCategory(c.Query("category")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	payments, pagination, err := h.payments.ListPayments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}
