package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-billing-api/internal/middleware"
	"github.com/noah-isme/campus-billing-api/internal/models"
	"github.com/noah-isme/campus-billing-api/internal/service"
	"github.com/noah-isme/campus-billing-api/pkg/export"
)

func newTestContext(req *http.Request, role models.UserRole) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if role != "" {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: role})
	}
	return c, w
}

type planServiceMock struct {
	createReq      models.CreatePlanRequest
	createResp     *models.PlanDetail
	createErr      error
	getResp        *models.PlanDetail
	getErr         error
	listFilter     models.PlanFilter
	listResp       []models.PaymentPlan
	restructureID  string
	restructureReq models.RestructurePlanRequest
	restructureErr error
	cancelReq      models.CancelPlanRequest
	cancelErr      error
}

func (m *planServiceMock) CreatePlan(ctx context.Context, req models.CreatePlanRequest) (*models.PlanDetail, error) {
	m.createReq = req
	return m.createResp, m.createErr
}

func (m *planServiceMock) GetPlan(ctx context.Context, planID string) (*models.PlanDetail, error) {
	return m.getResp, m.getErr
}

func (m *planServiceMock) ListPlans(ctx context.Context, filter models.PlanFilter) ([]models.PaymentPlan, *models.Pagination, error) {
	m.listFilter = filter
	return m.listResp, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(m.listResp)}, nil
}

func (m *planServiceMock) RestructurePlan(ctx context.Context, planID string, req models.RestructurePlanRequest) (*models.RestructureResult, error) {
	m.restructureID = planID
	m.restructureReq = req
	if m.restructureErr != nil {
		return nil, m.restructureErr
	}
	return &models.RestructureResult{Plan: models.PlanDetail{PaymentPlan: models.PaymentPlan{ID: planID}}, Changes: []string{"installment_count"}}, nil
}

func (m *planServiceMock) CancelPlan(ctx context.Context, planID string, req models.CancelPlanRequest) (*models.PlanDetail, error) {
	m.cancelReq = req
	if m.cancelErr != nil {
		return nil, m.cancelErr
	}
	return &models.PlanDetail{PaymentPlan: models.PaymentPlan{ID: planID}}, nil
}

type documentServiceMock struct {
	storedName  string
	storedType  string
	storedBody  string
	storeErr    error
	discarded   []string
	resolveFile *os.File
	resolveName string
	resolveErr  error
}

func (m *documentServiceMock) Store(planID, filename, contentType string, r io.Reader) (string, error) {
	if m.storeErr != nil {
		return "", m.storeErr
	}
	body, _ := io.ReadAll(r)
	m.storedName, m.storedType, m.storedBody = filename, contentType, string(body)
	return "plans/" + planID + "/" + filename, nil
}

func (m *documentServiceMock) StoreReceipt(studentID, filename, contentType string, r io.Reader) (string, error) {
	if m.storeErr != nil {
		return "", m.storeErr
	}
	body, _ := io.ReadAll(r)
	m.storedName, m.storedType, m.storedBody = filename, contentType, string(body)
	return "receipts/" + studentID + "/" + filename, nil
}

func (m *documentServiceMock) Discard(relPath string) {
	m.discarded = append(m.discarded, relPath)
}

func (m *documentServiceMock) Link(planID, relPath string) (*service.DocumentLink, error) {
	return &service.DocumentLink{Path: relPath, URL: "/api/v1/documents/download?token=signed"}, nil
}

func (m *documentServiceMock) Resolve(token string) (*os.File, string, error) {
	return m.resolveFile, m.resolveName, m.resolveErr
}

type paymentServiceMock struct {
	submitReq  models.SubmitPaymentRequest
	submitErr  error
	listFilter models.PaymentFilter
}

func (m *paymentServiceMock) Submit(ctx context.Context, req models.SubmitPaymentRequest) (*models.PaymentResult, error) {
	m.submitReq = req
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &models.PaymentResult{Payment: models.Payment{ID: "pay-1", StudentID: req.StudentID}}, nil
}

func (m *paymentServiceMock) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	m.listFilter = filter
	return []models.Payment{{ID: "pay-1"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

type benefitServiceMock struct {
	previewReq models.BenefitQuoteRequest
	promoCode  string
	promoErr   error
}

func (m *benefitServiceMock) Preview(ctx context.Context, req models.BenefitQuoteRequest) (*models.BenefitQuote, error) {
	m.previewReq = req
	return &models.BenefitQuote{Scope: req.Scope}, nil
}

func (m *benefitServiceMock) ValidatePromoCode(ctx context.Context, code, studentID, eventID string) (*models.PromoCodeCheck, error) {
	m.promoCode = code
	if m.promoErr != nil {
		return nil, m.promoErr
	}
	return &models.PromoCodeCheck{Code: code, Valid: true}, nil
}

type studentServicesMock struct {
	summaryErr   error
	recomputed   [2]string
	statementErr error
}

func (m *studentServicesMock) StudentSummary(ctx context.Context, studentID, eventID string) (*models.StudentSummary, error) {
	if m.summaryErr != nil {
		return nil, m.summaryErr
	}
	return &models.StudentSummary{StudentID: studentID, EventID: eventID, GeneralState: models.StandingCurrent}, nil
}

func (m *studentServicesMock) Eligibility(ctx context.Context, studentID, eventID string) (*models.Eligibility, error) {
	return &models.Eligibility{StudentID: studentID, EventID: eventID, Eligible: true}, nil
}

func (m *studentServicesMock) RecomputeEventStatus(ctx context.Context, studentID, eventID string) (*models.EventPaymentStatus, error) {
	m.recomputed = [2]string{studentID, eventID}
	return &models.EventPaymentStatus{StudentID: studentID, EventID: eventID, TuitionCurrent: true}, nil
}

func (m *studentServicesMock) StudentStatement(ctx context.Context, studentID, eventID string) (*service.ExportFile, error) {
	if m.statementErr != nil {
		return nil, m.statementErr
	}
	return &service.ExportFile{Filename: "statement.pdf", ContentType: "application/pdf", Body: []byte("%PDF-1.3")}, nil
}

type statisticsServicesMock struct {
	sweepErr error
}

func (m *statisticsServicesMock) EventStatistics(ctx context.Context, eventID string) (*models.EventStatistics, error) {
	return &models.EventStatistics{EventID: eventID, PlanCount: 2}, nil
}

func (m *statisticsServicesMock) ListOverdueStudents(ctx context.Context, eventID string) ([]models.OverdueStudent, error) {
	return []models.OverdueStudent{{StudentID: "stu-1", OverdueCount: 1}}, nil
}

func (m *statisticsServicesMock) Sweep(ctx context.Context) ([]models.Installment, error) {
	if m.sweepErr != nil {
		return nil, m.sweepErr
	}
	return []models.Installment{{ID: "inst-1", State: models.InstallmentOverdue}}, nil
}

type statisticsExporterMock struct {
	format export.Format
}

func (m *statisticsExporterMock) EventStatistics(ctx context.Context, eventID string, format export.Format) (*service.ExportFile, error) {
	m.format = format
	return &service.ExportFile{Filename: "statistics.csv", ContentType: "text/csv", Body: []byte("a,b\n")}, nil
}
