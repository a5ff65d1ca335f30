package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/money"
)

// PaymentService records payments and allocates tuition payments onto installments.
type PaymentService struct {
	plans        planStore
	installments installmentStore
	payments     paymentStore
	statuses     statusStore
	events       eventRegistry
	benefits     benefitQuoter
	tx           txProvider
	validator    *validator.Validate
	metrics      *MetricsService
	logger       *zap.Logger
	clock        Clock
}

// NewPaymentService wires payment dependencies.
func NewPaymentService(
	plans planStore,
	installments installmentStore,
	payments paymentStore,
	statuses statusStore,
	events eventRegistry,
	benefits benefitQuoter,
	tx txProvider,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
	clock Clock,
) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		plans:        plans,
		installments: installments,
		payments:     payments,
		statuses:     statuses,
		events:       events,
		benefits:     benefits,
		tx:           tx,
		validator:    validate,
		metrics:      metrics,
		logger:       logger,
		clock:        clock,
	}
}

// Submit stores a payment and applies its side effects in one transaction:
// installment allocation for tuition categories and fee flags for matriculation and certificate.
func (s *PaymentService) Submit(ctx context.Context, req models.SubmitPaymentRequest) (*models.PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfiguration, "payment amount must be positive")
	}
	if !req.Amount.Equal(money.Quantize(req.Amount)) {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfiguration, "payment amount must have at most two decimals")
	}
	if req.Category == models.CategorySingleInstallment && (req.InstallmentID == nil || *req.InstallmentID == "") {
		return nil, appErrors.Clone(appErrors.ErrInvalidInstallmentReference, "single installment payments must reference an installment")
	}

	paidAt := s.clock.now()
	if req.PaidAt != nil && !req.PaidAt.IsZero() {
		paidAt = req.PaidAt.UTC()
	}

	payment := &models.Payment{
		StudentID:          req.StudentID,
		EventID:            req.EventID,
		Amount:             req.Amount,
		Category:           req.Category,
		Method:             req.Method,
		PaidAt:             paidAt,
		Notes:              strings.TrimSpace(req.Notes),
		TransactionID:      req.TransactionID,
		ReceiptInstitution: req.ReceiptInstitution,
		ReceiptCode:        req.ReceiptCode,
		ReceiptImage:       req.ReceiptImage,
		RecordedBy:         req.RecordedBy,
	}
	result := &models.PaymentResult{Allocations: []models.PaymentAllocation{}, Installments: []models.Installment{}}

	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		var items []models.Installment
		var touched []*models.Installment
		var planFound bool

		if req.Category.IsTuition() {
			plan, err := s.plans.LockByStudentEvent(ctx, tx, req.StudentID, req.EventID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotEnrolled, "no payment plan for student and event")
				}
				return asInternal(err, "failed to lock plan")
			}
			if !plan.Active {
				return appErrors.Clone(appErrors.ErrInvalidConfiguration, "payment plan is not active")
			}
			planFound = true
			payment.PlanID = &plan.ID
			if items, err = s.installments.LockByPlan(ctx, tx, plan.ID); err != nil {
				return asInternal(err, "failed to lock installments")
			}

			allocations, targets, err := s.allocate(req, items, paidAt)
			if err != nil {
				return err
			}
			touched = targets
			result.Allocations = allocations
			if req.Category == models.CategorySingleInstallment {
				payment.InstallmentID = req.InstallmentID
			}
		} else {
			enrolled, err := s.events.IsEnrolled(ctx, req.StudentID, req.EventID)
			if err != nil {
				return asInternal(err, "failed to check enrollment")
			}
			if !enrolled {
				return appErrors.ErrNotEnrolled
			}
		}

		if err := s.payments.Create(ctx, tx, payment); err != nil {
			return asInternal(err, "failed to store payment")
		}
		for i := range result.Allocations {
			result.Allocations[i].PaymentID = payment.ID
		}
		if len(result.Allocations) > 0 {
			if err := s.payments.CreateAllocations(ctx, tx, result.Allocations); err != nil {
				return asInternal(err, "failed to store allocations")
			}
		}
		for _, inst := range touched {
			if err := s.installments.UpdateSettlement(ctx, tx, inst); err != nil {
				return asInternal(err, "failed to update installment")
			}
			result.Installments = append(result.Installments, *inst)
		}

		status, err := lockStatus(ctx, tx, s.statuses, req.StudentID, req.EventID)
		if err != nil {
			return asInternal(err, "failed to load payment status")
		}
		if planFound {
			status.TuitionCurrent = tuitionCurrent(items)
		}
		if err := s.applyFeeFlag(ctx, tx, status, req.Category); err != nil {
			return err
		}
		if err := s.statuses.Upsert(ctx, tx, status); err != nil {
			return asInternal(err, "failed to store payment status")
		}
		result.Status = *status
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Payment = *payment
	s.metrics.RecordPayment(string(payment.Category), len(result.Allocations))
	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("student_id", payment.StudentID),
		zap.String("event_id", payment.EventID),
		zap.String("category", string(payment.Category)),
		zap.String("amount", money.String(payment.Amount)),
		zap.Int("allocations", len(result.Allocations)),
	)
	return result, nil
}

// allocate applies the payment to the plan's installments in memory and returns the allocations
// together with the installments they changed.
func (s *PaymentService) allocate(req models.SubmitPaymentRequest, items []models.Installment, at time.Time) ([]models.PaymentAllocation, []*models.Installment, error) {
	byID := make(map[string]*models.Installment, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	if req.Category == models.CategorySingleInstallment {
		inst, ok := byID[*req.InstallmentID]
		if !ok || !inst.Unsettled() {
			return nil, nil, appErrors.ErrInvalidInstallmentReference
		}
		allocation, err := ApplySingle(inst, req.Amount, at)
		if err != nil {
			return nil, nil, err
		}
		if req.ReceiptInstitution != nil {
			inst.ReceiptInstitution = req.ReceiptInstitution
		}
		if req.ReceiptCode != nil {
			inst.ReceiptCode = req.ReceiptCode
		}
		if req.ReceiptImage != nil {
			inst.ReceiptImage = req.ReceiptImage
		}
		return []models.PaymentAllocation{allocation}, []*models.Installment{inst}, nil
	}

	var targets []*models.Installment
	if len(req.InstallmentIDs) > 0 {
		seen := make(map[string]struct{}, len(req.InstallmentIDs))
		for _, id := range req.InstallmentIDs {
			inst, ok := byID[id]
			if !ok || !inst.Unsettled() {
				return nil, nil, appErrors.Clonef(appErrors.ErrInvalidInstallmentReference, "installment %s is not payable in this plan", id)
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			targets = append(targets, inst)
		}
	} else {
		for i := range items {
			if items[i].Unsettled() {
				targets = append(targets, &items[i])
			}
		}
	}

	if req.Category == models.CategoryFullTuition {
		outstanding := OutstandingOf(targets)
		if req.Amount.LessThan(outstanding) {
			return nil, nil, appErrors.Clonef(appErrors.ErrInsufficientAmount,
				"amount %s does not cover outstanding %s", money.String(req.Amount), money.String(outstanding))
		}
	}

	allocations, err := ApplyDistributed(targets, req.Amount, at)
	if err != nil {
		return nil, nil, err
	}
	changed := make([]*models.Installment, 0, len(allocations))
	for _, a := range allocations {
		changed = append(changed, byID[a.InstallmentID])
	}
	return allocations, changed, nil
}

// applyFeeFlag sets the matriculation or certificate flag once cumulative payments of the
// category reach the benefit-adjusted cost.
func (s *PaymentService) applyFeeFlag(ctx context.Context, tx *sqlx.Tx, status *models.EventPaymentStatus, category models.PaymentCategory) error {
	if category != models.CategoryMatriculation && category != models.CategoryCertificate {
		return nil
	}
	event, err := s.events.FindEvent(ctx, status.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return asInternal(err, "failed to load event")
	}
	scope, _ := models.ScopeForCategory(category)
	quote, err := s.benefits.Quote(ctx, status.StudentID, status.EventID, category, event.CostFor(scope))
	if err != nil {
		return asInternal(err, "failed to quote fee")
	}
	paid, err := s.payments.SumByCategory(ctx, tx, status.StudentID, status.EventID, category)
	if err != nil {
		return asInternal(err, "failed to sum payments")
	}
	if paid.LessThan(quote.FinalAmount) {
		return nil
	}
	if category == models.CategoryMatriculation {
		status.MatriculationPaid = true
	} else {
		status.CertificatePaid = true
	}
	return nil
}

// ListPayments returns payments matching filter.
func (s *PaymentService) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	payments, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, pagination(filter.Page, filter.PageSize, total), nil
}
