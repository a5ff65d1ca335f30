package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/money"
)

// PlanServiceConfig tunes plan limits.
type PlanServiceConfig struct {
	MaxInstallments int
}

// PlanService creates, restructures and cancels payment plans and maintains the event payment status.
type PlanService struct {
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
	cfg          PlanServiceConfig
}

// NewPlanService wires plan lifecycle dependencies.
func NewPlanService(
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
	cfg PlanServiceConfig,
) *PlanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxInstallments <= 0 || cfg.MaxInstallments > models.MaxInstallments {
		cfg.MaxInstallments = models.MaxInstallments
	}
	return &PlanService{
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
		cfg:          cfg,
	}
}

// CreatePlan creates the plan of a student in an event together with its schedule.
// A second call for the same pair fails with DUPLICATE_PLAN.
func (s *PlanService) CreatePlan(ctx context.Context, req models.CreatePlanRequest) (*models.PlanDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan payload")
	}

	count := models.MinInstallments
	if req.InstallmentCount != nil {
		count = *req.InstallmentCount
	}
	if count < models.MinInstallments || count > s.cfg.MaxInstallments {
		return nil, appErrors.Clonef(appErrors.ErrInvalidConfiguration, "installment count must be between %d and %d", models.MinInstallments, s.cfg.MaxInstallments)
	}

	enrolled, err := s.events.IsEnrolled(ctx, req.StudentID, req.EventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.ErrNotEnrolled
	}
	event, err := s.findEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.AgreementReason)
	plan := &models.PaymentPlan{
		StudentID:        req.StudentID,
		EventID:          req.EventID,
		InstallmentCount: count,
		ApplyBenefits:    req.ApplyBenefits,
		AgreementReason:  reason,
		HasAgreement:     reason != "",
		Active:           true,
	}

	var scholarshipIDs, discountIDs []string
	switch {
	case req.TotalAmount != nil:
		plan.TotalAmount = *req.TotalAmount
		plan.UsesCustomAmount = true
	case req.ApplyBenefits:
		quote, err := s.benefits.Quote(ctx, req.StudentID, req.EventID, models.CategoryFullTuition, event.TuitionCost)
		if err != nil {
			return nil, asInternal(err, "failed to apply benefits")
		}
		plan.TotalAmount = quote.FinalAmount
		scholarshipIDs, discountIDs = splitBenefitItems(quote.Items)
	default:
		plan.TotalAmount = event.TuitionCost
	}
	if err := validatePlanTotal(plan.TotalAmount, count); err != nil {
		return nil, err
	}

	matriculationWaived, certificateWaived, err := s.waivedFees(ctx, req.StudentID, event)
	if err != nil {
		return nil, err
	}

	var drafts []models.InstallmentDraft
	if plan.TotalAmount.IsPositive() {
		start := event.StartDate
		if start.IsZero() {
			start = s.clock.Today()
		}
		if drafts, err = GenerateSchedule(plan.TotalAmount, count, start, 1); err != nil {
			return nil, err
		}
	}

	var items []models.Installment
	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		exists, err := s.plans.ExistsForStudentEvent(ctx, tx, plan.StudentID, plan.EventID)
		if err != nil {
			return asInternal(err, "failed to check existing plan")
		}
		if exists {
			return appErrors.ErrDuplicatePlan
		}
		if err := s.plans.Create(ctx, tx, plan); err != nil {
			return asInternal(err, "failed to create plan")
		}

		items = draftsToInstallments(plan.ID, drafts)
		if len(items) > 0 {
			if err := s.installments.CreateBatch(ctx, tx, items); err != nil {
				return asInternal(err, "failed to create installments")
			}
		}
		if len(scholarshipIDs) > 0 || len(discountIDs) > 0 {
			if err := s.plans.LinkBenefits(ctx, tx, plan.ID, scholarshipIDs, discountIDs); err != nil {
				return asInternal(err, "failed to link benefits")
			}
		}

		status, err := lockStatus(ctx, tx, s.statuses, plan.StudentID, plan.EventID)
		if err != nil {
			return asInternal(err, "failed to load payment status")
		}
		status.MatriculationPaid = status.MatriculationPaid || matriculationWaived
		status.CertificatePaid = status.CertificatePaid || certificateWaived
		status.TuitionCurrent = tuitionCurrent(items)
		if err := s.statuses.Upsert(ctx, tx, status); err != nil {
			return asInternal(err, "failed to store payment status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment plan created",
		zap.String("plan_id", plan.ID),
		zap.String("student_id", plan.StudentID),
		zap.String("event_id", plan.EventID),
		zap.String("total_amount", money.String(plan.TotalAmount)),
		zap.Int("installments", len(items)),
	)

	return &models.PlanDetail{
		PaymentPlan:    *plan,
		Installments:   items,
		ScholarshipIDs: scholarshipIDs,
		DiscountIDs:    discountIDs,
	}, nil
}

// RestructurePlan changes the installment count or total of an active plan. Paid installments
// are kept; the unpaid tail is replaced by a schedule over the remaining amount starting today.
// Partial payments on replaced installments are carried onto the new ones.
func (s *PlanService) RestructurePlan(ctx context.Context, planID string, req models.RestructurePlanRequest) (*models.RestructureResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid restructure payload")
	}
	if req.InstallmentCount != nil && (*req.InstallmentCount < models.MinInstallments || *req.InstallmentCount > s.cfg.MaxInstallments) {
		return nil, appErrors.Clonef(appErrors.ErrInvalidConfiguration, "installment count must be between %d and %d", models.MinInstallments, s.cfg.MaxInstallments)
	}
	if req.TotalAmount != nil {
		if req.TotalAmount.IsNegative() || !req.TotalAmount.Equal(money.Quantize(*req.TotalAmount)) {
			return nil, appErrors.Clone(appErrors.ErrInvalidConfiguration, "total amount must be a non-negative amount with at most two decimals")
		}
	}
	reason := strings.TrimSpace(req.Reason)

	var (
		plan    *models.PaymentPlan
		items   []models.Installment
		changes = []string{}
	)
	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		var err error
		plan, err = s.plans.LockByID(ctx, tx, planID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "payment plan not found")
			}
			return asInternal(err, "failed to lock plan")
		}
		if !plan.Active {
			return appErrors.Clone(appErrors.ErrInvalidConfiguration, "payment plan is not active")
		}
		if items, err = s.installments.LockByPlan(ctx, tx, plan.ID); err != nil {
			return asInternal(err, "failed to lock installments")
		}

		newCount, newTotal := plan.InstallmentCount, plan.TotalAmount
		if req.InstallmentCount != nil && *req.InstallmentCount != plan.InstallmentCount {
			changes = append(changes, fmt.Sprintf("installment_count: %d -> %d", plan.InstallmentCount, *req.InstallmentCount))
			newCount = *req.InstallmentCount
		}
		if req.TotalAmount != nil && !req.TotalAmount.Equal(plan.TotalAmount) {
			changes = append(changes, fmt.Sprintf("total_amount: %s -> %s", money.String(plan.TotalAmount), money.String(*req.TotalAmount)))
			newTotal = *req.TotalAmount
		}
		regenerate := len(changes) > 0
		if reason != "" {
			changes = append(changes, "agreement_reason")
		}
		if req.SupportingDocument != nil && (plan.SupportingDocument == nil || *plan.SupportingDocument != *req.SupportingDocument) {
			changes = append(changes, "supporting_document")
		}
		if len(changes) == 0 {
			return nil
		}

		if regenerate {
			if items, err = s.regenerate(ctx, tx, plan, items, newCount, newTotal); err != nil {
				return err
			}
			plan.InstallmentCount = newCount
			if !newTotal.Equal(plan.TotalAmount) {
				plan.TotalAmount = newTotal
				plan.UsesCustomAmount = true
			}
		}
		if reason != "" {
			plan.AgreementReason = appendReason(plan.AgreementReason, "Restructure: "+reason)
			plan.HasAgreement = true
		}
		if req.SupportingDocument != nil {
			plan.SupportingDocument = req.SupportingDocument
			plan.HasAgreement = true
		}
		if err := s.plans.Update(ctx, tx, plan); err != nil {
			return asInternal(err, "failed to update plan")
		}
		if _, err := refreshTuitionStatus(ctx, tx, s.statuses, plan.StudentID, plan.EventID, items); err != nil {
			return asInternal(err, "failed to refresh payment status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.metrics.RecordRestructure()
		s.logger.Info("payment plan restructured", zap.String("plan_id", plan.ID), zap.Strings("changes", changes))
	}

	detail, err := s.detail(ctx, plan, items)
	if err != nil {
		return nil, err
	}
	return &models.RestructureResult{Plan: *detail, Changes: changes}, nil
}

func (s *PlanService) regenerate(ctx context.Context, tx *sqlx.Tx, plan *models.PaymentPlan, items []models.Installment, count int, total decimal.Decimal) ([]models.Installment, error) {
	var (
		kept      []models.Installment
		unpaidIDs []string
		paidSum   = decimal.Zero
		paidCount int
		maxNumber int
	)
	for _, item := range items {
		if item.Unsettled() {
			unpaidIDs = append(unpaidIDs, item.ID)
			continue
		}
		kept = append(kept, item)
		if item.Number > maxNumber {
			maxNumber = item.Number
		}
		if item.State == models.InstallmentPaid {
			paidSum = paidSum.Add(item.Amount)
			paidCount++
		}
	}

	// A non-positive remaining count or amount leaves the plan covered by what is already paid.
	remainingAmount := total.Sub(paidSum)
	remainingCount := count - paidCount
	covered := !remainingAmount.IsPositive() || remainingCount <= 0

	var carried []models.PaymentAllocation
	if len(unpaidIDs) > 0 {
		var err error
		if carried, err = s.payments.ListAllocationsByInstallments(ctx, tx, unpaidIDs); err != nil {
			return nil, asInternal(err, "failed to load allocations")
		}
	}
	credit := decimal.Zero
	for _, a := range carried {
		credit = credit.Add(a.Amount)
	}
	if credit.IsPositive() && (covered || credit.GreaterThan(remainingAmount)) {
		return nil, appErrors.Clonef(appErrors.ErrInvalidConfiguration, "new schedule cannot absorb %s already paid toward unsettled installments", money.String(credit))
	}

	var fresh []models.Installment
	if !covered {
		if remainingAmount.LessThan(minimumTotal(remainingCount)) {
			return nil, appErrors.Clonef(appErrors.ErrInvalidConfiguration, "remaining amount %s is too small for %d installments", money.String(remainingAmount), remainingCount)
		}
		drafts, err := GenerateSchedule(remainingAmount, remainingCount, s.clock.Today(), maxNumber+1)
		if err != nil {
			return nil, err
		}
		fresh = draftsToInstallments(plan.ID, drafts)
		for i := range fresh {
			fresh[i].ID = uuid.NewString()
		}
	}

	sort.SliceStable(carried, func(i, j int) bool { return carried[i].AppliedAt.Before(carried[j].AppliedAt) })
	targets := pointersTo(fresh)
	var reapplied []models.PaymentAllocation
	for _, old := range carried {
		allocations, err := ApplyDistributed(targets, old.Amount, old.AppliedAt)
		if err != nil {
			return nil, err
		}
		for i := range allocations {
			allocations[i].PaymentID = old.PaymentID
		}
		reapplied = append(reapplied, allocations...)
	}

	if len(unpaidIDs) > 0 {
		if err := s.payments.DeleteAllocationsByInstallments(ctx, tx, unpaidIDs); err != nil {
			return nil, asInternal(err, "failed to remove allocations")
		}
		if err := s.installments.DeleteByIDs(ctx, tx, plan.ID, unpaidIDs); err != nil {
			return nil, asInternal(err, "failed to remove unpaid installments")
		}
	}
	if len(fresh) > 0 {
		if err := s.installments.CreateBatch(ctx, tx, fresh); err != nil {
			return nil, asInternal(err, "failed to create installments")
		}
	}
	if len(reapplied) > 0 {
		if err := s.payments.CreateAllocations(ctx, tx, reapplied); err != nil {
			return nil, asInternal(err, "failed to carry allocations")
		}
	}

	result := append(kept, fresh...)
	sortByNumber(result)
	return result, nil
}

// CancelPlan deactivates a plan and cancels its unsettled installments. Paid installments are kept.
func (s *PlanService) CancelPlan(ctx context.Context, planID string, req models.CancelPlanRequest) (*models.PlanDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancel payload")
	}

	var (
		plan  *models.PaymentPlan
		items []models.Installment
	)
	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		var err error
		plan, err = s.plans.LockByID(ctx, tx, planID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "payment plan not found")
			}
			return asInternal(err, "failed to lock plan")
		}
		if !plan.Active {
			return appErrors.Clone(appErrors.ErrInvalidConfiguration, "payment plan is already cancelled")
		}
		if items, err = s.installments.LockByPlan(ctx, tx, plan.ID); err != nil {
			return asInternal(err, "failed to lock installments")
		}
		if _, err := s.installments.CancelUnsettled(ctx, tx, plan.ID); err != nil {
			return asInternal(err, "failed to cancel installments")
		}
		for i := range items {
			if items[i].Unsettled() {
				items[i].State = models.InstallmentCancelled
			}
		}

		plan.Active = false
		plan.AgreementReason = appendReason(plan.AgreementReason, "Cancelled: "+strings.TrimSpace(req.Reason))
		if err := s.plans.Update(ctx, tx, plan); err != nil {
			return asInternal(err, "failed to update plan")
		}
		if _, err := refreshTuitionStatus(ctx, tx, s.statuses, plan.StudentID, plan.EventID, items); err != nil {
			return asInternal(err, "failed to refresh payment status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment plan cancelled", zap.String("plan_id", plan.ID))
	return s.detail(ctx, plan, items)
}

// RecomputeEventStatus rebuilds the tuition flag of a student in an event from the plan's installments.
func (s *PlanService) RecomputeEventStatus(ctx context.Context, studentID, eventID string) (*models.EventPaymentStatus, error) {
	var status *models.EventPaymentStatus
	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		plan, err := s.plans.LockByStudentEvent(ctx, tx, studentID, eventID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "payment plan not found")
			}
			return asInternal(err, "failed to lock plan")
		}
		items, err := s.installments.LockByPlan(ctx, tx, plan.ID)
		if err != nil {
			return asInternal(err, "failed to lock installments")
		}
		if status, err = refreshTuitionStatus(ctx, tx, s.statuses, studentID, eventID, items); err != nil {
			return asInternal(err, "failed to refresh payment status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// Eligibility answers whether a certificate may be issued: tuition current, matriculation
// paid and certificate paid or free.
func (s *PlanService) Eligibility(ctx context.Context, studentID, eventID string) (*models.Eligibility, error) {
	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	status, err := s.statuses.Find(ctx, studentID, eventID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment status")
		}
		status = &models.EventPaymentStatus{StudentID: studentID, EventID: eventID}
	}

	result := &models.Eligibility{
		StudentID:         studentID,
		EventID:           eventID,
		TuitionCurrent:    status.TuitionCurrent,
		MatriculationPaid: status.MatriculationPaid,
		CertificatePaid:   status.CertificatePaid,
		CertificateFree:   event.CertificateCost.IsZero(),
	}
	matriculationMet := status.MatriculationPaid || !event.RequiresMatriculation || event.MatriculationCost.IsZero()
	if !result.TuitionCurrent {
		result.Reasons = append(result.Reasons, "tuition has outstanding installments")
	}
	if !matriculationMet {
		result.Reasons = append(result.Reasons, "matriculation fee not paid")
	}
	if !result.CertificatePaid && !result.CertificateFree {
		result.Reasons = append(result.Reasons, "certificate fee not paid")
	}
	result.Eligible = len(result.Reasons) == 0
	return result, nil
}

// GetPlan returns a plan with its installments and benefit links.
func (s *PlanService) GetPlan(ctx context.Context, planID string) (*models.PlanDetail, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	items, err := s.installments.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load installments")
	}
	return s.detail(ctx, plan, items)
}

// ListPlans returns plans matching filter.
func (s *PlanService) ListPlans(ctx context.Context, filter models.PlanFilter) ([]models.PaymentPlan, *models.Pagination, error) {
	plans, total, err := s.plans.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list plans")
	}
	return plans, pagination(filter.Page, filter.PageSize, total), nil
}

func (s *PlanService) detail(ctx context.Context, plan *models.PaymentPlan, items []models.Installment) (*models.PlanDetail, error) {
	scholarships, discounts, err := s.plans.ListBenefitLinks(ctx, plan.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan benefits")
	}
	if items == nil {
		items = []models.Installment{}
	}
	return &models.PlanDetail{
		PaymentPlan:    *plan,
		Installments:   items,
		ScholarshipIDs: scholarships,
		DiscountIDs:    discounts,
	}, nil
}

func (s *PlanService) findEvent(ctx context.Context, eventID string) (*models.EventCosts, error) {
	event, err := s.events.FindEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// waivedFees reports which fees are fully covered by benefits or configured at zero.
func (s *PlanService) waivedFees(ctx context.Context, studentID string, event *models.EventCosts) (bool, bool, error) {
	matriculation, err := s.benefits.Quote(ctx, studentID, event.EventID, models.CategoryMatriculation, event.MatriculationCost)
	if err != nil {
		return false, false, asInternal(err, "failed to quote matriculation fee")
	}
	certificate, err := s.benefits.Quote(ctx, studentID, event.EventID, models.CategoryCertificate, event.CertificateCost)
	if err != nil {
		return false, false, asInternal(err, "failed to quote certificate fee")
	}
	return matriculation.FinalAmount.IsZero(), certificate.FinalAmount.IsZero(), nil
}
