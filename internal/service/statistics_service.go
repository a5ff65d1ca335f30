package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/money"
)

// StatisticsService builds read-only roll-ups. Nothing is cached.
type StatisticsService struct {
	stats        statisticsReader
	plans        planStore
	installments installmentStore
	statuses     statusStore
	logger       *zap.Logger
	clock        Clock
}

// NewStatisticsService constructs the service.
func NewStatisticsService(stats statisticsReader, plans planStore, installments installmentStore, statuses statusStore, logger *zap.Logger, clock Clock) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{stats: stats, plans: plans, installments: installments, statuses: statuses, logger: logger, clock: clock}
}

// EventStatistics rolls up installment counts, billed and collected totals and overdue students of an event.
func (s *StatisticsService) EventStatistics(ctx context.Context, eventID string) (*models.EventStatistics, error) {
	counts, err := s.stats.CountByState(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count installments")
	}
	totals, err := s.stats.Totals(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum installments")
	}
	overdue, err := s.stats.OverdueStudents(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overdue students")
	}

	today := s.clock.Today()
	for i := range overdue {
		overdue[i].DaysOverdue = daysBetween(overdue[i].OldestDueDate, today)
	}
	if overdue == nil {
		overdue = []models.OverdueStudent{}
	}

	byState := map[models.InstallmentState]int{
		models.InstallmentPending:   0,
		models.InstallmentPaid:      0,
		models.InstallmentOverdue:   0,
		models.InstallmentCancelled: 0,
	}
	for _, c := range counts {
		byState[c.State] = c.Count
	}

	return &models.EventStatistics{
		EventID:          eventID,
		PlanCount:        totals.PlanCount,
		ByState:          byState,
		TotalBilled:      totals.TotalBilled,
		TotalCollected:   totals.TotalPaid,
		TotalOutstanding: money.ClampZero(totals.TotalBilled.Sub(totals.TotalPaid)),
		OverdueStudents:  overdue,
		GeneratedAt:      s.clock.now(),
	}, nil
}

// StudentSummary describes the account of a student in an event. Cancelled installments
// are listed but excluded from the totals.
func (s *StatisticsService) StudentSummary(ctx context.Context, studentID, eventID string) (*models.StudentSummary, error) {
	plan, err := s.plans.FindByStudentEvent(ctx, studentID, eventID)
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
	status, err := s.statuses.Find(ctx, studentID, eventID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment status")
		}
		status = &models.EventPaymentStatus{StudentID: studentID, EventID: eventID}
	}
	if items == nil {
		items = []models.Installment{}
	}

	summary := &models.StudentSummary{
		StudentID:       studentID,
		EventID:         eventID,
		PlanID:          plan.ID,
		Active:          plan.Active,
		TotalAmount:     decimal.Zero,
		TotalPaid:       decimal.Zero,
		Outstanding:     decimal.Zero,
		ByState:         map[models.InstallmentState]int{},
		Status:          *status,
		Installments:    items,
		HasAgreement:    plan.HasAgreement,
		AgreementReason: plan.AgreementReason,
	}

	billable, paid := 0, 0
	for i := range items {
		item := items[i]
		summary.ByState[item.State]++
		if item.State == models.InstallmentCancelled {
			continue
		}
		billable++
		summary.TotalAmount = summary.TotalAmount.Add(item.Amount)
		summary.TotalPaid = summary.TotalPaid.Add(item.AmountPaid)
		if item.State == models.InstallmentPaid {
			paid++
		}
		if item.Unsettled() {
			summary.Outstanding = summary.Outstanding.Add(item.Outstanding())
			if summary.NextDue == nil {
				summary.NextDue = &items[i]
			}
		}
	}

	if summary.TotalAmount.IsPositive() {
		summary.ProgressPercent = money.Quantize(summary.TotalPaid.Mul(decimal.NewFromInt(100)).Div(summary.TotalAmount))
	} else {
		summary.ProgressPercent = decimal.NewFromInt(100)
	}
	summary.GeneralState = generalState(billable, paid, summary.ByState[models.InstallmentOverdue])
	return summary, nil
}

func generalState(billable, paid, overdue int) models.GeneralState {
	switch {
	case paid == billable:
		return models.StandingCompleted
	case overdue > 0:
		return models.StandingOverdue
	case paid > 0:
		return models.StandingCurrent
	default:
		return models.StandingPending
	}
}
