package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/jobs"
)

const (
	sweepLockName = "overdue-sweep"
	// SweepJobType identifies queued overdue sweeps.
	SweepJobType = "overdue_sweep"
)

// OverdueServiceConfig tunes the sweeper.
type OverdueServiceConfig struct {
	LockTTL time.Duration
}

// OverdueService flips lapsed pending installments to overdue.
type OverdueService struct {
	plans        planStore
	installments installmentStore
	statuses     statusStore
	stats        statisticsReader
	locks        lockManager
	tx           txProvider
	metrics      *MetricsService
	logger       *zap.Logger
	clock        Clock
	cfg          OverdueServiceConfig
}

// NewOverdueService wires sweeper dependencies.
func NewOverdueService(
	plans planStore,
	installments installmentStore,
	statuses statusStore,
	stats statisticsReader,
	locks lockManager,
	tx txProvider,
	metrics *MetricsService,
	logger *zap.Logger,
	clock Clock,
	cfg OverdueServiceConfig,
) *OverdueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &OverdueService{
		plans:        plans,
		installments: installments,
		statuses:     statuses,
		stats:        stats,
		locks:        locks,
		tx:           tx,
		metrics:      metrics,
		logger:       logger,
		clock:        clock,
		cfg:          cfg,
	}
}

// Sweep marks every pending installment due before today as overdue and refreshes the
// owning student's status. Each plan is handled in its own transaction; a failing plan
// is logged and skipped. Installments already overdue are not revisited.
func (s *OverdueService) Sweep(ctx context.Context) ([]models.Installment, error) {
	token, err := s.locks.Acquire(ctx, sweepLockName, s.cfg.LockTTL)
	if err != nil {
		s.metrics.RecordSweep("locked", 0)
		return nil, err
	}
	defer func() {
		if err := s.locks.Release(context.Background(), sweepLockName, token); err != nil {
			s.logger.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	today := s.clock.Today()
	planIDs, err := s.installments.ListPlansWithLapsed(ctx, today)
	if err != nil {
		s.metrics.RecordSweep("failed", 0)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan installments")
	}

	transitioned := []models.Installment{}
	failures := 0
	for _, planID := range planIDs {
		if err := ctx.Err(); err != nil {
			return transitioned, err
		}
		marked, err := s.sweepPlan(ctx, planID, today)
		if err != nil {
			failures++
			s.logger.Warn("overdue sweep skipped plan", zap.String("plan_id", planID), zap.Error(err))
			continue
		}
		transitioned = append(transitioned, marked...)
	}

	s.metrics.RecordSweep("completed", len(transitioned))
	s.logger.Info("overdue sweep finished",
		zap.Time("today", today),
		zap.Int("plans", len(planIDs)),
		zap.Int("transitioned", len(transitioned)),
		zap.Int("failures", failures),
	)
	return transitioned, nil
}

func (s *OverdueService) sweepPlan(ctx context.Context, planID string, today time.Time) ([]models.Installment, error) {
	var marked []models.Installment
	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		plan, err := s.plans.LockByID(ctx, tx, planID)
		if err != nil {
			return err
		}
		if !plan.Active {
			return nil
		}
		items, err := s.installments.LockByPlan(ctx, tx, plan.ID)
		if err != nil {
			return err
		}
		if marked, err = s.installments.MarkOverdue(ctx, tx, plan.ID, today); err != nil {
			return err
		}
		if len(marked) == 0 {
			return nil
		}

		overdue := make(map[string]struct{}, len(marked))
		for _, m := range marked {
			overdue[m.ID] = struct{}{}
		}
		for i := range items {
			if _, ok := overdue[items[i].ID]; ok {
				items[i].State = models.InstallmentOverdue
			}
		}
		_, err = refreshTuitionStatus(ctx, tx, s.statuses, plan.StudentID, plan.EventID, items)
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("plan disappeared during sweep")
		}
		return nil, err
	}
	return marked, nil
}

// ListOverdueStudents returns students of an event holding overdue installments with the
// age of their oldest overdue installment.
func (s *OverdueService) ListOverdueStudents(ctx context.Context, eventID string) ([]models.OverdueStudent, error) {
	students, err := s.stats.OverdueStudents(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overdue students")
	}
	today := s.clock.Today()
	for i := range students {
		students[i].DaysOverdue = daysBetween(students[i].OldestDueDate, today)
	}
	if students == nil {
		students = []models.OverdueStudent{}
	}
	return students, nil
}

// SweepJobHandler adapts Sweep to the jobs queue. A sweep held by another instance is not retried.
func (s *OverdueService) SweepJobHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		_, err := s.Sweep(ctx)
		if errors.Is(err, appErrors.ErrLockNotAcquired) {
			s.logger.Info("overdue sweep already running elsewhere", zap.String("job_id", job.ID))
			return nil
		}
		return err
	}
}
