package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-billing-api/internal/models"
)

const installmentColumns = `id, plan_id, number, amount, due_date, state, amount_paid, paid_at, notes,
	receipt_institution, receipt_code, receipt_image, created_at, updated_at`

// InstallmentRepository persists installments.
type InstallmentRepository struct {
	db *sqlx.DB
}

// NewInstallmentRepository constructs the repository.
func NewInstallmentRepository(db *sqlx.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

// ListByPlan returns a plan's installments ordered by number.
func (r *InstallmentRepository) ListByPlan(ctx context.Context, planID string) ([]models.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE plan_id = $1 ORDER BY number`
	var items []models.Installment
	if err := r.db.SelectContext(ctx, &items, query, planID); err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	return items, nil
}

// LockByPlan selects a plan's installments FOR UPDATE in number order.
// Callers must already hold the plan row lock.
func (r *InstallmentRepository) LockByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) ([]models.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE plan_id = $1 ORDER BY number FOR UPDATE`
	var items []models.Installment
	if err := sqlx.SelectContext(ctx, exec, &items, query, planID); err != nil {
		return nil, fmt.Errorf("lock installments: %w", err)
	}
	return items, nil
}

// CreateBatch inserts installments, assigning ids and timestamps.
func (r *InstallmentRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, items []models.Installment) error {
	now := time.Now().UTC()
	const query = `INSERT INTO installments (id, plan_id, number, amount, due_date, state, amount_paid, paid_at, notes,
	receipt_institution, receipt_code, receipt_image, created_at, updated_at)
	VALUES (:id, :plan_id, :number, :amount, :due_date, :state, :amount_paid, :paid_at, :notes,
	:receipt_institution, :receipt_code, :receipt_image, :created_at, :updated_at)`
	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.State == "" {
			item.State = models.InstallmentPending
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, exec, query, item); err != nil {
			return fmt.Errorf("create installment %d: %w", item.Number, err)
		}
	}
	return nil
}

// UpdateSettlement persists the fields the allocator mutates.
func (r *InstallmentRepository) UpdateSettlement(ctx context.Context, exec sqlx.ExtContext, item *models.Installment) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE installments SET amount_paid = :amount_paid, state = :state, paid_at = :paid_at, notes = :notes,
	receipt_institution = :receipt_institution, receipt_code = :receipt_code, receipt_image = :receipt_image, updated_at = :updated_at
	WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, item); err != nil {
		return fmt.Errorf("update installment settlement: %w", err)
	}
	return nil
}

// DeleteByIDs removes installments. Their allocations must be removed first.
func (r *InstallmentRepository) DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, planID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause([]interface{}{planID}, ids)
	query := fmt.Sprintf(`DELETE FROM installments WHERE plan_id = $1 AND state <> 'paid' AND id IN (%s)`, in)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete installments: %w", err)
	}
	return nil
}

// MarkOverdue flips a plan's lapsed pending installments to overdue and returns them.
// Installments already overdue are not touched.
func (r *InstallmentRepository) MarkOverdue(ctx context.Context, exec sqlx.ExtContext, planID string, today time.Time) ([]models.Installment, error) {
	query := `UPDATE installments SET state = 'overdue', updated_at = $3
	WHERE plan_id = $1 AND state = 'pending' AND due_date < $2
	RETURNING ` + installmentColumns
	var items []models.Installment
	if err := sqlx.SelectContext(ctx, exec, &items, query, planID, today, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("mark installments overdue: %w", err)
	}
	return items, nil
}

// CancelUnsettled moves a plan's pending and overdue installments to cancelled.
func (r *InstallmentRepository) CancelUnsettled(ctx context.Context, exec sqlx.ExtContext, planID string) (int64, error) {
	res, err := exec.ExecContext(ctx, `UPDATE installments SET state = 'cancelled', updated_at = $2
	WHERE plan_id = $1 AND state IN ('pending', 'overdue')`, planID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cancel installments: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel installments: %w", err)
	}
	return affected, nil
}

// ListPlansWithLapsed returns ids of active plans holding pending installments due before today.
func (r *InstallmentRepository) ListPlansWithLapsed(ctx context.Context, today time.Time) ([]string, error) {
	const query = `SELECT DISTINCT i.plan_id FROM installments i
	JOIN payment_plans p ON p.id = i.plan_id
	WHERE i.state = 'pending' AND i.due_date < $1 AND p.active
	ORDER BY i.plan_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, today); err != nil {
		return nil, fmt.Errorf("list plans with lapsed installments: %w", err)
	}
	return ids, nil
}
