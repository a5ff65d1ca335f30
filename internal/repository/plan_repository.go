package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
)

const planColumns = `id, student_id, event_id, total_amount, installment_count, uses_custom_amount, apply_benefits,
	has_agreement, agreement_reason, supporting_document, active, created_at, updated_at`

// PlanRepository persists payment plans and their benefit links.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository constructs the repository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// FindByID returns a plan without locking it.
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*models.PaymentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM payment_plans WHERE id = $1`
	var plan models.PaymentPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

// FindByStudentEvent returns the plan of a student in an event without locking it.
func (r *PlanRepository) FindByStudentEvent(ctx context.Context, studentID, eventID string) (*models.PaymentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM payment_plans WHERE student_id = $1 AND event_id = $2`
	var plan models.PaymentPlan
	if err := r.db.GetContext(ctx, &plan, query, studentID, eventID); err != nil {
		return nil, err
	}
	return &plan, nil
}

// LockByID selects a plan row FOR UPDATE. Plans are always locked before their installments.
func (r *PlanRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.PaymentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM payment_plans WHERE id = $1 FOR UPDATE`
	var plan models.PaymentPlan
	if err := sqlx.GetContext(ctx, exec, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

// LockByStudentEvent selects the plan of a student in an event FOR UPDATE.
func (r *PlanRepository) LockByStudentEvent(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string) (*models.PaymentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM payment_plans WHERE student_id = $1 AND event_id = $2 FOR UPDATE`
	var plan models.PaymentPlan
	if err := sqlx.GetContext(ctx, exec, &plan, query, studentID, eventID); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ExistsForStudentEvent reports whether a plan exists for the pair.
func (r *PlanRepository) ExistsForStudentEvent(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string) (bool, error) {
	var exists int
	err := sqlx.GetContext(ctx, exec, &exists, `SELECT 1 FROM payment_plans WHERE student_id = $1 AND event_id = $2 LIMIT 1`, studentID, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check payment plan: %w", err)
	}
	return true, nil
}

// Create inserts a plan. A unique violation on (student_id, event_id) yields ErrDuplicatePlan.
func (r *PlanRepository) Create(ctx context.Context, exec sqlx.ExtContext, plan *models.PaymentPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = plan.CreatedAt

	const query = `INSERT INTO payment_plans (id, student_id, event_id, total_amount, installment_count, uses_custom_amount,
	apply_benefits, has_agreement, agreement_reason, supporting_document, active, created_at, updated_at)
	VALUES (:id, :student_id, :event_id, :total_amount, :installment_count, :uses_custom_amount,
	:apply_benefits, :has_agreement, :agreement_reason, :supporting_document, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, plan); err != nil {
		if isUniqueViolation(err) {
			return appErrors.ErrDuplicatePlan
		}
		return fmt.Errorf("create payment plan: %w", err)
	}
	return nil
}

// Update writes the mutable plan columns.
func (r *PlanRepository) Update(ctx context.Context, exec sqlx.ExtContext, plan *models.PaymentPlan) error {
	plan.UpdatedAt = time.Now().UTC()
	const query = `UPDATE payment_plans SET total_amount = :total_amount, installment_count = :installment_count,
	uses_custom_amount = :uses_custom_amount, apply_benefits = :apply_benefits, has_agreement = :has_agreement,
	agreement_reason = :agreement_reason, supporting_document = :supporting_document, active = :active, updated_at = :updated_at
	WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, exec, query, plan)
	if err != nil {
		return fmt.Errorf("update payment plan: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns plans filtered by student, event and active flag.
func (r *PlanRepository) List(ctx context.Context, filter models.PlanFilter) ([]models.PaymentPlan, int, error) {
	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.EventID != "" {
		args = append(args, filter.EventID)
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM payment_plans%s ORDER BY created_at DESC LIMIT %d OFFSET %d`, planColumns, clause, size, offset)
	var plans []models.PaymentPlan
	if err := r.db.SelectContext(ctx, &plans, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payment plans: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM payment_plans"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count payment plans: %w", err)
	}
	return plans, total, nil
}

// LinkBenefits records the scholarships and discounts applied when the plan total was computed.
func (r *PlanRepository) LinkBenefits(ctx context.Context, exec sqlx.ExtContext, planID string, scholarshipIDs, discountIDs []string) error {
	for _, id := range scholarshipIDs {
		if _, err := exec.ExecContext(ctx, `INSERT INTO payment_plan_scholarships (plan_id, scholarship_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, planID, id); err != nil {
			return fmt.Errorf("link scholarship: %w", err)
		}
	}
	for _, id := range discountIDs {
		if _, err := exec.ExecContext(ctx, `INSERT INTO payment_plan_discounts (plan_id, discount_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, planID, id); err != nil {
			return fmt.Errorf("link discount: %w", err)
		}
	}
	return nil
}

// ListBenefitLinks returns the scholarship and discount ids linked to a plan.
func (r *PlanRepository) ListBenefitLinks(ctx context.Context, planID string) ([]string, []string, error) {
	var scholarships []string
	if err := r.db.SelectContext(ctx, &scholarships, `SELECT scholarship_id FROM payment_plan_scholarships WHERE plan_id = $1 ORDER BY scholarship_id`, planID); err != nil {
		return nil, nil, fmt.Errorf("list plan scholarships: %w", err)
	}
	var discounts []string
	if err := r.db.SelectContext(ctx, &discounts, `SELECT discount_id FROM payment_plan_discounts WHERE plan_id = $1 ORDER BY discount_id`, planID); err != nil {
		return nil, nil, fmt.Errorf("list plan discounts: %w", err)
	}
	return scholarships, discounts, nil
}
