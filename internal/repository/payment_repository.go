package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/campus-billing-api/internal/models"
)

const paymentColumns = `id, student_id, event_id, plan_id, installment_id, amount, category, method, paid_at, notes,
	receipt_image, transaction_id, receipt_institution, receipt_code, recorded_by, created_at`

// PaymentRepository persists payments and their allocations. Payments are never updated.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment.
func (r *PaymentRepository) Create(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.PaidAt.IsZero() {
		payment.PaidAt = now
	}
	payment.CreatedAt = now
	const query = `INSERT INTO payments (id, student_id, event_id, plan_id, installment_id, amount, category, method, paid_at, notes,
	receipt_image, transaction_id, receipt_institution, receipt_code, recorded_by, created_at)
	VALUES (:id, :student_id, :event_id, :plan_id, :installment_id, :amount, :category, :method, :paid_at, :notes,
	:receipt_image, :transaction_id, :receipt_institution, :receipt_code, :recorded_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// CreateAllocations inserts allocation audit rows.
func (r *PaymentRepository) CreateAllocations(ctx context.Context, exec sqlx.ExtContext, allocations []models.PaymentAllocation) error {
	const query = `INSERT INTO payment_allocations (id, payment_id, installment_id, amount, applied_at)
	VALUES (:id, :payment_id, :installment_id, :amount, :applied_at)`
	for i := range allocations {
		alloc := &allocations[i]
		if alloc.ID == "" {
			alloc.ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, exec, query, alloc); err != nil {
			return fmt.Errorf("create payment allocation: %w", err)
		}
	}
	return nil
}

// ListAllocationsByInstallments returns allocations on the given installments, oldest first.
func (r *PaymentRepository) ListAllocationsByInstallments(ctx context.Context, exec sqlx.ExtContext, installmentIDs []string) ([]models.PaymentAllocation, error) {
	if len(installmentIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(nil, installmentIDs)
	query := fmt.Sprintf(`SELECT id, payment_id, installment_id, amount, applied_at FROM payment_allocations
	WHERE installment_id IN (%s) ORDER BY applied_at, id`, in)
	var allocations []models.PaymentAllocation
	if err := sqlx.SelectContext(ctx, exec, &allocations, query, args...); err != nil {
		return nil, fmt.Errorf("list payment allocations: %w", err)
	}
	return allocations, nil
}

// DeleteAllocationsByInstallments removes allocations on the given installments.
func (r *PaymentRepository) DeleteAllocationsByInstallments(ctx context.Context, exec sqlx.ExtContext, installmentIDs []string) error {
	if len(installmentIDs) == 0 {
		return nil
	}
	in, args := inClause(nil, installmentIDs)
	if _, err := exec.ExecContext(ctx, fmt.Sprintf(`DELETE FROM payment_allocations WHERE installment_id IN (%s)`, in), args...); err != nil {
		return fmt.Errorf("delete payment allocations: %w", err)
	}
	return nil
}

// SumByCategory totals a student's payments of one category in an event.
func (r *PaymentRepository) SumByCategory(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string, category models.PaymentCategory) (decimal.Decimal, error) {
	var total decimal.Decimal
	const query = `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE student_id = $1 AND event_id = $2 AND category = $3`
	if err := sqlx.GetContext(ctx, exec, &total, query, studentID, eventID, category); err != nil {
		return decimal.Zero, fmt.Errorf("sum payments by category: %w", err)
	}
	return total, nil
}

// List returns payments newest first.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
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
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM payments%s ORDER BY paid_at DESC, id LIMIT %d OFFSET %d`, paymentColumns, clause, size, offset)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM payments"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}
