package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-billing-api/internal/models"
)

// StatusRepository persists the per student, per event fee flags.
type StatusRepository struct {
	db *sqlx.DB
}

// NewStatusRepository constructs the repository.
func NewStatusRepository(db *sqlx.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// Get returns the status row, or sql.ErrNoRows.
func (r *StatusRepository) Get(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string) (*models.EventPaymentStatus, error) {
	const query = `SELECT student_id, event_id, matriculation_paid, certificate_paid, tuition_current, updated_at
	FROM event_payment_status WHERE student_id = $1 AND event_id = $2`
	var status models.EventPaymentStatus
	if err := sqlx.GetContext(ctx, exec, &status, query, studentID, eventID); err != nil {
		return nil, err
	}
	return &status, nil
}

// Lock creates the row when missing and returns it locked FOR UPDATE until exec commits.
func (r *StatusRepository) Lock(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string) (*models.EventPaymentStatus, error) {
	if err := r.EnsureExists(ctx, exec, studentID, eventID); err != nil {
		return nil, err
	}
	const query = `SELECT student_id, event_id, matriculation_paid, certificate_paid, tuition_current, updated_at
	FROM event_payment_status WHERE student_id = $1 AND event_id = $2 FOR UPDATE`
	var status models.EventPaymentStatus
	if err := sqlx.GetContext(ctx, exec, &status, query, studentID, eventID); err != nil {
		return nil, fmt.Errorf("lock event payment status: %w", err)
	}
	return &status, nil
}

// Find reads the status row outside a transaction, or returns sql.ErrNoRows.
func (r *StatusRepository) Find(ctx context.Context, studentID, eventID string) (*models.EventPaymentStatus, error) {
	return r.Get(ctx, r.db, studentID, eventID)
}

// EnsureExists inserts an all-false row when none is present.
func (r *StatusRepository) EnsureExists(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string) error {
	const query = `INSERT INTO event_payment_status (student_id, event_id, matriculation_paid, certificate_paid, tuition_current, updated_at)
	VALUES ($1, $2, FALSE, FALSE, FALSE, $3) ON CONFLICT (student_id, event_id) DO NOTHING`
	if _, err := exec.ExecContext(ctx, query, studentID, eventID, time.Now().UTC()); err != nil {
		return fmt.Errorf("ensure event payment status: %w", err)
	}
	return nil
}

// Upsert writes all three flags.
func (r *StatusRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, status *models.EventPaymentStatus) error {
	status.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO event_payment_status (student_id, event_id, matriculation_paid, certificate_paid, tuition_current, updated_at)
	VALUES (:student_id, :event_id, :matriculation_paid, :certificate_paid, :tuition_current, :updated_at)
	ON CONFLICT (student_id, event_id) DO UPDATE SET matriculation_paid = EXCLUDED.matriculation_paid,
	certificate_paid = EXCLUDED.certificate_paid, tuition_current = EXCLUDED.tuition_current, updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, status); err != nil {
		return fmt.Errorf("upsert event payment status: %w", err)
	}
	return nil
}
