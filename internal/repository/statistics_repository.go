package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-billing-api/internal/models"
)

// StatisticsRepository runs the read-only event roll-ups. Nothing here is cached.
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository constructs the repository.
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// CountByState counts an event's installments per state.
func (r *StatisticsRepository) CountByState(ctx context.Context, eventID string) ([]models.StateCount, error) {
	const query = `SELECT i.state, COUNT(*) AS count FROM installments i
	JOIN payment_plans p ON p.id = i.plan_id
	WHERE p.event_id = $1
	GROUP BY i.state ORDER BY i.state`
	var counts []models.StateCount
	if err := r.db.SelectContext(ctx, &counts, query, eventID); err != nil {
		return nil, fmt.Errorf("count installments by state: %w", err)
	}
	return counts, nil
}

// Totals sums face amounts and paid amounts over an event's non-cancelled installments.
func (r *StatisticsRepository) Totals(ctx context.Context, eventID string) (*models.InstallmentTotals, error) {
	const query = `SELECT COUNT(DISTINCT p.id) AS plan_count,
	COALESCE(SUM(i.amount) FILTER (WHERE i.state <> 'cancelled'), 0) AS total_billed,
	COALESCE(SUM(i.amount_paid) FILTER (WHERE i.state <> 'cancelled'), 0) AS total_paid
	FROM payment_plans p
	LEFT JOIN installments i ON i.plan_id = p.id
	WHERE p.event_id = $1`
	var totals models.InstallmentTotals
	if err := r.db.GetContext(ctx, &totals, query, eventID); err != nil {
		return nil, fmt.Errorf("sum event installments: %w", err)
	}
	return &totals, nil
}

// OverdueStudents lists students with overdue installments in an event, oldest debt first.
func (r *StatisticsRepository) OverdueStudents(ctx context.Context, eventID string) ([]models.OverdueStudent, error) {
	const query = `SELECT p.student_id, p.id AS plan_id, COUNT(*) AS overdue_count,
	COALESCE(SUM(i.amount - i.amount_paid), 0) AS overdue_amount, MIN(i.due_date) AS oldest_due_date
	FROM installments i
	JOIN payment_plans p ON p.id = i.plan_id
	WHERE p.event_id = $1 AND i.state = 'overdue'
	GROUP BY p.student_id, p.id
	ORDER BY oldest_due_date, p.student_id`
	var students []models.OverdueStudent
	if err := r.db.SelectContext(ctx, &students, query, eventID); err != nil {
		return nil, fmt.Errorf("list overdue students: %w", err)
	}
	return students, nil
}
