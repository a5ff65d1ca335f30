package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-billing-api/internal/models"
)

// RegistryRepository reads the student and event registry owned by the academic service.
type RegistryRepository struct {
	db *sqlx.DB
}

// NewRegistryRepository constructs the repository.
func NewRegistryRepository(db *sqlx.DB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

// FindEvent returns an event's configured costs and start date.
func (r *RegistryRepository) FindEvent(ctx context.Context, eventID string) (*models.EventCosts, error) {
	const query = `SELECT id, name, matriculation_cost, tuition_cost, certificate_cost, requires_matriculation, start_date
	FROM events WHERE id = $1`
	var event models.EventCosts
	if err := r.db.GetContext(ctx, &event, query, eventID); err != nil {
		return nil, err
	}
	return &event, nil
}

// IsEnrolled reports whether the student is linked to the event.
func (r *RegistryRepository) IsEnrolled(ctx context.Context, studentID, eventID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM event_enrollments WHERE student_id = $1 AND event_id = $2 LIMIT 1`, studentID, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check event enrollment: %w", err)
	}
	return true, nil
}
