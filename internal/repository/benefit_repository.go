package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-billing-api/internal/models"
)

// Scholarships and discounts share one projection so the calculator sees a single list.
const benefitProjection = `SELECT id, 'scholarship' AS kind, student_id, event_id, name, reduction_type,
	COALESCE(percentage, 0) AS percentage, COALESCE(fixed_amount, 0) AS fixed_amount,
	applies_matriculation, applies_tuition, applies_certificate, start_date, end_date, state, NULL::text AS promo_code
	FROM scholarships
	UNION ALL
	SELECT id, 'discount' AS kind, student_id, event_id, name, reduction_type,
	COALESCE(percentage, 0) AS percentage, COALESCE(fixed_amount, 0) AS fixed_amount,
	applies_matriculation, applies_tuition, applies_certificate, start_date, end_date, state, NULLIF(promo_code, '') AS promo_code
	FROM discounts`

// BenefitRepository reads scholarships and discounts. It never writes them.
type BenefitRepository struct {
	db *sqlx.DB
}

// NewBenefitRepository constructs the repository.
func NewBenefitRepository(db *sqlx.DB) *BenefitRepository {
	return &BenefitRepository{db: db}
}

// ListForStudentEvent returns every benefit granted to the student for the event, in any state.
func (r *BenefitRepository) ListForStudentEvent(ctx context.Context, studentID, eventID string) ([]models.Benefit, error) {
	query := `SELECT * FROM (` + benefitProjection + `) b WHERE b.student_id = $1 AND b.event_id = $2 ORDER BY b.kind DESC, b.name`
	var benefits []models.Benefit
	if err := r.db.SelectContext(ctx, &benefits, query, studentID, eventID); err != nil {
		return nil, fmt.Errorf("list benefits: %w", err)
	}
	return benefits, nil
}

// FindDiscountsByPromoCode returns discounts carrying the code, case-insensitively.
func (r *BenefitRepository) FindDiscountsByPromoCode(ctx context.Context, code string) ([]models.Benefit, error) {
	query := `SELECT * FROM (` + benefitProjection + `) b WHERE b.kind = 'discount' AND UPPER(b.promo_code) = UPPER($1) ORDER BY b.id`
	var benefits []models.Benefit
	if err := r.db.SelectContext(ctx, &benefits, query, code); err != nil {
		return nil, fmt.Errorf("find discounts by promo code: %w", err)
	}
	return benefits, nil
}
