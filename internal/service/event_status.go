package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-billing-api/internal/models"
)

// tuitionCurrent is true when no installment is pending or overdue.
func tuitionCurrent(items []models.Installment) bool {
	for _, item := range items {
		if item.Unsettled() {
			return false
		}
	}
	return true
}

// lockStatus returns the status row held for update by the caller's transaction.
// Every writer goes through it so concurrent flag changes serialize on the row.
func lockStatus(ctx context.Context, exec sqlx.ExtContext, statuses statusStore, studentID, eventID string) (*models.EventPaymentStatus, error) {
	return statuses.Lock(ctx, exec, studentID, eventID)
}

// refreshTuitionStatus recomputes only the tuition flag from items and persists the row.
// Fee flags are carried over unchanged.
func refreshTuitionStatus(ctx context.Context, exec sqlx.ExtContext, statuses statusStore, studentID, eventID string, items []models.Installment) (*models.EventPaymentStatus, error) {
	status, err := lockStatus(ctx, exec, statuses, studentID, eventID)
	if err != nil {
		return nil, err
	}
	status.TuitionCurrent = tuitionCurrent(items)
	if err := statuses.Upsert(ctx, exec, status); err != nil {
		return nil, err
	}
	return status, nil
}
