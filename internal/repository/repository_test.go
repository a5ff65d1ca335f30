package repository

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var (
	planCols        = []string{"id", "student_id", "event_id", "total_amount", "installment_count", "uses_custom_amount", "apply_benefits", "has_agreement", "agreement_reason", "supporting_document", "active", "created_at", "updated_at"}
	installmentCols = []string{"id", "plan_id", "number", "amount", "due_date", "state", "amount_paid", "paid_at", "notes", "receipt_institution", "receipt_code", "receipt_image", "created_at", "updated_at"}
)
