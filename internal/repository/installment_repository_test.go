package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-billing-api/internal/models"
)

func TestInstallmentRepositoryLockByPlan(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstallmentRepository(db)

	due := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(installmentCols).
		AddRow("i-1", "plan-1", 1, "50.00", due, "paid", "50.00", due, "", nil, nil, nil, due, due).
		AddRow("i-2", "plan-1", 2, "50.00", due.AddDate(0, 0, 30), "pending", "10.00", nil, "", nil, nil, nil, due, due)
	mock.ExpectQuery(`FROM installments WHERE plan_id = \$1 ORDER BY number FOR UPDATE`).
		WithArgs("plan-1").
		WillReturnRows(rows)

	items, err := repo.LockByPlan(context.Background(), db, "plan-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.InstallmentPaid, items[0].State)
	assert.NotNil(t, items[0].PaidAt)
	assert.True(t, items[1].Outstanding().Equal(decimal.NewFromInt(40)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstallmentRepositoryCreateBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstallmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO installments")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO installments")).WillReturnResult(sqlmock.NewResult(1, 1))

	items := []models.Installment{
		{PlanID: "plan-1", Number: 1, Amount: decimal.NewFromInt(50)},
		{PlanID: "plan-1", Number: 2, Amount: decimal.NewFromInt(50)},
	}
	require.NoError(t, repo.CreateBatch(context.Background(), db, items))
	for _, item := range items {
		assert.NotEmpty(t, item.ID)
		assert.Equal(t, models.InstallmentPending, item.State)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstallmentRepositoryDeleteByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstallmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM installments WHERE plan_id = $1 AND state <> 'paid' AND id IN ($2,$3)")).
		WithArgs("plan-1", "i-2", "i-3").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteByIDs(context.Background(), db, "plan-1", []string{"i-2", "i-3"}))
	require.NoError(t, repo.DeleteByIDs(context.Background(), db, "plan-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstallmentRepositoryMarkOverdue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstallmentRepository(db)

	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	due := today.AddDate(0, 0, -3)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE installments SET state = 'overdue'")).
		WithArgs("plan-1", today, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(installmentCols).
			AddRow("i-2", "plan-1", 2, "50.00", due, "overdue", "0", nil, "", nil, nil, nil, due, today))

	items, err := repo.MarkOverdue(context.Background(), db, "plan-1", today)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.InstallmentOverdue, items[0].State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstallmentRepositoryCancelUnsettled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstallmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE installments SET state = 'cancelled'")).
		WithArgs("plan-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.CancelUnsettled(context.Background(), db, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestInstallmentRepositoryListPlansWithLapsed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstallmentRepository(db)

	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT i.plan_id FROM installments i")).
		WithArgs(today).
		WillReturnRows(sqlmock.NewRows([]string{"plan_id"}).AddRow("plan-1").AddRow("plan-2"))

	ids, err := repo.ListPlansWithLapsed(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, []string{"plan-1", "plan-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
