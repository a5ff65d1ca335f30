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

func TestStatisticsRepositoryQueries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStatisticsRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT i.state, COUNT(*) AS count FROM installments i")).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"state", "count"}).AddRow("paid", 2).AddRow("overdue", 1))
	counts, err := repo.CountByState(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.InstallmentPaid, counts[0].State)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(DISTINCT p.id) AS plan_count")).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"plan_count", "total_billed", "total_paid"}).AddRow(2, "300.00", "120.00"))
	totals, err := repo.Totals(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 2, totals.PlanCount)
	assert.True(t, totals.TotalPaid.Equal(decimal.NewFromInt(120)))

	oldest := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.event_id = $1 AND i.state = 'overdue'")).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "plan_id", "overdue_count", "overdue_amount", "oldest_due_date"}).
			AddRow("stu-1", "plan-1", 1, "50.00", oldest))
	students, err := repo.OverdueStudents(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 1, students[0].OverdueCount)
	require.NoError(t, mock.ExpectationsWereMet())
}
