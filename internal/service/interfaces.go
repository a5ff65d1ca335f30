package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/campus-billing-api/internal/models"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type planStore interface {
	FindByID(ctx context.Context, id string) (*models.PaymentPlan, error)
	FindByStudentEvent(ctx context.Context, studentID, eventID string) (*models.PaymentPlan, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.PaymentPlan, error)
	LockByStudentEvent(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string) (*models.PaymentPlan, error)
	ExistsForStudentEvent(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, plan *models.PaymentPlan) error
	Update(ctx context.Context, exec sqlx.ExtContext, plan *models.PaymentPlan) error
	List(ctx context.Context, filter models.PlanFilter) ([]models.PaymentPlan, int, error)
	LinkBenefits(ctx context.Context, exec sqlx.ExtContext, planID string, scholarshipIDs, discountIDs []string) error
	ListBenefitLinks(ctx context.Context, planID string) ([]string, []string, error)
}

type installmentStore interface {
	ListByPlan(ctx context.Context, planID string) ([]models.Installment, error)
	LockByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) ([]models.Installment, error)
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, items []models.Installment) error
	UpdateSettlement(ctx context.Context, exec sqlx.ExtContext, item *models.Installment) error
	DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, planID string, ids []string) error
	MarkOverdue(ctx context.Context, exec sqlx.ExtContext, planID string, today time.Time) ([]models.Installment, error)
	CancelUnsettled(ctx context.Context, exec sqlx.ExtContext, planID string) (int64, error)
	ListPlansWithLapsed(ctx context.Context, today time.Time) ([]string, error)
}

type paymentStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error
	CreateAllocations(ctx context.Context, exec sqlx.ExtContext, allocations []models.PaymentAllocation) error
	ListAllocationsByInstallments(ctx context.Context, exec sqlx.ExtContext, installmentIDs []string) ([]models.PaymentAllocation, error)
	DeleteAllocationsByInstallments(ctx context.Context, exec sqlx.ExtContext, installmentIDs []string) error
	SumByCategory(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string, category models.PaymentCategory) (decimal.Decimal, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
}

type statusStore interface {
	Lock(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string) (*models.EventPaymentStatus, error)
	Find(ctx context.Context, studentID, eventID string) (*models.EventPaymentStatus, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, status *models.EventPaymentStatus) error
}

type eventRegistry interface {
	FindEvent(ctx context.Context, eventID string) (*models.EventCosts, error)
	IsEnrolled(ctx context.Context, studentID, eventID string) (bool, error)
}

type benefitReader interface {
	ListForStudentEvent(ctx context.Context, studentID, eventID string) ([]models.Benefit, error)
	FindDiscountsByPromoCode(ctx context.Context, code string) ([]models.Benefit, error)
}

type benefitQuoter interface {
	Quote(ctx context.Context, studentID, eventID string, category models.PaymentCategory, base decimal.Decimal) (*models.BenefitQuote, error)
}

type statisticsReader interface {
	CountByState(ctx context.Context, eventID string) ([]models.StateCount, error)
	Totals(ctx context.Context, eventID string) (*models.InstallmentTotals, error)
	OverdueStudents(ctx context.Context, eventID string) ([]models.OverdueStudent, error)
}

type lockManager interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (string, error)
	Release(ctx context.Context, name, token string) error
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}
