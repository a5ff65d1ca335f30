package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
)

var fixedNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() Clock {
	return Clock{Now: func() time.Time { return fixedNow }, Location: time.UTC}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type fakePlanStore struct {
	plans map[string]*models.PaymentPlan
	links map[string][2][]string
}

func newFakePlanStore(plans ...models.PaymentPlan) *fakePlanStore {
	store := &fakePlanStore{plans: map[string]*models.PaymentPlan{}, links: map[string][2][]string{}}
	for i := range plans {
		p := plans[i]
		store.plans[p.ID] = &p
	}
	return store
}

func (f *fakePlanStore) FindByID(ctx context.Context, id string) (*models.PaymentPlan, error) {
	plan, ok := f.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *plan
	return &clone, nil
}

func (f *fakePlanStore) FindByStudentEvent(ctx context.Context, studentID, eventID string) (*models.PaymentPlan, error) {
	for _, plan := range f.plans {
		if plan.StudentID == studentID && plan.EventID == eventID {
			clone := *plan
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakePlanStore) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.PaymentPlan, error) {
	return f.FindByID(ctx, id)
}

func (f *fakePlanStore) LockByStudentEvent(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string) (*models.PaymentPlan, error) {
	return f.FindByStudentEvent(ctx, studentID, eventID)
}

func (f *fakePlanStore) ExistsForStudentEvent(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string) (bool, error) {
	_, err := f.FindByStudentEvent(ctx, studentID, eventID)
	return err == nil, nil
}

func (f *fakePlanStore) Create(ctx context.Context, exec sqlx.ExtContext, plan *models.PaymentPlan) error {
	if exists, _ := f.ExistsForStudentEvent(ctx, exec, plan.StudentID, plan.EventID); exists {
		return appErrors.ErrDuplicatePlan
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	plan.CreatedAt = fixedNow
	plan.UpdatedAt = fixedNow
	clone := *plan
	f.plans[plan.ID] = &clone
	return nil
}

func (f *fakePlanStore) Update(ctx context.Context, exec sqlx.ExtContext, plan *models.PaymentPlan) error {
	if _, ok := f.plans[plan.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *plan
	f.plans[plan.ID] = &clone
	return nil
}

func (f *fakePlanStore) List(ctx context.Context, filter models.PlanFilter) ([]models.PaymentPlan, int, error) {
	var out []models.PaymentPlan
	for _, plan := range f.plans {
		if filter.StudentID != "" && plan.StudentID != filter.StudentID {
			continue
		}
		if filter.EventID != "" && plan.EventID != filter.EventID {
			continue
		}
		out = append(out, *plan)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakePlanStore) LinkBenefits(ctx context.Context, exec sqlx.ExtContext, planID string, scholarshipIDs, discountIDs []string) error {
	f.links[planID] = [2][]string{scholarshipIDs, discountIDs}
	return nil
}

func (f *fakePlanStore) ListBenefitLinks(ctx context.Context, planID string) ([]string, []string, error) {
	links := f.links[planID]
	return links[0], links[1], nil
}

type fakeInstallmentStore struct {
	items map[string][]models.Installment
}

func newFakeInstallmentStore(items ...models.Installment) *fakeInstallmentStore {
	store := &fakeInstallmentStore{items: map[string][]models.Installment{}}
	for _, item := range items {
		store.items[item.PlanID] = append(store.items[item.PlanID], item)
	}
	return store
}

func (f *fakeInstallmentStore) ListByPlan(ctx context.Context, planID string) ([]models.Installment, error) {
	items := append([]models.Installment(nil), f.items[planID]...)
	sortByNumber(items)
	return items, nil
}

func (f *fakeInstallmentStore) LockByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) ([]models.Installment, error) {
	return f.ListByPlan(ctx, planID)
}

func (f *fakeInstallmentStore) CreateBatch(ctx context.Context, exec sqlx.ExtContext, items []models.Installment) error {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if items[i].State == "" {
			items[i].State = models.InstallmentPending
		}
		for _, existing := range f.items[items[i].PlanID] {
			if existing.Number == items[i].Number {
				return fmt.Errorf("duplicate installment number %d", items[i].Number)
			}
		}
		f.items[items[i].PlanID] = append(f.items[items[i].PlanID], items[i])
	}
	return nil
}

func (f *fakeInstallmentStore) UpdateSettlement(ctx context.Context, exec sqlx.ExtContext, item *models.Installment) error {
	list := f.items[item.PlanID]
	for i := range list {
		if list[i].ID == item.ID {
			list[i] = *item
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeInstallmentStore) DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, planID string, ids []string) error {
	drop := map[string]struct{}{}
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	var kept []models.Installment
	for _, item := range f.items[planID] {
		if _, ok := drop[item.ID]; ok && item.State != models.InstallmentPaid {
			continue
		}
		kept = append(kept, item)
	}
	f.items[planID] = kept
	return nil
}

func (f *fakeInstallmentStore) MarkOverdue(ctx context.Context, exec sqlx.ExtContext, planID string, today time.Time) ([]models.Installment, error) {
	var marked []models.Installment
	list := f.items[planID]
	for i := range list {
		if list[i].State == models.InstallmentPending && list[i].DueDate.Before(today) {
			list[i].State = models.InstallmentOverdue
			marked = append(marked, list[i])
		}
	}
	return marked, nil
}

func (f *fakeInstallmentStore) CancelUnsettled(ctx context.Context, exec sqlx.ExtContext, planID string) (int64, error) {
	var n int64
	list := f.items[planID]
	for i := range list {
		if list[i].Unsettled() {
			list[i].State = models.InstallmentCancelled
			n++
		}
	}
	return n, nil
}

func (f *fakeInstallmentStore) ListPlansWithLapsed(ctx context.Context, today time.Time) ([]string, error) {
	var ids []string
	for planID, list := range f.items {
		for _, item := range list {
			if item.State == models.InstallmentPending && item.DueDate.Before(today) {
				ids = append(ids, planID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeInstallmentStore) byNumber(planID string, number int) models.Installment {
	for _, item := range f.items[planID] {
		if item.Number == number {
			return item
		}
	}
	return models.Installment{}
}

type fakePaymentStore struct {
	payments    []models.Payment
	allocations []models.PaymentAllocation
}

func (f *fakePaymentStore) Create(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	f.payments = append(f.payments, *payment)
	return nil
}

func (f *fakePaymentStore) CreateAllocations(ctx context.Context, exec sqlx.ExtContext, allocations []models.PaymentAllocation) error {
	for i := range allocations {
		if allocations[i].ID == "" {
			allocations[i].ID = uuid.NewString()
		}
		f.allocations = append(f.allocations, allocations[i])
	}
	return nil
}

func (f *fakePaymentStore) ListAllocationsByInstallments(ctx context.Context, exec sqlx.ExtContext, installmentIDs []string) ([]models.PaymentAllocation, error) {
	want := map[string]struct{}{}
	for _, id := range installmentIDs {
		want[id] = struct{}{}
	}
	var out []models.PaymentAllocation
	for _, a := range f.allocations {
		if _, ok := want[a.InstallmentID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakePaymentStore) DeleteAllocationsByInstallments(ctx context.Context, exec sqlx.ExtContext, installmentIDs []string) error {
	drop := map[string]struct{}{}
	for _, id := range installmentIDs {
		drop[id] = struct{}{}
	}
	var kept []models.PaymentAllocation
	for _, a := range f.allocations {
		if _, ok := drop[a.InstallmentID]; !ok {
			kept = append(kept, a)
		}
	}
	f.allocations = kept
	return nil
}

func (f *fakePaymentStore) SumByCategory(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string, category models.PaymentCategory) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range f.payments {
		if p.StudentID == studentID && p.EventID == eventID && p.Category == category {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (f *fakePaymentStore) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	var out []models.Payment
	for _, p := range f.payments {
		if filter.StudentID != "" && p.StudentID != filter.StudentID {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

type fakeStatusStore struct {
	rows  map[string]*models.EventPaymentStatus
	locks map[string]int
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{rows: map[string]*models.EventPaymentStatus{}, locks: map[string]int{}}
}

func statusKey(studentID, eventID string) string { return studentID + "|" + eventID }

func (f *fakeStatusStore) Lock(ctx context.Context, exec sqlx.ExtContext, studentID, eventID string) (*models.EventPaymentStatus, error) {
	key := statusKey(studentID, eventID)
	if _, ok := f.rows[key]; !ok {
		f.rows[key] = &models.EventPaymentStatus{StudentID: studentID, EventID: eventID}
	}
	f.locks[key]++
	clone := *f.rows[key]
	return &clone, nil
}

func (f *fakeStatusStore) Find(ctx context.Context, studentID, eventID string) (*models.EventPaymentStatus, error) {
	row, ok := f.rows[statusKey(studentID, eventID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *row
	return &clone, nil
}

func (f *fakeStatusStore) Upsert(ctx context.Context, exec sqlx.ExtContext, status *models.EventPaymentStatus) error {
	clone := *status
	f.rows[statusKey(status.StudentID, status.EventID)] = &clone
	return nil
}

type fakeRegistry struct {
	events   map[string]models.EventCosts
	enrolled map[string]bool
}

func newFakeRegistry(events ...models.EventCosts) *fakeRegistry {
	reg := &fakeRegistry{events: map[string]models.EventCosts{}, enrolled: map[string]bool{}}
	for _, e := range events {
		reg.events[e.EventID] = e
	}
	return reg
}

func (f *fakeRegistry) enroll(studentID, eventID string) *fakeRegistry {
	f.enrolled[statusKey(studentID, eventID)] = true
	return f
}

func (f *fakeRegistry) FindEvent(ctx context.Context, eventID string) (*models.EventCosts, error) {
	event, ok := f.events[eventID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &event, nil
}

func (f *fakeRegistry) IsEnrolled(ctx context.Context, studentID, eventID string) (bool, error) {
	return f.enrolled[statusKey(studentID, eventID)], nil
}

type fakeBenefitReader struct {
	benefits []models.Benefit
}

func (f *fakeBenefitReader) ListForStudentEvent(ctx context.Context, studentID, eventID string) ([]models.Benefit, error) {
	var out []models.Benefit
	for _, b := range f.benefits {
		if b.StudentID == studentID && b.EventID == eventID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBenefitReader) FindDiscountsByPromoCode(ctx context.Context, code string) ([]models.Benefit, error) {
	var out []models.Benefit
	for _, b := range f.benefits {
		if b.Kind == models.BenefitDiscount && b.PromoCode != nil && strings.EqualFold(*b.PromoCode, code) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeLocks struct {
	held     map[string]bool
	acquired int
	released int
}

func newFakeLocks() *fakeLocks { return &fakeLocks{held: map[string]bool{}} }

func (f *fakeLocks) Acquire(ctx context.Context, name string, ttl time.Duration) (string, error) {
	if f.held[name] {
		return "", appErrors.ErrLockNotAcquired
	}
	f.held[name] = true
	f.acquired++
	return "token-" + name, nil
}

func (f *fakeLocks) Release(ctx context.Context, name, token string) error {
	delete(f.held, name)
	f.released++
	return nil
}

type fakeStatisticsReader struct {
	counts  []models.StateCount
	totals  models.InstallmentTotals
	overdue []models.OverdueStudent
}

func (f *fakeStatisticsReader) CountByState(ctx context.Context, eventID string) ([]models.StateCount, error) {
	return f.counts, nil
}

func (f *fakeStatisticsReader) Totals(ctx context.Context, eventID string) (*models.InstallmentTotals, error) {
	totals := f.totals
	return &totals, nil
}

func (f *fakeStatisticsReader) OverdueStudents(ctx context.Context, eventID string) ([]models.OverdueStudent, error) {
	return append([]models.OverdueStudent(nil), f.overdue...), nil
}
