package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
)

func pendingInstallments(amounts ...string) []models.Installment {
	items := make([]models.Installment, len(amounts))
	for i, raw := range amounts {
		items[i] = models.Installment{
			ID:         "inst-" + string(rune('a'+i)),
			PlanID:     "plan-1",
			Number:     i + 1,
			Amount:     dec(raw),
			AmountPaid: dec("0"),
			DueDate:    day(2026, 1, 1).AddDate(0, 0, 30*i),
			State:      models.InstallmentPending,
		}
	}
	return items
}

func TestApplyDistributedSettlesInOrder(t *testing.T) {
	items := pendingInstallments("50", "50", "50")

	allocations, err := ApplyDistributed(pointersTo(items), dec("120"), fixedNow)
	require.NoError(t, err)
	require.Len(t, allocations, 3)

	assert.Equal(t, models.InstallmentPaid, items[0].State)
	assert.Equal(t, models.InstallmentPaid, items[1].State)
	assert.Equal(t, models.InstallmentPending, items[2].State)
	assert.True(t, items[2].AmountPaid.Equal(dec("20")))
	assert.True(t, allocations[2].Amount.Equal(dec("20")))
	require.NotNil(t, items[0].PaidAt)
	assert.Equal(t, fixedNow, *items[0].PaidAt)
	assert.Nil(t, items[2].PaidAt)
}

func TestApplyDistributedOrdersByNumber(t *testing.T) {
	items := pendingInstallments("30", "30", "30")
	reversed := []*models.Installment{&items[2], &items[0], &items[1]}

	allocations, err := ApplyDistributed(reversed, dec("30"), fixedNow)
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, items[0].ID, allocations[0].InstallmentID)
	assert.Equal(t, models.InstallmentPaid, items[0].State)
}

func TestApplyDistributedSkipsSettled(t *testing.T) {
	items := pendingInstallments("40", "40", "40")
	items[0].State = models.InstallmentPaid
	items[0].AmountPaid = dec("40")
	items[1].State = models.InstallmentOverdue

	allocations, err := ApplyDistributed(pointersTo(items), dec("50"), fixedNow)
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	assert.Equal(t, items[1].ID, allocations[0].InstallmentID)
	assert.Equal(t, models.InstallmentPaid, items[1].State)
	assert.True(t, items[2].AmountPaid.Equal(dec("10")))
}

func TestApplyDistributedRejectsOverpayment(t *testing.T) {
	items := pendingInstallments("50", "50")

	_, err := ApplyDistributed(pointersTo(items), dec("100.01"), fixedNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrOverpayment))
	for _, item := range items {
		assert.True(t, item.AmountPaid.IsZero())
		assert.Equal(t, models.InstallmentPending, item.State)
	}
}

func TestApplyDistributedCountsRepeatedInstallmentOnce(t *testing.T) {
	items := pendingInstallments("40", "40")
	before := append([]models.Installment(nil), items...)
	repeated := []*models.Installment{&items[0], &items[0]}

	allocations, err := ApplyDistributed(repeated, dec("60"), fixedNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrOverpayment))
	assert.Nil(t, allocations)
	assert.Equal(t, before, items)

	allocations, err = ApplyDistributed(repeated, dec("40"), fixedNow)
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.True(t, items[0].AmountPaid.Equal(dec("40")))
	assert.Equal(t, models.InstallmentPaid, items[0].State)
}

func TestApplyDistributedLeavesInstallmentsOnRejection(t *testing.T) {
	items := pendingInstallments("25", "25", "25")
	items[0].AmountPaid = dec("10")
	before := append([]models.Installment(nil), items...)

	_, err := ApplyDistributed(pointersTo(items), dec("70"), fixedNow)
	assert.True(t, errors.Is(err, appErrors.ErrOverpayment))
	assert.Equal(t, before, items)
}

func TestApplyDistributedZeroAmount(t *testing.T) {
	items := pendingInstallments("50")
	allocations, err := ApplyDistributed(pointersTo(items), dec("0"), fixedNow)
	require.NoError(t, err)
	assert.Empty(t, allocations)
	assert.True(t, items[0].AmountPaid.IsZero())
}

func TestApplySingleSequentialSettlement(t *testing.T) {
	items := pendingInstallments("100")
	inst := &items[0]

	_, err := ApplySingle(inst, dec("60"), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentPending, inst.State)
	assert.True(t, inst.Outstanding().Equal(dec("40")))

	_, err = ApplySingle(inst, dec("40.01"), fixedNow)
	assert.True(t, errors.Is(err, appErrors.ErrOverpayment))

	allocation, err := ApplySingle(inst, dec("40"), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, allocation.InstallmentID)
	assert.Equal(t, models.InstallmentPaid, inst.State)
	assert.True(t, inst.AmountPaid.Equal(inst.Amount))

	_, err = ApplySingle(inst, dec("1"), fixedNow)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidInstallmentReference))
}

func TestApplySingleRejectsNonPositive(t *testing.T) {
	items := pendingInstallments("10")
	_, err := ApplySingle(&items[0], dec("0"), fixedNow)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidConfiguration))
	_, err = ApplySingle(nil, dec("5"), fixedNow)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidInstallmentReference))
}

func TestOutstandingOfIgnoresSettled(t *testing.T) {
	items := pendingInstallments("10", "20", "30")
	items[0].State = models.InstallmentPaid
	items[2].AmountPaid = dec("5")
	assert.True(t, OutstandingOf(pointersTo(items)).Equal(dec("45")))
}
