package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/money"
)

// ApplySingle applies amount to one installment and returns the allocation to record.
// The installment is settled once its paid amount reaches the face amount. All checks run
// before inst is modified.
func ApplySingle(inst *models.Installment, amount decimal.Decimal, at time.Time) (models.PaymentAllocation, error) {
	if inst == nil || !inst.Unsettled() {
		return models.PaymentAllocation{}, appErrors.ErrInvalidInstallmentReference
	}
	if !amount.IsPositive() {
		return models.PaymentAllocation{}, appErrors.Clone(appErrors.ErrInvalidConfiguration, "payment amount must be positive")
	}
	outstanding := inst.Outstanding()
	if amount.GreaterThan(outstanding) {
		return models.PaymentAllocation{}, appErrors.Clonef(appErrors.ErrOverpayment,
			"amount %s exceeds outstanding %s on installment %d", money.String(amount), money.String(outstanding), inst.Number)
	}

	inst.AmountPaid = inst.AmountPaid.Add(amount)
	if inst.AmountPaid.GreaterThanOrEqual(inst.Amount) {
		inst.State = models.InstallmentPaid
		paidAt := at
		inst.PaidAt = &paidAt
	}

	return models.PaymentAllocation{
		InstallmentID: inst.ID,
		Amount:        amount,
		AppliedAt:     at,
	}, nil
}

// ApplyDistributed spreads amount over installments in ascending number order.
// Settled installments are skipped and repeated pointers count once. The allocation is
// computed on copies and written back only when every step succeeds, so on error the
// installments are untouched.
func ApplyDistributed(insts []*models.Installment, amount decimal.Decimal, at time.Time) ([]models.PaymentAllocation, error) {
	if amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfiguration, "payment amount must be positive")
	}
	if amount.IsZero() {
		return nil, nil
	}

	seen := make(map[*models.Installment]struct{}, len(insts))
	ordered := make([]*models.Installment, 0, len(insts))
	for _, inst := range insts {
		if inst == nil || !inst.Unsettled() {
			continue
		}
		if _, dup := seen[inst]; dup {
			continue
		}
		seen[inst] = struct{}{}
		ordered = append(ordered, inst)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	outstanding := OutstandingOf(ordered)
	if amount.GreaterThan(outstanding) {
		return nil, appErrors.Clonef(appErrors.ErrOverpayment,
			"amount %s exceeds outstanding %s", money.String(amount), money.String(outstanding))
	}

	work := make([]models.Installment, len(ordered))
	for i, inst := range ordered {
		work[i] = *inst
	}

	remaining := amount
	allocations := make([]models.PaymentAllocation, 0, len(ordered))
	for i := range work {
		if !remaining.IsPositive() {
			break
		}
		portion := money.Min(remaining, work[i].Outstanding())
		if !portion.IsPositive() {
			continue
		}
		allocation, err := ApplySingle(&work[i], portion, at)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, allocation)
		remaining = remaining.Sub(portion)
	}

	for i, inst := range ordered {
		*inst = work[i]
	}
	return allocations, nil
}

// OutstandingOf sums the outstanding balance of unsettled installments.
func OutstandingOf(insts []*models.Installment) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range insts {
		if inst != nil && inst.Unsettled() {
			total = total.Add(inst.Outstanding())
		}
	}
	return total
}
