package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/money"
)

// GenerateSchedule splits total into count installments due every 30 days from start.
// Every installment carries floor(total/count) except the last, which absorbs the remainder.
// Numbers start at firstNumber (1 when lower).
func GenerateSchedule(total decimal.Decimal, count int, start time.Time, firstNumber int) ([]models.InstallmentDraft, error) {
	if count < models.MinInstallments || count > models.MaxInstallments {
		return nil, appErrors.Clonef(appErrors.ErrInvalidConfiguration, "installment count must be between %d and %d", models.MinInstallments, models.MaxInstallments)
	}
	if total.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfiguration, "total amount must not be negative")
	}
	if firstNumber < 1 {
		firstNumber = 1
	}

	amounts, err := money.SplitEven(total, count)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidConfiguration.Code, appErrors.ErrInvalidConfiguration.Status, "cannot split total")
	}

	drafts := make([]models.InstallmentDraft, count)
	for i := range drafts {
		drafts[i] = models.InstallmentDraft{
			Number:  firstNumber + i,
			Amount:  amounts[i],
			DueDate: start.AddDate(0, 0, 30*i),
		}
	}
	return drafts, nil
}

// minimumTotal is the smallest non-zero total that leaves every installment at least one cent.
func minimumTotal(count int) decimal.Decimal {
	return money.Cent.Mul(decimal.NewFromInt(int64(count)))
}

func validatePlanTotal(total decimal.Decimal, count int) error {
	if total.IsNegative() {
		return appErrors.Clone(appErrors.ErrInvalidConfiguration, "total amount must not be negative")
	}
	if !total.Equal(money.Quantize(total)) {
		return appErrors.Clone(appErrors.ErrInvalidConfiguration, "total amount must have at most two decimals")
	}
	if total.IsPositive() && total.LessThan(minimumTotal(count)) {
		return appErrors.Clonef(appErrors.ErrInvalidConfiguration, "total amount %s is too small for %d installments", money.String(total), count)
	}
	return nil
}

func draftsToInstallments(planID string, drafts []models.InstallmentDraft) []models.Installment {
	items := make([]models.Installment, len(drafts))
	for i, d := range drafts {
		items[i] = models.Installment{
			PlanID:     planID,
			Number:     d.Number,
			Amount:     d.Amount,
			DueDate:    d.DueDate,
			State:      models.InstallmentPending,
			AmountPaid: decimal.Zero,
		}
	}
	return items
}
