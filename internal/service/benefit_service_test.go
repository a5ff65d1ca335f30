package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
)

func scholarship(id, pct string) models.Benefit {
	return models.Benefit{
		ID:             id,
		Kind:           models.BenefitScholarship,
		StudentID:      "stu-1",
		EventID:        "evt-1",
		Name:           "Merit " + id,
		ReductionType:  models.ReductionPercentage,
		Percentage:     dec(pct),
		AppliesTuition: true,
		StartDate:      day(2026, 1, 1),
		EndDate:        day(2026, 12, 31),
		State:          models.BenefitActive,
	}
}

func discount(id, fixed string) models.Benefit {
	return models.Benefit{
		ID:             id,
		Kind:           models.BenefitDiscount,
		StudentID:      "stu-1",
		EventID:        "evt-1",
		Name:           "Early bird " + id,
		ReductionType:  models.ReductionFixed,
		FixedAmount:    dec(fixed),
		AppliesTuition: true,
		StartDate:      day(2026, 1, 1),
		EndDate:        day(2026, 12, 31),
		State:          models.BenefitActive,
	}
}

func TestComputeBenefitsStacksReductions(t *testing.T) {
	benefits := []models.Benefit{scholarship("sch-1", "10"), discount("dis-1", "15")}

	quote := ComputeBenefits(benefits, models.ScopeTuition, dec("300"), day(2026, 3, 15))
	assert.True(t, quote.TotalReduction.Equal(dec("45")))
	assert.True(t, quote.FinalAmount.Equal(dec("255")))
	assert.False(t, quote.Capped)
	require.Len(t, quote.Items, 2)
	assert.True(t, quote.Items[0].Reduction.Equal(dec("30")))
	assert.True(t, quote.Items[1].Reduction.Equal(dec("15")))
}

func TestComputeBenefitsSkipsInapplicable(t *testing.T) {
	inactive := scholarship("sch-inactive", "50")
	inactive.State = models.BenefitInactive
	expired := scholarship("sch-old", "50")
	expired.EndDate = day(2026, 3, 14)
	future := discount("dis-future", "20")
	future.StartDate = day(2026, 3, 16)
	wrongScope := discount("dis-cert", "20")
	wrongScope.AppliesTuition = false
	wrongScope.AppliesCertificate = true
	lastDay := discount("dis-last-day", "5")
	lastDay.EndDate = day(2026, 3, 15)

	quote := ComputeBenefits([]models.Benefit{inactive, expired, future, wrongScope, lastDay}, models.ScopeTuition, dec("100"), day(2026, 3, 15))
	require.Len(t, quote.Items, 1)
	assert.Equal(t, "dis-last-day", quote.Items[0].BenefitID)
	assert.True(t, quote.FinalAmount.Equal(dec("95")))
}

func TestComputeBenefitsClampsFinalAmount(t *testing.T) {
	benefits := []models.Benefit{scholarship("sch-1", "80"), discount("dis-1", "50")}

	quote := ComputeBenefits(benefits, models.ScopeTuition, dec("100"), day(2026, 3, 15))
	assert.True(t, quote.TotalReduction.Equal(dec("130")))
	assert.True(t, quote.FinalAmount.IsZero())
	assert.True(t, quote.Capped)
}

func TestComputeBenefitsFixedNeverExceedsBase(t *testing.T) {
	quote := ComputeBenefits([]models.Benefit{discount("dis-1", "500")}, models.ScopeTuition, dec("120"), day(2026, 3, 15))
	assert.True(t, quote.Items[0].Reduction.Equal(dec("120")))
	assert.True(t, quote.FinalAmount.IsZero())
	assert.False(t, quote.Capped)
}

func TestComputeBenefitsBankersRounding(t *testing.T) {
	quote := ComputeBenefits([]models.Benefit{scholarship("sch-1", "50")}, models.ScopeTuition, dec("10.05"), day(2026, 3, 15))
	assert.True(t, quote.TotalReduction.Equal(dec("5.02")))
	assert.True(t, quote.FinalAmount.Equal(dec("5.03")))
}

func TestComputeBenefitsEmpty(t *testing.T) {
	quote := ComputeBenefits(nil, models.ScopeTuition, dec("80"), day(2026, 3, 15))
	assert.NotNil(t, quote.Items)
	assert.True(t, quote.FinalAmount.Equal(dec("80")))
}

func TestBenefitServiceQuoteByCategory(t *testing.T) {
	reader := &fakeBenefitReader{benefits: []models.Benefit{scholarship("sch-1", "10")}}
	svc := NewBenefitService(reader, newFakeRegistry(), nil, nil, fixedClock())

	quote, err := svc.Quote(context.Background(), "stu-1", "evt-1", models.CategoryPartialTuition, dec("200"))
	require.NoError(t, err)
	assert.Equal(t, models.ScopeTuition, quote.Scope)
	assert.True(t, quote.FinalAmount.Equal(dec("180")))

	misc, err := svc.Quote(context.Background(), "stu-1", "evt-1", models.CategoryMiscellaneous, dec("200"))
	require.NoError(t, err)
	assert.True(t, misc.TotalReduction.IsZero())
	assert.True(t, misc.FinalAmount.Equal(dec("200")))
}

func TestBenefitServicePreviewDefaultsToEventCost(t *testing.T) {
	reader := &fakeBenefitReader{benefits: []models.Benefit{scholarship("sch-1", "25")}}
	registry := newFakeRegistry(models.EventCosts{EventID: "evt-1", TuitionCost: dec("400")})
	svc := NewBenefitService(reader, registry, nil, nil, fixedClock())

	quote, err := svc.Preview(context.Background(), models.BenefitQuoteRequest{StudentID: "stu-1", EventID: "evt-1", Scope: models.ScopeTuition})
	require.NoError(t, err)
	assert.True(t, quote.BaseAmount.Equal(dec("400")))
	assert.True(t, quote.FinalAmount.Equal(dec("300")))

	_, err = svc.Preview(context.Background(), models.BenefitQuoteRequest{StudentID: "stu-1", EventID: "missing", Scope: models.ScopeTuition})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Preview(context.Background(), models.BenefitQuoteRequest{StudentID: "stu-1", EventID: "evt-1", Scope: "bogus"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestValidatePromoCode(t *testing.T) {
	code := "WELCOME10"
	valid := discount("dis-1", "10")
	valid.PromoCode = &code

	otherCode := "SPRING"
	inactive := discount("dis-2", "10")
	inactive.PromoCode = &otherCode
	inactive.State = models.BenefitCancelled

	lateCode := "LATE"
	expired := discount("dis-3", "10")
	expired.PromoCode = &lateCode
	expired.EndDate = day(2026, 2, 1)

	reader := &fakeBenefitReader{benefits: []models.Benefit{valid, inactive, expired}}
	svc := NewBenefitService(reader, newFakeRegistry(), nil, nil, fixedClock())
	ctx := context.Background()

	check, err := svc.ValidatePromoCode(ctx, "welcome10", "stu-1", "evt-1")
	require.NoError(t, err)
	assert.True(t, check.Valid)
	require.NotNil(t, check.Discount)
	assert.Equal(t, "dis-1", check.Discount.ID)

	check, err = svc.ValidatePromoCode(ctx, "WELCOME10", "stu-2", "evt-1")
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Equal(t, "promo code is not granted to this student and event", check.Reason)

	check, err = svc.ValidatePromoCode(ctx, "SPRING", "stu-1", "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "promo code is cancelled", check.Reason)

	check, err = svc.ValidatePromoCode(ctx, "LATE", "stu-1", "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "promo code is outside its validity window", check.Reason)

	check, err = svc.ValidatePromoCode(ctx, "NOPE", "stu-1", "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "unknown promo code", check.Reason)

	_, err = svc.ValidatePromoCode(ctx, "  ", "stu-1", "evt-1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
