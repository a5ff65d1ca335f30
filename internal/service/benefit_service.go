package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/money"
)

// ComputeBenefits applies the active, in-window benefits covering scope to base.
// Each item is rounded to cents and fixed items never exceed base. The combined
// reduction is not capped; FinalAmount is clamped at zero and Capped reports it.
func ComputeBenefits(benefits []models.Benefit, scope models.BenefitScope, base decimal.Decimal, today time.Time) models.BenefitQuote {
	quote := models.BenefitQuote{
		Scope:          scope,
		BaseAmount:     base,
		TotalReduction: decimal.Zero,
		Items:          []models.BenefitItem{},
	}

	for _, b := range benefits {
		if b.State != models.BenefitActive || !b.InWindow(today) || !b.Applies(scope) {
			continue
		}
		var reduction decimal.Decimal
		switch b.ReductionType {
		case models.ReductionPercentage:
			reduction = money.Percent(base, b.Percentage)
		case models.ReductionFixed:
			reduction = money.Quantize(money.Min(b.FixedAmount, base))
		default:
			continue
		}
		if reduction.IsNegative() {
			reduction = decimal.Zero
		}
		quote.Items = append(quote.Items, models.BenefitItem{
			BenefitID: b.ID,
			Kind:      b.Kind,
			Name:      b.Name,
			Type:      b.ReductionType,
			Reduction: reduction,
		})
		quote.TotalReduction = quote.TotalReduction.Add(reduction)
	}

	final := base.Sub(quote.TotalReduction)
	if final.IsNegative() {
		quote.Capped = true
		final = decimal.Zero
	}
	quote.FinalAmount = final
	return quote
}

// BenefitService quotes scholarship and discount reductions.
type BenefitService struct {
	benefits  benefitReader
	events    eventRegistry
	validator *validator.Validate
	logger    *zap.Logger
	clock     Clock
}

// NewBenefitService constructs the service.
func NewBenefitService(benefits benefitReader, events eventRegistry, validate *validator.Validate, logger *zap.Logger, clock Clock) *BenefitService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BenefitService{benefits: benefits, events: events, validator: validate, logger: logger, clock: clock}
}

// Quote computes the reductions on base for the fee a payment category settles.
// Categories without a fee scope yield a quote with no reduction.
func (s *BenefitService) Quote(ctx context.Context, studentID, eventID string, category models.PaymentCategory, base decimal.Decimal) (*models.BenefitQuote, error) {
	scope, ok := models.ScopeForCategory(category)
	if !ok {
		return &models.BenefitQuote{BaseAmount: base, TotalReduction: decimal.Zero, FinalAmount: base, Items: []models.BenefitItem{}}, nil
	}
	return s.quoteScope(ctx, studentID, eventID, scope, base)
}

// Preview answers a quote request, defaulting the base to the event's cost for the scope.
func (s *BenefitService) Preview(ctx context.Context, req models.BenefitQuoteRequest) (*models.BenefitQuote, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quote payload")
	}

	var base decimal.Decimal
	if req.BaseAmount != nil {
		if req.BaseAmount.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "base amount must not be negative")
		}
		base = *req.BaseAmount
	} else {
		event, err := s.events.FindEvent(ctx, req.EventID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
		}
		base = event.CostFor(req.Scope)
	}
	return s.quoteScope(ctx, req.StudentID, req.EventID, req.Scope, base)
}

func (s *BenefitService) quoteScope(ctx context.Context, studentID, eventID string, scope models.BenefitScope, base decimal.Decimal) (*models.BenefitQuote, error) {
	benefits, err := s.benefits.ListForStudentEvent(ctx, studentID, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load benefits")
	}
	quote := ComputeBenefits(benefits, scope, base, s.clock.Today())
	if quote.Capped {
		s.logger.Info("benefit reductions exceed base amount",
			zap.String("student_id", studentID),
			zap.String("event_id", eventID),
			zap.String("scope", string(scope)),
			zap.String("total_reduction", money.String(quote.TotalReduction)),
		)
	}
	return &quote, nil
}

// ValidatePromoCode looks up a discount by its promotional code. A code is valid only
// when the discount is active, in its window and granted to the same student and event.
func (s *BenefitService) ValidatePromoCode(ctx context.Context, code, studentID, eventID string) (*models.PromoCodeCheck, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "promo code is required")
	}
	check := &models.PromoCodeCheck{Code: code}

	discounts, err := s.benefits.FindDiscountsByPromoCode(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up promo code")
	}
	if len(discounts) == 0 {
		check.Reason = "unknown promo code"
		return check, nil
	}

	today := s.clock.Today()
	check.Reason = "promo code is not granted to this student and event"
	for i := range discounts {
		d := discounts[i]
		if d.StudentID != studentID || d.EventID != eventID {
			continue
		}
		switch {
		case d.State != models.BenefitActive:
			check.Reason = "promo code is " + string(d.State)
		case !d.InWindow(today):
			check.Reason = "promo code is outside its validity window"
		default:
			check.Valid = true
			check.Reason = ""
			check.Discount = &d
			return check, nil
		}
	}
	return check, nil
}
