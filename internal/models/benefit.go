package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BenefitKind distinguishes scholarships from discounts.
type BenefitKind string

const (
	BenefitScholarship BenefitKind = "scholarship"
	BenefitDiscount    BenefitKind = "discount"
)

// ReductionType selects percentage or fixed amount reductions.
type ReductionType string

const (
	ReductionPercentage ReductionType = "percentage"
	ReductionFixed      ReductionType = "fixed"
)

// BenefitState is the administrative status of a benefit.
type BenefitState string

const (
	BenefitActive    BenefitState = "active"
	BenefitInactive  BenefitState = "inactive"
	BenefitExpired   BenefitState = "expired"
	BenefitCancelled BenefitState = "cancelled"
)

// BenefitScope is the fee a benefit can reduce.
type BenefitScope string

const (
	ScopeMatriculation BenefitScope = "matriculation"
	ScopeTuition       BenefitScope = "tuition"
	ScopeCertificate   BenefitScope = "certificate"
)

// ScopeForCategory maps a payment category to the fee scope benefits apply to.
// Miscellaneous payments have no scope.
func ScopeForCategory(c PaymentCategory) (BenefitScope, bool) {
	switch {
	case c == CategoryMatriculation:
		return ScopeMatriculation, true
	case c == CategoryCertificate:
		return ScopeCertificate, true
	case c.IsTuition():
		return ScopeTuition, true
	}
	return "", false
}

// Benefit is a scholarship or discount granted to a student for an event.
type Benefit struct {
	ID                   string          `db:"id" json:"id"`
	Kind                 BenefitKind     `db:"kind" json:"kind"`
	StudentID            string          `db:"student_id" json:"student_id"`
	EventID              string          `db:"event_id" json:"event_id"`
	Name                 string          `db:"name" json:"name"`
	ReductionType        ReductionType   `db:"reduction_type" json:"reduction_type"`
	Percentage           decimal.Decimal `db:"percentage" json:"percentage"`
	FixedAmount          decimal.Decimal `db:"fixed_amount" json:"fixed_amount"`
	AppliesMatriculation bool            `db:"applies_matriculation" json:"applies_matriculation"`
	AppliesTuition       bool            `db:"applies_tuition" json:"applies_tuition"`
	AppliesCertificate   bool            `db:"applies_certificate" json:"applies_certificate"`
	StartDate            time.Time       `db:"start_date" json:"start_date"`
	EndDate              time.Time       `db:"end_date" json:"end_date"`
	State                BenefitState    `db:"state" json:"state"`
	PromoCode            *string         `db:"promo_code" json:"promo_code,omitempty"`
}

// Applies reports whether the benefit covers the scope.
func (b Benefit) Applies(scope BenefitScope) bool {
	switch scope {
	case ScopeMatriculation:
		return b.AppliesMatriculation
	case ScopeTuition:
		return b.AppliesTuition
	case ScopeCertificate:
		return b.AppliesCertificate
	}
	return false
}

// InWindow reports whether day falls within [StartDate, EndDate], compared by calendar date.
func (b Benefit) InWindow(day time.Time) bool {
	d := dateOnly(day)
	return !d.Before(dateOnly(b.StartDate)) && !d.After(dateOnly(b.EndDate))
}

// BenefitItem is one line of a benefit quote.
type BenefitItem struct {
	BenefitID string          `json:"benefit_id"`
	Kind      BenefitKind     `json:"kind"`
	Name      string          `json:"name"`
	Type      ReductionType   `json:"type"`
	Reduction decimal.Decimal `json:"reduction"`
}

// BenefitQuote is the outcome of applying benefits to a base amount.
type BenefitQuote struct {
	Scope          BenefitScope    `json:"scope"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
	TotalReduction decimal.Decimal `json:"total_reduction"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	Capped         bool            `json:"capped"`
	Items          []BenefitItem   `json:"items"`
}

// BenefitQuoteRequest asks for a preview of the reductions on a fee.
type BenefitQuoteRequest struct {
	StudentID  string           `json:"student_id" validate:"required"`
	EventID    string           `json:"event_id" validate:"required"`
	Scope      BenefitScope     `json:"scope" validate:"required,oneof=matriculation tuition certificate"`
	BaseAmount *decimal.Decimal `json:"base_amount"`
}

// PromoCodeCheck is the outcome of a promotional code lookup.
type PromoCodeCheck struct {
	Code     string   `json:"code"`
	Valid    bool     `json:"valid"`
	Reason   string   `json:"reason,omitempty"`
	Discount *Benefit `json:"discount,omitempty"`
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
