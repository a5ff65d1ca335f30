package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment count bounds for a plan.
const (
	MinInstallments = 1
	MaxInstallments = 60
)

// PaymentPlan is the tuition schedule of one student in one event.
type PaymentPlan struct {
	ID                 string          `db:"id" json:"id"`
	StudentID          string          `db:"student_id" json:"student_id"`
	EventID            string          `db:"event_id" json:"event_id"`
	TotalAmount        decimal.Decimal `db:"total_amount" json:"total_amount"`
	InstallmentCount   int             `db:"installment_count" json:"installment_count"`
	UsesCustomAmount   bool            `db:"uses_custom_amount" json:"uses_custom_amount"`
	ApplyBenefits      bool            `db:"apply_benefits" json:"apply_benefits"`
	HasAgreement       bool            `db:"has_agreement" json:"has_agreement"`
	AgreementReason    string          `db:"agreement_reason" json:"agreement_reason"`
	SupportingDocument *string         `db:"supporting_document" json:"supporting_document,omitempty"`
	Active             bool            `db:"active" json:"active"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// PlanDetail bundles a plan with its installments and linked benefits.
type PlanDetail struct {
	PaymentPlan
	Installments   []Installment `json:"installments"`
	ScholarshipIDs []string      `json:"scholarship_ids"`
	DiscountIDs    []string      `json:"discount_ids"`
}

// PlanFilter narrows plan listings.
type PlanFilter struct {
	StudentID string
	EventID   string
	Active    *bool
	Page      int
	PageSize  int
}

// CreatePlanRequest is the enrollment workflow's call into plan creation.
type CreatePlanRequest struct {
	StudentID        string           `json:"student_id" validate:"required"`
	EventID          string           `json:"event_id" validate:"required"`
	InstallmentCount *int             `json:"installment_count"`
	TotalAmount      *decimal.Decimal `json:"total_amount"`
	ApplyBenefits    bool             `json:"apply_benefits"`
	AgreementReason  string           `json:"agreement_reason" validate:"max=2000"`
}

// RestructurePlanRequest changes the installment count or total of an active plan.
type RestructurePlanRequest struct {
	InstallmentCount   *int             `json:"installment_count" form:"installment_count"`
	TotalAmount        *decimal.Decimal `json:"total_amount" form:"-"`
	Reason             string           `json:"reason" form:"reason" validate:"max=2000"`
	SupportingDocument *string          `json:"-" form:"-"`
}

// RestructureResult reports what a restructure changed for audit logging.
type RestructureResult struct {
	Plan    PlanDetail `json:"plan"`
	Changes []string   `json:"changes"`
}

// CancelPlanRequest carries the reason recorded on cancellation.
type CancelPlanRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}
