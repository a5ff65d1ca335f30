package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentCategory classifies what a payment settles.
type PaymentCategory string

// Payment categories.
const (
	CategoryMatriculation     PaymentCategory = "matriculation"
	CategorySingleInstallment PaymentCategory = "single_installment"
	CategoryPartialTuition    PaymentCategory = "partial_tuition"
	CategoryFullTuition       PaymentCategory = "full_tuition"
	CategoryCertificate       PaymentCategory = "certificate"
	CategoryMiscellaneous     PaymentCategory = "miscellaneous"
)

// IsTuition reports whether the category is allocated against installments.
func (c PaymentCategory) IsTuition() bool {
	switch c {
	case CategorySingleInstallment, CategoryPartialTuition, CategoryFullTuition:
		return true
	}
	return false
}

// PaymentMethod is how the money was received.
type PaymentMethod string

// Payment methods.
const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
	MethodCard     PaymentMethod = "card"
	MethodCheck    PaymentMethod = "check"
	MethodDeposit  PaymentMethod = "deposit"
	MethodMobile   PaymentMethod = "mobile"
)

// Payment is an immutable record of money received from a student.
type Payment struct {
	ID                 string          `db:"id" json:"id"`
	StudentID          string          `db:"student_id" json:"student_id"`
	EventID            string          `db:"event_id" json:"event_id"`
	PlanID             *string         `db:"plan_id" json:"plan_id,omitempty"`
	InstallmentID      *string         `db:"installment_id" json:"installment_id,omitempty"`
	Amount             decimal.Decimal `db:"amount" json:"amount"`
	Category           PaymentCategory `db:"category" json:"category"`
	Method             PaymentMethod   `db:"method" json:"method"`
	PaidAt             time.Time       `db:"paid_at" json:"paid_at"`
	Notes              string          `db:"notes" json:"notes"`
	ReceiptImage       *string         `db:"receipt_image" json:"receipt_image,omitempty"`
	TransactionID      *string         `db:"transaction_id" json:"transaction_id,omitempty"`
	ReceiptInstitution *string         `db:"receipt_institution" json:"receipt_institution,omitempty"`
	ReceiptCode        *string         `db:"receipt_code" json:"receipt_code,omitempty"`
	RecordedBy         string          `db:"recorded_by" json:"recorded_by"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}

// PaymentAllocation records how much of a payment went to one installment.
type PaymentAllocation struct {
	ID            string          `db:"id" json:"id"`
	PaymentID     string          `db:"payment_id" json:"payment_id"`
	InstallmentID string          `db:"installment_id" json:"installment_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	AppliedAt     time.Time       `db:"applied_at" json:"applied_at"`
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	StudentID string
	EventID   string
	Category  PaymentCategory
	Page      int
	PageSize  int
}

// SubmitPaymentRequest is accepted by the payment submission workflow.
type SubmitPaymentRequest struct {
	StudentID          string          `json:"student_id" form:"student_id" validate:"required"`
	EventID            string          `json:"event_id" form:"event_id" validate:"required"`
	Amount             decimal.Decimal `json:"amount" form:"-"`
	Category           PaymentCategory `json:"category" form:"category" validate:"required,oneof=matriculation single_installment partial_tuition full_tuition certificate miscellaneous"`
	Method             PaymentMethod   `json:"method" form:"method" validate:"required,oneof=cash transfer card check deposit mobile"`
	InstallmentID      *string         `json:"installment_id" form:"installment_id"`
	InstallmentIDs     []string        `json:"installment_ids" form:"installment_ids" validate:"omitempty,dive,required"`
	PaidAt             *time.Time      `json:"paid_at" form:"paid_at" time_format:"2006-01-02T15:04:05Z07:00"`
	Notes              string          `json:"notes" form:"notes" validate:"max=2000"`
	TransactionID      *string         `json:"transaction_id" form:"transaction_id" validate:"omitempty,max=100"`
	ReceiptInstitution *string         `json:"receipt_institution" form:"receipt_institution" validate:"omitempty,max=100"`
	ReceiptCode        *string         `json:"receipt_code" form:"receipt_code" validate:"omitempty,max=100"`
	ReceiptImage       *string         `json:"-" form:"-"`
	RecordedBy         string          `json:"-" form:"-"`
}

// PaymentResult returns the stored payment with the state changes it caused.
type PaymentResult struct {
	Payment      Payment             `json:"payment"`
	Allocations  []PaymentAllocation `json:"allocations"`
	Installments []Installment       `json:"installments"`
	Status       EventPaymentStatus  `json:"status"`
}
