package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentState tracks settlement of an installment.
type InstallmentState string

// Installment states. There is no partially paid state.
const (
	InstallmentPending   InstallmentState = "pending"
	InstallmentPaid      InstallmentState = "paid"
	InstallmentOverdue   InstallmentState = "overdue"
	InstallmentCancelled InstallmentState = "cancelled"
)

// Installment is one dated portion of a plan's total.
type Installment struct {
	ID                 string           `db:"id" json:"id"`
	PlanID             string           `db:"plan_id" json:"plan_id"`
	Number             int              `db:"number" json:"number"`
	Amount             decimal.Decimal  `db:"amount" json:"amount"`
	DueDate            time.Time        `db:"due_date" json:"due_date"`
	State              InstallmentState `db:"state" json:"state"`
	AmountPaid         decimal.Decimal  `db:"amount_paid" json:"amount_paid"`
	PaidAt             *time.Time       `db:"paid_at" json:"paid_at,omitempty"`
	Notes              string           `db:"notes" json:"notes"`
	ReceiptInstitution *string          `db:"receipt_institution" json:"receipt_institution,omitempty"`
	ReceiptCode        *string          `db:"receipt_code" json:"receipt_code,omitempty"`
	ReceiptImage       *string          `db:"receipt_image" json:"receipt_image,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// Outstanding is the face amount not yet covered by allocations.
func (i Installment) Outstanding() decimal.Decimal {
	rest := i.Amount.Sub(i.AmountPaid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// Unsettled reports whether the installment still accepts payments.
func (i Installment) Unsettled() bool {
	return i.State == InstallmentPending || i.State == InstallmentOverdue
}

// InstallmentDraft is a generated installment before it is persisted.
type InstallmentDraft struct {
	Number  int             `json:"number"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
}
