package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StateCount is the number of installments in a state.
type StateCount struct {
	State InstallmentState `db:"state" json:"state"`
	Count int              `db:"count" json:"count"`
}

// InstallmentTotals is the money roll-up over an event's installments.
type InstallmentTotals struct {
	PlanCount   int             `db:"plan_count" json:"plan_count"`
	TotalBilled decimal.Decimal `db:"total_billed" json:"total_billed"`
	TotalPaid   decimal.Decimal `db:"total_paid" json:"total_paid"`
}

// OverdueStudent lists a student with at least one overdue installment.
type OverdueStudent struct {
	StudentID     string          `db:"student_id" json:"student_id"`
	PlanID        string          `db:"plan_id" json:"plan_id"`
	OverdueCount  int             `db:"overdue_count" json:"overdue_count"`
	OverdueAmount decimal.Decimal `db:"overdue_amount" json:"overdue_amount"`
	OldestDueDate time.Time       `db:"oldest_due_date" json:"oldest_due_date"`
	DaysOverdue   int             `db:"-" json:"days_overdue"`
}

// EventStatistics is the read-only roll-up of an event's plans.
type EventStatistics struct {
	EventID          string                   `json:"event_id"`
	PlanCount        int                      `json:"plan_count"`
	ByState          map[InstallmentState]int `json:"installments_by_state"`
	TotalBilled      decimal.Decimal          `json:"total_billed"`
	TotalCollected   decimal.Decimal          `json:"total_collected"`
	TotalOutstanding decimal.Decimal          `json:"total_outstanding"`
	OverdueStudents  []OverdueStudent         `json:"overdue_students"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

// GeneralState summarises a student's standing in an event.
type GeneralState string

const (
	StandingCompleted GeneralState = "completed"
	StandingOverdue   GeneralState = "overdue"
	StandingCurrent   GeneralState = "current"
	StandingPending   GeneralState = "pending"
)

// StudentSummary is the per student, per event account view.
type StudentSummary struct {
	StudentID       string                   `json:"student_id"`
	EventID         string                   `json:"event_id"`
	PlanID          string                   `json:"plan_id"`
	Active          bool                     `json:"active"`
	TotalAmount     decimal.Decimal          `json:"total_amount"`
	TotalPaid       decimal.Decimal          `json:"total_paid"`
	Outstanding     decimal.Decimal          `json:"outstanding"`
	ProgressPercent decimal.Decimal          `json:"progress_percent"`
	ByState         map[InstallmentState]int `json:"installments_by_state"`
	NextDue         *Installment             `json:"next_due,omitempty"`
	GeneralState    GeneralState             `json:"general_state"`
	Status          EventPaymentStatus       `json:"status"`
	Installments    []Installment            `json:"installments"`
	HasAgreement    bool                     `json:"has_agreement"`
	AgreementReason string                   `json:"agreement_reason,omitempty"`
}
