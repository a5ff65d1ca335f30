package models

import "time"

// EventPaymentStatus caches the fee flags of a student in an event.
// It can always be rebuilt from installments and payments.
type EventPaymentStatus struct {
	StudentID         string    `db:"student_id" json:"student_id"`
	EventID           string    `db:"event_id" json:"event_id"`
	MatriculationPaid bool      `db:"matriculation_paid" json:"matriculation_paid"`
	CertificatePaid   bool      `db:"certificate_paid" json:"certificate_paid"`
	TuitionCurrent    bool      `db:"tuition_current" json:"tuition_current"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Eligibility answers the certificate issuance gate.
type Eligibility struct {
	StudentID         string   `json:"student_id"`
	EventID           string   `json:"event_id"`
	Eligible          bool     `json:"eligible"`
	TuitionCurrent    bool     `json:"tuition_current"`
	MatriculationPaid bool     `json:"matriculation_paid"`
	CertificatePaid   bool     `json:"certificate_paid"`
	CertificateFree   bool     `json:"certificate_free"`
	Reasons           []string `json:"reasons,omitempty"`
}
