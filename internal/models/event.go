package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventCosts is the read-only view of an academic event owned by the registry.
type EventCosts struct {
	EventID               string          `db:"id" json:"event_id"`
	Name                  string          `db:"name" json:"name"`
	MatriculationCost     decimal.Decimal `db:"matriculation_cost" json:"matriculation_cost"`
	TuitionCost           decimal.Decimal `db:"tuition_cost" json:"tuition_cost"`
	CertificateCost       decimal.Decimal `db:"certificate_cost" json:"certificate_cost"`
	RequiresMatriculation bool            `db:"requires_matriculation" json:"requires_matriculation"`
	StartDate             time.Time       `db:"start_date" json:"start_date"`
}

// CostFor returns the configured cost of a benefit scope.
func (e EventCosts) CostFor(scope BenefitScope) decimal.Decimal {
	switch scope {
	case ScopeMatriculation:
		return e.MatriculationCost
	case ScopeCertificate:
		return e.CertificateCost
	default:
		return e.TuitionCost
	}
}
