package models

import (
	"time"

	id "safeharbour/pkg/domain"
)

type Status string

const (
	StatusSubmitted          Status = "submitted"
	StatusUnderInvestigation Status = "under_investigation"
	StatusResolved           Status = "resolved"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusResolved
}

// Case is a harassment complaint. Parties appear only by UIN.
type Case struct {
	ID              id.CaseID  `json:"id"`
	OrgID           id.OrgID   `json:"org_id"`
	VictimUIN       string     `json:"victim_uin"`
	SubjectUIN      string     `json:"subject_uin"`
	Status          Status     `json:"status"`
	InterimReliefAt *time.Time `json:"interim_relief_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
