package models

import (
	"slices"
	"time"

	id "safeharbour/pkg/domain"
)

// Designation marks a committee member as the target of a deadline alert.
type Designation string

const (
	DesignationChair      Designation = "chair"
	DesignationEscalation Designation = "escalation"
)

func (d Designation) IsValid() bool {
	return d == DesignationChair || d == DesignationEscalation
}

// Member is one internal committee seat within an organization.
type Member struct {
	OrgID        id.OrgID      `json:"org_id"`
	UIN          string        `json:"uin"`
	Role         id.Role       `json:"role"`
	Designations []Designation `json:"designations"`
	CreatedAt    time.Time     `json:"created_at"`
}

func (m *Member) HasDesignation(d Designation) bool {
	return slices.Contains(m.Designations, d)
}
