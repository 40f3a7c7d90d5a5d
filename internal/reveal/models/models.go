package models

import (
	"time"

	id "safeharbour/pkg/domain"
)

// RequiredApprovals is the fixed two-party quorum. The requester never
// counts toward it.
const RequiredApprovals = 2

// DefaultMinReasonLength is the minimum justification length in runes.
const DefaultMinReasonLength = 30

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusExecuted Status = "executed"
)

// Request is a break-glass request to reveal a reporter's identity.
// Invariant: at most one non-executed request per SubjectID.
type Request struct {
	ID                id.RevealID `json:"id"`
	SubjectID         id.CaseID   `json:"subject_id"`
	RequesterID       string      `json:"requester_id"`
	Reason            string      `json:"reason"`
	Status            Status      `json:"status"`
	RequiredApprovals int         `json:"required_approvals"`
	CreatedAt         time.Time   `json:"created_at"`
	ApprovedAt        *time.Time  `json:"approved_at,omitempty"`
	ExecutedAt        *time.Time  `json:"executed_at,omitempty"`
	ExecutorID        string      `json:"executor_id,omitempty"`
	// ExecutedSecret is set only by Execute and never serialized.
	ExecutedSecret string `json:"-"`
}

type Approval struct {
	RequestID    id.RevealID `json:"request_id"`
	ApproverID   string      `json:"approver_id"`
	ApproverRole id.Role     `json:"approver_role"`
	CastAt       time.Time   `json:"cast_at"`
}

type ApproveResult struct {
	ApprovalsCount int    `json:"approvals_count"`
	QuorumMet      bool   `json:"quorum_met"`
	Status         Status `json:"status"`
}

type ExecuteResult struct {
	SecretReference string   `json:"secret_reference"`
	Approvers       []string `json:"approvers"`
}

func ApproverIDs(approvals []*Approval) []string {
	out := make([]string, len(approvals))
	for i, a := range approvals {
		out[i] = a.ApproverID
	}
	return out
}
