package models

import (
	"time"

	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
)

// ActionType is the closed set of committee actions gated by approval.
type ActionType string

const (
	ActionCloseCase     ActionType = "close_case"
	ActionInterimRelief ActionType = "interim_relief"
)

// Policy is the quorum an action type needs.
type Policy struct {
	RequiredApprovals  int
	RequiresPrivileged bool
}

var policies = map[ActionType]Policy{
	ActionCloseCase:     {RequiredApprovals: 3, RequiresPrivileged: true},
	ActionInterimRelief: {RequiredApprovals: 2, RequiresPrivileged: true},
}

// ParseActionType constructs an ActionType from external input.
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(s)
	if _, ok := policies[a]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "unknown action type: "+s)
	}
	return a, nil
}

// Policy returns the static quorum policy of the action.
func (a ActionType) Policy() (Policy, bool) {
	p, ok := policies[a]
	return p, ok
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusExecuted Status = "executed"
	StatusRejected Status = "rejected"
)

func (s Status) IsTerminal() bool {
	return s == StatusExecuted || s == StatusRejected
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApprove, DecisionReject:
		return Decision(s), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "decision must be approve or reject")
	}
}

// Request is a pending or settled approval for one action on one case.
// Invariant: at most one pending request per (SubjectID, ActionType).
type Request struct {
	ID                 id.ApprovalID `json:"id"`
	SubjectID          id.CaseID     `json:"subject_id"`
	ActionType         ActionType    `json:"action_type"`
	Status             Status        `json:"status"`
	RequiredApprovals  int           `json:"required_approvals"`
	RequiresPrivileged bool          `json:"requires_privileged_role"`
	InitiatorID        string        `json:"initiator_id"`
	CreatedAt          time.Time     `json:"created_at"`
	ExecutedAt         *time.Time    `json:"executed_at,omitempty"`
	RejectedAt         *time.Time    `json:"rejected_at,omitempty"`
}

func (r *Request) Policy() Policy {
	return Policy{RequiredApprovals: r.RequiredApprovals, RequiresPrivileged: r.RequiresPrivileged}
}

// Vote is unique per (RequestID, VoterID).
type Vote struct {
	RequestID id.ApprovalID `json:"request_id"`
	VoterID   string        `json:"voter_id"`
	VoterRole id.Role       `json:"voter_role"`
	Decision  Decision      `json:"decision"`
	CastAt    time.Time     `json:"cast_at"`
}

type Tally struct {
	Approvals           int `json:"approvals"`
	Rejections          int `json:"rejections"`
	PrivilegedApprovals int `json:"privileged_approvals"`
}

// CountVotes tallies votes. Callers pass each voter at most once.
func CountVotes(votes []*Vote) Tally {
	var t Tally
	for _, v := range votes {
		switch v.Decision {
		case DecisionApprove:
			t.Approvals++
			if v.VoterRole.IsPrivileged() {
				t.PrivilegedApprovals++
			}
		case DecisionReject:
			t.Rejections++
		}
	}
	return t
}

// QuorumMet applies approvals >= required and, when the policy says so, at
// least one privileged approval.
func (t Tally) QuorumMet(p Policy) bool {
	if t.Approvals < p.RequiredApprovals {
		return false
	}
	return !p.RequiresPrivileged || t.PrivilegedApprovals >= 1
}

// Rejected reports whether enough reject votes were cast to settle the
// request as rejected.
func (t Tally) Rejected(p Policy) bool {
	return t.Rejections >= p.RequiredApprovals
}

type InitiateResult struct {
	Request  *Request `json:"request"`
	Tally    Tally    `json:"tally"`
	Required int      `json:"required"`
}

type VoteResult struct {
	QuorumMet bool   `json:"quorum_met"`
	Tally     Tally  `json:"tally"`
	Status    Status `json:"status"`
}

type Detail struct {
	Request *Request `json:"request"`
	Votes   []*Vote  `json:"votes"`
	Tally   Tally    `json:"tally"`
}
