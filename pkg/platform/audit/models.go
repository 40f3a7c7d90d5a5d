package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// approvals, identity reveals, deadline extensions. Fail-closed.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers rejected attempts worth alerting on
	// (self-votes, unauthorized committee actions).
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity such as alert delivery.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// SubjectID is the case the event belongs to. ActorID is the UIN of the
// committee member or reporter who acted; it is never a plaintext identity.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	SubjectID string
	Action    string
	ActorID   string
	Decision  string
	Reason    string
	RequestID string
	// Metadata carries action-specific detail such as approver lists or the
	// previous and new deadline of an extension.
	Metadata map[string]string
}

// Store is the append-only sink every state transition is recorded in.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subjectID string) ([]Event, error)
}

type AuditEvent string

const (
	// Case events
	EventCaseSubmitted         AuditEvent = "case_submitted"
	EventInvestigationStarted  AuditEvent = "investigation_started"
	EventCaseResolved          AuditEvent = "case_resolved"
	EventInterimReliefGranted  AuditEvent = "interim_relief_granted"
	EventIdentityRegistered    AuditEvent = "identity_registered"
	EventCommitteeActionDenied AuditEvent = "committee_action_denied"

	// Approval events
	EventApprovalInitiated       AuditEvent = "approval_initiated"
	EventApprovalVoteCast        AuditEvent = "approval_vote_cast"
	EventApprovalExecuted        AuditEvent = "approval_executed"
	EventApprovalRejected        AuditEvent = "approval_rejected"
	EventApprovalExecutionFailed AuditEvent = "approval_execution_failed"

	// Reveal events
	EventRevealRequested AuditEvent = "reveal_requested"
	EventRevealApproved  AuditEvent = "reveal_approved"
	EventRevealQuorum    AuditEvent = "reveal_quorum_reached"
	EventRevealExecuted  AuditEvent = "reveal_executed"
	EventRevealSelfVote  AuditEvent = "reveal_self_vote_rejected"

	// Deadline events
	EventDeadlineScheduled AuditEvent = "deadline_scheduled"
	EventDeadlineExtended  AuditEvent = "deadline_extended"
	EventAlertDelivered    AuditEvent = "alert_delivered"
	EventAlertSuppressed   AuditEvent = "alert_suppressed"
	EventAlertsCancelled   AuditEvent = "alerts_cancelled"
	EventAlertAcknowledged AuditEvent = "alert_acknowledged"
	EventAlertJobFailed    AuditEvent = "alert_job_failed"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventCaseSubmitted:        CategoryCompliance,
	EventInvestigationStarted: CategoryCompliance,
	EventCaseResolved:         CategoryCompliance,
	EventInterimReliefGranted: CategoryCompliance,
	EventApprovalInitiated:    CategoryCompliance,
	EventApprovalVoteCast:     CategoryCompliance,
	EventApprovalExecuted:     CategoryCompliance,
	EventApprovalRejected:     CategoryCompliance,
	EventRevealRequested:      CategoryCompliance,
	EventRevealApproved:       CategoryCompliance,
	EventRevealQuorum:         CategoryCompliance,
	EventRevealExecuted:       CategoryCompliance,
	EventDeadlineScheduled:    CategoryCompliance,
	EventDeadlineExtended:     CategoryCompliance,

	EventCommitteeActionDenied:   CategorySecurity,
	EventRevealSelfVote:          CategorySecurity,
	EventApprovalExecutionFailed: CategorySecurity,
	EventAlertJobFailed:          CategorySecurity,

	EventIdentityRegistered: CategoryOperations,
	EventAlertDelivered:     CategoryOperations,
	EventAlertSuppressed:    CategoryOperations,
	EventAlertsCancelled:    CategoryOperations,
	EventAlertAcknowledged:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// New builds an event for the given action with its category filled in.
func New(action AuditEvent, subjectID, actorID string) Event {
	return Event{
		Category:  action.Category(),
		SubjectID: subjectID,
		Action:    string(action),
		ActorID:   actorID,
	}
}
