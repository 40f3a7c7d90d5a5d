package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	id "safeharbour/pkg/domain"
)

const day = 24 * time.Hour

// Policy holds the statutory constants. Offsets are measured from case creation.
type Policy struct {
	InitialWindow      time.Duration
	StatutoryLimit     time.Duration
	AmberOffset        time.Duration
	RedOffset          time.Duration
	MinExtensionReason int
}

func DefaultPolicy() Policy {
	return Policy{
		InitialWindow:      90 * day,
		StatutoryLimit:     90 * day,
		AmberOffset:        10 * day,
		RedOffset:          15 * day,
		MinExtensionReason: 20,
	}
}

// PolicyFromDays builds a policy from day counts as found in configuration.
func PolicyFromDays(initial, limit, amber, red, minReason int) Policy {
	return Policy{
		InitialWindow:      time.Duration(initial) * day,
		StatutoryLimit:     time.Duration(limit) * day,
		AmberOffset:        time.Duration(amber) * day,
		RedOffset:          time.Duration(red) * day,
		MinExtensionReason: minReason,
	}
}

func (p Policy) Validate() error {
	if p.InitialWindow <= 0 || p.StatutoryLimit < p.InitialWindow {
		return errors.New("statutory limit must be at least the initial window")
	}
	if p.AmberOffset <= 0 || p.RedOffset <= 0 {
		return errors.New("alert offsets must be positive")
	}
	return nil
}

// Record is the statutory deadline of one case.
// Invariant: CurrentDeadline <= MaxDeadline; ExtensionCount never decreases.
type Record struct {
	SubjectID       id.CaseID `json:"subject_id"`
	OrgID           id.OrgID  `json:"org_id"`
	CreatedAt       time.Time `json:"created_at"`
	CurrentDeadline time.Time `json:"current_deadline"`
	MaxDeadline     time.Time `json:"max_deadline"`
	ExtensionCount  int       `json:"extension_count"`
}

// NewRecord computes the initial deadline for a case created at createdAt.
func NewRecord(subject id.CaseID, org id.OrgID, createdAt time.Time, p Policy) *Record {
	return &Record{
		SubjectID:       subject,
		OrgID:           org,
		CreatedAt:       createdAt,
		CurrentDeadline: createdAt.Add(p.InitialWindow),
		MaxDeadline:     createdAt.Add(p.StatutoryLimit),
	}
}

// HeadroomDays is the number of whole days the deadline can still move
// before it passes the maximum.
func (r *Record) HeadroomDays() int {
	left := r.MaxDeadline.Sub(r.CurrentDeadline)
	if left <= 0 {
		return 0
	}
	return int(left / day)
}

// ExtendedBy returns the deadline moved by days, or false when that would
// pass the maximum. Day counts are compared before any duration arithmetic.
func (r *Record) ExtendedBy(days int) (time.Time, bool) {
	if days < 0 || days > r.HeadroomDays() {
		return time.Time{}, false
	}
	return r.CurrentDeadline.Add(time.Duration(days) * day), true
}

type AlertKind string

const (
	AlertAmber AlertKind = "amber"
	AlertRed   AlertKind = "red"
)

func ParseAlertKind(s string) (AlertKind, error) {
	switch AlertKind(s) {
	case AlertAmber, AlertRed:
		return AlertKind(s), nil
	default:
		return "", fmt.Errorf("unknown alert kind %q", s)
	}
}

type AlertStatus string

const (
	AlertScheduled  AlertStatus = "scheduled"
	AlertDelivered  AlertStatus = "delivered"
	AlertSuppressed AlertStatus = "suppressed"
	AlertCancelled  AlertStatus = "cancelled"
)

func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertScheduled, AlertDelivered, AlertSuppressed, AlertCancelled:
		return true
	}
	return false
}

// Alert is one escalation reminder for a case.
type Alert struct {
	ID             id.AlertID  `json:"id"`
	SubjectID      id.CaseID   `json:"subject_id"`
	OrgID          id.OrgID    `json:"org_id"`
	Kind           AlertKind   `json:"kind"`
	FireAt         time.Time   `json:"fire_at"`
	Status         AlertStatus `json:"status"`
	Recipient      *string     `json:"recipient"`
	DeliveredAt    *time.Time  `json:"delivered_at,omitempty"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty"`
	AcknowledgedBy *string     `json:"acknowledged_by,omitempty"`
}

// JobKey is the deterministic queue key of the alert.
func (a *Alert) JobKey() string {
	return JobKey(a.SubjectID, a.Kind)
}

// Job is a due alert handed to the worker.
func (a *Alert) Job() Job {
	return Job{Key: a.JobKey(), SubjectID: a.SubjectID, Kind: a.Kind, FireAt: a.FireAt}
}

// JobKey renders alert:<subject_id>:<kind>.
func JobKey(subject id.CaseID, kind AlertKind) string {
	return "alert:" + subject.String() + ":" + string(kind)
}

// ParseJobKey is the inverse of JobKey.
func ParseJobKey(key string) (id.CaseID, AlertKind, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "alert" {
		return id.CaseID{}, "", fmt.Errorf("malformed job key %q", key)
	}
	u, err := uuid.Parse(parts[1])
	if err != nil {
		return id.CaseID{}, "", fmt.Errorf("malformed job key %q: %w", key, err)
	}
	kind, err := ParseAlertKind(parts[2])
	if err != nil {
		return id.CaseID{}, "", err
	}
	return id.CaseID(u), kind, nil
}

// Job is the queue payload for one alert.
type Job struct {
	Key       string    `json:"key"`
	SubjectID id.CaseID `json:"subject_id"`
	Kind      AlertKind `json:"kind"`
	FireAt    time.Time `json:"fire_at"`
	Attempt   int       `json:"attempt"`
}

// ScheduleFailure is an alert that was persisted but could not be enqueued.
type ScheduleFailure struct {
	JobKey string
	Err    error
}

// ScheduleResult reports what scheduling achieved. A case with failures is
// recorded and has its deadline, but one or more reminders will not fire
// until re-enqueued.
type ScheduleResult struct {
	Record   *Record
	Alerts   []*Alert
	Failures []ScheduleFailure
}

func (r *ScheduleResult) Complete() bool {
	return r != nil && len(r.Failures) == 0
}

// AlertFilter selects alerts by subject or organization. Exactly one of
// SubjectID and OrgID must be set.
type AlertFilter struct {
	SubjectID *id.CaseID
	OrgID     *id.OrgID
	Kind      AlertKind
	Status    AlertStatus
}

// DeliveryOutcome is what the worker did with a job.
type DeliveryOutcome string

const (
	OutcomeDelivered  DeliveryOutcome = "delivered"
	OutcomeSuppressed DeliveryOutcome = "suppressed"
	OutcomeCancelled  DeliveryOutcome = "cancelled"
	OutcomeNoop       DeliveryOutcome = "noop"
)
