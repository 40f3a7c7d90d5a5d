package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "safeharbour/pkg/domain-errors"
)

// Typed identifiers keep a case id from being passed where an approval id is
// expected. All of them are non-nil UUIDs; construct them from external input
// with the Parse functions below.
type (
	CaseID     uuid.UUID
	OrgID      uuid.UUID
	ApprovalID uuid.UUID
	RevealID   uuid.UUID
	AlertID    uuid.UUID
)

func (id CaseID) String() string     { return uuid.UUID(id).String() }
func (id OrgID) String() string      { return uuid.UUID(id).String() }
func (id ApprovalID) String() string { return uuid.UUID(id).String() }
func (id RevealID) String() string   { return uuid.UUID(id).String() }
func (id AlertID) String() string    { return uuid.UUID(id).String() }

func (id CaseID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id OrgID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ApprovalID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RevealID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id AlertID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func NewCaseID() CaseID         { return CaseID(uuid.New()) }
func NewOrgID() OrgID           { return OrgID(uuid.New()) }
func NewApprovalID() ApprovalID { return ApprovalID(uuid.New()) }
func NewRevealID() RevealID     { return RevealID(uuid.New()) }
func NewAlertID() AlertID       { return AlertID(uuid.New()) }

func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case id")
	return CaseID(u), err
}

func ParseOrgID(s string) (OrgID, error) {
	u, err := parseUUID(s, "organization id")
	return OrgID(u), err
}

func ParseApprovalID(s string) (ApprovalID, error) {
	u, err := parseUUID(s, "approval request id")
	return ApprovalID(u), err
}

func ParseRevealID(s string) (RevealID, error) {
	u, err := parseUUID(s, "reveal request id")
	return RevealID(u), err
}

func ParseAlertID(s string) (AlertID, error) {
	u, err := parseUUID(s, "alert id")
	return AlertID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+label)
	}
	return u, nil
}

func (id CaseID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id OrgID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id ApprovalID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id RevealID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id AlertID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *CaseID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *OrgID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ApprovalID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RevealID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AlertID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
