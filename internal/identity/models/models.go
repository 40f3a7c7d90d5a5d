package models

import (
	"time"

	id "safeharbour/pkg/domain"
)

// Record is the persisted form of an identity. The UIN is not part of it;
// it is derived from SeqID whenever the identity leaves the store.
type Record struct {
	SeqID     uint32
	OrgID     id.OrgID
	Role      id.Role
	CreatedAt time.Time
}

// Identity is a pseudonymous participant as seen by the rest of the system.
type Identity struct {
	UIN       string    `json:"uin"`
	OrgID     id.OrgID  `json:"org_id"`
	Role      id.Role   `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewIdentity is what the store needs to create an identity atomically with
// its email index entry and vault entry.
type NewIdentity struct {
	OrgID     id.OrgID
	Role      id.Role
	EmailHash string
	SecretRef string
	CreatedAt time.Time
}
