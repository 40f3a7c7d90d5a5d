package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "safeharbour/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseCaseID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseCaseID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseCaseID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseCaseID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, CaseID(validUUID), id)
		assert.Equal(t, validUUID.String(), id.String())
	})
}

func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE cases;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseApprovalID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errCase := ParseCaseID(validUUID)
		_, errOrg := ParseOrgID(validUUID)
		_, errApproval := ParseApprovalID(validUUID)
		_, errReveal := ParseRevealID(validUUID)
		_, errAlert := ParseAlertID(validUUID)

		require.NoError(t, errCase)
		require.NoError(t, errOrg)
		require.NoError(t, errApproval)
		require.NoError(t, errReveal)
		require.NoError(t, errAlert)
	})

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errCase := ParseCaseID(input)
			_, errOrg := ParseOrgID(input)
			_, errApproval := ParseApprovalID(input)
			_, errReveal := ParseRevealID(input)
			_, errAlert := ParseAlertID(input)

			require.Error(t, errCase)
			require.Error(t, errOrg)
			require.Error(t, errApproval)
			require.Error(t, errReveal)
			require.Error(t, errAlert)
		})
	}
}

func TestRoles(t *testing.T) {
	t.Run("only presiding is privileged", func(t *testing.T) {
		assert.True(t, RolePresiding.IsPrivileged())
		assert.False(t, RoleMember.IsPrivileged())
		assert.False(t, RoleExternal.IsPrivileged())
	})

	t.Run("parties to the case are not committee", func(t *testing.T) {
		assert.False(t, RoleReporter.IsCommittee())
		assert.False(t, RoleRespondent.IsCommittee())
		assert.True(t, RoleExternal.IsCommittee())
	})

	t.Run("parse rejects unknown role", func(t *testing.T) {
		_, err := ParseRole("hr_manager")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		r, err := ParseRole("ic_presiding")
		require.NoError(t, err)
		assert.Equal(t, RolePresiding, r)
	})
}

func TestIDsMarshalAsStrings(t *testing.T) {
	caseID := NewCaseID()
	b, err := json.Marshal(struct {
		ID CaseID `json:"id"`
	}{caseID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+caseID.String()+`"}`, string(b))

	var decoded struct {
		ID CaseID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, caseID, decoded.ID)
}
