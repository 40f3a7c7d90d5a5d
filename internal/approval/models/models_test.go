package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
)

func votes(roles ...id.Role) []*Vote {
	out := make([]*Vote, len(roles))
	for i, r := range roles {
		out[i] = &Vote{VoterRole: r, Decision: DecisionApprove}
	}
	return out
}

func TestQuorumMet(t *testing.T) {
	closeCase, _ := ActionCloseCase.Policy()

	tests := []struct {
		name  string
		votes []*Vote
		want  bool
	}{
		{"three with presiding", votes(id.RolePresiding, id.RoleMember, id.RoleExternal), true},
		{"three without presiding", votes(id.RoleMember, id.RoleMember, id.RoleExternal), false},
		{"two with presiding", votes(id.RolePresiding, id.RoleMember), false},
		{"four with presiding", votes(id.RoleMember, id.RoleMember, id.RoleMember, id.RolePresiding), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountVotes(tt.votes).QuorumMet(closeCase))
		})
	}
}

func TestQuorumWithoutPrivilegeRequirement(t *testing.T) {
	p := Policy{RequiredApprovals: 2}
	assert.True(t, CountVotes(votes(id.RoleMember, id.RoleExternal)).QuorumMet(p))
}

func TestRejectVotesDoNotCountTowardQuorum(t *testing.T) {
	vs := votes(id.RolePresiding, id.RoleMember)
	vs = append(vs, &Vote{VoterRole: id.RoleMember, Decision: DecisionReject})
	tally := CountVotes(vs)
	assert.Equal(t, Tally{Approvals: 2, Rejections: 1, PrivilegedApprovals: 1}, tally)

	p, _ := ActionCloseCase.Policy()
	assert.False(t, tally.QuorumMet(p))
	assert.False(t, tally.Rejected(p))
}

func TestParseActionType(t *testing.T) {
	a, err := ParseActionType("close_case")
	assert.NoError(t, err)
	assert.Equal(t, ActionCloseCase, a)

	_, err = ParseActionType("reveal_identity")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
