package domain

import dErrors "safeharbour/pkg/domain-errors"

// Role is the capacity in which an identity participates in a case.
// Invariant: the value must be one of the roles below.
type Role string

const (
	RoleReporter   Role = "reporter"
	RoleRespondent Role = "respondent"
	// RoleMember is an ordinary internal committee (IC) member.
	RoleMember Role = "ic_member"
	// RolePresiding is the privileged IC role some actions require a vote from.
	RolePresiding Role = "ic_presiding"
	// RoleExternal is the statutory external IC member.
	RoleExternal Role = "ic_external"
)

var validRoles = map[Role]bool{
	RoleReporter:   true,
	RoleRespondent: true,
	RoleMember:     true,
	RolePresiding:  true,
	RoleExternal:   true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "role cannot be empty")
	}
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

// IsCommittee reports whether the role may take committee actions.
func (r Role) IsCommittee() bool {
	return r == RoleMember || r == RolePresiding || r == RoleExternal
}

// IsPrivileged reports whether a vote in this role satisfies a
// privileged-role requirement.
func (r Role) IsPrivileged() bool {
	return r == RolePresiding
}
