// Package permission answers whether an acting identity may perform a
// named action on a specific record. The evaluator is intentionally
// narrow: combinations it does not know are faults, never default-allow.
package permission

import (
	"fmt"
	"strings"

	"jittr/pkg/domain"
)

// ActionDelete is the only action currently evaluated.
const ActionDelete = "delete"

// Identity is the acting caller: resolved username plus role set. It is
// passed into each check so concurrent evaluations share no state.
type Identity struct {
	Username string
	Roles    []domain.Role
}

// HasRole reports whether the identity carries the given role.
func (i Identity) HasRole(role domain.Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IdentityOf builds the acting identity for a resolved jitter.
func IdentityOf(j domain.Jitter) Identity {
	return Identity{Username: j.Username, Roles: []domain.Role{j.Role}}
}

// UnsupportedOperationError reports an (action, target) pair the
// evaluator has no rule for. It indicates a code defect, not a denial.
type UnsupportedOperationError struct {
	Action string
	Target any
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("permission check not supported for target %T and action %q", e.Target, e.Action)
}

// Evaluator decides capability checks by role and ownership.
type Evaluator struct{}

// HasPermission reports whether ident may perform action on target.
// Deleting a jittle is permitted for admins, and for the owning jitter
// when it carries the member role. Usernames compare case-insensitively.
func (Evaluator) HasPermission(ident Identity, target any, action string) (bool, error) {
	if jittle, ok := target.(domain.Jittle); ok && action == ActionDelete {
		if ident.HasRole(domain.RoleAdmin) {
			return true, nil
		}
		sameOwner := strings.EqualFold(jittle.Jitter.Username, ident.Username)
		return sameOwner && ident.HasRole(domain.RoleJitter), nil
	}
	return false, &UnsupportedOperationError{Action: action, Target: target}
}
