// Package access resolves project roles and decides whether an actor may
// perform an action on a project, task or invitation.
package access

import (
	"fmt"

	"github.com/existflow/projectmate/internal/model"
)

// ResolveRole returns userID's effective role in p. It never fails: a user
// with no membership resolves to model.RoleNone.
func ResolveRole(p model.Project, userID string) model.Role {
	if userID == "" {
		return model.RoleNone
	}
	if p.OwnerID == userID {
		return model.RoleOwner
	}
	if m, ok := p.Member(userID); ok {
		return m.Role
	}
	return model.RoleNone
}

// CheckOwnerInvariant verifies that exactly one member entry has the owner
// role and that it refers to p.OwnerID.
func CheckOwnerInvariant(p model.Project) error {
	owners := 0
	for _, m := range p.Members {
		if m.Role != model.RoleOwner {
			continue
		}
		owners++
		if m.UserID != p.OwnerID {
			return fmt.Errorf("project %s: owner entry %s does not match owner %s", p.ID, m.UserID, p.OwnerID)
		}
	}
	if owners != 1 {
		return fmt.Errorf("project %s: %d owner entries, want exactly 1", p.ID, owners)
	}
	return nil
}

// MustHoldOwnerInvariant panics when CheckOwnerInvariant fails. A broken
// invariant is a programming error, not a request error.
func MustHoldOwnerInvariant(p model.Project) {
	if err := CheckOwnerInvariant(p); err != nil {
		panic(err)
	}
}
