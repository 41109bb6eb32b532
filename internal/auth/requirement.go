package auth

import (
	"github.com/authgrid/authgrid/internal/db/models"
)

// RequirementKind is the mutually exclusive class of an action's access rule.
type RequirementKind int

const (
	// Authenticated requires any logged-in user; when the requirement also
	// carries group names, membership in at least one of them.
	Authenticated RequirementKind = iota
	// RequireAdmin restricts the action to system admins.
	RequireAdmin
	// RequireAnonymous restricts the action to unauthenticated callers
	// (login and registration style pages).
	RequireAnonymous
	// AllowAnonymous opens the action to everyone.
	AllowAnonymous
)

// String returns the label used in audit log entries.
func (k RequirementKind) String() string {
	switch k {
	case RequireAdmin:
		return "require_admin"
	case RequireAnonymous:
		return "require_anon"
	case AllowAnonymous:
		return "allow_anon"
	default:
		return "authenticated"
	}
}

// Requirement is the resolved access rule for one action. Groups is only
// consulted for the Authenticated kind; an empty list means any
// authenticated user qualifies.
type Requirement struct {
	Kind   RequirementKind
	Groups []string
}

// RequirementFor derives the access rule from a catalog row and its assigned
// group names. The flags are checked in fixed precedence: admin beats
// anonymous-only beats anonymous-allowed beats the group list. A row whose
// controller could not be resolved carries no flags and falls through to the
// strictest default, admin only.
func RequirementFor(row models.ActionSecurity, groups []string) Requirement {
	switch {
	case row.UnknownController:
		return Requirement{Kind: RequireAdmin}
	case row.RequireAdmin:
		return Requirement{Kind: RequireAdmin}
	case row.RequireAnon:
		return Requirement{Kind: RequireAnonymous}
	case row.AllowAnon:
		return Requirement{Kind: AllowAnonymous}
	default:
		return Requirement{Kind: Authenticated, Groups: groups}
	}
}
