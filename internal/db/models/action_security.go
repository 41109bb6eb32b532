package models

import (
	"strings"
	"time"
)

// PathSentinel marks an ActionSecurity path that has not been seen yet in the
// current catalog refresh cycle.
const PathSentinel = "#"

// ActionSecurity is one row per (controller, action) pair of the host
// application's route table. Rows are never created by hand; the catalog
// refresh upserts them from the live routes and soft-hides stale ones by
// clearing Visible, preserving any custom group assignments.
type ActionSecurity struct {
	// ID is the unique identifier for the row.
	ID uint `gorm:"primaryKey" json:"id"`
	// ControllerName is the lowercased controller part of the action key.
	ControllerName string `gorm:"size:100;not null;uniqueIndex:idx_controller_action" json:"controller_name"`
	// ActionName is the lowercased action part of the action key.
	ActionName string `gorm:"size:100;not null;uniqueIndex:idx_controller_action" json:"action_name"`
	// Path is the newline-delimited, lexically sorted list of
	// "{path} [{VERB}]" entries mapping to this action. The refresh routine
	// resets it to PathSentinel before re-collecting.
	Path string `gorm:"type:text" json:"path"`
	// AllowAnon marks an action open to anonymous and authenticated callers alike.
	AllowAnon bool `gorm:"column:allow_anon" json:"allow_anon"`
	// RequireAnon marks an action only the anonymous sentinel may perform.
	RequireAnon bool `gorm:"column:require_anon" json:"require_anon"`
	// RequireAdmin marks an action restricted to system admins.
	RequireAdmin bool `gorm:"column:require_admin" json:"require_admin"`
	// UnknownController is set when classification could not resolve the
	// controller; the three requirement flags are left false in that case.
	UnknownController bool `gorm:"column:unknown_controller" json:"unknown_controller"`
	// NonStandard is set when the controller overrides the default
	// authorization hooks, so enforcement may not follow the standard
	// decision table.
	NonStandard bool `gorm:"column:non_standard" json:"non_standard"`
	// Visible soft-hides rows whose route disappeared between refreshes.
	Visible bool `json:"visible"`
	// CreatedAt is the timestamp when the row was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the row was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the ActionSecurity model.
func (ActionSecurity) TableName() string {
	return "action_securities"
}

// RequirementLabel returns a short human readable label for the row's
// classification, in precedence order.
func (a *ActionSecurity) RequirementLabel() string {
	switch {
	case a.UnknownController:
		return "unknown controller"
	case a.RequireAdmin:
		return "admin"
	case a.RequireAnon:
		return "anonymous only"
	case a.AllowAnon:
		return "anonymous allowed"
	default:
		return "authenticated"
	}
}

// FirstPath returns the first path entry, or the sentinel when the row has
// not been touched by a refresh yet.
func (a *ActionSecurity) FirstPath() string {
	if a.Path == "" {
		return PathSentinel
	}

	if idx := strings.IndexByte(a.Path, '\n'); idx >= 0 {
		return a.Path[:idx]
	}

	return a.Path
}
