package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Group represents a named node in the membership graph. A group may directly
// contain users (see GroupUser) and other groups (see GroupGroup). The graph
// carries no acyclicity constraint at the data level; every traversal over it
// must be cycle safe.
type Group struct {
	// ID is the unique identifier for the group.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the display name of the group as it appears in the system.
	Name string `gorm:"size:100;not null" json:"name"`
	// NameKey is the lowercased shadow of Name carrying the unique index.
	// MySQL and SQLite disagree on case-insensitive collation defaults, so
	// uniqueness is enforced on this normalized column instead.
	NameKey string `gorm:"size:100;not null;uniqueIndex" json:"-"`
	// Description provides a human-readable explanation of the group's purpose.
	Description string `gorm:"size:255" json:"description"`
	// CreatedAt is the timestamp when the group was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the group was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the Group model.
// This overrides GORM's default pluralized table naming.
func (Group) TableName() string {
	return "groups"
}

// BeforeSave keeps the case-insensitive name key in sync with the name.
func (g *Group) BeforeSave(_ *gorm.DB) error {
	g.NameKey = NormalizeGroupName(g.Name)
	return nil
}

// NormalizeGroupName produces the canonical key used for case-insensitive
// group name comparison and uniqueness.
func NormalizeGroupName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
