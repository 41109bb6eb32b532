package models

import "time"

// ActionGroup assigns a group to an action security row: users who are
// (transitively) members of the group may perform the action. The composite
// primary key makes a (action, group) pair unique.
type ActionGroup struct {
	// ActionSecurityID is the ID of the action security row.
	ActionSecurityID uint `gorm:"primaryKey;column:action_security_id" json:"action_security_id"`
	// GroupID is the ID of the allowed group.
	GroupID uint `gorm:"primaryKey;column:group_id" json:"group_id"`
	// ActionSecurity is the associated action row (loaded via foreign key).
	ActionSecurity ActionSecurity `gorm:"foreignKey:ActionSecurityID;constraint:OnDelete:CASCADE" json:"-"`
	// Group is the associated group (loaded via foreign key).
	// When a group is deleted its action assignments go with it (CASCADE).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"-"`
	// CreatedAt is the timestamp when the assignment was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the database table name for the ActionGroup model.
func (ActionGroup) TableName() string {
	return "action_groups"
}
