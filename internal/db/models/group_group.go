package models

import "time"

// GroupGroup represents group-in-group membership: MemberID is a direct
// member (subgroup) of GroupID. The composite primary key makes a
// (group, member) pair unique. Nothing prevents cycles at this level, so the
// resolver must never rely on the graph being acyclic.
type GroupGroup struct {
	// GroupID is the ID of the containing group.
	GroupID uint `gorm:"primaryKey;column:group_id" json:"group_id"`
	// MemberID is the ID of the member group.
	MemberID uint `gorm:"primaryKey;column:member_id" json:"member_id"`
	// Group is the containing group (loaded via foreign key).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"-"`
	// Member is the member group (loaded via foreign key).
	Member Group `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"-"`
	// CreatedAt is the timestamp when the membership was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the database table name for the GroupGroup model.
func (GroupGroup) TableName() string {
	return "group_groups"
}
