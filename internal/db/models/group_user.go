package models

import "time"

// GroupUser represents the many-to-many relationship between groups and their
// direct user members. The composite primary key makes a (group, user) pair
// unique.
type GroupUser struct {
	// GroupID is the ID of the containing group.
	GroupID uint `gorm:"primaryKey;column:group_id" json:"group_id"`
	// UserID is the ID of the member user.
	UserID uint64 `gorm:"primaryKey;column:user_id" json:"user_id"`
	// Group is the associated group (loaded via foreign key).
	// When a group is deleted, all its user memberships are removed (CASCADE).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"-"`
	// User is the associated user (loaded via foreign key).
	// When a user is deleted, all their group memberships are removed (CASCADE).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	// CreatedAt is the timestamp when the user was added to the group (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the database table name for the GroupUser model.
func (GroupUser) TableName() string {
	return "group_users"
}
