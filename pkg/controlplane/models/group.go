package models

import (
	"fmt"
	"time"
)

// GroupFarm is the well-known group marking a user as a farm device.
// It is provisioned at startup and consulted on every sign-in and on the
// farm-origin routing path.
const GroupFarm = "farm"

// Group organizes users. Membership lives in the user_group join table.
type Group struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Users []User `gorm:"many2many:user_group;" json:"users,omitempty"`
}

// TableName returns the table name for Group.
func (Group) TableName() string {
	return "groups"
}

// Validate checks if the group has valid configuration.
func (g *Group) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("group name is required")
	}
	return nil
}

// WellKnownGroups are provisioned by EnsureDefaultGroups at startup.
var WellKnownGroups = []string{
	GroupFarm,
}
