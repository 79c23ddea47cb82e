package models

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// FarmUserPrefix is prepended to a farm's external identifier to form the
// username its credentials are stored under. A device provisioned as "F01"
// authenticates as "farm_F01".
const FarmUserPrefix = "farm_"

// User represents an authenticated principal: either a human operator or a
// farm device. Farm devices are ordinary users distinguished by membership
// in the well-known "farm" group.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	Groups []Group `gorm:"many2many:user_group;" json:"groups,omitempty"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// FarmUsername builds the username a farm device's credentials are stored
// under from its external identifier.
func FarmUsername(farmID string) string {
	return FarmUserPrefix + farmID
}

// ExternalFarmID returns the external farm identifier for a farm username,
// or false if the name does not carry the farm prefix.
func ExternalFarmID(username string) (string, bool) {
	id, ok := strings.CutPrefix(username, FarmUserPrefix)
	return id, ok
}

// HasGroup checks if the user belongs to the specified group.
// Requires Groups to be preloaded.
func (u *User) HasGroup(groupName string) bool {
	for _, g := range u.Groups {
		if g.Name == groupName {
			return true
		}
	}
	return false
}

// GroupNames returns the names of the groups the user belongs to.
func (u *User) GroupNames() []string {
	names := make([]string, len(u.Groups))
	for i, g := range u.Groups {
		names[i] = g.Name
	}
	return names
}

// Validate checks if the user has valid configuration.
func (u *User) Validate() error {
	if u.Name == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
