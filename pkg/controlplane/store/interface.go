// Package store provides the control plane persistence layer.
//
// It manages users, groups, live sessions, farm ownership, and file access
// edges. Two backends are supported:
//   - SQLite (single-node, default)
//   - PostgreSQL
package store

import (
	"context"

	"github.com/BinaryCat17/RapidServer/pkg/controlplane/models"
)

// Store provides the control plane persistence interface.
//
// Implementations must be safe for concurrent use from multiple goroutines:
// every open socket has its own reader goroutine driving these operations.
type Store interface {
	// ============================================
	// USER OPERATIONS
	// ============================================

	// GetUser returns a user by name, with group memberships preloaded.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	GetUser(ctx context.Context, name string) (*models.User, error)

	// GetUserByID returns a user by primary key, with group memberships
	// preloaded. Returns models.ErrUserNotFound if no user has this ID.
	GetUserByID(ctx context.Context, id uint) (*models.User, error)

	// ListUsers returns all users.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// CreateUser creates a new user with the given name and plaintext
	// password; the password is hashed before it is stored. Returns the
	// new user's ID, or models.ErrDuplicateUser if the name is taken.
	CreateUser(ctx context.Context, name, password string) (uint, error)

	// DeleteUser deletes a user by name along with its group memberships.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	DeleteUser(ctx context.Context, name string) error

	// UpdatePassword replaces a user's password.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	UpdatePassword(ctx context.Context, name, password string) error

	// ValidateCredentials verifies name/password credentials and returns
	// the user on success. Returns models.ErrInvalidCredentials for an
	// unknown name or a wrong password.
	ValidateCredentials(ctx context.Context, name, password string) (*models.User, error)

	// ============================================
	// GROUP OPERATIONS
	// ============================================

	// GetGroup returns a group by name.
	// Returns models.ErrGroupNotFound if the group doesn't exist.
	GetGroup(ctx context.Context, name string) (*models.Group, error)

	// EnsureGroup creates a group if it does not exist and returns it.
	EnsureGroup(ctx context.Context, name string) (*models.Group, error)

	// AddUserToGroup adds a user to a group. Returns false without error
	// if the user is already a member.
	AddUserToGroup(ctx context.Context, userID uint, groupName string) (bool, error)

	// IsUserInGroup reports whether the user belongs to the named group.
	IsUserInGroup(ctx context.Context, userID uint, groupName string) (bool, error)

	// EnsureDefaultGroups provisions the well-known groups.
	// Returns true if any group was created.
	EnsureDefaultGroups(ctx context.Context) (bool, error)

	// ============================================
	// SESSION OPERATIONS
	// ============================================

	// CreateSession issues a new session token for the user and returns
	// its ID.
	CreateSession(ctx context.Context, userID uint) (uint, error)

	// DeleteSession removes a session.
	// Returns models.ErrSessionNotFound if it doesn't exist.
	DeleteSession(ctx context.Context, sessionID uint) error

	// SessionUser returns the user ID a session belongs to.
	// Returns models.ErrSessionNotFound if it doesn't exist.
	SessionUser(ctx context.Context, sessionID uint) (uint, error)

	// UserSessions returns the live sessions of a user, oldest first.
	UserSessions(ctx context.Context, userID uint) ([]*models.Session, error)

	// ListSessions returns all live sessions.
	ListSessions(ctx context.Context) ([]*models.Session, error)

	// PurgeSessions removes every session row. Called at startup: sessions
	// are only meaningful while their socket is open.
	PurgeSessions(ctx context.Context) error

	// ============================================
	// FARM OPERATIONS
	// ============================================

	// CreateFarm provisions a farm device for an owner in one transaction:
	// it creates the farm user account (name per models.FarmUsername),
	// links it to the owner, and adds it to the farm group. Returns the
	// farm user's ID. Returns models.ErrDuplicateUser if the farm user
	// already exists and models.ErrDuplicateFarm if the owner already has
	// a farm.
	CreateFarm(ctx context.Context, ownerID uint, farmID, password string) (uint, error)

	// LinkFarm records ownership of an existing farm user.
	// Returns models.ErrDuplicateFarm if the owner already has a farm.
	LinkFarm(ctx context.Context, ownerID, farmUserID uint) error

	// OwnedFarm returns the farm owned by a user.
	// Returns models.ErrFarmNotFound if the user owns none.
	OwnedFarm(ctx context.Context, ownerID uint) (*models.Farm, error)

	// FarmOwner returns the owner binding for a farm user.
	// Returns models.ErrFarmNotFound if the farm user is not linked.
	FarmOwner(ctx context.Context, farmUserID uint) (*models.Farm, error)

	// ============================================
	// FILE ACCESS OPERATIONS
	// ============================================

	// RegisterFile records a UI asset path and returns its ID; an already
	// registered path returns the existing ID.
	RegisterFile(ctx context.Context, path string) (uint, error)

	// GrantUserFileAccess grants a user read access to a file.
	GrantUserFileAccess(ctx context.Context, userID, fileID uint) error

	// GrantGroupFileAccess grants a group read access to a file.
	GrantGroupFileAccess(ctx context.Context, groupID, fileID uint) error

	// CanReadFile reports whether the user can read the file, either
	// directly or through one of its groups.
	CanReadFile(ctx context.Context, userID, fileID uint) (bool, error)

	// Close releases the underlying database connection.
	Close() error
}

var _ Store = (*GORMStore)(nil)
