package models

import "errors"

// Common errors for identity and control plane operations.
var (
	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Group errors
	ErrGroupNotFound  = errors.New("group not found")
	ErrDuplicateGroup = errors.New("group already exists")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Farm errors
	ErrFarmNotFound  = errors.New("farm not found")
	ErrDuplicateFarm = errors.New("farm already exists")

	// File errors
	ErrFileNotFound = errors.New("file not found")
)
