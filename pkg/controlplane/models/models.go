// Package models defines the control plane data model: users, groups,
// sessions, farm ownership, and file access edges.
package models

// AllModels returns every model registered for schema migration.
// Used by the store's AutoMigrate call.
func AllModels() []any {
	return []any{
		&User{},
		&Group{},
		&Session{},
		&Farm{},
		&File{},
		&FileAccessGroup{},
		&FileAccessUser{},
	}
}
