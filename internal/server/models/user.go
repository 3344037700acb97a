// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered player. TeamID is nil until the user creates or
// joins a team.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	IsAdmin      bool
	TeamID       *string
	CreatedAt    time.Time
}
