// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type UserID string

// User is never hard-deleted. Presence fields are the only mutable part
// and are owned by the presence tracker.
type User struct {
	ID           UserID
	Username     string
	DisplayName  string
	Avatar       string
	PasswordHash string
	IsOnline     bool
	LastSeen     time.Time
}
