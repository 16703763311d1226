package domain

import "time"

type ChatID string

// Chat is owned by the store. UpdatedAt advances exactly when a message
// is appended; the conversation list is ordered by it.
type Chat struct {
	ID        ChatID
	Name      string
	IsGroup   bool
	Avatar    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership is the join-table fact that a user belongs to a chat.
// Unique per (chat, user). It defines event visibility.
type Membership struct {
	ChatID   ChatID
	UserID   UserID
	JoinedAt time.Time
}
