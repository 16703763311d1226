package event

import (
	"chat-hub/domain"
	"time"
)

type DomainEvent interface {
	Name() string
}

// MessageAppended is raised by the store after a message fully commits.
type MessageAppended struct {
	Chat    domain.ChatID
	Message domain.Message
}

func (MessageAppended) Name() string { return "message-appended" }

// TypingChanged is raised by the typing coordinator on state transitions
// only, never on every signal.
type TypingChanged struct {
	Chat     domain.ChatID
	User     domain.UserID
	IsTyping bool
	At       time.Time
}

func (TypingChanged) Name() string { return "typing-changed" }

// PresenceChanged is raised on actual online/offline transitions.
// Audience lists the chats whose subscribers should see the change,
// resolved from the user's memberships at emission time.
type PresenceChanged struct {
	User     domain.UserID
	IsOnline bool
	LastSeen time.Time
	Audience []domain.ChatID
}

func (PresenceChanged) Name() string { return "presence-changed" }

// UserRegistered is consumed by persistence sinks only.
type UserRegistered struct {
	User domain.User
}

func (UserRegistered) Name() string { return "user-registered" }

type ChatCreated struct {
	Chat    domain.Chat
	Members []domain.UserID
}

func (ChatCreated) Name() string { return "chat-created" }

type MemberAdded struct {
	Chat     domain.ChatID
	User     domain.UserID
	JoinedAt time.Time
}

func (MemberAdded) Name() string { return "member-added" }

// MessageRead is consumed by persistence sinks only; read receipts do not
// fan out to connections.
type MessageRead struct {
	Chat    domain.ChatID
	Message domain.MessageID
	Seq     uint64
	User    domain.UserID
}

func (MessageRead) Name() string { return "message-read" }
