// This file defines Message entities and related rules.
// Messages are immutable once appended, except for the read-set
// which only grows.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageID string

type MessageKind string

const (
	KindText     MessageKind = "text"
	KindImage    MessageKind = "image"
	KindDocument MessageKind = "document"
	KindLink     MessageKind = "link"
)

// KnownKind reports whether k is one of the supported message kinds.
func KnownKind(k MessageKind) bool {
	switch k {
	case KindText, KindImage, KindDocument, KindLink:
		return true
	}
	return false
}

// Message represents an immutable chat event. Seq is assigned by the store
// and is strictly increasing with no gaps within a chat; it breaks ordering
// ties between messages created at the same instant.
type Message struct {
	ID        MessageID
	ChatID    ChatID
	SenderID  UserID
	Content   string
	Kind      MessageKind
	Metadata  map[string]any
	Seq       uint64
	CreatedAt time.Time
	ReadBy    []UserID
}

func NewMessageID() MessageID {
	return MessageID(uuid.NewString())
}

// IsReadBy reports whether the user is already in the read-set.
func (m *Message) IsReadBy(userID UserID) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
