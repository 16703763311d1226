//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-hub/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const messagePrefix = "msg:"

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	UpdateReadBy(chatID domain.ChatID, seq uint64, id domain.MessageID, userID domain.UserID) error
	LoadAll() ([]DiskMessage, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

type DiskMessage struct {
	ID        string         `json:"id"`
	ChatID    string         `json:"chat_id"`
	SenderID  string         `json:"sender_id"`
	Content   string         `json:"content"`
	Kind      string         `json:"kind"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Seq       uint64         `json:"seq"`
	CreatedAt time.Time      `json:"created_at"`
	ReadBy    []string       `json:"read_by,omitempty"`
}

// messageKey is formatted as "msg:{chat_id}:{seq_padded}:{message_id}".
// The 19-digit zero padding keeps lexicographical order equal to the
// per-chat append order, so prefix scans come back chronologically.
func messageKey(chatID domain.ChatID, seq uint64, id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", messagePrefix, chatID, seq, id))
}

func (r MessageRepository) StoreMessage(message DiskMessage) error {
	key := messageKey(domain.ChatID(message.ChatID), message.Seq, domain.MessageID(message.ID))
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, bytes)
	})
}

// UpdateReadBy rewrites the stored record with the grown read-set. The
// read-modify-write happens inside one badger transaction; the add is
// idempotent so replaying it is harmless.
func (r MessageRepository) UpdateReadBy(chatID domain.ChatID, seq uint64,
	id domain.MessageID, userID domain.UserID) error {
	key := messageKey(chatID, seq, id)
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var message DiskMessage
		if err := item.Value(func(v []byte) error {
			return json.Unmarshal(v, &message)
		}); err != nil {
			return err
		}
		for _, existing := range message.ReadBy {
			if existing == string(userID) {
				return nil
			}
		}
		message.ReadBy = append(message.ReadBy, string(userID))
		bytes, err := json.Marshal(message)
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
}

// LoadAll scans the whole message keyspace, used once at boot to rebuild
// the in-memory store.
func (r MessageRepository) LoadAll() ([]DiskMessage, error) {
	var res []DiskMessage
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(messagePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var message DiskMessage
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &message)
			})
			if err != nil {
				return err
			}
			res = append(res, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func FromMessage(m domain.Message) DiskMessage {
	readBy := make([]string, 0, len(m.ReadBy))
	for _, id := range m.ReadBy {
		readBy = append(readBy, string(id))
	}
	return DiskMessage{
		ID:        string(m.ID),
		ChatID:    string(m.ChatID),
		SenderID:  string(m.SenderID),
		Content:   m.Content,
		Kind:      string(m.Kind),
		Metadata:  m.Metadata,
		Seq:       m.Seq,
		CreatedAt: m.CreatedAt.UTC(),
		ReadBy:    readBy,
	}
}

func ToMessage(m DiskMessage) domain.Message {
	readBy := make([]domain.UserID, 0, len(m.ReadBy))
	for _, id := range m.ReadBy {
		readBy = append(readBy, domain.UserID(id))
	}
	if len(readBy) == 0 {
		readBy = nil
	}
	return domain.Message{
		ID:        domain.MessageID(m.ID),
		ChatID:    domain.ChatID(m.ChatID),
		SenderID:  domain.UserID(m.SenderID),
		Content:   m.Content,
		Kind:      domain.MessageKind(m.Kind),
		Metadata:  m.Metadata,
		Seq:       m.Seq,
		CreatedAt: m.CreatedAt,
		ReadBy:    readBy,
	}
}
