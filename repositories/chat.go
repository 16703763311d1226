package repositories

import (
	"chat-hub/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	chatPrefix   = "chat:"
	memberPrefix = "member:"
)

type IChatRepository interface {
	StoreChat(chat DiskChat) error
	StoreMembership(membership DiskMembership) error
	LoadChats() ([]DiskChat, error)
	LoadMemberships() ([]DiskMembership, error)
}

type ChatRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewChatRepository(db *badger.DB, log *slog.Logger) ChatRepository {
	return ChatRepository{db: db, log: log}
}

type DiskChat struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	IsGroup   bool      `json:"is_group"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DiskMembership struct {
	ChatID   string    `json:"chat_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

func (r ChatRepository) StoreChat(chat DiskChat) error {
	key := []byte(fmt.Sprintf("%s%s", chatPrefix, chat.ID))
	bytes, err := json.Marshal(chat)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, bytes)
	})
}

// StoreMembership writes under "member:{chat_id}:{user_id}", which makes the
// (chat, user) uniqueness constraint a plain key overwrite.
func (r ChatRepository) StoreMembership(membership DiskMembership) error {
	key := []byte(fmt.Sprintf("%s%s:%s", memberPrefix, membership.ChatID, membership.UserID))
	bytes, err := json.Marshal(membership)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, bytes)
	})
}

func (r ChatRepository) LoadChats() ([]DiskChat, error) {
	var res []DiskChat
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, chatPrefix, func(v []byte) error {
			var chat DiskChat
			if err := json.Unmarshal(v, &chat); err != nil {
				return err
			}
			res = append(res, chat)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r ChatRepository) LoadMemberships() ([]DiskMembership, error) {
	var res []DiskMembership
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, memberPrefix, func(v []byte) error {
			var membership DiskMembership
			if err := json.Unmarshal(v, &membership); err != nil {
				return err
			}
			res = append(res, membership)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func scanPrefix(txn *badger.Txn, prefix string, visit func(v []byte) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := it.Item().Value(visit); err != nil {
			return err
		}
	}
	return nil
}

func FromChat(c domain.Chat) DiskChat {
	return DiskChat{
		ID:        string(c.ID),
		Name:      c.Name,
		IsGroup:   c.IsGroup,
		Avatar:    c.Avatar,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func ToChat(c DiskChat) domain.Chat {
	return domain.Chat{
		ID:        domain.ChatID(c.ID),
		Name:      c.Name,
		IsGroup:   c.IsGroup,
		Avatar:    c.Avatar,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func FromMembership(m domain.Membership) DiskMembership {
	return DiskMembership{
		ChatID:   string(m.ChatID),
		UserID:   string(m.UserID),
		JoinedAt: m.JoinedAt.UTC(),
	}
}

func ToMembership(m DiskMembership) domain.Membership {
	return domain.Membership{
		ChatID:   domain.ChatID(m.ChatID),
		UserID:   domain.UserID(m.UserID),
		JoinedAt: m.JoinedAt,
	}
}
