package repositories

import (
	"chat-hub/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const userPrefix = "user:"

type IUserRepository interface {
	StoreUser(user DiskUser) error
	UpdateLastSeen(id domain.UserID, lastSeen time.Time) error
	LoadAll() ([]DiskUser, error)
}

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) UserRepository {
	return UserRepository{db: db, log: log}
}

type DiskUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Avatar       string    `json:"avatar,omitempty"`
	PasswordHash string    `json:"password_hash"`
	LastSeen     time.Time `json:"last_seen"`
}

func (r UserRepository) StoreUser(user DiskUser) error {
	key := []byte(fmt.Sprintf("%s%s", userPrefix, user.ID))
	bytes, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, bytes)
	})
}

// UpdateLastSeen rewrites the stored record with the new last-seen stamp.
// Unknown users are ignored: presence persistence is best-effort.
func (r UserRepository) UpdateLastSeen(id domain.UserID, lastSeen time.Time) error {
	key := []byte(fmt.Sprintf("%s%s", userPrefix, id))
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var user DiskUser
		if err := item.Value(func(v []byte) error {
			return json.Unmarshal(v, &user)
		}); err != nil {
			return err
		}
		user.LastSeen = lastSeen.UTC()
		bytes, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
}

func (r UserRepository) LoadAll() ([]DiskUser, error) {
	var res []DiskUser
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(userPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user DiskUser
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &user)
			})
			if err != nil {
				return err
			}
			res = append(res, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func FromUser(u domain.User) DiskUser {
	return DiskUser{
		ID:           string(u.ID),
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		Avatar:       u.Avatar,
		PasswordHash: u.PasswordHash,
		LastSeen:     u.LastSeen.UTC(),
	}
}

func ToUser(u DiskUser) domain.User {
	return domain.User{
		ID:           domain.UserID(u.ID),
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		Avatar:       u.Avatar,
		PasswordHash: u.PasswordHash,
		LastSeen:     u.LastSeen,
	}
}
