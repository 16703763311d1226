// Package projection builds read-side views from observed events.
// Views are caches: they can always be rebuilt from store state and are
// never mutated directly by callers.
package projection

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/store"
	"context"
	"sort"
	"sync"
)

// ConversationIndex keeps per-user chat lists ordered by activity and a
// last-message cache per chat, so the conversation screen never rescans
// the store.
type ConversationIndex struct {
	mu          sync.RWMutex
	chats       map[domain.ChatID]domain.Chat
	members     map[domain.ChatID][]domain.UserID
	userChats   map[domain.UserID][]domain.ChatID
	lastMessage map[domain.ChatID]domain.Message
}

func NewConversationIndex() *ConversationIndex {
	return &ConversationIndex{
		chats:       make(map[domain.ChatID]domain.Chat),
		members:     make(map[domain.ChatID][]domain.UserID),
		userChats:   make(map[domain.UserID][]domain.ChatID),
		lastMessage: make(map[domain.ChatID]domain.Message),
	}
}

func (x *ConversationIndex) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.ChatCreated:
		x.mu.Lock()
		x.chats[evt.Chat.ID] = evt.Chat
		for _, userID := range evt.Members {
			x.addMemberLocked(evt.Chat.ID, userID)
		}
		x.mu.Unlock()
	case event.MemberAdded:
		x.mu.Lock()
		x.addMemberLocked(evt.Chat, evt.User)
		x.mu.Unlock()
	case event.MessageAppended:
		x.mu.Lock()
		if chat, ok := x.chats[evt.Chat]; ok {
			chat.UpdatedAt = evt.Message.CreatedAt
			x.chats[evt.Chat] = chat
		}
		x.lastMessage[evt.Chat] = evt.Message
		for _, userID := range x.members[evt.Chat] {
			x.moveToFrontLocked(userID, evt.Chat)
		}
		x.mu.Unlock()
	}
	return nil
}

// ChatsForUser returns the user's chats, most recently active first.
func (x *ConversationIndex) ChatsForUser(userID domain.UserID) []domain.Chat {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ids := x.userChats[userID]
	res := make([]domain.Chat, 0, len(ids))
	for _, chatID := range ids {
		res = append(res, x.chats[chatID])
	}
	return res
}

func (x *ConversationIndex) LastMessage(chatID domain.ChatID) (domain.Message, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	message, ok := x.lastMessage[chatID]
	return message, ok
}

// Rebuild replays store state from scratch, proving the index is derived,
// never authoritative. Used at boot after the store has been loaded.
func (x *ConversationIndex) Rebuild(s *store.Store) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.chats = make(map[domain.ChatID]domain.Chat)
	x.members = make(map[domain.ChatID][]domain.UserID)
	x.userChats = make(map[domain.UserID][]domain.ChatID)
	x.lastMessage = make(map[domain.ChatID]domain.Message)

	for _, user := range s.Users() {
		chats := s.ListChatsForUser(user.ID)
		ids := make([]domain.ChatID, 0, len(chats))
		for _, chat := range chats {
			ids = append(ids, chat.ID)
			x.chats[chat.ID] = chat
			if last, ok := s.LastMessage(chat.ID); ok {
				x.lastMessage[chat.ID] = last
			}
			x.members[chat.ID] = appendUnique(x.members[chat.ID], user.ID)
		}
		x.userChats[user.ID] = ids
	}
}

func (x *ConversationIndex) addMemberLocked(chatID domain.ChatID, userID domain.UserID) {
	x.members[chatID] = appendUnique(x.members[chatID], userID)
	for _, existing := range x.userChats[userID] {
		if existing == chatID {
			return
		}
	}
	x.userChats[userID] = append(x.userChats[userID], chatID)
	x.sortUserChatsLocked(userID)
}

// moveToFrontLocked is the common path: a fresh message makes its chat the
// most recently active one, no full re-sort needed.
func (x *ConversationIndex) moveToFrontLocked(userID domain.UserID, chatID domain.ChatID) {
	ids := x.userChats[userID]
	for i, existing := range ids {
		if existing != chatID {
			continue
		}
		copy(ids[1:i+1], ids[:i])
		ids[0] = chatID
		return
	}
}

func (x *ConversationIndex) sortUserChatsLocked(userID domain.UserID) {
	ids := x.userChats[userID]
	sort.Slice(ids, func(i, j int) bool {
		a, b := x.chats[ids[i]], x.chats[ids[j]]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
}

func appendUnique(ids []domain.UserID, id domain.UserID) []domain.UserID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
