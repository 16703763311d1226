package store

import (
	"chat-hub/domain"
	"sort"
)

// Empty reports whether the store holds no users at all, which is how the
// boot sequence decides to seed fixtures.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users) == 0
}

// Load rebuilds in-memory state from persisted records. No events are
// emitted: the loaded state already went through the pipeline once.
func (s *Store) Load(users []domain.User, chats []domain.Chat,
	memberships []domain.Membership, messages []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range users {
		u := users[i]
		s.users[u.ID] = &u
		s.usernames[u.Username] = u.ID
		if s.userChats[u.ID] == nil {
			s.userChats[u.ID] = make(map[domain.ChatID]struct{})
		}
	}
	for i := range chats {
		c := chats[i]
		s.chats[c.ID] = &c
		if s.members[c.ID] == nil {
			s.members[c.ID] = make(map[domain.UserID]domain.Membership)
		}
	}
	for _, m := range memberships {
		s.addMemberLocked(m.ChatID, m.UserID, m.JoinedAt)
	}

	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].Seq < messages[j].Seq
	})
	for i := range messages {
		m := messages[i]
		s.messages[m.ChatID] = append(s.messages[m.ChatID], &m)
		s.byID[m.ID] = &m
		if m.Seq > s.seq[m.ChatID] {
			s.seq[m.ChatID] = m.Seq
		}
		// Persisted chat records carry the creation-time stamp; the
		// recency position comes from the messages themselves.
		if chat, ok := s.chats[m.ChatID]; ok && m.CreatedAt.After(chat.UpdatedAt) {
			chat.UpdatedAt = m.CreatedAt
		}
	}
}
