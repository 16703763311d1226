// Package store is the single source of truth for users, chats, memberships
// and messages. All mutations go through it; everything else consumes either
// its read operations or the events it emits after a commit.
package store

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Censor rewrites forbidden content. Implemented by moderation.Moderator.
type Censor interface {
	Censor(original string) (string, []string)
}

type Store struct {
	mu        sync.RWMutex
	log       *slog.Logger
	users     map[domain.UserID]*domain.User
	usernames map[string]domain.UserID
	chats     map[domain.ChatID]*domain.Chat
	members   map[domain.ChatID]map[domain.UserID]domain.Membership
	userChats map[domain.UserID]map[domain.ChatID]struct{}
	messages  map[domain.ChatID][]*domain.Message
	byID      map[domain.MessageID]*domain.Message
	seq       map[domain.ChatID]uint64

	events    chan<- event.DomainEvent
	moderator Censor

	// now is swappable for deterministic tests
	now func() time.Time
}

func NewStore(log *slog.Logger, events chan<- event.DomainEvent) *Store {
	return &Store{
		log:       log,
		users:     make(map[domain.UserID]*domain.User),
		usernames: make(map[string]domain.UserID),
		chats:     make(map[domain.ChatID]*domain.Chat),
		members:   make(map[domain.ChatID]map[domain.UserID]domain.Membership),
		userChats: make(map[domain.UserID]map[domain.ChatID]struct{}),
		messages:  make(map[domain.ChatID][]*domain.Message),
		byID:      make(map[domain.MessageID]*domain.Message),
		seq:       make(map[domain.ChatID]uint64),
		events:    events,
		now:       time.Now,
	}
}

// WithModerator installs a censor pass applied to message content before
// commit, so stored content and fanned-out content are identical.
func (s *Store) WithModerator(m Censor) *Store {
	s.moderator = m
	return s
}

// emit never blocks the write path. A full channel means the fan-out side
// is saturated; delivery is at-most-once so the event is dropped with a log.
func (s *Store) emit(e event.DomainEvent) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- e:
	default:
		s.log.Warn("Event channel full, dropping event", "event", e.Name())
	}
}

type NewUser struct {
	Username     string
	DisplayName  string
	Avatar       string
	PasswordHash string
}

func (s *Store) CreateUser(fields NewUser) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usernames[fields.Username]; taken {
		return domain.User{}, fmt.Errorf("create user %q: %w", fields.Username, errors.ErrUsernameTaken)
	}
	user := &domain.User{
		ID:           domain.UserID(uuid.NewString()),
		Username:     fields.Username,
		DisplayName:  fields.DisplayName,
		Avatar:       fields.Avatar,
		PasswordHash: fields.PasswordHash,
		LastSeen:     s.now().UTC(),
	}
	s.users[user.ID] = user
	s.usernames[user.Username] = user.ID
	s.userChats[user.ID] = make(map[domain.ChatID]struct{})
	s.emit(event.UserRegistered{User: *user})
	return *user, nil
}

func (s *Store) GetUser(id domain.UserID) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, errors.ErrUserNotFound
	}
	return *user, nil
}

func (s *Store) GetUserByUsername(username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernames[username]
	if !ok {
		return domain.User{}, errors.ErrUserNotFound
	}
	return *s.users[id], nil
}

func (s *Store) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		res = append(res, *u)
	}
	return res
}

// SetPresence flips the online flag and stamps last-seen on the transition
// to offline. The emitted event carries the audience (the user's chats) so
// the broker never has to reach back into the store.
func (s *Store) SetPresence(userID domain.UserID, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return errors.ErrUserNotFound
	}
	user.IsOnline = online
	if !online {
		user.LastSeen = s.now().UTC()
	}
	s.emit(event.PresenceChanged{
		User:     userID,
		IsOnline: online,
		LastSeen: user.LastSeen,
		Audience: s.chatsOfLocked(userID),
	})
	return nil
}

type NewChat struct {
	Name    string
	IsGroup bool
	Avatar  string
	Members []domain.UserID
}

func (s *Store) CreateChat(fields NewChat) (domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, userID := range fields.Members {
		if _, ok := s.users[userID]; !ok {
			return domain.Chat{}, fmt.Errorf("create chat: member %s: %w", userID, errors.ErrUserNotFound)
		}
	}

	createdAt := s.now().UTC()
	chat := &domain.Chat{
		ID:        domain.ChatID(uuid.NewString()),
		Name:      fields.Name,
		IsGroup:   fields.IsGroup,
		Avatar:    fields.Avatar,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	s.chats[chat.ID] = chat
	s.members[chat.ID] = make(map[domain.UserID]domain.Membership)
	for _, userID := range fields.Members {
		s.addMemberLocked(chat.ID, userID, createdAt)
	}
	s.emit(event.ChatCreated{Chat: *chat, Members: fields.Members})
	return *chat, nil
}

func (s *Store) GetChat(id domain.ChatID) (domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[id]
	if !ok {
		return domain.Chat{}, errors.ErrChatNotFound
	}
	return *chat, nil
}

// ListChatsForUser returns every chat the user belongs to, most recently
// active first. Ties on UpdatedAt break by chat id so the order is stable.
func (s *Store) ListChatsForUser(userID domain.UserID) []domain.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []domain.Chat
	for chatID := range s.userChats[userID] {
		res = append(res, *s.chats[chatID])
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].UpdatedAt.Equal(res[j].UpdatedAt) {
			return res[i].UpdatedAt.After(res[j].UpdatedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res
}

func (s *Store) AddMember(chatID domain.ChatID, userID domain.UserID) (domain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[chatID]; !ok {
		return domain.Membership{}, errors.ErrChatNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return domain.Membership{}, errors.ErrUserNotFound
	}
	if _, ok := s.members[chatID][userID]; ok {
		return domain.Membership{}, fmt.Errorf("add member %s to %s: %w", userID, chatID, errors.ErrAlreadyMember)
	}
	membership := s.addMemberLocked(chatID, userID, s.now().UTC())
	s.emit(event.MemberAdded{Chat: chatID, User: userID, JoinedAt: membership.JoinedAt})
	return membership, nil
}

func (s *Store) addMemberLocked(chatID domain.ChatID, userID domain.UserID, joinedAt time.Time) domain.Membership {
	membership := domain.Membership{ChatID: chatID, UserID: userID, JoinedAt: joinedAt}
	if s.members[chatID] == nil {
		s.members[chatID] = make(map[domain.UserID]domain.Membership)
	}
	s.members[chatID][userID] = membership
	if s.userChats[userID] == nil {
		s.userChats[userID] = make(map[domain.ChatID]struct{})
	}
	s.userChats[userID][chatID] = struct{}{}
	return membership
}

func (s *Store) IsMember(chatID domain.ChatID, userID domain.UserID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[chatID][userID]
	return ok
}

func (s *Store) Members(chatID domain.ChatID) []domain.Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []domain.Membership
	for _, m := range s.members[chatID] {
		res = append(res, m)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UserID < res[j].UserID })
	return res
}

// ChatsOf returns the chat ids the user has a membership in.
func (s *Store) ChatsOf(userID domain.UserID) []domain.ChatID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatsOfLocked(userID)
}

func (s *Store) chatsOfLocked(userID domain.UserID) []domain.ChatID {
	var res []domain.ChatID
	for chatID := range s.userChats[userID] {
		res = append(res, chatID)
	}
	return res
}

type AppendMessage struct {
	ChatID   domain.ChatID
	SenderID domain.UserID
	Content  string
	Kind     domain.MessageKind
	Metadata map[string]any
}

// Append commits a message or has no effect. It is the single write path
// for messages: the store lock serializes appends, so sequence numbers are
// gap-free and strictly increasing per chat. The event is emitted after the
// commit and fan-out happens elsewhere, so append latency does not depend
// on the number of live connections.
func (s *Store) Append(params AppendMessage) (domain.Message, error) {
	if params.Content == "" || !domain.KnownKind(params.Kind) {
		return domain.Message{}, errors.ErrInvalidPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[params.ChatID]
	if !ok {
		return domain.Message{}, errors.ErrChatNotFound
	}
	if _, ok := s.users[params.SenderID]; !ok {
		return domain.Message{}, errors.ErrUserNotFound
	}
	if _, ok := s.members[params.ChatID][params.SenderID]; !ok {
		return domain.Message{}, fmt.Errorf("append to %s: %w", params.ChatID, errors.ErrNotMember)
	}

	content := params.Content
	if s.moderator != nil {
		censored, found := s.moderator.Censor(content)
		if len(found) > 0 {
			s.log.Debug("Message censored", "chat", params.ChatID, "words", len(found))
		}
		content = censored
	}

	s.seq[params.ChatID]++
	message := &domain.Message{
		ID:        domain.NewMessageID(),
		ChatID:    params.ChatID,
		SenderID:  params.SenderID,
		Content:   content,
		Kind:      params.Kind,
		Metadata:  cloneMetadata(params.Metadata),
		Seq:       s.seq[params.ChatID],
		CreatedAt: s.now().UTC(),
	}
	s.messages[params.ChatID] = append(s.messages[params.ChatID], message)
	s.byID[message.ID] = message
	chat.UpdatedAt = message.CreatedAt

	s.emit(event.MessageAppended{Chat: params.ChatID, Message: copyMessage(message)})
	return copyMessage(message), nil
}

// ListMessages returns up to limit messages in ascending creation order.
// With a nil cursor it returns the latest page; otherwise the page strictly
// before the cursor position. The returned cursor points at the oldest
// message of the page, or is nil when history is exhausted. Because cursors
// encode a (timestamp, sequence) position, pages never skip or repeat
// entries when new messages arrive between calls.
func (s *Store) ListMessages(chatID domain.ChatID, cursor *string, limit int) ([]domain.Message, *string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.chats[chatID]; !ok {
		return nil, nil, errors.ErrChatNotFound
	}
	all := s.messages[chatID]
	end := len(all)
	if cursor != nil {
		position, err := decodeCursor(*cursor)
		if err != nil {
			return nil, nil, err
		}
		// First index at or after the cursor position; everything
		// before it is the older history.
		end = sort.Search(len(all), func(i int) bool {
			return !position.after(all[i].CreatedAt, all[i].Seq)
		})
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	page := make([]domain.Message, 0, end-start)
	for _, m := range all[start:end] {
		page = append(page, copyMessage(m))
	}
	if len(page) == 0 || start == 0 {
		return page, nil, nil
	}
	next := encodeCursor(page[0].CreatedAt, page[0].Seq)
	return page, &next, nil
}

func (s *Store) GetMessage(id domain.MessageID) (domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	message, ok := s.byID[id]
	if !ok {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	return copyMessage(message), nil
}

// LastMessage returns the newest message of a chat, if any.
func (s *Store) LastMessage(chatID domain.ChatID) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.messages[chatID]
	if len(all) == 0 {
		return domain.Message{}, false
	}
	return copyMessage(all[len(all)-1]), true
}

// MarkRead adds the user to the message read-set. The read-set is a
// monotonic union: the call is idempotent and silently ignores unknown
// messages, read receipts being best-effort.
func (s *Store) MarkRead(messageID domain.MessageID, userID domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.byID[messageID]
	if !ok {
		return
	}
	if message.IsReadBy(userID) {
		return
	}
	message.ReadBy = append(message.ReadBy, userID)
	s.emit(event.MessageRead{
		Chat:    message.ChatID,
		Message: message.ID,
		Seq:     message.Seq,
		User:    userID,
	})
}

const defaultPageSize = 50

// copyMessage detaches the read-set and metadata so callers never alias
// store state.
func copyMessage(m *domain.Message) domain.Message {
	c := *m
	if m.ReadBy != nil {
		c.ReadBy = append([]domain.UserID(nil), m.ReadBy...)
	}
	c.Metadata = cloneMetadata(m.Metadata)
	return c
}

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	return maps.Clone(metadata)
}
