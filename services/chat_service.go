package services

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/presence"
	"chat-hub/projection"
	"chat-hub/search"
	"chat-hub/store"
	"chat-hub/typing"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

type IChatService interface {
	ListChats(userID domain.UserID) ([]ChatSummary, error)
	CreateChat(creatorID domain.UserID, fields store.NewChat) (domain.Chat, error)
	AddMember(callerID domain.UserID, chatID domain.ChatID, userID domain.UserID) (domain.Membership, error)
	ListMessages(chatID domain.ChatID, userID domain.UserID, cursor *string, limit int) ([]domain.Message, *string, error)
	PostMessage(params store.AppendMessage) (domain.Message, error)
	SearchMessages(ctx context.Context, chatID domain.ChatID, userID domain.UserID, terms string, limit int) ([]search.Hit, error)
	MarkRead(messageID domain.MessageID, userID domain.UserID) error
	Typing(chatID domain.ChatID, userID domain.UserID, isTyping bool) error
	Connect(connID string, userID domain.UserID, sink contract.EventSink)
	Disconnect(connID string, userID domain.UserID)
}

// ChatSummary is what the conversation list renders: the chat, its
// members, and the newest message if any.
type ChatSummary struct {
	Chat        domain.Chat
	Members     []domain.User
	LastMessage *domain.Message
}

type ChatService struct {
	log      *slog.Logger
	store    *store.Store
	index    *projection.ConversationIndex
	search   *search.MessageIndex
	presence *presence.Tracker
	typing   *typing.Coordinator
	registry contract.IRegistry
	stats    *observability.Stats
}

func NewChatService(
	log *slog.Logger,
	s *store.Store,
	index *projection.ConversationIndex,
	searchIndex *search.MessageIndex,
	tracker *presence.Tracker,
	coordinator *typing.Coordinator,
	registry contract.IRegistry,
	stats *observability.Stats,
) *ChatService {
	return &ChatService{
		log:      log,
		store:    s,
		index:    index,
		search:   searchIndex,
		presence: tracker,
		typing:   coordinator,
		registry: registry,
		stats:    stats,
	}
}

// ListChats reads from the conversation projection, ordered by most
// recent activity.
func (s *ChatService) ListChats(userID domain.UserID) ([]ChatSummary, error) {
	if _, err := s.store.GetUser(userID); err != nil {
		return nil, err
	}

	chats := s.index.ChatsForUser(userID)
	return lo.Map(chats, func(c domain.Chat, _ int) ChatSummary {
		summary := ChatSummary{Chat: c}
		if last, ok := s.index.LastMessage(c.ID); ok {
			summary.LastMessage = &last
		}
		for _, m := range s.store.Members(c.ID) {
			if user, err := s.store.GetUser(m.UserID); err == nil {
				summary.Members = append(summary.Members, user)
			}
		}
		return summary
	}), nil
}

func (s *ChatService) CreateChat(creatorID domain.UserID, fields store.NewChat) (domain.Chat, error) {
	if !lo.Contains(fields.Members, creatorID) {
		fields.Members = append(fields.Members, creatorID)
	}
	if fields.IsGroup && fields.Name == "" {
		return domain.Chat{}, errors.ErrInvalidPayload
	}
	return s.store.CreateChat(fields)
}

func (s *ChatService) AddMember(callerID domain.UserID, chatID domain.ChatID, userID domain.UserID) (domain.Membership, error) {
	if !s.store.IsMember(chatID, callerID) {
		return domain.Membership{}, errors.ErrNotMember
	}
	return s.store.AddMember(chatID, userID)
}

func (s *ChatService) ListMessages(chatID domain.ChatID, userID domain.UserID,
	cursor *string, limit int) ([]domain.Message, *string, error) {
	if _, err := s.store.GetChat(chatID); err != nil {
		return nil, nil, err
	}
	if !s.store.IsMember(chatID, userID) {
		return nil, nil, errors.ErrNotMember
	}
	return s.store.ListMessages(chatID, cursor, limit)
}

func (s *ChatService) PostMessage(params store.AppendMessage) (domain.Message, error) {
	if err := validateMetadata(params.Kind, params.Metadata); err != nil {
		return domain.Message{}, err
	}
	return s.store.Append(params)
}

func (s *ChatService) SearchMessages(ctx context.Context, chatID domain.ChatID,
	userID domain.UserID, terms string, limit int) ([]search.Hit, error) {
	if _, err := s.store.GetChat(chatID); err != nil {
		return nil, err
	}
	if !s.store.IsMember(chatID, userID) {
		return nil, errors.ErrNotMember
	}
	return s.search.Search(ctx, chatID, terms, limit)
}

func (s *ChatService) MarkRead(messageID domain.MessageID, userID domain.UserID) error {
	message, err := s.store.GetMessage(messageID)
	if err != nil {
		return err
	}
	if !s.store.IsMember(message.ChatID, userID) {
		return errors.ErrNotMember
	}
	s.store.MarkRead(messageID, userID)
	return nil
}

func (s *ChatService) Typing(chatID domain.ChatID, userID domain.UserID, isTyping bool) error {
	if !s.store.IsMember(chatID, userID) {
		return errors.ErrNotMember
	}
	s.typing.Signal(chatID, userID, isTyping)
	return nil
}

// Connect registers a live connection for push delivery. Interest covers
// every chat the user belongs to at subscription time; later memberships
// are widened by the fan-out worker.
func (s *ChatService) Connect(connID string, userID domain.UserID, sink contract.EventSink) {
	s.registry.Subscribe(connID, userID, s.store.ChatsOf(userID), sink)
	s.presence.Connect(userID)
	s.stats.ConnOpened()
}

// Disconnect tears a connection down. Typing flags are released only when
// the last connection closes, so one tab closing does not cancel another.
func (s *ChatService) Disconnect(connID string, userID domain.UserID) {
	s.registry.Unsubscribe(connID)
	s.presence.Disconnect(userID)
	s.stats.ConnClosed()
	if s.registry.Connections(userID) == 0 {
		s.typing.Release(userID)
	}
}

// validateMetadata enforces the per-kind payload contract before the
// store accepts the message.
func validateMetadata(kind domain.MessageKind, metadata map[string]any) error {
	switch kind {
	case domain.KindImage:
		mime, ok := metadata["mimeType"].(string)
		if !ok || mimetype.Lookup(mime) == nil || !strings.HasPrefix(mime, "image/") {
			return errors.ErrInvalidPayload
		}
	case domain.KindDocument:
		mime, ok := metadata["mimeType"].(string)
		if !ok || mimetype.Lookup(mime) == nil {
			return errors.ErrInvalidPayload
		}
		if name, ok := metadata["fileName"].(string); !ok || name == "" {
			return errors.ErrInvalidPayload
		}
	case domain.KindLink:
		raw, ok := metadata["url"].(string)
		if !ok {
			return errors.ErrInvalidPayload
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return errors.ErrInvalidPayload
		}
	}
	return nil
}
