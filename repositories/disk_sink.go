package repositories

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"context"
	"log/slog"
)

// DiskSink is the write-behind persistence consumer. It turns committed
// domain events into badger writes so the in-memory store can be rebuilt
// at the next boot. It ignores events that carry no durable state.
type DiskSink struct {
	log      *slog.Logger
	users    IUserRepository
	chats    IChatRepository
	messages IMessageRepository
}

func NewDiskSink(
	log *slog.Logger,
	users IUserRepository,
	chats IChatRepository,
	messages IMessageRepository,
) *DiskSink {
	return &DiskSink{log: log, users: users, chats: chats, messages: messages}
}

func (s *DiskSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.UserRegistered:
		return s.users.StoreUser(FromUser(evt.User))
	case event.ChatCreated:
		if err := s.chats.StoreChat(FromChat(evt.Chat)); err != nil {
			return err
		}
		for _, member := range evt.Members {
			membership := domain.Membership{
				ChatID:   evt.Chat.ID,
				UserID:   member,
				JoinedAt: evt.Chat.CreatedAt,
			}
			if err := s.chats.StoreMembership(FromMembership(membership)); err != nil {
				return err
			}
		}
		return nil
	case event.MemberAdded:
		return s.chats.StoreMembership(FromMembership(domain.Membership{
			ChatID:   evt.Chat,
			UserID:   evt.User,
			JoinedAt: evt.JoinedAt,
		}))
	case event.MessageAppended:
		return s.messages.StoreMessage(FromMessage(evt.Message))
	case event.MessageRead:
		return s.messages.UpdateReadBy(evt.Chat, evt.Seq, evt.Message, evt.User)
	case event.PresenceChanged:
		if evt.IsOnline {
			return nil
		}
		return s.users.UpdateLastSeen(evt.User, evt.LastSeen)
	default:
		return nil
	}
}
