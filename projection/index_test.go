package projection

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/store"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConversationIndex_Consume_OrdersByActivity(t *testing.T) {
	req := require.New(t)
	index := NewConversationIndex()
	ctx := context.Background()
	now := time.Now().UTC()

	quiet := domain.Chat{ID: "chat-a", CreatedAt: now, UpdatedAt: now}
	active := domain.Chat{ID: "chat-b", CreatedAt: now, UpdatedAt: now}
	req.NoError(index.Consume(ctx, event.ChatCreated{Chat: quiet, Members: []domain.UserID{"alice"}}))
	req.NoError(index.Consume(ctx, event.ChatCreated{Chat: active, Members: []domain.UserID{"alice", "bob"}}))

	// When a message lands in chat-b
	message := domain.Message{
		ID: "m1", ChatID: active.ID, SenderID: "bob",
		Content: "hello", Kind: domain.KindText, Seq: 1,
		CreatedAt: now.Add(time.Minute),
	}
	req.NoError(index.Consume(ctx, event.MessageAppended{Chat: active.ID, Message: message}))

	// Then chat-b ranks first for alice and its updatedAt advanced
	chats := index.ChatsForUser("alice")
	req.Len(chats, 2)
	req.Equal(active.ID, chats[0].ID)
	req.Equal(message.CreatedAt, chats[0].UpdatedAt)

	// And the last-message cache serves the new message
	last, ok := index.LastMessage(active.ID)
	req.True(ok)
	req.Equal(message.ID, last.ID)

	// And bob only sees the chat he belongs to
	req.Len(index.ChatsForUser("bob"), 1)
}

func TestConversationIndex_MemberAdded_GrantsVisibility(t *testing.T) {
	req := require.New(t)
	index := NewConversationIndex()
	ctx := context.Background()
	now := time.Now().UTC()

	chat := domain.Chat{ID: "chat-a", CreatedAt: now, UpdatedAt: now}
	req.NoError(index.Consume(ctx, event.ChatCreated{Chat: chat, Members: []domain.UserID{"alice"}}))
	req.Empty(index.ChatsForUser("bob"))

	req.NoError(index.Consume(ctx, event.MemberAdded{Chat: chat.ID, User: "bob", JoinedAt: now}))
	req.Len(index.ChatsForUser("bob"), 1)
}

func TestConversationIndex_Rebuild_MatchesStore(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 64)
	s := store.NewStore(slog.Default(), events)

	alice, err := s.CreateUser(store.NewUser{Username: "alice"})
	req.NoError(err)
	bob, err := s.CreateUser(store.NewUser{Username: "bob"})
	req.NoError(err)
	first, err := s.CreateChat(store.NewChat{Name: "first", Members: []domain.UserID{alice.ID, bob.ID}})
	req.NoError(err)
	second, err := s.CreateChat(store.NewChat{Name: "second", Members: []domain.UserID{alice.ID}})
	req.NoError(err)
	message, err := s.Append(store.AppendMessage{
		ChatID: first.ID, SenderID: bob.ID, Content: "hi", Kind: domain.KindText,
	})
	req.NoError(err)

	// When the index is rebuilt from scratch
	index := NewConversationIndex()
	index.Rebuild(s)

	// Then it matches the store's authoritative ordering
	chats := index.ChatsForUser(alice.ID)
	req.Len(chats, 2)
	req.Equal(s.ListChatsForUser(alice.ID), chats)
	req.Equal(first.ID, chats[0].ID)
	_ = second

	last, ok := index.LastMessage(first.ID)
	req.True(ok)
	req.Equal(message.ID, last.ID)
}
