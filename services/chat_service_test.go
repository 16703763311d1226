package services

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/presence"
	"chat-hub/projection"
	"chat-hub/runtime"
	"chat-hub/search"
	"chat-hub/store"
	"chat-hub/typing"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"
)

type chatFixture struct {
	service *ChatService
	store   *store.Store
	typing  *typing.Coordinator
	alice   domain.User
	bob     domain.User
	chat    domain.Chat
}

func newChatFixture(t *testing.T) chatFixture {
	t.Helper()
	req := require.New(t)
	log := slog.Default()

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)
	t.Cleanup(func() { _ = writer.Close() })

	s := store.NewStore(log, nil)
	coordinator := typing.NewCoordinator(log, nil, time.Minute)
	t.Cleanup(coordinator.Close)

	service := NewChatService(log, s,
		projection.NewConversationIndex(),
		search.NewMessageIndex(writer, log),
		presence.NewTracker(s, log),
		coordinator,
		runtime.NewRegistry(),
		observability.NewStats())

	alice, err := s.CreateUser(store.NewUser{Username: "alice", DisplayName: "Alice"})
	req.NoError(err)
	bob, err := s.CreateUser(store.NewUser{Username: "bob", DisplayName: "Bob"})
	req.NoError(err)
	chat, err := s.CreateChat(store.NewChat{Members: []domain.UserID{alice.ID, bob.ID}})
	req.NoError(err)

	return chatFixture{service: service, store: s, typing: coordinator, alice: alice, bob: bob, chat: chat}
}

func TestChatService_PostMessageValidatesMetadata(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	tests := []struct {
		description string
		kind        domain.MessageKind
		metadata    map[string]any
		wantErr     bool
	}{
		{"Text needs no metadata", domain.KindText, nil, false},
		{"Link with a valid url", domain.KindLink,
			map[string]any{"url": "https://acciojob.com/dsa-sheet"}, false},
		{"Link with a broken url", domain.KindLink,
			map[string]any{"url": "::not-a-url"}, true},
		{"Link without url", domain.KindLink, nil, true},
		{"Image with an image mime", domain.KindImage,
			map[string]any{"mimeType": "image/png"}, false},
		{"Image with a non-image mime", domain.KindImage,
			map[string]any{"mimeType": "application/pdf"}, true},
		{"Image with an unknown mime", domain.KindImage,
			map[string]any{"mimeType": "image/made-up-format"}, true},
		{"Document with mime and file name", domain.KindDocument,
			map[string]any{"mimeType": "application/pdf", "fileName": "report.pdf"}, false},
		{"Document without file name", domain.KindDocument,
			map[string]any{"mimeType": "application/pdf"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := f.service.PostMessage(store.AppendMessage{
				ChatID:   f.chat.ID,
				SenderID: f.alice.ID,
				Content:  "payload",
				Kind:     tt.kind,
				Metadata: tt.metadata,
			})
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrInvalidPayload)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestChatService_MembershipGuardsReads(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	stranger, err := f.store.CreateUser(store.NewUser{Username: "mallory", DisplayName: "Mallory"})
	req.NoError(err)

	_, _, err = f.service.ListMessages(f.chat.ID, stranger.ID, nil, 10)
	req.ErrorIs(err, errors.ErrNotMember)

	_, err = f.service.SearchMessages(context.Background(), f.chat.ID, stranger.ID, "report", 10)
	req.ErrorIs(err, errors.ErrNotMember)

	req.ErrorIs(f.service.Typing(f.chat.ID, stranger.ID, true), errors.ErrNotMember)

	msg, err := f.service.PostMessage(store.AppendMessage{
		ChatID: f.chat.ID, SenderID: f.alice.ID, Content: "hello", Kind: domain.KindText,
	})
	req.NoError(err)
	req.ErrorIs(f.service.MarkRead(msg.ID, stranger.ID), errors.ErrNotMember)

	// Members pass all the same guards
	_, _, err = f.service.ListMessages(f.chat.ID, f.bob.ID, nil, 10)
	req.NoError(err)
	req.NoError(f.service.MarkRead(msg.ID, f.bob.ID))
}

func TestChatService_CreateChatAlwaysIncludesCreator(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	chat, err := f.service.CreateChat(f.alice.ID, store.NewChat{
		Name: "Study group", IsGroup: true, Members: []domain.UserID{f.bob.ID},
	})
	req.NoError(err)
	req.True(f.store.IsMember(chat.ID, f.alice.ID))
	req.True(f.store.IsMember(chat.ID, f.bob.ID))

	// Group chats need a name
	_, err = f.service.CreateChat(f.alice.ID, store.NewChat{IsGroup: true})
	req.ErrorIs(err, errors.ErrInvalidPayload)
}

func TestChatService_AddMemberRequiresCallerMembership(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	stranger, err := f.store.CreateUser(store.NewUser{Username: "mallory", DisplayName: "Mallory"})
	req.NoError(err)

	_, err = f.service.AddMember(stranger.ID, f.chat.ID, stranger.ID)
	req.ErrorIs(err, errors.ErrNotMember)

	membership, err := f.service.AddMember(f.alice.ID, f.chat.ID, stranger.ID)
	req.NoError(err)
	req.Equal(stranger.ID, membership.UserID)
}

func TestChatService_DisconnectReleasesTypingOnLastConnection(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	// Given two live connections for the same user, one of them typing
	f.service.Connect("conn-1", f.alice.ID, nil)
	f.service.Connect("conn-2", f.alice.ID, nil)
	req.NoError(f.service.Typing(f.chat.ID, f.alice.ID, true))

	// When the first connection closes, the flag survives
	f.service.Disconnect("conn-1", f.alice.ID)
	req.True(f.typing.IsTyping(f.chat.ID, f.alice.ID))

	// When the last one closes, the flag is released
	f.service.Disconnect("conn-2", f.alice.ID)
	req.False(f.typing.IsTyping(f.chat.ID, f.alice.ID))
}

func TestChatService_ListChatsCarriesMembersAndLastMessage(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	msg, err := f.service.PostMessage(store.AppendMessage{
		ChatID: f.chat.ID, SenderID: f.bob.ID, Content: "latest", Kind: domain.KindText,
	})
	req.NoError(err)

	// The projection is fed by events in production; rebuild it here since
	// the fixture wires no fan-out.
	f.service.index.Rebuild(f.store)

	summaries, err := f.service.ListChats(f.alice.ID)
	req.NoError(err)
	req.Len(summaries, 1)
	req.Len(summaries[0].Members, 2)
	req.NotNil(summaries[0].LastMessage)
	req.Equal(msg.ID, summaries[0].LastMessage.ID)
}
