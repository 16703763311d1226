package store

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, chan event.DomainEvent) {
	t.Helper()
	events := make(chan event.DomainEvent, 256)
	return NewStore(slog.Default(), events), events
}

func mustUser(t *testing.T, s *Store, username string) domain.User {
	t.Helper()
	user, err := s.CreateUser(NewUser{Username: username, DisplayName: username})
	require.NoError(t, err)
	return user
}

func mustChat(t *testing.T, s *Store, members ...domain.UserID) domain.Chat {
	t.Helper()
	chat, err := s.CreateChat(NewChat{Name: "test", Members: members})
	require.NoError(t, err)
	return chat
}

func TestStore_CreateUser_DuplicateUsername(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)

	// Given an existing user
	mustUser(t, s, "alice")

	// When registering the same username again
	_, err := s.CreateUser(NewUser{Username: "alice"})

	// Then the conflict is reported
	req.ErrorIs(err, errors.ErrUsernameTaken)
}

func TestStore_Append_RequiresMembership(t *testing.T) {
	req := require.New(t)
	s, events := newTestStore(t)
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	chat := mustChat(t, s, alice.ID)
	drain(events)

	// When a non-member sends a message
	_, err := s.Append(AppendMessage{
		ChatID: chat.ID, SenderID: bob.ID, Content: "hi", Kind: domain.KindText,
	})

	// Then the append is rejected with no stored message and no event
	req.ErrorIs(err, errors.ErrNotMember)
	page, _, listErr := s.ListMessages(chat.ID, nil, 10)
	req.NoError(listErr)
	req.Empty(page)
	req.Empty(drain(events))
}

func TestStore_Append_UnknownChatAndSender(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	alice := mustUser(t, s, "alice")
	chat := mustChat(t, s, alice.ID)

	_, err := s.Append(AppendMessage{
		ChatID: "nope", SenderID: alice.ID, Content: "hi", Kind: domain.KindText,
	})
	req.ErrorIs(err, errors.ErrChatNotFound)

	_, err = s.Append(AppendMessage{
		ChatID: chat.ID, SenderID: "nope", Content: "hi", Kind: domain.KindText,
	})
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestStore_Append_ConcurrentSequencesAreGapFree(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	alice := mustUser(t, s, "alice")
	chat := mustChat(t, s, alice.ID)

	// When many goroutines append concurrently to the same chat
	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.Append(AppendMessage{
					ChatID:   chat.ID,
					SenderID: alice.ID,
					Content:  fmt.Sprintf("w%d-%d", w, i),
					Kind:     domain.KindText,
				})
				require.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	// Then sequence numbers are strictly increasing with no gaps
	page, _, err := s.ListMessages(chat.ID, nil, writers*perWriter)
	req.NoError(err)
	req.Len(page, writers*perWriter)
	for i, m := range page {
		req.Equal(uint64(i+1), m.Seq)
	}
}

func TestStore_Append_AdvancesChatOrdering(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	quiet := mustChat(t, s, alice.ID, bob.ID)
	active := mustChat(t, s, alice.ID, bob.ID)

	// When a message lands in the second chat
	message, err := s.Append(AppendMessage{
		ChatID: active.ID, SenderID: alice.ID, Content: "hi", Kind: domain.KindText,
	})
	req.NoError(err)

	// Then it ranks first for both members, with updatedAt = creation time
	for _, userID := range []domain.UserID{alice.ID, bob.ID} {
		chats := s.ListChatsForUser(userID)
		req.Len(chats, 2)
		req.Equal(active.ID, chats[0].ID)
		req.Equal(quiet.ID, chats[1].ID)
		req.Equal(message.CreatedAt, chats[0].UpdatedAt)
	}
}

func TestStore_ListMessages_PaginationNeverSkipsUnderInserts(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	alice := mustUser(t, s, "alice")
	chat := mustChat(t, s, alice.ID)

	post := func(content string) {
		_, err := s.Append(AppendMessage{
			ChatID: chat.ID, SenderID: alice.ID, Content: content, Kind: domain.KindText,
		})
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		post(fmt.Sprintf("m%d", i))
	}

	// Given the latest page
	page1, cursor, err := s.ListMessages(chat.ID, nil, 4)
	req.NoError(err)
	req.Len(page1, 4)
	req.NotNil(cursor)

	// When new messages arrive before the next page is fetched
	post("late-1")
	post("late-2")

	// Then the older page is exactly the entries before the first page
	page2, cursor2, err := s.ListMessages(chat.ID, cursor, 4)
	req.NoError(err)
	req.Len(page2, 4)
	req.Equal("m2", page2[0].Content)
	req.Equal("m5", page2[3].Content)
	req.NotNil(cursor2)

	page3, cursor3, err := s.ListMessages(chat.ID, cursor2, 4)
	req.NoError(err)
	req.Len(page3, 2)
	req.Equal("m0", page3[0].Content)
	req.Nil(cursor3)
}

func TestStore_ListMessages_AscendingOrder(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	alice := mustUser(t, s, "alice")
	chat := mustChat(t, s, alice.ID)
	for i := 0; i < 5; i++ {
		_, err := s.Append(AppendMessage{
			ChatID: chat.ID, SenderID: alice.ID, Content: "x", Kind: domain.KindText,
		})
		req.NoError(err)
	}

	page, _, err := s.ListMessages(chat.ID, nil, 10)
	req.NoError(err)
	for i := 1; i < len(page); i++ {
		req.False(page[i].CreatedAt.Before(page[i-1].CreatedAt))
		req.Greater(page[i].Seq, page[i-1].Seq)
	}
}

func TestStore_MarkRead_IsIdempotent(t *testing.T) {
	req := require.New(t)
	s, events := newTestStore(t)
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	chat := mustChat(t, s, alice.ID, bob.ID)
	message, err := s.Append(AppendMessage{
		ChatID: chat.ID, SenderID: alice.ID, Content: "hi", Kind: domain.KindText,
	})
	req.NoError(err)
	drain(events)

	// When marking twice with the same pair
	s.MarkRead(message.ID, bob.ID)
	s.MarkRead(message.ID, bob.ID)

	// Then the read-set grew once and a single event was emitted
	stored, err := s.GetMessage(message.ID)
	req.NoError(err)
	req.Equal([]domain.UserID{bob.ID}, stored.ReadBy)
	req.Len(drain(events), 1)

	// And unknown messages are silently ignored
	s.MarkRead("nope", bob.ID)
}

func TestStore_AddMember_Conflict(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	chat := mustChat(t, s, alice.ID)

	_, err := s.AddMember(chat.ID, bob.ID)
	req.NoError(err)
	_, err = s.AddMember(chat.ID, bob.ID)
	req.ErrorIs(err, errors.ErrAlreadyMember)
}

func TestStore_SetPresence_StampsLastSeenOffline(t *testing.T) {
	req := require.New(t)
	s, events := newTestStore(t)
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	chat := mustChat(t, s, alice.ID, bob.ID)
	drain(events)

	before := time.Now().UTC()
	req.NoError(s.SetPresence(alice.ID, false))

	user, err := s.GetUser(alice.ID)
	req.NoError(err)
	req.False(user.IsOnline)
	req.False(user.LastSeen.Before(before))

	emitted := drain(events)
	req.Len(emitted, 1)
	presence, ok := emitted[0].(event.PresenceChanged)
	req.True(ok)
	req.Equal(alice.ID, presence.User)
	req.Contains(presence.Audience, chat.ID)
}

func TestStore_Load_RestoresSequencing(t *testing.T) {
	req := require.New(t)
	source, _ := newTestStore(t)
	alice := mustUser(t, source, "alice")
	chat := mustChat(t, source, alice.ID)
	for i := 0; i < 3; i++ {
		_, err := source.Append(AppendMessage{
			ChatID: chat.ID, SenderID: alice.ID, Content: "x", Kind: domain.KindText,
		})
		req.NoError(err)
	}
	page, _, err := source.ListMessages(chat.ID, nil, 10)
	req.NoError(err)

	// When a fresh store is loaded from the persisted state
	restored, _ := newTestStore(t)
	restored.Load(source.Users(), []domain.Chat{chat},
		source.Members(chat.ID), page)

	// Then appends continue the sequence without gaps
	message, err := restored.Append(AppendMessage{
		ChatID: chat.ID, SenderID: alice.ID, Content: "next", Kind: domain.KindText,
	})
	req.NoError(err)
	req.Equal(uint64(4), message.Seq)
}

func TestStore_Load_RederivesChatActivityFromMessages(t *testing.T) {
	req := require.New(t)
	source, _ := newTestStore(t)
	alice := mustUser(t, source, "alice")
	busy := mustChat(t, source, alice.ID)
	quiet := mustChat(t, source, alice.ID)
	message, err := source.Append(AppendMessage{
		ChatID: busy.ID, SenderID: alice.ID, Content: "hello", Kind: domain.KindText,
	})
	req.NoError(err)
	page, _, err := source.ListMessages(busy.ID, nil, 10)
	req.NoError(err)

	// Given chat records persisted before the message advanced them
	restored, _ := newTestStore(t)
	restored.Load(source.Users(), []domain.Chat{quiet, busy},
		append(source.Members(quiet.ID), source.Members(busy.ID)...), page)

	// Then activity is re-derived from the loaded messages
	chat, err := restored.GetChat(busy.ID)
	req.NoError(err)
	req.True(chat.UpdatedAt.Equal(message.CreatedAt))

	// And the chat with traffic ranks above the quiet one
	chats := restored.ListChatsForUser(alice.ID)
	req.Len(chats, 2)
	req.Equal(busy.ID, chats[0].ID)
}

func TestStore_Append_DetachesMetadata(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	alice := mustUser(t, s, "alice")
	chat := mustChat(t, s, alice.ID)

	// Given a message appended with caller-owned metadata
	input := map[string]any{"url": "https://example.com"}
	message, err := s.Append(AppendMessage{
		ChatID: chat.ID, SenderID: alice.ID, Content: "look",
		Kind: domain.KindLink, Metadata: input,
	})
	req.NoError(err)

	// When both the input map and the returned copy are mutated
	input["url"] = "https://evil.example"
	message.Metadata["url"] = "https://other.example"

	// Then the stored message is unaffected
	stored, err := s.GetMessage(message.ID)
	req.NoError(err)
	req.Equal("https://example.com", stored.Metadata["url"])
}

func drain(events chan event.DomainEvent) []event.DomainEvent {
	var res []event.DomainEvent
	for {
		select {
		case e := <-events:
			res = append(res, e)
		default:
			return res
		}
	}
}
