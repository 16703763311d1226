package search

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *MessageIndex {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewMessageIndex(writer, slog.Default())
}

func message(id, chat, content string) domain.Message {
	return domain.Message{
		ID:        domain.MessageID(id),
		ChatID:    domain.ChatID(chat),
		SenderID:  "alice",
		Content:   content,
		Kind:      domain.KindText,
		Seq:       1,
		CreatedAt: time.Now().UTC(),
	}
}

func TestMessageIndex_Search_ScopedToChat(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)
	ctx := context.Background()

	req.NoError(index.Consume(ctx, event.MessageAppended{Chat: "c1", Message: message("m1", "c1", "the quarterly report is ready")}))
	req.NoError(index.Consume(ctx, event.MessageAppended{Chat: "c2", Message: message("m2", "c2", "another report elsewhere")}))
	req.NoError(index.Consume(ctx, event.MessageAppended{Chat: "c1", Message: message("m3", "c1", "lunch plans?")}))

	// When searching inside c1
	hits, err := index.Search(ctx, "c1", "report", 10)
	req.NoError(err)

	// Then only the c1 message matches
	req.Len(hits, 1)
	req.Equal("m1", hits[0].MessageID)
	req.Equal("c1", hits[0].ChatID)

	// And non-message events are ignored without error
	req.NoError(index.Consume(ctx, event.MemberAdded{Chat: "c1", User: "bob"}))
}

func TestMessageIndex_Search_NoMatches(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)
	ctx := context.Background()

	req.NoError(index.Index(message("m1", "c1", "hello world")))

	hits, err := index.Search(ctx, "c1", "nonexistent", 10)
	req.NoError(err)
	req.Empty(hits)
}
