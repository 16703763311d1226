// Package search maintains a full-text index over message content. The
// index is fed by the event pipeline and is strictly derived state: losing
// it never loses a message.
package search

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abadojack/whatlanggo"
	"github.com/blugelabs/bluge"
)

type Hit struct {
	MessageID string  `json:"message_id"`
	ChatID    string  `json:"chat_id"`
	SenderID  string  `json:"sender_id"`
	Content   string  `json:"content"`
	Lang      string  `json:"lang,omitempty"`
	Score     float64 `json:"score"`
}

type MessageIndex struct {
	// bluge writers are not safe for concurrent Update calls
	mu     sync.Mutex
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Consume indexes appended messages; every other event is ignored.
func (x *MessageIndex) Consume(_ context.Context, e event.DomainEvent) error {
	appended, ok := e.(event.MessageAppended)
	if !ok {
		return nil
	}
	return x.Index(appended.Message)
}

// Index upserts one message document. The message language is detected and
// stored alongside, which keeps per-language filtering possible later
// without re-reading history.
func (x *MessageIndex) Index(m domain.Message) error {
	info := whatlanggo.Detect(m.Content)
	lang := info.Lang.Iso6391()

	doc := bluge.NewDocument(string(m.ID)).
		AddField(bluge.NewKeywordField("chat_id", string(m.ChatID)).StoreValue()).
		AddField(bluge.NewKeywordField("sender_id", string(m.SenderID)).StoreValue()).
		AddField(bluge.NewTextField("content", m.Content).StoreValue()).
		AddField(bluge.NewKeywordField("lang", lang).StoreValue()).
		AddField(bluge.NewDateTimeField("created_at", m.CreatedAt))

	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index message %s: %w", m.ID, err)
	}
	return nil
}

// Search runs a match query over message content scoped to one chat.
func (x *MessageIndex) Search(ctx context.Context, chatID domain.ChatID, terms string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	reader, err := x.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("search reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(string(chatID)).SetField("chat_id")).
		AddMust(bluge.NewMatchQuery(terms).SetField("content"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, fmt.Errorf("search next: %w", err)
		}
		if match == nil {
			break
		}
		hit := Hit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "chat_id":
				hit.ChatID = string(value)
			case "sender_id":
				hit.SenderID = string(value)
			case "content":
				hit.Content = string(value)
			case "lang":
				hit.Lang = string(value)
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("search fields: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
