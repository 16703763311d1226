package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Sink struct {
	id string
}

func (s Sink) Consume(_ context.Context, _ event.DomainEvent) error {
	return nil
}

func TestRegistry_Subscribe_One_Chat_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	chatID := domain.ChatID("c1")
	sink := Sink{id: "s1"}

	// Given no connection is registered
	req.Zero(registry.Connections("alice"))
	req.Empty(registry.SinksForChats([]domain.ChatID{chatID}))

	// When a connection subscribes with one chat of interest
	registry.Subscribe(connID, "alice", []domain.ChatID{chatID}, sink)

	// Then
	req.Equal(1, registry.Connections("alice"))
	req.Equal([]contract.EventSink{sink}, registry.SinksForChats([]domain.ChatID{chatID}))
	req.Empty(registry.SinksForChats([]domain.ChatID{"other"}))
}

func TestRegistry_SinksForChats_DeduplicatesAcrossChats(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := Sink{id: "s1"}

	// Given a connection interested in two chats
	registry.Subscribe("conn-1", "alice", []domain.ChatID{"c1", "c2"}, sink)

	// When resolving the union of both chats
	sinks := registry.SinksForChats([]domain.ChatID{"c1", "c2"})

	// Then the connection appears once
	req.Len(sinks, 1)
}

func TestRegistry_Unsubscribe_CleansEverything(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink1 := Sink{id: "s1"}
	sink2 := Sink{id: "s2"}

	registry.Subscribe("conn-1", "alice", []domain.ChatID{"c1"}, sink1)
	registry.Subscribe("conn-2", "alice", []domain.ChatID{"c1"}, sink2)

	// When one of the user's connections closes
	registry.Unsubscribe("conn-1")

	// Then the other connection still receives
	req.Equal(1, registry.Connections("alice"))
	req.Equal([]contract.EventSink{sink2}, registry.SinksForChats([]domain.ChatID{"c1"}))

	// When the last one closes
	registry.Unsubscribe("conn-2")
	req.Zero(registry.Connections("alice"))
	req.Empty(registry.SinksForChats([]domain.ChatID{"c1"}))

	// And unsubscribing twice is harmless
	registry.Unsubscribe("conn-2")
}

func TestRegistry_AddInterest_ExtendsLiveConnections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := Sink{id: "s1"}

	// Given a subscribed connection with no interest in c2
	registry.Subscribe("conn-1", "alice", []domain.ChatID{"c1"}, sink)
	req.Empty(registry.SinksForChats([]domain.ChatID{"c2"}))

	// When the user gains a membership in c2
	registry.AddInterest("alice", "c2")

	// Then the live connection is now interested
	req.Len(registry.SinksForChats([]domain.ChatID{"c2"}), 1)
}
