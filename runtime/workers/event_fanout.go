package workers

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/observability"
	"context"
	"log/slog"
	"time"
)

const defaultSinkTimeout = 2 * time.Second

// EventFanout drains the store's event channel and broadcasts each event,
// in acceptance order, to the permanent sinks and to the connections
// subscribed to the event's chats.
//
// It provides best-effort fan-out with no retries. A slow permanent sink
// is cut off by a per-sink timeout; connection sinks never block because
// they buffer internally and drop on overflow.
//
// The single consumer loop is what keeps per-chat delivery ordered.
type EventFanout struct {
	Log         *slog.Logger
	DomainEvent <-chan event.DomainEvent
	registry    contract.IRegistry
	stats       *observability.Stats
	sinkTimeout time.Duration
	sinks       []contract.EventSink
}

func NewEventFanout(
	log *slog.Logger,
	domainEvent <-chan event.DomainEvent,
	registry contract.IRegistry,
	stats *observability.Stats,
) *EventFanout {
	return &EventFanout{
		Log:         log,
		DomainEvent: domainEvent,
		registry:    registry,
		stats:       stats,
		sinkTimeout: defaultSinkTimeout,
	}
}

// Add registers permanent sinks. They receive every event.
func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) WithSinkTimeout(d time.Duration) *EventFanout {
	if d > 0 {
		w.sinkTimeout = d
	}
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.DomainEvent:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.Log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout delivers one event to every permanent sink, then to the live
// connections watching the chats it concerns.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		w.consume(ctx, sink, evt)
	}

	// Membership changes widen interest before anything else reaches
	// the new audience.
	switch e := evt.(type) {
	case event.ChatCreated:
		for _, member := range e.Members {
			w.registry.AddInterest(member, e.Chat.ID)
		}
	case event.MemberAdded:
		w.registry.AddInterest(e.User, e.Chat)
	case event.MessageAppended:
		w.stats.MessageAppended()
	}

	audience := pushAudience(evt)
	if len(audience) == 0 {
		return
	}
	for _, sink := range w.registry.SinksForChats(audience) {
		w.consume(ctx, sink, evt)
	}
}

// pushAudience returns the chats whose subscribers should receive the
// event, or nil for events that stay server side.
func pushAudience(evt event.DomainEvent) []domain.ChatID {
	switch e := evt.(type) {
	case event.MessageAppended:
		return []domain.ChatID{e.Chat}
	case event.TypingChanged:
		return []domain.ChatID{e.Chat}
	case event.PresenceChanged:
		return e.Audience
	case event.ChatCreated:
		return []domain.ChatID{e.Chat.ID}
	case event.MemberAdded:
		return []domain.ChatID{e.Chat}
	default:
		return nil
	}
}

func (w *EventFanout) consume(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	if err := sink.Consume(sinkCtx, evt); err != nil {
		w.stats.EventDropped()
		w.Log.Warn("Sink failed to consume event", "event", evt.Name(), "error", err)
		return
	}
	w.stats.EventDelivered()
}
