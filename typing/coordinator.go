// Package typing tracks ephemeral per-chat-per-user typing flags.
// A flag expires on an explicit stop signal or after an inactivity window,
// whichever comes first. Nothing here is ever persisted.
package typing

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"log/slog"
	"sync"
	"time"
)

const DefaultTimeout = 6 * time.Second

type flagKey struct {
	chat domain.ChatID
	user domain.UserID
}

type flag struct {
	timer    *time.Timer
	deadline time.Time
}

type Coordinator struct {
	mu      sync.Mutex
	log     *slog.Logger
	timeout time.Duration
	events  chan<- event.DomainEvent
	active  map[flagKey]*flag
}

func NewCoordinator(log *slog.Logger, events chan<- event.DomainEvent, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{
		log:     log,
		timeout: timeout,
		events:  events,
		active:  make(map[flagKey]*flag),
	}
}

// Signal feeds one typing signal into the state machine. Events are emitted
// on transitions only: a burst of typing=true signals produces a single
// typing-changed(true) and resets the expiry window each time.
func (c *Coordinator) Signal(chatID domain.ChatID, userID domain.UserID, isTyping bool) {
	key := flagKey{chat: chatID, user: userID}

	c.mu.Lock()
	existing, ok := c.active[key]

	if isTyping {
		deadline := time.Now().Add(c.timeout)
		if ok {
			existing.deadline = deadline
			existing.timer.Reset(c.timeout)
			c.mu.Unlock()
			return
		}
		f := &flag{deadline: deadline}
		f.timer = time.AfterFunc(c.timeout, func() { c.expire(key) })
		c.active[key] = f
		c.mu.Unlock()
		c.emit(chatID, userID, true)
		return
	}

	if !ok {
		c.mu.Unlock()
		return
	}
	existing.timer.Stop()
	delete(c.active, key)
	c.mu.Unlock()
	c.emit(chatID, userID, false)
}

// expire fires on the inactivity timer. A signal may have reset the
// deadline while the callback was waiting on the lock; in that case the
// timer is re-armed instead of expiring, so a stale fire never emits a
// second typing-changed(false).
func (c *Coordinator) expire(key flagKey) {
	c.mu.Lock()
	f, ok := c.active[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	if remaining := time.Until(f.deadline); remaining > 0 {
		f.timer.Reset(remaining)
		c.mu.Unlock()
		return
	}
	delete(c.active, key)
	c.mu.Unlock()
	c.emit(key.chat, key.user, false)
}

func (c *Coordinator) IsTyping(chatID domain.ChatID, userID domain.UserID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[flagKey{chat: chatID, user: userID}]
	return ok
}

// Release drops every flag owned by the user, emitting the matching stop
// events. Called when the user's last connection closes so no timers leak.
func (c *Coordinator) Release(userID domain.UserID) {
	c.mu.Lock()
	var released []flagKey
	for key, f := range c.active {
		if key.user != userID {
			continue
		}
		f.timer.Stop()
		delete(c.active, key)
		released = append(released, key)
	}
	c.mu.Unlock()

	for _, key := range released {
		c.emit(key.chat, key.user, false)
	}
}

// Close stops all timers. Shutdown only.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, f := range c.active {
		f.timer.Stop()
		delete(c.active, key)
	}
}

func (c *Coordinator) emit(chatID domain.ChatID, userID domain.UserID, isTyping bool) {
	evt := event.TypingChanged{
		Chat:     chatID,
		User:     userID,
		IsTyping: isTyping,
		At:       time.Now().UTC(),
	}
	select {
	case c.events <- evt:
	default:
		c.log.Warn("Event channel full, dropping event", "event", evt.Name())
	}
}
