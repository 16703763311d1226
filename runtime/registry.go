// Package runtime handles event propagation and connection registration.
// It orchestrates the system without containing business logic or domain
// rules.
package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"sync"
)

type Set map[string]struct{}

type session struct {
	userID domain.UserID
	sink   contract.EventSink
}

// Registry maps live connections to the chats they are interested in.
// Interest is derived from memberships when the connection subscribes and
// extended when a membership is added, never recomputed per event.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]session       // connection id -> owning user + sink
	userConns map[domain.UserID]Set    // user -> connection ids
	chatConns map[domain.ChatID]Set    // chat -> interested connection ids
	connChats map[string]map[domain.ChatID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[string]session),
		userConns: make(map[domain.UserID]Set),
		chatConns: make(map[domain.ChatID]Set),
		connChats: make(map[string]map[domain.ChatID]struct{}),
	}
}

// Subscribe registers a connection with the interest set computed from the
// user's memberships at subscribe time.
func (r *Registry) Subscribe(connID string, userID domain.UserID, chats []domain.ChatID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[connID] = session{userID: userID, sink: sink}
	if _, ok := r.userConns[userID]; !ok {
		r.userConns[userID] = make(Set)
	}
	r.userConns[userID][connID] = struct{}{}
	r.connChats[connID] = make(map[domain.ChatID]struct{})
	for _, chatID := range chats {
		r.addInterestLocked(connID, chatID)
	}
}

// Unsubscribe removes the connection and every interest entry it holds,
// so nothing leaks after a disconnect.
func (r *Registry) Unsubscribe(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return
	}
	delete(r.sessions, connID)

	if conns, ok := r.userConns[sess.userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.userConns, sess.userID)
		}
	}
	for chatID := range r.connChats[connID] {
		if conns, ok := r.chatConns[chatID]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(r.chatConns, chatID)
			}
		}
	}
	delete(r.connChats, connID)
}

// AddInterest extends the interest sets of every live connection of the
// user with one more chat. Called when a membership is added after the
// connection subscribed.
func (r *Registry) AddInterest(userID domain.UserID, chat domain.ChatID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for connID := range r.userConns[userID] {
		r.addInterestLocked(connID, chat)
	}
}

func (r *Registry) addInterestLocked(connID string, chatID domain.ChatID) {
	if _, ok := r.chatConns[chatID]; !ok {
		r.chatConns[chatID] = make(Set)
	}
	r.chatConns[chatID][connID] = struct{}{}
	r.connChats[connID][chatID] = struct{}{}
}

// SinksForChats resolves the union of connections interested in any of the
// given chats. A connection interested through several chats appears once,
// so an event is delivered at most once per connection.
func (r *Registry) SinksForChats(chats []domain.ChatID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(Set)
	var sinks []contract.EventSink
	for _, chatID := range chats {
		for connID := range r.chatConns[chatID] {
			if _, dup := seen[connID]; dup {
				continue
			}
			seen[connID] = struct{}{}
			if sess, ok := r.sessions[connID]; ok {
				sinks = append(sinks, sess.sink)
			}
		}
	}
	return sinks
}

// Connections returns the number of live connections for a user.
func (r *Registry) Connections(userID domain.UserID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConns[userID])
}
