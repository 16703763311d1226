// Package presence decides when a user is online. Presence is
// connection-counted, not boolean-per-call: a user with three tabs open
// stays online until the last one closes.
package presence

import (
	"chat-hub/domain"
	"log/slog"
	"sync"
)

// Setter is the store-side presence write. Implemented by store.Store.
type Setter interface {
	SetPresence(userID domain.UserID, online bool) error
}

type Tracker struct {
	mu    sync.Mutex
	log   *slog.Logger
	store Setter
	conns map[domain.UserID]int
}

func NewTracker(store Setter, log *slog.Logger) *Tracker {
	return &Tracker{
		log:   log,
		store: store,
		conns: make(map[domain.UserID]int),
	}
}

// Connect registers one live connection. Only the 0 -> 1 transition touches
// the store and emits a presence event; extra tabs and devices are silent.
// The store write happens under the tracker lock, so transitions reach the
// store in the order the counter observed them.
func (t *Tracker) Connect(userID domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conns[userID]++
	if t.conns[userID] != 1 {
		return
	}
	if err := t.store.SetPresence(userID, true); err != nil {
		t.log.Warn("Presence update failed", "user", userID, "error", err)
	}
}

// Disconnect unregisters one connection. The user goes offline only when
// the last connection closes; last-seen is stamped by the store then.
func (t *Tracker) Disconnect(userID domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	count, ok := t.conns[userID]
	if !ok {
		return
	}
	count--
	if count > 0 {
		t.conns[userID] = count
		return
	}
	delete(t.conns, userID)
	if err := t.store.SetPresence(userID, false); err != nil {
		t.log.Warn("Presence update failed", "user", userID, "error", err)
	}
}

// Online reports whether at least one connection is registered.
func (t *Tracker) Online(userID domain.UserID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[userID] > 0
}
