package store

import (
	"chat-hub/errors"
	"encoding/base64"
	"fmt"
	"time"
)

// A cursor encodes a (timestamp, sequence) position inside a chat timeline.
// It is opaque to callers: an offset would skip or duplicate entries when
// messages are appended between pages, a position never does.
type cursorPos struct {
	unixNano int64
	seq      uint64
}

// after reports whether the cursor position is strictly after the given
// message position, i.e. the message belongs to the older history.
func (c cursorPos) after(createdAt time.Time, seq uint64) bool {
	nanos := createdAt.UnixNano()
	if nanos != c.unixNano {
		return nanos < c.unixNano
	}
	return seq < c.seq
}

func encodeCursor(createdAt time.Time, seq uint64) string {
	raw := fmt.Sprintf("%d:%d", createdAt.UnixNano(), seq)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(encoded string) (cursorPos, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return cursorPos{}, fmt.Errorf("cursor: %w", errors.ErrInvalidPayload)
	}
	var pos cursorPos
	if _, err := fmt.Sscanf(string(raw), "%d:%d", &pos.unixNano, &pos.seq); err != nil {
		return cursorPos{}, fmt.Errorf("cursor: %w", errors.ErrInvalidPayload)
	}
	return pos, nil
}
