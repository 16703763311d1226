package httpapi

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/services"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4096
)

// Conn is one live websocket session. The read pump handles inbound
// envelopes, the write pump drains the send buffer, and Consume makes the
// connection an event sink the fan-out worker can push to.
//
// Separating read and write avoids head-of-line blocking when a browser
// is slow.
type Conn struct {
	log    *slog.Logger
	id     string
	userID domain.UserID
	socket *websocket.Conn
	chats  services.IChatService
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

func NewConn(log *slog.Logger, id string, userID domain.UserID,
	socket *websocket.Conn, chats services.IChatService) *Conn {
	return &Conn{
		log:    log,
		id:     id,
		userID: userID,
		socket: socket,
		chats:  chats,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Consume serializes the event into a client envelope and queues it.
// Delivery is at-most-once: a full buffer means the client cannot keep
// up, so the connection is closed instead of blocking the fan-out loop.
func (c *Conn) Consume(_ context.Context, e event.DomainEvent) error {
	envelope, ok := toEnvelope(e)
	if !ok {
		return nil
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.closed = true
		close(c.send)
		return fmt.Errorf("send buffer full, closing connection %s", c.id)
	}
}

// Close makes the write pump flush and exit, which tears the socket down.
// Safe to call concurrently with Consume.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump processes inbound envelopes until the socket dies, then
// unregisters the connection. Runs in its own goroutine.
func (c *Conn) ReadPump() {
	defer func() {
		c.chats.Disconnect(c.id, c.userID)
		c.Close()
		_ = c.socket.Close()
	}()

	c.socket.SetReadLimit(maxInboundSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Websocket closed unexpectedly", "conn", c.id, "error", err)
			}
			return
		}
		c.handleInbound(data)
	}
}

// WritePump drains the send buffer to the browser and keeps the socket
// alive with pings. Runs in its own goroutine.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.socket.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type inboundEnvelope struct {
	Type      string `json:"type"`
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	IsTyping  bool   `json:"isTyping"`
}

func (c *Conn) handleInbound(data []byte) {
	var envelope inboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.log.Debug("Dropping malformed inbound frame", "conn", c.id)
		return
	}

	switch envelope.Type {
	case "typing":
		if err := c.chats.Typing(domain.ChatID(envelope.ChatID), c.userID, envelope.IsTyping); err != nil {
			c.log.Debug("Typing signal rejected", "conn", c.id, "error", err)
		}
	case "read":
		if err := c.chats.MarkRead(domain.MessageID(envelope.MessageID), c.userID); err != nil {
			c.log.Debug("Read receipt rejected", "conn", c.id, "error", err)
		}
	default:
		c.log.Debug("Unknown inbound envelope type", "conn", c.id, "type", envelope.Type)
	}
}

// toEnvelope maps push events to the frames the client understands.
func toEnvelope(e event.DomainEvent) (map[string]any, bool) {
	switch evt := e.(type) {
	case event.MessageAppended:
		return map[string]any{
			"type":    "new_message",
			"message": toMessageView(evt.Message),
		}, true
	case event.TypingChanged:
		return map[string]any{
			"type":     "user_typing",
			"chatId":   evt.Chat,
			"userId":   evt.User,
			"isTyping": evt.IsTyping,
		}, true
	case event.PresenceChanged:
		envelope := map[string]any{
			"type":     "presence",
			"userId":   evt.User,
			"isOnline": evt.IsOnline,
		}
		if !evt.LastSeen.IsZero() {
			envelope["lastSeen"] = evt.LastSeen.UTC().Format(time.RFC3339)
		}
		return envelope, true
	case event.ChatCreated:
		return map[string]any{
			"type":    "chat_created",
			"chatId":  evt.Chat.ID,
			"members": evt.Members,
		}, true
	case event.MemberAdded:
		return map[string]any{
			"type":   "member_added",
			"chatId": evt.Chat,
			"userId": evt.User,
		}, true
	default:
		return nil, false
	}
}
