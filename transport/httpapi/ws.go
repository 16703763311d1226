package httpapi

import (
	"chat-hub/services"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler upgrades an authenticated request to a websocket session and
// registers the connection for push delivery. The same user may hold any
// number of concurrent sessions.
type WSHandler struct {
	log   *slog.Logger
	chats services.IChatService
}

func NewWSHandler(log *slog.Logger, chats services.IChatService) *WSHandler {
	return &WSHandler{log: log, chats: chats}
}

func (h *WSHandler) Handle(ctx *gin.Context) {
	user := currentUser(ctx)

	socket, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "user", user.ID, "error", err)
		return
	}

	conn := NewConn(h.log, uuid.NewString(), user.ID, socket, h.chats)
	h.chats.Connect(conn.id, user.ID, conn)
	h.log.Info("Websocket connected", "conn", conn.id, "user", user.Username)

	go conn.WritePump()
	go conn.ReadPump()
}
