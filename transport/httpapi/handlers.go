package httpapi

import (
	"chat-hub/auth"
	"chat-hub/domain"
	"chat-hub/observability"
	"chat-hub/services"
	"chat-hub/store"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const defaultSearchLimit = 20

type Handlers struct {
	log   *slog.Logger
	auth  services.IAuthService
	chats services.IChatService
	store *store.Store
	stats *observability.Stats
}

func NewHandlers(
	log *slog.Logger,
	authService services.IAuthService,
	chatService services.IChatService,
	s *store.Store,
	stats *observability.Stats,
) *Handlers {
	return &Handlers{log: log, auth: authService, chats: chatService, store: s, stats: stats}
}

type registerPayload struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
	Avatar      string `json:"avatar"`
}

func (h *Handlers) Register(ctx *gin.Context) {
	var payload registerPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	user, token, err := h.auth.Register(auth.RegisterRequest{
		Username:    payload.Username,
		DisplayName: payload.DisplayName,
		Password:    payload.Password,
		Avatar:      payload.Avatar,
	})
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"token": token, "user": toUserView(user)})
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handlers) Login(ctx *gin.Context) {
	var payload loginPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	user, token, err := h.auth.Login(auth.LoginRequest{
		Username: payload.Username,
		Password: payload.Password,
	})
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"token": token, "user": toUserView(user)})
}

func (h *Handlers) CurrentUser(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, toUserView(currentUser(ctx)))
}

func (h *Handlers) ListUsers(ctx *gin.Context) {
	users := h.store.Users()
	ctx.JSON(http.StatusOK, lo.Map(users, func(u domain.User, _ int) userView {
		return toUserView(u)
	}))
}

func (h *Handlers) ListChats(ctx *gin.Context) {
	summaries, err := h.chats.ListChats(currentUserID(ctx))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, lo.Map(summaries, func(s services.ChatSummary, _ int) chatView {
		return toChatView(s)
	}))
}

type createChatPayload struct {
	Name    string   `json:"name"`
	IsGroup bool     `json:"isGroup"`
	Avatar  string   `json:"avatar"`
	Members []string `json:"members"`
}

func (h *Handlers) CreateChat(ctx *gin.Context) {
	var payload createChatPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	chat, err := h.chats.CreateChat(currentUserID(ctx), store.NewChat{
		Name:    payload.Name,
		IsGroup: payload.IsGroup,
		Avatar:  payload.Avatar,
		Members: lo.Map(payload.Members, func(id string, _ int) domain.UserID {
			return domain.UserID(id)
		}),
	})
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, toChatView(services.ChatSummary{Chat: chat}))
}

type addMemberPayload struct {
	UserID string `json:"userId"`
}

func (h *Handlers) AddMember(ctx *gin.Context) {
	var payload addMemberPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	membership, err := h.chats.AddMember(currentUserID(ctx),
		domain.ChatID(ctx.Param("chatId")), domain.UserID(payload.UserID))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"chatId":   membership.ChatID,
		"userId":   membership.UserID,
		"joinedAt": membership.JoinedAt.UTC(),
	})
}

func (h *Handlers) ListMessages(ctx *gin.Context) {
	var cursor *string
	if raw, ok := ctx.GetQuery("cursor"); ok {
		cursor = &raw
	}
	limit := 0
	if raw, ok := ctx.GetQuery("limit"); ok {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	messages, next, err := h.chats.ListMessages(
		domain.ChatID(ctx.Param("chatId")), currentUserID(ctx), cursor, limit)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"messages": lo.Map(messages, func(m domain.Message, _ int) messageView {
			return toMessageView(m)
		}),
		"nextCursor": next,
	})
}

type postMessagePayload struct {
	Content  string         `json:"content"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata"`
}

func (h *Handlers) PostMessage(ctx *gin.Context) {
	var payload postMessagePayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	if payload.Type == "" {
		payload.Type = string(domain.KindText)
	}

	message, err := h.chats.PostMessage(store.AppendMessage{
		ChatID:   domain.ChatID(ctx.Param("chatId")),
		SenderID: currentUserID(ctx),
		Content:  payload.Content,
		Kind:     domain.MessageKind(payload.Type),
		Metadata: payload.Metadata,
	})
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, toMessageView(message))
}

func (h *Handlers) SearchMessages(ctx *gin.Context) {
	terms := ctx.Query("q")
	if terms == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}
	limit := defaultSearchLimit
	if raw, ok := ctx.GetQuery("limit"); ok {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	hits, err := h.chats.SearchMessages(ctx.Request.Context(),
		domain.ChatID(ctx.Param("chatId")), currentUserID(ctx), terms, limit)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"hits": hits})
}

func (h *Handlers) MarkRead(ctx *gin.Context) {
	err := h.chats.MarkRead(domain.MessageID(ctx.Param("messageId")), currentUserID(ctx))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *Handlers) Stats(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.stats.Snapshot())
}
