package httpapi

import (
	"chat-hub/domain"
	"chat-hub/services"
	"time"

	"github.com/samber/lo"
)

// Wire views keep password hashes and internal fields out of responses.
// Field names follow the JSON shape the web client already speaks.

type userView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
	IsOnline    bool   `json:"isOnline"`
	LastSeen    string `json:"lastSeen,omitempty"`
}

func toUserView(u domain.User) userView {
	view := userView{
		ID:          string(u.ID),
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		IsOnline:    u.IsOnline,
	}
	if !u.LastSeen.IsZero() {
		view.LastSeen = u.LastSeen.UTC().Format(time.RFC3339)
	}
	return view
}

type messageView struct {
	ID        string         `json:"id"`
	ChatID    string         `json:"chatId"`
	SenderID  string         `json:"senderId"`
	Content   string         `json:"content"`
	Type      string         `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Seq       uint64         `json:"seq"`
	CreatedAt string         `json:"createdAt"`
	ReadBy    []string       `json:"readBy,omitempty"`
}

func toMessageView(m domain.Message) messageView {
	return messageView{
		ID:       string(m.ID),
		ChatID:   string(m.ChatID),
		SenderID: string(m.SenderID),
		Content:  m.Content,
		Type:     string(m.Kind),
		Metadata: m.Metadata,
		Seq:      m.Seq,
		CreatedAt: m.CreatedAt.UTC().
			Format(time.RFC3339Nano),
		ReadBy: lo.Map(m.ReadBy, func(id domain.UserID, _ int) string { return string(id) }),
	}
}

type chatView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	IsGroup     bool         `json:"isGroup"`
	Avatar      string       `json:"avatar,omitempty"`
	CreatedAt   string       `json:"createdAt"`
	UpdatedAt   string       `json:"updatedAt"`
	Members     []userView   `json:"members,omitempty"`
	LastMessage *messageView `json:"lastMessage,omitempty"`
}

func toChatView(summary services.ChatSummary) chatView {
	view := chatView{
		ID:        string(summary.Chat.ID),
		Name:      summary.Chat.Name,
		IsGroup:   summary.Chat.IsGroup,
		Avatar:    summary.Chat.Avatar,
		CreatedAt: summary.Chat.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: summary.Chat.UpdatedAt.UTC().Format(time.RFC3339),
		Members:   lo.Map(summary.Members, func(u domain.User, _ int) userView { return toUserView(u) }),
	}
	if summary.LastMessage != nil {
		last := toMessageView(*summary.LastMessage)
		view.LastMessage = &last
	}
	return view
}
