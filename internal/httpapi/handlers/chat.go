package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/gopherchat/internal/common"
	"github.com/suPer8Hu/gopherchat/internal/models"
)

type openConversationReq struct {
	UserID string `json:"user_id" binding:"required"`
}

// OpenConversation resolves (or lazily creates) the caller's conversation
// with another user.
func (h *Handler) OpenConversation(c *gin.Context) {
	uid, okk := callerID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req openConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	conv, err := h.ChatSvc.OpenConversation(c.Request.Context(), uid, req.UserID)
	if err != nil {
		failFromErr(c, err)
		return
	}

	common.OK(c, gin.H{"conversation": conv})
}

type conversationView struct {
	ID              string       `json:"conversation_id"`
	Peer            *models.User `json:"peer,omitempty"`
	LastMessageText string       `json:"last_message_text"`
	LastMessageTime int64        `json:"last_message_time"`
	UnreadCount     int64        `json:"unread_count"`
}

// ListConversations returns the caller's conversations, most recently active
// first, each with the peer's profile and the unread counter.
func (h *Handler) ListConversations(c *gin.Context) {
	uid, okk := callerID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	convs, err := h.ChatSvc.ListConversationsForUser(c.Request.Context(), uid)
	if err != nil {
		failFromErr(c, err)
		return
	}

	ids := make([]string, len(convs))
	for i, cv := range convs {
		ids[i] = cv.ID
	}

	// unread counters are advisory; a Redis hiccup degrades them to zero
	unread := map[string]int64{}
	if h.Redis != nil {
		if m, err := h.Redis.UnreadCounts(c.Request.Context(), uid, ids); err != nil {
			h.Log.Warn("unread counts unavailable", "user_id", uid, "error", err)
		} else {
			unread = m
		}
	}

	views := make([]conversationView, 0, len(convs))
	for _, cv := range convs {
		v := conversationView{
			ID:              cv.ID,
			LastMessageText: cv.LastMessageText,
			LastMessageTime: cv.LastMessageTime,
			UnreadCount:     unread[cv.ID],
		}
		if peer, err := h.Dir.GetUser(c.Request.Context(), cv.OtherParticipant(uid)); err == nil {
			v.Peer = peer
		}
		views = append(views, v)
	}

	common.OK(c, gin.H{"conversations": views})
}

// GetMessages returns the full ordered message log of one of the caller's
// conversations.
func (h *Handler) GetMessages(c *gin.Context) {
	uid, okk := callerID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	convID := c.Param("conversation_id")

	if _, err := h.ChatSvc.GetConversation(c.Request.Context(), convID, uid); err != nil {
		failFromErr(c, err)
		return
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), convID)
	if err != nil {
		failFromErr(c, err)
		return
	}

	common.OK(c, gin.H{"messages": msgs})
}

type sendMessageReq struct {
	Text string `json:"text" binding:"required"`
}

// SendMessage appends a message; the sender identity comes from the token.
func (h *Handler) SendMessage(c *gin.Context) {
	uid, okk := callerID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	msg, err := h.ChatSvc.AppendMessage(c.Request.Context(), c.Param("conversation_id"), uid, callerName(c), req.Text)
	if err != nil {
		failFromErr(c, err)
		return
	}

	common.OK(c, gin.H{"message": msg})
}

// MarkRead clears the caller's unread counter for the conversation.
func (h *Handler) MarkRead(c *gin.Context) {
	uid, okk := callerID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	convID := c.Param("conversation_id")

	if _, err := h.ChatSvc.GetConversation(c.Request.Context(), convID, uid); err != nil {
		failFromErr(c, err)
		return
	}

	if h.Redis != nil {
		if err := h.Redis.ResetUnread(c.Request.Context(), uid, convID); err != nil {
			h.Log.Warn("reset unread", "user_id", uid, "conversation_id", convID, "error", err)
		}
	}
	common.OK(c, gin.H{"conversation_id": convID})
}
