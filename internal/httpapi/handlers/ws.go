package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/suPer8Hu/gopherchat/internal/common"
	"github.com/suPer8Hu/gopherchat/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// auth is token-based; origin checks add nothing here
	CheckOrigin: func(*http.Request) bool { return true },
}

type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SubscribeMessagesWS streams full message-log snapshots for one
// conversation: the current log on attach, then one snapshot per append, in
// write order. The client closes the socket to cancel.
func (h *Handler) SubscribeMessagesWS(c *gin.Context) {
	uid, okk := callerID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	convID := c.Param("conversation_id")

	// membership check before the upgrade so errors still get the JSON envelope
	if _, err := h.ChatSvc.GetConversation(c.Request.Context(), convID, uid); err != nil {
		failFromErr(c, err)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn("ws upgrade", "error", err)
		return
	}

	conn := realtime.NewConnection(uid, ws)
	conn.Start()

	sub, err := h.ChatSvc.SubscribeMessages(c.Request.Context(), convID, func(p any) {
		// a full buffer closes the connection; the read loop then cancels
		_ = conn.SendJSON(wsEvent{Type: "messages", Data: p})
	})
	if err != nil {
		conn.Close(websocket.CloseInternalServerErr, "subscribe failed")
		return
	}

	go func() {
		defer sub.Cancel()
		defer conn.Close(websocket.CloseNormalClosure, "bye")
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// SubscribeConversationsWS streams conversation-list snapshots for the
// caller: current list on attach, then a fresh snapshot whenever a summary
// changes or a new conversation appears.
func (h *Handler) SubscribeConversationsWS(c *gin.Context) {
	uid, okk := callerID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn("ws upgrade", "error", err)
		return
	}

	conn := realtime.NewConnection(uid, ws)
	conn.Start()

	sub, err := h.ChatSvc.SubscribeConversationList(c.Request.Context(), uid, func(p any) {
		_ = conn.SendJSON(wsEvent{Type: "conversations", Data: p})
	})
	if err != nil {
		conn.Close(websocket.CloseInternalServerErr, "subscribe failed")
		return
	}

	go func() {
		defer sub.Cancel()
		defer conn.Close(websocket.CloseNormalClosure, "bye")
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
