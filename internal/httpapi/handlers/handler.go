package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/gopherchat/internal/chat"
	"github.com/suPer8Hu/gopherchat/internal/common"
	"github.com/suPer8Hu/gopherchat/internal/config"
	"github.com/suPer8Hu/gopherchat/internal/directory"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/middleware"
	"github.com/suPer8Hu/gopherchat/internal/identity"
	"github.com/suPer8Hu/gopherchat/internal/logger"
	"github.com/suPer8Hu/gopherchat/internal/store/redisstore"
)

type Handler struct {
	Cfg     config.Config
	ChatSvc *chat.Service
	Dir     *directory.Service
	Redis   *redisstore.Store // nil when REDIS_ADDR is unset; unread counts read as zero
	Log     *logger.Logger
}

func NewHandler(cfg config.Config, chatSvc *chat.Service, dir *directory.Service, rds *redisstore.Store, log *logger.Logger) *Handler {
	return &Handler{
		Cfg:     cfg,
		ChatSvc: chatSvc,
		Dir:     dir,
		Redis:   rds,
		Log:     log.With("component", "handlers"),
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func callerID(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func callerName(c *gin.Context) string {
	v, ok := c.Get(middleware.DisplayNameKey)
	if !ok {
		return ""
	}
	name, _ := v.(string)
	return name
}

// failFromErr maps domain sentinels to the error taxonomy. Anything wrapped
// as ErrStoreUnavailable is a transient infrastructure failure the client may
// retry with backoff; the rest are caller errors.
func failFromErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidParticipants):
		common.Fail(c, http.StatusBadRequest, 10010, "invalid participants")
	case errors.Is(err, chat.ErrEmptyMessage):
		common.Fail(c, http.StatusBadRequest, 10011, "message text is empty")
	case errors.Is(err, chat.ErrConversationNotFound):
		common.Fail(c, http.StatusNotFound, 40410, "conversation not found")
	case errors.Is(err, directory.ErrUserNotFound):
		common.Fail(c, http.StatusNotFound, 40411, "user not found")
	case errors.Is(err, directory.ErrInvalidUser):
		common.Fail(c, http.StatusBadRequest, 10012, "invalid user record")
	case errors.Is(err, chat.ErrStoreUnavailable):
		common.Fail(c, http.StatusServiceUnavailable, 50301, "store unavailable, retry later")
	default:
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}
