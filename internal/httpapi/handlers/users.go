package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/gopherchat/internal/common"
)

// ProvisionSecretHeader carries the shared secret the identity provider
// presents on user sync calls.
const ProvisionSecretHeader = "X-Provision-Secret"

type syncUserReq struct {
	UserID      string `json:"user_id" binding:"required"`
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
}

// SyncUser is the identity collaborator's write boundary: it pushes
// {user_id, email, display_name} here on signup and on profile update.
func (h *Handler) SyncUser(c *gin.Context) {
	got := c.GetHeader(ProvisionSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.Cfg.ProvisionSecret)) != 1 {
		common.Fail(c, http.StatusUnauthorized, 40103, "bad provision secret")
		return
	}

	var req syncUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	u, err := h.Dir.Provision(c.Request.Context(), req.UserID, req.Email, req.DisplayName)
	if err != nil {
		failFromErr(c, err)
		return
	}

	common.OK(c, gin.H{"user": u})
}

func (h *Handler) GetUserByID(c *gin.Context) {
	u, err := h.Dir.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromErr(c, err)
		return
	}
	common.OK(c, gin.H{"user": u})
}

// SearchUsers matches q against email or display name; the caller is always
// excluded from the results.
func (h *Handler) SearchUsers(c *gin.Context) {
	uid, okk := callerID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	users, err := h.Dir.SearchUsers(c.Request.Context(), c.Query("q"), uid)
	if err != nil {
		failFromErr(c, err)
		return
	}
	common.OK(c, gin.H{"users": users})
}

func (h *Handler) Me(c *gin.Context) {
	uid, okk := callerID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	u, err := h.Dir.GetUser(c.Request.Context(), uid)
	if err != nil {
		failFromErr(c, err)
		return
	}
	common.OK(c, gin.H{"user": u})
}
