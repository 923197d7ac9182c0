package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/suPer8Hu/gopherchat/internal/auth"
	"github.com/suPer8Hu/gopherchat/internal/chat"
	"github.com/suPer8Hu/gopherchat/internal/config"
	"github.com/suPer8Hu/gopherchat/internal/directory"
	"github.com/suPer8Hu/gopherchat/internal/fanout"
	"github.com/suPer8Hu/gopherchat/internal/httpapi"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/handlers"
	"github.com/suPer8Hu/gopherchat/internal/logger"
	"github.com/suPer8Hu/gopherchat/internal/models"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &chat.Conversation{}, &chat.Message{}))

	cfg := config.Config{JWTSecret: testSecret, ProvisionSecret: "prov-secret"}
	log := logger.NewNop()

	chatSvc := chat.NewService(chat.NewRepo(db), fanout.NewHub(log), nil, log)
	dir := directory.NewService(db)
	h := handlers.NewHandler(cfg, chatSvc, dir, nil, log)
	return httpapi.NewRouter(cfg, h, log)
}

func token(t *testing.T, userID, name string) string {
	t.Helper()
	tok, err := auth.SignJWT(userID, name, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, method, path, bearer string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func syncUser(t *testing.T, r http.Handler, id, email, name string) {
	t.Helper()
	rec, _ := do(t, r, http.MethodPost, "/v1/users/sync", "", gin.H{
		"user_id": id, "email": email, "display_name": name,
	}, map[string]string{handlers.ProvisionSecretHeader: "prov-secret"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestEndToEnd_OpenSendList(t *testing.T) {
	r := newTestRouter(t)
	syncUser(t, r, "u1", "a@x.com", "Alice")
	syncUser(t, r, "u2", "b@x.com", "Bob")
	alice := token(t, "u1", "Alice")

	rec, env := do(t, r, http.MethodPost, "/v1/conversations", alice, gin.H{"user_id": "u2"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var opened struct {
		Conversation chat.Conversation `json:"conversation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &opened))
	require.Equal(t, "u1_u2", opened.Conversation.ID)

	rec, env = do(t, r, http.MethodPost, "/v1/conversations/u1_u2/messages", alice, gin.H{"text": "hello"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sent struct {
		Message chat.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	require.Equal(t, "u1", sent.Message.SenderID)
	require.Equal(t, "Alice", sent.Message.SenderName)
	require.NotEmpty(t, sent.Message.ID)

	rec, env = do(t, r, http.MethodGet, "/v1/conversations/u1_u2/messages", alice, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Messages []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got.Messages, 1)
	require.Equal(t, "hello", got.Messages[0].Text)

	rec, env = do(t, r, http.MethodGet, "/v1/conversations", alice, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Conversations []struct {
			ID              string       `json:"conversation_id"`
			Peer            *models.User `json:"peer"`
			LastMessageText string       `json:"last_message_text"`
			UnreadCount     int64        `json:"unread_count"`
		} `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Conversations, 1)
	require.Equal(t, "hello", list.Conversations[0].LastMessageText)
	require.NotNil(t, list.Conversations[0].Peer)
	require.Equal(t, "u2", list.Conversations[0].Peer.ID)
}

func TestSendMessage_Errors(t *testing.T) {
	r := newTestRouter(t)
	syncUser(t, r, "u1", "a@x.com", "Alice")
	syncUser(t, r, "u2", "b@x.com", "Bob")
	syncUser(t, r, "u3", "c@x.com", "Carol")
	alice := token(t, "u1", "Alice")

	rec, _ := do(t, r, http.MethodPost, "/v1/conversations", alice, gin.H{"user_id": "u2"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// blank text
	rec, env := do(t, r, http.MethodPost, "/v1/conversations/u1_u2/messages", alice, gin.H{"text": "   "}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 10011, env.Code)

	// unknown conversation
	rec, env = do(t, r, http.MethodPost, "/v1/conversations/u8_u9/messages", alice, gin.H{"text": "hi"}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 40410, env.Code)

	// outsider can't post into (or even see) someone else's conversation
	carol := token(t, "u3", "Carol")
	rec, env = do(t, r, http.MethodPost, "/v1/conversations/u1_u2/messages", carol, gin.H{"text": "hi"}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 40410, env.Code)
}

func TestOpenConversation_SelfRejected(t *testing.T) {
	r := newTestRouter(t)
	syncUser(t, r, "u1", "a@x.com", "Alice")
	alice := token(t, "u1", "Alice")

	rec, env := do(t, r, http.MethodPost, "/v1/conversations", alice, gin.H{"user_id": "u1"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 10010, env.Code)
}

func TestAuthRequired(t *testing.T) {
	r := newTestRouter(t)

	rec, _ := do(t, r, http.MethodGet, "/v1/conversations", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, r, http.MethodGet, "/v1/conversations", "not-a-token", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsers_SearchAndLookup(t *testing.T) {
	r := newTestRouter(t)
	syncUser(t, r, "u1", "a@x.com", "Alice")
	syncUser(t, r, "u2", "b@x.com", "Alicia")
	syncUser(t, r, "u3", "c@x.com", "Bob")
	alice := token(t, "u1", "Alice")

	rec, env := do(t, r, http.MethodGet, "/v1/users/search?q=ali", alice, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Users []models.User `json:"users"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res.Users, 1)
	require.Equal(t, "u2", res.Users[0].ID)

	rec, env = do(t, r, http.MethodGet, "/v1/users/ghost", alice, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 40411, env.Code)

	rec, _ = do(t, r, http.MethodGet, "/v1/me", alice, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSyncUser_SecretAndIDRules(t *testing.T) {
	r := newTestRouter(t)

	// wrong secret
	rec, _ := do(t, r, http.MethodPost, "/v1/users/sync", "", gin.H{
		"user_id": "u1", "email": "a@x.com", "display_name": "Alice",
	}, map[string]string{handlers.ProvisionSecretHeader: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// id containing the conversation separator is rejected at issuance
	rec, env := do(t, r, http.MethodPost, "/v1/users/sync", "", gin.H{
		"user_id": "u_1", "email": "a@x.com", "display_name": "Alice",
	}, map[string]string{handlers.ProvisionSecretHeader: "prov-secret"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 10012, env.Code)
}
