package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-anon-feedback/internal/application"
	"github.com/oksasatya/go-anon-feedback/internal/infrastructure/memory"
	"github.com/oksasatya/go-anon-feedback/internal/interface/middleware"
	"github.com/oksasatya/go-anon-feedback/pkg/helpers"
	"github.com/oksasatya/go-anon-feedback/pkg/mailer"
	"github.com/oksasatya/go-anon-feedback/pkg/validation"
)

type codeNotifier struct {
	codes map[string]string
	err   error
}

func (n *codeNotifier) SendVerification(_ context.Context, v mailer.Verification) error {
	n.codes[v.Username] = v.Code
	return n.err
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

type testServer struct {
	engine   *gin.Engine
	notifier *codeNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validation.Init())

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memory.NewStore()
	rdb := helpers.NewRedisClient(miniredis.RunT(t).Addr(), "", 0)
	jwt := helpers.NewJWTManager("a-secret", "r-secret", time.Hour, 24*time.Hour)
	notifier := &codeNotifier{codes: map[string]string{}}

	accounts := application.NewAccountService(store.Users(), jwt, rdb, notifier, log, 10*time.Minute, 24*time.Hour)
	messages := application.NewMessageService(store.Users(), store.Messages(), store.Topics(), nil, nil, application.DefaultPaging, log)
	topics := application.NewTopicService(store.Topics(), store.Messages(), nil, application.DefaultPaging, log)

	auth := NewAuthHandler(accounts, log, "", false)
	msg := NewMessageHandler(messages, log)
	topic := NewTopicHandler(topics, log)
	health := NewHealthHandler(nil, rdb)
	protected := middleware.Auth(rdb, jwt)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	api := r.Group("/api")
	api.GET("/health", health.Health)
	api.POST("/signup", auth.Signup)
	api.GET("/auth/verify", auth.Verify)
	api.GET("/auth/check-username", auth.CheckUsername)
	api.POST("/auth/login", auth.Login)
	api.POST("/auth/refresh", auth.Refresh)
	api.POST("/auth/logout", protected, auth.Logout)
	api.GET("/auth/session", protected, auth.Session)
	api.POST("/msg", msg.Send)
	api.GET("/msg", protected, msg.List)
	api.GET("/msg/accept", protected, msg.GetAccept)
	api.POST("/msg/accept", protected, msg.SetAccept)
	api.DELETE("/msg", protected, msg.Delete)
	api.POST("/msg/export", protected, msg.Export)
	api.POST("/topics", protected, topic.Create)
	api.GET("/topics/:id", topic.Get)
	api.POST("/topics/:id", topic.AddMessage)

	return &testServer{engine: r, notifier: notifier}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

// login signs up, verifies and logs in username, returning the session cookies.
func (s *testServer) login(t *testing.T, username string) []*http.Cookie {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/api/signup", gin.H{"username": username, "email": username + "@example.com", "password": "password1"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/auth/verify?uname="+username+"&code="+s.notifier.codes[username], nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"identifier": username, "password": "password1"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Result().Cookies()
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	cookies := s.login(t, "alice")
	require.Len(t, cookies, 2)

	w, env := s.do(t, http.MethodGet, "/api/auth/session", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var view application.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "alice", view.Username)
	assert.True(t, view.Verified)

	w, _ = s.do(t, http.MethodPost, "/api/auth/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/auth/session", nil, cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Session has ended", env.Message)
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "alice")

	w, env := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"identifier": "alice", "password": "wrongpass"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, _ = s.do(t, http.MethodPost, "/api/signup", gin.H{"username": "bob", "email": "bob@example.com", "password": "password1"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"identifier": "bob@example.com", "password": "password1"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"identifier": "alice"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignup_Validation(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodPost, "/api/signup", gin.H{"username": "a-b", "email": "nope", "password": "short"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Error, &details))
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
}

func TestSignup_EmailFailure(t *testing.T) {
	s := newTestServer(t)
	s.notifier.err = errors.New("smtp down")

	w, env := s.do(t, http.MethodPost, "/api/signup", gin.H{"username": "alice", "email": "alice@example.com", "password": "password1"}, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)

	w, env = s.do(t, http.MethodPost, "/api/signup", gin.H{"username": "alice", "email": "alice@example.com", "password": "password1"}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	var res application.SignupResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Resent)
	assert.False(t, res.Delivered)
}

func TestCheckUsername(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "alice")

	_, env := s.do(t, http.MethodGet, "/api/auth/check-username?u=alice", nil, nil)
	assert.JSONEq(t, `{"available":false}`, string(env.Data))

	_, env = s.do(t, http.MethodGet, "/api/auth/check-username?u=carol", nil, nil)
	assert.JSONEq(t, `{"available":true}`, string(env.Data))

	w, _ := s.do(t, http.MethodGet, "/api/auth/check-username?u=x", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessages_SendListDelete(t *testing.T) {
	s := newTestServer(t)
	cookies := s.login(t, "alice")

	w, env := s.do(t, http.MethodPost, "/api/msg", gin.H{"username": "alice", "content": "you rock"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var sent struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sent))

	w, env = s.do(t, http.MethodGet, "/api/msg?page=1&limit=5", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var page application.Page
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "you rock", page.Messages[0].Text)
	assert.Equal(t, 1, page.TotalPages)

	w, _ = s.do(t, http.MethodDelete, "/api/msg", gin.H{"messageId": sent.ID}, cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/msg", gin.H{"messageId": sent.ID}, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessages_AcceptToggle(t *testing.T) {
	s := newTestServer(t)
	cookies := s.login(t, "alice")

	w, env := s.do(t, http.MethodPost, "/api/msg/accept", gin.H{"acceptMessages": false}, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"isAcceptingMessages":false}`, string(env.Data))

	w, _ = s.do(t, http.MethodPost, "/api/msg", gin.H{"username": "alice", "content": "hello"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/msg", gin.H{"username": "nobody", "content": "hello"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/msg/accept", gin.H{}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessages_ExportUnavailable(t *testing.T) {
	s := newTestServer(t)
	cookies := s.login(t, "alice")

	w, env := s.do(t, http.MethodPost, "/api/msg/export", nil, cookies)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "export not configured", env.Message)
}

func TestTopics_ValidationIs422(t *testing.T) {
	s := newTestServer(t)
	cookies := s.login(t, "alice")

	w, _ := s.do(t, http.MethodPost, "/api/topics", gin.H{"title": "   "}, cookies)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/topics", gin.H{"title": "Ideas"}, cookies)
	require.Equal(t, http.StatusCreated, w.Code)
	var topic struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &topic))

	w, _ = s.do(t, http.MethodPost, "/api/topics", gin.H{"title": "ideas"}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/topics/"+topic.ID, gin.H{"content": "more coffee"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/topics/"+topic.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page application.TopicPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 1, page.TotalMessages)

	w, _ = s.do(t, http.MethodGet, "/api/topics/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"database":"memory","redis":"ok"}`, string(env.Data))
}
