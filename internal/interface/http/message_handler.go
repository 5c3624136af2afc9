package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-anon-feedback/internal/application"
	"github.com/oksasatya/go-anon-feedback/internal/interface/middleware"
	"github.com/oksasatya/go-anon-feedback/pkg/response"
)

type MessageHandler struct {
	Svc    *application.MessageService
	Logger *logrus.Logger
}

func NewMessageHandler(svc *application.MessageService, logger *logrus.Logger) *MessageHandler {
	return &MessageHandler{Svc: svc, Logger: logger}
}

type pageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

type acceptRequest struct {
	AcceptMessages *bool `json:"acceptMessages" binding:"required"`
}

type sendRequest struct {
	Username string `json:"username" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Topic    string `json:"topic"`
}

type messageIDRequest struct {
	MessageID string `json:"messageId" binding:"required"`
}

type updateMessageRequest struct {
	MessageID  string `json:"messageId" binding:"required"`
	NewContent string `json:"newContent" binding:"required"`
}

type searchQuery struct {
	Q    string `form:"q" binding:"required"`
	Size int    `form:"size" binding:"omitempty,min=1,max=100"`
}

func acceptData(allow bool) gin.H { return gin.H{"isAcceptingMessages": allow} }

// GetAccept GET /api/msg/accept
func (h *MessageHandler) GetAccept(c *gin.Context) {
	allow, err := h.Svc.AcceptMessages(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	response.Success(c, http.StatusOK, acceptData(allow), "ok", nil)
}

// SetAccept POST /api/msg/accept
func (h *MessageHandler) SetAccept(c *gin.Context) {
	var req acceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, 0)
		return
	}
	allow, err := h.Svc.SetAcceptMessages(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), *req.AcceptMessages)
	if err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	response.Success(c, http.StatusOK, acceptData(allow), "Message acceptance status updated", nil)
}

// List GET /api/msg?page=&limit=
func (h *MessageHandler) List(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err, 0)
		return
	}
	page, err := h.Svc.ListMessages(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), q.Page, q.Limit)
	if err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	response.Success(c, http.StatusOK, page, "ok", nil)
}

// Send POST /api/msg. Public.
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, 0)
		return
	}
	msg, err := h.Svc.SendMessage(c.Request.Context(), application.SendInput{
		Username: req.Username,
		Content:  req.Content,
		Topic:    req.Topic,
	})
	if err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"id": msg.ID, "createdAt": msg.CreatedAt}, "Message sent successfully", nil)
}

// Delete DELETE /api/msg
func (h *MessageHandler) Delete(c *gin.Context) {
	var req messageIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, 0)
		return
	}
	if err := h.Svc.DeleteMessage(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.MessageID); err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": req.MessageID}, "Message deleted", nil)
}

// Update PUT /api/msg
func (h *MessageHandler) Update(c *gin.Context) {
	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, 0)
		return
	}
	msg, err := h.Svc.UpdateMessage(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.MessageID, req.NewContent)
	if err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	response.Success(c, http.StatusOK, msg, "Message updated", nil)
}

// Search GET /api/msg/search?q=&size=
func (h *MessageHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err, 0)
		return
	}
	msgs, err := h.Svc.SearchMessages(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), q.Q, q.Size)
	if err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	response.Success(c, http.StatusOK, msgs, "ok", map[string]any{"count": len(msgs)})
}

// Export POST /api/msg/export
func (h *MessageHandler) Export(c *gin.Context) {
	exp, err := h.Svc.ExportMessages(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		respondError(c, h.Logger, err, 0)
		return
	}
	response.Success(c, http.StatusCreated, exp, "Messages exported", nil)
}
