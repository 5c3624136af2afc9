package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-anon-feedback/internal/application"
	"github.com/oksasatya/go-anon-feedback/internal/interface/middleware"
	"github.com/oksasatya/go-anon-feedback/pkg/response"
)

// Topic payloads that fail validation are answered with 422.
const topicValidationStatus = http.StatusUnprocessableEntity

type TopicHandler struct {
	Svc    *application.TopicService
	Logger *logrus.Logger
}

func NewTopicHandler(svc *application.TopicService, logger *logrus.Logger) *TopicHandler {
	return &TopicHandler{Svc: svc, Logger: logger}
}

type createTopicRequest struct {
	Title string `json:"title" binding:"required"`
}

type renameTopicRequest struct {
	TopicID  string `json:"topicId" binding:"required"`
	NewTitle string `json:"newTitle" binding:"required"`
}

type topicIDRequest struct {
	TopicID string `json:"topicId" binding:"required"`
}

type topicContentRequest struct {
	Content string `json:"content" binding:"required"`
}

type updateTopicMessageRequest struct {
	MessageID string `json:"messageId" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

func (h *TopicHandler) fail(c *gin.Context, err error) {
	respondError(c, h.Logger, err, topicValidationStatus)
}

// List GET /api/topics
func (h *TopicHandler) List(c *gin.Context) {
	topics, err := h.Svc.ListTopics(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, topics, "ok", nil)
}

// Create POST /api/topics
func (h *TopicHandler) Create(c *gin.Context) {
	var req createTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, topicValidationStatus)
		return
	}
	t, err := h.Svc.CreateTopic(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.Title)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, t, "Topic created", nil)
}

// Rename PUT /api/topics
func (h *TopicHandler) Rename(c *gin.Context) {
	var req renameTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, topicValidationStatus)
		return
	}
	t, err := h.Svc.RenameTopic(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.TopicID, req.NewTitle)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, t, "Topic renamed", nil)
}

// Delete DELETE /api/topics
func (h *TopicHandler) Delete(c *gin.Context) {
	var req topicIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, topicValidationStatus)
		return
	}
	if err := h.Svc.DeleteTopic(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.TopicID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": req.TopicID}, "Topic deleted", nil)
}

// ByTitle GET /api/topics/title/:title?page=&limit=
func (h *TopicHandler) ByTitle(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err, 0)
		return
	}
	res, err := h.Svc.GetTopicMessages(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), c.Param("title"), q.Page, q.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "ok", nil)
}

// Get GET /api/topics/:id?page=&limit=. Public.
func (h *TopicHandler) Get(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err, 0)
		return
	}
	res, err := h.Svc.GetTopic(c.Request.Context(), c.Param("id"), q.Page, q.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "ok", nil)
}

// AddMessage POST /api/topics/:id. Public.
func (h *TopicHandler) AddMessage(c *gin.Context) {
	var req topicContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, topicValidationStatus)
		return
	}
	msg, err := h.Svc.AddMessageToTopic(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, msg, "Message added to topic", nil)
}

// UpdateMessage PUT /api/topics/:id
func (h *TopicHandler) UpdateMessage(c *gin.Context) {
	var req updateTopicMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, topicValidationStatus)
		return
	}
	msg, err := h.Svc.UpdateTopicMessage(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), c.Param("id"), req.MessageID, req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, msg, "Topic message updated", nil)
}

// DeleteMessage DELETE /api/topics/:id?messageId=
func (h *TopicHandler) DeleteMessage(c *gin.Context) {
	messageID := c.Query("messageId")
	if err := h.Svc.DeleteTopicMessage(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), c.Param("id"), messageID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": messageID}, "Topic message deleted", nil)
}
