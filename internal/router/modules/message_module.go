package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-anon-feedback/internal/container"
	handlers "github.com/oksasatya/go-anon-feedback/internal/interface/http"
	"github.com/oksasatya/go-anon-feedback/internal/interface/middleware"
	"github.com/oksasatya/go-anon-feedback/pkg/helpers"
)

// MessageModule wires the inbox routes under /api/msg. Sending is public.
type MessageModule struct {
	Handler *handlers.MessageHandler
	JWT     *helpers.JWTManager
}

func NewMessageModule(h *handlers.MessageHandler, jwt *helpers.JWTManager) *MessageModule {
	return &MessageModule{Handler: h, JWT: jwt}
}

func (m *MessageModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	sendLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	msg := rg.Group("/msg")
	msg.POST("", sendLimiter, m.Handler.Send)

	auth := msg.Group("")
	auth.Use(middleware.Auth(rdb, m.JWT))
	auth.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("", m.Handler.List)
		auth.PUT("", m.Handler.Update)
		auth.DELETE("", m.Handler.Delete)
		auth.GET("/accept", m.Handler.GetAccept)
		auth.POST("/accept", m.Handler.SetAccept)
		auth.GET("/search", m.Handler.Search)
		auth.POST("/export", middleware.RateLimit(rdb, 5, time.Hour, middleware.KeyByUserID(), nil), m.Handler.Export)
	}
}

func (m *MessageModule) Name() string { return "messages" }
