package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-anon-feedback/internal/container"
	handlers "github.com/oksasatya/go-anon-feedback/internal/interface/http"
	"github.com/oksasatya/go-anon-feedback/internal/interface/middleware"
	"github.com/oksasatya/go-anon-feedback/pkg/helpers"
)

// TopicModule wires /api/topics. Reading a topic and posting to it are public.
type TopicModule struct {
	Handler *handlers.TopicHandler
	JWT     *helpers.JWTManager
}

func NewTopicModule(h *handlers.TopicHandler, jwt *helpers.JWTManager) *TopicModule {
	return &TopicModule{Handler: h, JWT: jwt}
}

func (m *TopicModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	protected := middleware.Auth(rdb, m.JWT)
	readLimiter := middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByIP(), nil)
	postLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	topics := rg.Group("/topics")
	topics.GET("", protected, m.Handler.List)
	topics.POST("", protected, m.Handler.Create)
	topics.PUT("", protected, m.Handler.Rename)
	topics.DELETE("", protected, m.Handler.Delete)
	topics.GET("/title/:title", protected, m.Handler.ByTitle)

	topics.GET("/:id", readLimiter, m.Handler.Get)
	topics.POST("/:id", postLimiter, m.Handler.AddMessage)
	topics.PUT("/:id", protected, m.Handler.UpdateMessage)
	topics.DELETE("/:id", protected, m.Handler.DeleteMessage)
}

func (m *TopicModule) Name() string { return "topics" }
