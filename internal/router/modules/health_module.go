package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-anon-feedback/internal/container"
	handlers "github.com/oksasatya/go-anon-feedback/internal/interface/http"
	"github.com/oksasatya/go-anon-feedback/internal/interface/middleware"
)

type HealthModule struct {
	Handler *handlers.HealthHandler
}

func NewHealthModule(h *handlers.HealthHandler) *HealthModule { return &HealthModule{Handler: h} }

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	// probes from inside the cluster are not limited
	rl := middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/health", rl, m.Handler.Health)
}

func (m *HealthModule) Name() string { return "health" }
