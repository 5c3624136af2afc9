package modules

import (
	"expvar"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-anon-feedback/internal/container"
	"github.com/oksasatya/go-anon-feedback/internal/interface/middleware"
)

var publishInfo sync.Once

// DebugModule exposes expvar counters at /api/debug/vars, plus the store
// driver and process start time.
type DebugModule struct {
	StartedAt time.Time
}

func NewDebugModule() *DebugModule { return &DebugModule{StartedAt: time.Now().UTC()} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	publishInfo.Do(func() {
		driver := "unknown"
		if cfg := container.GetConfig(); cfg != nil {
			driver = cfg.StoreDriver
		}
		started := m.StartedAt.Format(time.RFC3339)
		expvar.Publish("store_driver", expvar.Func(func() any { return driver }))
		expvar.Publish("started_at", expvar.Func(func() any { return started }))
	})

	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), nil)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}

func (m *DebugModule) Name() string { return "debug" }
