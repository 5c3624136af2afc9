package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// CtxRealIPKey holds the client address resolved by RealIP.
const CtxRealIPKey = "real_ip"

// proxy headers in order of trust; X-Forwarded-For uses its left-most entry
var ipHeaders = []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"}

func headerIP(c *gin.Context, name string) net.IP {
	v := c.GetHeader(name)
	if name == "X-Forwarded-For" {
		v, _, _ = strings.Cut(v, ",")
	}
	return net.ParseIP(strings.TrimSpace(v))
}

// RealIP resolves the sender's address for rate limiting and logs.
// Senders are anonymous, so this is the only per-client key for public routes.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		for _, h := range ipHeaders {
			if parsed := headerIP(c, h); parsed != nil {
				ip = parsed.String()
				break
			}
		}
		c.Set(CtxRealIPKey, ip)
		c.Next()
	}
}
