package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-anon-feedback/pkg/helpers"
	"github.com/oksasatya/go-anon-feedback/pkg/response"
)

// Context keys set by Auth.
const (
	CtxUserIDKey   = "userID"
	CtxUsernameKey = "username"
)

func unauthorized(c *gin.Context, message string) {
	response.Error[any](c, http.StatusUnauthorized, message, nil)
	c.Abort()
}

// Auth validates the access token cookie and, when Redis is configured,
// that the token's session id is still the active one.
// It sets userID and username in the Gin context on success.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.AccessCookie)
		if err != nil || token == "" {
			unauthorized(c, "Not authenticated")
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			unauthorized(c, "Invalid or expired session")
			return
		}

		if rdb != nil {
			sid, err := helpers.SessionID(c.Request.Context(), rdb, claims.UserID)
			if err != nil || sid == "" || sid != claims.SessionID {
				unauthorized(c, "Session has ended")
				return
			}
		}

		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxUsernameKey, claims.Username)
		c.Next()
	}
}
