package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/yogaswara/account-service/pkg/helpers"
	"github.com/yogaswara/account-service/pkg/response"
)

const CtxAccountIDKey = "accountID"

// Auth validates the session token cookie and, when Redis is available,
// checks that the session record still exists. It sets accountID in the Gin
// context on success.
func Auth(rdb *redis.Client, sessions *helpers.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("session_token")
		if err != nil || token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing session token", nil)
			c.Abort()
			return
		}
		claims, err := sessions.Parse(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid session token", nil)
			c.Abort()
			return
		}

		if rdb != nil {
			key := helpers.SessionKey(claims.AccountID)
			data, err := rdb.HGetAll(c.Request.Context(), key).Result()
			if err != nil || len(data) == 0 {
				response.Error[any](c, http.StatusUnauthorized, "session not found", nil)
				c.Abort()
				return
			}
		}

		c.Set(CtxAccountIDKey, claims.AccountID)
		c.Next()
	}
}
