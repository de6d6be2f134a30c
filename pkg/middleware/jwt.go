package middleware

import (
	"strings"

	"Momentum/pkg/response"
	"Momentum/pkg/utils"

	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware resolves the calling account from a Bearer token and
// stores it in the context as "accountID".
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.ReplyUnauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.ReplyUnauthorized(c, "Authorization header format must be Bearer {token}")
			c.Abort()
			return
		}
		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			response.ReplyUnauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}
		c.Set("accountID", claims.AccountID)
		c.Next()
	}
}
