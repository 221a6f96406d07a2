package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/vta/internal/pkg/errcode"
	"github.com/xxxsen/vta/internal/pkg/jwt"
	"github.com/xxxsen/vta/internal/pkg/response"
)

const ContextClientKey = "client"

// JWTAuth requires a bearer token signed with secret. An empty secret turns
// the check off.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, errcode.ErrUnauthorized, "missing authorization")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Abort(c, errcode.ErrUnauthorized, "invalid authorization")
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Abort(c, errcode.ErrUnauthorized, "invalid token")
			return
		}
		c.Set(ContextClientKey, claims.Subject)
		c.Next()
	}
}
