package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminAuth rejects admin requests without the expected X-Admin-Token. An
// empty expected token means the store is unconfigured; those requests are
// rejected too, so a misconfigured deployment never accepts writes.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" || c.GetHeader("X-Admin-Token") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": 401,
				"msg":  "invalid admin token",
			})
			return
		}
		c.Next()
	}
}
