package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// Authentication is a global bearer-token gate for the operator surface.
// When SLAOPS_API_TOKEN is unset every request passes, which keeps local
// development and tests friction-free.
func Authentication(c *gin.Context) {
	token := os.Getenv("SLAOPS_API_TOKEN")
	if token == "" {
		c.Next()
		return
	}
	auth := c.GetHeader("Authorization")
	if strings.TrimPrefix(auth, "Bearer ") != token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"code": "UNAUTHORIZED", "message": "invalid or missing bearer token"},
		})
		return
	}
	c.Next()
}
