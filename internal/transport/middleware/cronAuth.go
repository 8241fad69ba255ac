package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/gin-gonic/gin"
)

// CronAuth requires "Authorization: Bearer <secret>". An empty secret leaves the route open.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": entity.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}
