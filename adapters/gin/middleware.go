// Package syncgin mounts the sync engine behind a gin router: service-token
// auth, tier-aware rate limiting, and the three sync routes plus health.
package syncgin

import (
	"github.com/gin-gonic/gin"

	"github.com/engarde-media/templatesync/adapters/ginutil"
	"github.com/engarde-media/templatesync/auth"
)

// ServiceAuth gates a route group on the service-to-service bearer token.
func ServiceAuth(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := v.VerifyHeader(c.GetHeader("Authorization")); err != nil {
			ginutil.Unauthorized(c, "invalid_service_token")
			return
		}
		c.Next()
	}
}
