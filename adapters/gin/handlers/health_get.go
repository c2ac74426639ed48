package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleHealthGET serves the unauthenticated service info / liveness probe.
func HandleHealthGET(service, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": service,
			"status":  "healthy",
			"version": version,
		})
	}
}
