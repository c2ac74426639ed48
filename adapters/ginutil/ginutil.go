// Package ginutil holds the shared response helpers for the gin adapter.
// Raw store errors never reach the caller; handlers respond with a short
// machine-readable code and, for failures, a retryable flag.
package ginutil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func BadRequest(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code})
}

func Unauthorized(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
}

func NotFound(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": code})
}

func Conflict(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": code, "retryable": true})
}

func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited", "retryable": true})
}

// ServerErr reports an internal failure with its retry classification.
func ServerErr(c *gin.Context, code string, retryable bool) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": code, "retryable": retryable})
}
