package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/engarde-media/templatesync/adapters/ginutil"
	enginesync "github.com/engarde-media/templatesync/sync"
)

// HandleSyncStatusGET serves the read-only sync projection for a user.
func HandleSyncStatusGET(e *enginesync.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.Param("user_id"))
		if err != nil {
			ginutil.BadRequest(c, "invalid_user_id")
			return
		}
		st, err := e.Status(c.Request.Context(), userID)
		if err != nil {
			ginutil.ServerErr(c, "status_failed", enginesync.Retryable(err))
			return
		}
		c.JSON(http.StatusOK, st)
	}
}
