package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/engarde-media/templatesync/adapters/ginutil"
	enginesync "github.com/engarde-media/templatesync/sync"
)

// HandleCheckAccessPOST evaluates a single template for the path user
// without syncing anything.
func HandleCheckAccessPOST(e *enginesync.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.Param("user_id"))
		if err != nil {
			ginutil.BadRequest(c, "invalid_user_id")
			return
		}
		templateID, err := uuid.Parse(c.Param("template_id"))
		if err != nil {
			ginutil.BadRequest(c, "invalid_template_id")
			return
		}
		res, err := e.CheckAccess(c.Request.Context(), userID, templateID)
		if err != nil {
			ginutil.ServerErr(c, "check_access_failed", enginesync.Retryable(err))
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
