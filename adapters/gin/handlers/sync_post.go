package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/engarde-media/templatesync/adapters/ginutil"
	"github.com/engarde-media/templatesync/policy"
	enginesync "github.com/engarde-media/templatesync/sync"
)

// Limiter is the tier-aware rate limit surface used by the sync route.
// A nil Limiter allows everything.
type Limiter interface {
	Allow(ctx context.Context, userID string, tier policy.Tier) (bool, error)
}

// HandleSyncPOST runs a reconciliation for the path user.
// ?force_sync=true bypasses the cached terminal-skip result.
func HandleSyncPOST(e *enginesync.Engine, rl Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.Param("user_id"))
		if err != nil {
			ginutil.BadRequest(c, "invalid_user_id")
			return
		}
		force, _ := strconv.ParseBool(c.DefaultQuery("force_sync", "false"))

		if rl != nil {
			ent := e.Entitlement(c.Request.Context(), userID)
			allowed, err := rl.Allow(c.Request.Context(), userID.String(), ent.Tier)
			if err == nil && !allowed {
				ginutil.TooMany(c)
				return
			}
		}

		res, err := e.Sync(c.Request.Context(), userID, force)
		if err != nil {
			if errors.Is(err, enginesync.ErrSyncInProgress) {
				ginutil.Conflict(c, "sync_in_progress")
				return
			}
			ginutil.ServerErr(c, "sync_failed", enginesync.Retryable(err))
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
