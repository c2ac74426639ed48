package syncgin

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/engarde-media/templatesync/adapters/gin/handlers"
	"github.com/engarde-media/templatesync/auth"
	enginesync "github.com/engarde-media/templatesync/sync"
)

// RouterConfig carries the collaborators for the HTTP surface.
type RouterConfig struct {
	Engine   *enginesync.Engine
	Verifier *auth.Verifier
	Limiter  handlers.Limiter // optional
	Log      *logrus.Logger
	Service  string
	Version  string
}

// NewRouter builds the gin engine with the sync routes mounted:
//
//	GET  /                                          service info
//	GET  /health                                    liveness probe
//	POST /sync/:user_id?force_sync=bool             run reconciliation
//	GET  /sync/:user_id/status                      read-only projection
//	POST /sync/:user_id/check-access/:template_id   single-template check
//
// Everything under /sync requires the service bearer token.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Service == "" {
		cfg.Service = "templatesync"
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLog(cfg.Log))

	health := handlers.HandleHealthGET(cfg.Service, cfg.Version)
	r.GET("/", health)
	r.GET("/health", health)

	sync := r.Group("/sync", ServiceAuth(cfg.Verifier))
	sync.POST("/:user_id", handlers.HandleSyncPOST(cfg.Engine, cfg.Limiter))
	sync.GET("/:user_id/status", handlers.HandleSyncStatusGET(cfg.Engine))
	sync.POST("/:user_id/check-access/:template_id", handlers.HandleCheckAccessPOST(cfg.Engine))

	return r
}

func requestLog(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}).Debug("request")
	}
}
