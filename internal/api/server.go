package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alexmgee/patron-hub/internal/config"
)

const internalTokenHeader = "X-Patron-Hub-Internal-Token"

// NewServer creates the HTTP router with all routes configured.
func NewServer(handler *Handler, cfg config.ServerConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))
	r.Use(gin.Recovery())

	setupRoutes(r, handler, cfg)
	return r
}

func setupRoutes(r *gin.Engine, h *Handler, cfg config.ServerConfig) {
	r.GET("/health", h.Health)

	app := r.Group("/api")
	if cfg.APIKey != "" {
		app.Use(authMiddleware(cfg.APIKey))
	}
	{
		app.POST("/sync", h.StartSync)
		app.GET("/sync", h.SyncStatus)

		app.POST("/content/:id/archive", h.ArchiveContent)
		app.POST("/content/:id/seen", h.MarkSeen)
		app.GET("/content/:id/files", h.ListFiles)
		app.POST("/content/:id/harvest", h.EnqueueHarvest)

		app.POST("/subscriptions", h.CreateSubscription)
		app.POST("/subscriptions/:id/settings", h.UpdateSubscription)
		app.GET("/subscriptions/:id/sync-logs", h.ListSyncLogs)

		app.POST("/import/json", h.ImportJSON)

		app.GET("/settings", h.GetSettings)
		app.PUT("/settings", h.UpdateSettings)
	}

	internal := r.Group("/api/internal", internalAuth(cfg.InternalToken))
	{
		internal.POST("/harvest/claim", h.ClaimJob)
		internal.POST("/harvest/complete", h.CompleteJob)
		internal.POST("/assets", h.AddAssets)
		internal.POST("/content/:id/archive", h.ArchiveContent)
	}
}

// authMiddleware accepts the key in X-API-Key or as a Bearer token.
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-API-Key")
		if provided == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				provided = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("API key required"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid API key"))
			return
		}
		c.Next()
	}
}

// internalAuth guards the worker API. Without a configured token the API is
// switched off rather than left open.
func internalAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusNotImplemented, errorBody("internal API is not configured"))
			return
		}
		provided := c.GetHeader(internalTokenHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody("forbidden"))
			return
		}
		c.Next()
	}
}
