package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/auth"
	"github.com/vovakirdan/twinlink-server/internal/config"
	"github.com/vovakirdan/twinlink-server/internal/core"
	"github.com/vovakirdan/twinlink-server/internal/metrics"
	"github.com/vovakirdan/twinlink-server/internal/store"
)

// NewServer builds the HTTP server with the realtime and REST routes.
// directory may be nil, in which case the directory sync routes are not mounted.
func NewServer(hub *core.Hub, authService *auth.Service, directory store.Directory, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiHandlers := NewAPIHandlers(hub, logger)
	sseHandler := NewSSEHandler(hub, cfg, logger)

	api := router.Group("/api")
	api.Use(AuthMiddleware(authService, logger))
	{
		api.GET("/events", sseHandler.Stream)
		api.POST("/conversations/:id/typing", apiHandlers.SetTyping)
		api.GET("/presence/:userId", apiHandlers.Presence)
	}

	internal := router.Group("/internal")
	internal.Use(InternalKeyMiddleware(cfg.InternalAPIKey, logger))
	{
		internal.POST("/events", apiHandlers.PublishEvent)
		if directory != nil {
			directoryHandlers := NewDirectoryHandlers(directory, logger)
			internal.POST("/connections", directoryHandlers.SetConnection)
			internal.POST("/conversations/:id/participants", directoryHandlers.AddParticipant)
		}
	}

	// gin's response writer cannot be hijacked, so the socket endpoint sits
	// beside the router on a plain mux.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, authService, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
