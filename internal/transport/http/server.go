package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/core"
)

// NewServer builds the HTTP server: the websocket endpoint, health and
// metrics, and the API used by trusted backends.
func NewServer(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	relay := NewRelayHandlers(hub, logger)

	router.GET("/health", healthHandler)
	router.GET("/metrics", relay.Metrics)

	backend := router.Group("/", BackendAuth(cfg.Relay, logger))
	backend.POST("/emit-message", relay.EmitMessage)

	api := backend.Group("/api")
	api.POST("/emit-message", relay.EmitMessage)
	api.POST("/admin/block", relay.AdminBlock)
	api.GET("/users/:identity/status", relay.UserStatus)
	api.GET("/online-users", relay.OnlineUsers)

	// The websocket endpoint bypasses gin so the hijacked connection is not
	// touched by its response writer.
	mux := http.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg, logger))
	mux.Handle("/", router)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
