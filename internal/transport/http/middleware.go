package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/auth"
	"github.com/vovakirdan/wirerelay/internal/config"
)

const (
	// HeaderRelayKey carries the shared API key of a trusted backend.
	HeaderRelayKey = "X-Relay-Key"
	// ContextKeyService is the context key for the authenticated backend name.
	ContextKeyService = "service"
)

// BackendAuth guards the relay API. A request passes with a valid
// X-Relay-Key header or a valid bearer token. With neither mechanism
// configured every request passes.
func BackendAuth(cfg config.RelayConfig, logger *zerolog.Logger) gin.HandlerFunc {
	if cfg.Open() {
		return func(c *gin.Context) { c.Next() }
	}

	var jwtCfg *auth.JWTConfig
	if cfg.JWTSecret != "" {
		jwtCfg = &auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		}
	}

	keys := auth.NewKeyVerifier(cfg.APIKeyHash)

	return func(c *gin.Context) {
		if key := c.GetHeader(HeaderRelayKey); key != "" && cfg.APIKeyHash != "" {
			if !keys.Verify(key) {
				logger.Debug().Str("path", c.Request.URL.Path).Msg("invalid relay key")
				c.AbortWithStatusJSON(http.StatusUnauthorized, StatusResponse{Status: statusError, Message: "invalid api key"})
				return
			}
			c.Set(ContextKeyService, "api-key")
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if jwtCfg == nil || authHeader == "" {
			logger.Debug().Str("path", c.Request.URL.Path).Msg("missing backend credentials")
			c.AbortWithStatusJSON(http.StatusUnauthorized, StatusResponse{Status: statusError, Message: "missing credentials"})
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, StatusResponse{Status: statusError, Message: "invalid authorization header format"})
			return
		}

		claims, err := auth.ValidateToken(jwtCfg, parts[1])
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, StatusResponse{Status: statusError, Message: "invalid token"})
			return
		}

		c.Set(ContextKeyService, claims.Service)
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("client_ip", c.ClientIP()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
