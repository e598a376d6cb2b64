package service

import (
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RouterConfig holds the cross-cutting settings for the HTTP router.
type RouterConfig struct {
	// APIKey protects /api routes when set.
	APIKey string
	// CORSOrigins lists allowed origins; empty or "*" allows any origin.
	CORSOrigins []string
	// Registry backs /metrics and the HTTP metrics middleware. Nil disables both.
	Registry *prometheus.Registry
}

func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	useWireFieldNames()

	router := gin.New()

	router.Use(RequestIDMiddleware())
	router.Use(ginzap.GinzapWithConfig(logger, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/health", "/metrics"},
		Context: func(c *gin.Context) []zapcore.Field {
			return []zapcore.Field{zap.String("request_id", requestID(c))}
		},
	}))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	if cfg.Registry != nil {
		router.Use(MetricsMiddleware(NewHTTPMetrics(cfg.Registry)))
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	router.GET("/", h.HomeHandler)
	router.GET("/health", h.HealthHandler)

	api := router.Group("/api", APIKeyMiddleware(cfg.APIKey, logger))
	songs := api.Group("/songs")
	songs.GET("/search", h.SearchHandler)
	songs.GET("/:id", h.SongHandler)
	songs.POST("/recommendations", h.RecommendationsHandler)

	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-API-Key", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return config
}
