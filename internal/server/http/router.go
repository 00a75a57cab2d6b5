package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"accord/internal/logging"
)

// RouterConfig carries the knobs the router needs beyond its handlers.
type RouterConfig struct {
	AllowedOrigins    []string
	MaxStreams        int
	MaxStreamDuration time.Duration
}

// NewRouter assembles the full HTTP surface: the SSE session endpoint,
// liveness, and metrics.
func NewRouter(handler *ConsensusHandler, metrics *Metrics, cfg RouterConfig, logger logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logging.OrNop(logger)))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Cache-Control")
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", HandleHealth)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	router.POST("/api/consensus", handler.HandleSession)

	return router
}

// requestLogger logs one line per request. Query strings are omitted so
// nothing sensitive lands in logs.
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
