package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/care-booking/internal/handler/health"
	"github.com/jwalitptl/care-booking/internal/handler/prometheus"
	"github.com/jwalitptl/care-booking/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	health   *health.Handler
	metrics  *prometheus.Handler
	handlers []Handler
}

type RouterConfig struct {
	Mode          string
	RateLimit     rate.Limit
	RateBurst     int
	RateTTL       time.Duration
	DefaultLocale string
	MaxBodyBytes  int64
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH *health.Handler,
	metricsH *prometheus.Handler,
	config RouterConfig,
	handlers ...Handler,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		health:   healthH,
		metrics:  metricsH,
		handlers: handlers,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		metricsH.Middleware(),
		middleware.SecurityHeaders(),
		middleware.Locale(config.DefaultLocale),
		middleware.ErrorHandler(),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
		TTL:   config.RateTTL,
	})

	r.health.RegisterRoutes(engine)
	engine.GET("/metrics", r.metrics.Handler())

	api := engine.Group("/api/v1")
	api.Use(
		rateLimiter.RateLimit(),
		middleware.BodyLimit(config.MaxBodyBytes),
		r.auth.Authenticate(),
	)
	for _, h := range r.handlers {
		h.RegisterRoutes(api)
	}

	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
