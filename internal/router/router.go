package router

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventpool/lottery-api/internal/middleware"
	"github.com/eventpool/lottery-api/pkg/auth"
)

// Handler registers its routes on a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RequestTimeout    time.Duration
	RateLimitEnabled  bool
	RequestsPerSecond float64
	RateBurst         int
	MetricsEnabled    bool
	MetricsPath       string
}

type Router struct {
	engine  *gin.Engine
	jwt     auth.JWTService
	config  Config
	metrics *routerMetrics

	healthH       Handler
	authH         Handler
	eventH        Handler
	waitlistH     Handler
	lotteryH      Handler
	notificationH Handler
	auditH        Handler
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(
	jwt auth.JWTService,
	healthH Handler,
	authH Handler,
	eventH Handler,
	waitlistH Handler,
	lotteryH Handler,
	notificationH Handler,
	auditH Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	registerValidations()

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}

	r := &Router{
		engine:        engine,
		jwt:           jwt,
		config:        config,
		metrics:       initRouterMetrics(),
		healthH:       healthH,
		authH:         authH,
		eventH:        eventH,
		waitlistH:     waitlistH,
		lotteryH:      lotteryH,
		notificationH: notificationH,
		auditH:        auditH,
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		r.metricsMiddleware(),
		middleware.Timeout(config.RequestTimeout),
		middleware.CORS(),
	)

	if config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(config.RequestsPerSecond, config.RateBurst)
		engine.Use(limiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.healthH.RegisterRoutes(api)
	if r.config.MetricsEnabled {
		path := r.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// Public routes
	r.authH.RegisterRoutes(api)

	// Protected routes
	protected := api.Group("")
	protected.Use(middleware.Auth(r.jwt))
	r.eventH.RegisterRoutes(protected)
	r.waitlistH.RegisterRoutes(protected)
	r.lotteryH.RegisterRoutes(protected)
	r.notificationH.RegisterRoutes(protected)
	r.auditH.RegisterRoutes(protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// registerValidations adds custom binding rules on top of the defaults.
func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

func initRouterMetrics() *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
