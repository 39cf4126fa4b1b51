package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/metrics/export/prometheus"
	"github.com/MrEthical07/tokengate/middleware"
)

// Options configures NewRouter.
type Options struct {
	Logger zerolog.Logger
	// TrustedProxies lists proxy addresses whose X-Forwarded-For is honoured.
	// Empty means the socket peer address is the client IP.
	TrustedProxies []string
	// MetricsHandler serves GET /metrics. Nil uses the Prometheus exporter
	// over the engine's counters.
	MetricsHandler http.Handler
	// DisableMetrics drops the /metrics route.
	DisableMetrics bool
}

// NewRouter builds the gin engine serving every route. Callers choose the
// gin mode before calling it.
func NewRouter(engine *tokengate.Engine, opts Options) (*gin.Engine, error) {
	if engine == nil {
		return nil, tokengate.ErrEngineNotReady
	}

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("httpapi: trusted proxies: %w", err)
	}

	r.Use(
		middleware.Recovery(opts.Logger),
		middleware.RequestID(),
		middleware.RequestContext(),
		middleware.RequestLogger(opts.Logger),
		middleware.SecurityHeaders(),
	)

	h := &handlers{engine: engine, log: opts.Logger}

	r.GET("/health", h.health)
	if !opts.DisableMetrics {
		metrics := opts.MetricsHandler
		if metrics == nil {
			metrics = prometheus.New(engine).Handler()
		}
		r.GET("/metrics", gin.WrapH(metrics))
	}

	api := r.Group("/", middleware.Pipeline(middleware.RateLimit(engine, tokengate.RatePolicyAPI)))
	api.GET("/", h.index)

	auth := api.Group("/auth")
	auth.POST("/register", middleware.Pipeline(
		middleware.RateLimit(engine, tokengate.RatePolicyRegister),
		middleware.BindCredentials(),
	), h.register)
	auth.POST("/login", middleware.Pipeline(
		middleware.RateLimit(engine, tokengate.RatePolicyLogin),
		middleware.BindCredentials(),
	), h.login)
	auth.GET("/users", h.users)

	protected := api.Group("/protected", middleware.Pipeline(
		middleware.RateLimit(engine, tokengate.RatePolicySensitive),
		middleware.Authorize(engine),
	))
	protected.GET("", h.protected)
	protected.GET("/profile", h.profile)
	protected.POST("/validate", h.validate)

	r.NoRoute(h.notFound)
	return r, nil
}
