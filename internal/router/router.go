package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/templatehub/internal/config"
	"github.com/iliyamo/templatehub/internal/handler"
	"github.com/iliyamo/templatehub/internal/metrics"
	"github.com/iliyamo/templatehub/internal/middleware"
)

// Handlers bundles every HTTP handler the API mounts.
type Handlers struct {
	Auth          *handler.AuthHandler
	Ready         *handler.ReadyHandler
	Profiles      *handler.ProfileHandler
	Templates     *handler.TemplateHandler
	Evaluations   *handler.EvaluationHandler
	Marketplace   *handler.MarketplaceHandler
	Comments      *handler.CommentHandler
	Notifications *handler.NotificationHandler
	Realtime      *handler.RealtimeHandler
	Admin         *handler.AdminHandler
	Analytics     *handler.AnalyticsHandler
	Academy       *handler.AcademyHandler
	Prompts       *handler.PromptHandler
}

// limits holds the per-route middleware shared by the register functions.
type limits struct {
	auth     echo.MiddlewareFunc // JWTAuth
	optional echo.MiddlewareFunc // OptionalJWT
	strict   echo.MiddlewareFunc // tighter token bucket for login, register and purchase
	cache    echo.MiddlewareFunc // Redis response cache for anonymous reads
}

// New builds the Echo instance: validation, error rendering, global
// middleware and every route.  rdb may be nil, which disables rate limiting
// and caching.
func New(cfg config.Config, h Handlers, rdb *redis.Client, log logrus.FieldLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler

	rl := config.LoadRateLimitConfig()
	cc := config.LoadCacheConfig()

	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(corsConfig(cfg.AllowedOrigins)))
	e.Use(middleware.NewTokenBucket(rl, rdb, log))
	e.Use(middleware.PurgeCacheOnWrite(cc, rdb, log))

	l := limits{
		auth:     middleware.JWTAuth(cfg.JWTSecret),
		optional: middleware.OptionalJWT(cfg.JWTSecret),
		strict:   middleware.NewTokenBucket(rl.Strict(), rdb, log),
		cache:    middleware.NewRedisCache(cc, rdb),
	}

	RegisterRoutes(e, h.Ready)
	RegisterAuth(e, h.Auth, l)
	RegisterTemplates(e, h, l)
	RegisterMarketplace(e, h.Marketplace, l)
	RegisterMember(e, h, l)
	RegisterAdmin(e, h.Admin, h.Analytics, l)
	return e
}

func corsConfig(origins []string) echomw.CORSConfig {
	c := echomw.DefaultCORSConfig
	if len(origins) > 0 {
		c.AllowOrigins = origins
	}
	c.AllowHeaders = []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader}
	c.ExposeHeaders = []string{middleware.RequestIDHeader, "Retry-After", "X-RateLimit-Remaining"}
	return c
}

// RegisterRoutes registers the operational endpoints: liveness, readiness
// and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, ready *handler.ReadyHandler) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready.Ready)
	}
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers account endpoints.  Register, login, refresh and
// logout work without a session; /v1/me requires one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, l limits) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, l.strict)
	g.POST("/login", a.Login, l.strict)
	g.POST("/refresh", a.Refresh)
	// logout accepts either a refresh token in the body or a bearer token
	g.POST("/logout", a.Logout, l.optional)

	e.GET("/v1/me", a.Me, l.auth)
}
