package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// Deps are the optional collaborators of the HTTP layer. A nil Redis
// disables the response cache and the rate limiter.
type Deps struct {
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Gatherer  prometheus.Gatherer
}

// New assembles the echo instance with every route group.
func New(cfg config.Config, svc *service.BookingService, d Deps) *echo.Echo {
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger())

	RegisterRoutes(e, svc, d.Gatherer)
	RegisterAuth(e, handler.NewAuthHandler(cfg, svc))
	RegisterCatalog(e, handler.NewCatalogHandler(svc), middleware.NewRedisCache(d.Cache, d.Redis))
	RegisterTickets(e, handler.NewTicketHandler(svc), cfg.JWTSecret, middleware.NewTokenBucket(d.RateLimit, d.Redis))
	RegisterAdmin(e, handler.NewAdminHandler(svc), cfg.JWTSecret)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints:
// the health check and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, svc *service.BookingService, g prometheus.Gatherer) {
	e.GET("/healthz", handler.Health(svc))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

// RegisterAuth registers sign-in routes under /v1/auth. None of them needs a
// token; each returns one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/register", a.Register)
	g.POST("/guest", a.Guest)
}

// RegisterCatalog registers the public browse endpoints. cache wraps the
// listings only; the seat map must always be live.
func RegisterCatalog(e *echo.Echo, p *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/movies", p.ListMovies, cache)
	e.GET("/v1/movies/:id", p.GetMovie, cache)
	e.GET("/v1/screenings", p.ListScreenings, cache)
	e.GET("/v1/screenings/:id/seats", p.SeatMap)
}
