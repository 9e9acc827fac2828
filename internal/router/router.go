package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Services are the domain services the routes are backed by.
type Services struct {
	Auth     service.IAuthService
	Users    service.IUserService
	Recipes  service.IRecipeService
	Shopping service.IShoppingService
	Catalog  service.ICatalogService
}

// Options tune the router. An empty MediaRoot disables serving uploaded
// images locally; a nil RecipeLimiter disables the creation rate limit.
type Options struct {
	CORSOrigins   []string
	PageSize      int
	MediaURL      string
	MediaRoot     string
	RecipeLimiter *middleware.RateLimiter
}

// SetupRouter configures the application routes
func SetupRouter(db *gorm.DB, services Services, opts Options, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestLogger(log.With("component", "http")),
		middleware.Metrics(),
		middleware.CORS(opts.CORSOrigins),
	)

	router.GET("/health", api.NewHealthHandler(db).HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.MediaRoot != "" && opts.MediaURL != "" {
		router.Static(opts.MediaURL, opts.MediaRoot)
	}

	v1 := router.Group("/api/v1")
	api.NewAuthHandler(services.Auth, log).RegisterRoutes(v1)
	api.NewUserHandler(services.Users, services.Auth, opts.PageSize, log).RegisterRoutes(v1)
	api.NewCatalogHandler(services.Catalog, log).RegisterRoutes(v1)
	api.NewRecipeHandler(services.Recipes, services.Shopping, services.Auth, opts.RecipeLimiter, opts.PageSize, log).RegisterRoutes(v1)

	return router
}
