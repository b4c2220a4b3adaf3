package routes

import (
	"net/http"

	"PathLab/config"
	"PathLab/controllers"
	"PathLab/handlers"
	"PathLab/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRoutes initializes the routes and middleware for the server
func SetupRoutes(cfg *config.AppConfig, app *Container, db *gorm.DB, client *redis.Client, log *zap.Logger) http.Handler {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.RequestLogger(log))
	router.Use(middlewares.SecurityHeaders())
	router.Use(middlewares.CorsMiddleware(cfg.CORSOrigins))
	router.Use(middlewares.NewRateLimiterMiddleware(middlewares.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	// Apply Bearer token validation to all routes
	router.Use(middlewares.ValidateBearerToken(cfg.GetBearerToken()))

	guard := &controllers.Guard{Tokens: app.Tokens, Perms: app.Users, Log: log}

	controllers.NewAuthController(handlers.NewAuthHandler(app.Users, app.Tokens, log), guard).RegisterRoutes(router)
	controllers.SetupAdminRoutes(router, guard, handlers.NewLabHandler(app.Labs, app.Roles, log))
	controllers.SetupPatientRoutes(router, guard,
		handlers.NewPatientHandler(app.PatientSvc, log),
		handlers.NewAppointmentHandler(app.AppointmentSvc, log),
		handlers.NewCatalogueHandler(app.Catalogue, log),
	)
	controllers.SetupBookingRoutes(router, guard,
		handlers.NewBookingHandler(app.BookingSvc, log),
		handlers.NewBillingHandler(app.BookingSvc, app.Reporting, log),
		handlers.NewRegistrationHandler(app.Registrations, app.Reports, log),
	)
	controllers.SetupRootRoute(router, db, client, log)

	return router
}
