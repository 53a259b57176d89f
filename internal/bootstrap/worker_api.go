package bootstrap

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"

	"scheduler_server/adapter/in/http"
	"scheduler_server/config"
	"scheduler_server/infra/middleware"
	"scheduler_server/pkg/cache"
	"scheduler_server/pkg/logger"
)

// NewAPI wires the Fiber app: deps, middleware stack, and route groups. It
// returns the Dependencies too, so the caller can also run the reminder
// dispatcher against the same DB/Redis connections, and a cleanup func that
// releases them.
func NewAPI(cfg *config.Config) (*fiber.App, *Dependencies, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "scheduler-api",
	})

	deps, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		Prefork:               false,
		StrictRouting:         false,
		CaseSensitive:         false,

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 10 * 1024 * 1024,

		Concurrency: 256 * 1024,

		ServerHeader:             "",
		DisableDefaultDate:       true,
		DisableHeaderNormalizing: false,

		DisableKeepalive: false,

		StreamRequestBody:            true,
		DisablePreParseMultipartForm: true,
	})

	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.PreventPathTraversal())
	app.Use(middleware.InputSanitizer())
	app.Use(middleware.RequestLogger())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(etag.New())

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	healthHandler := http.NewHealthHandlerWithDeps(deps.DB, deps.Redis)
	healthHandler.Register(app)

	rateLimiter := middleware.NewAdvancedRateLimiter(middleware.DefaultRateLimitConfig())

	provisioning := app.Group("/api/v1")
	provisioning.Use(rateLimiter.Handler())
	provisioning.Use(middleware.AccountCreationAuth(cfg.AccountCreationSecret))
	accountHandler := http.NewAccountHandler(deps.Accounts)
	accountHandler.Register(provisioning)

	accountScoped := app.Group("/api/v1/accounts/:accountID")
	accountScoped.Use(rateLimiter.Handler())
	accountScoped.Use(middleware.AccountAuth(deps.Collaborator))

	calendarHandler := http.NewCalendarHandler(deps.Orchestrator).WithSlotsCache(cache.NewRedisCache(deps.Redis))
	calendarHandler.Register(accountScoped)

	logger.Info("API server initialized successfully")

	return app, deps, deps.Close, nil
}
