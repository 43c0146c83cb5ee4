package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/trailwhisper/internal/pkg/metrics"
)

const queryTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited",
				"too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Uploads decode many files; they get the configured, longer budget.
	v1.Post("/activities/upload", timeout.NewWithContext(UploadActivitiesHandler(deps), deps.limits().Timeout))

	v1.Get("/activities", timeout.NewWithContext(ListActivitiesHandler(deps), queryTimeout))
	v1.Get("/activities/:id", timeout.NewWithContext(GetActivityHandler(deps), queryTimeout))
	v1.Get("/activities/:id/geojson", timeout.NewWithContext(ActivityGeoJSONHandler(deps), queryTimeout))
	v1.Get("/activities/:id/kml", timeout.NewWithContext(ActivityKMLHandler(deps), queryTimeout))
	v1.Delete("/activities/:id", timeout.NewWithContext(DeleteActivityHandler(deps), queryTimeout))

	v1.Get("/visits/near", timeout.NewWithContext(VisitsNearHandler(deps), queryTimeout))
	v1.Get("/location", LocationHandler())

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	// WebSocket relay of the caller's upload events
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		user := c.Get(UserHeader, c.Query("user_id"))
		if user == "" {
			return errUnauthorized(c, "missing "+UserHeader)
		}
		c.Locals(userLocal, user)
		return c.Next()
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
