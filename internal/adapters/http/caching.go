package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"

		// Exports of a stored activity change only on reprocessing.
		case strings.HasSuffix(path, "/geojson") || strings.HasSuffix(path, "/kml"):
			ttl = "private, max-age=300"

		// Visits change with every upload; clients revalidate with the ETag.
		case strings.HasPrefix(path, "/v1/visits"), strings.HasPrefix(path, "/v1/activities"):
			ttl = "private, no-cache"

		case path == "/v1/location":
			ttl = "no-store"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "private, max-age=0"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}
