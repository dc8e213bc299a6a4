package middlewares

import (
	"time"

	"github.com/forgelink/forgelink/internal/auth"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// PreviewTokenHeader carries the sandbox's bearer credential.
const PreviewTokenHeader = "X-Preview-Token"

// TenantIDKey is the locals key under which the verified tenant id is stored
// for downstream handlers.
const TenantIDKey = "tenant_id"

// PreviewTokenMiddleware authenticates sandbox calls: a missing token is 401,
// an invalid or expired one is 403. The token value itself is never logged.
func PreviewTokenMiddleware(codec *auth.PreviewTokenCodec) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := c.Get(PreviewTokenHeader)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "missing preview token",
			})
		}

		tenantID, err := codec.Verify(token, time.Now())
		if err != nil {
			log.Debug().
				Str("path", c.Path()).
				Int("token_length", len(token)).
				Msg("Preview token verification failed")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "invalid or expired preview token",
			})
		}

		c.Locals(TenantIDKey, tenantID)

		return c.Next()
	}
}
