package middlewares

import (
	"strings"

	"github.com/forgelink/forgelink/internal/auth"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// OperatorSubjectKey is the locals key for the authenticated operator id.
const OperatorSubjectKey = "operator_subject"

// OperatorAuthMiddleware guards the operator and internal route groups with
// JWT bearer auth.
func OperatorAuthMiddleware(tokens *auth.OperatorTokenService) fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "missing bearer token",
			})
		}

		subject, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			log.Debug().Str("path", c.Path()).Msg("Operator token verification failed")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "invalid operator token",
			})
		}

		c.Locals(OperatorSubjectKey, subject)

		return c.Next()
	}
}
