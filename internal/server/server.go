package server

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/forgelink/forgelink/internal/auth"
	"github.com/forgelink/forgelink/internal/controllers"
	"github.com/forgelink/forgelink/internal/middlewares"
	"github.com/forgelink/forgelink/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/rs/zerolog/log"
)

type HTTPServerDependencies struct {
	// PreviewDomain is the apex under which sandbox previews are served.
	// Only its subdomains are granted cross-origin access to /proxy.
	PreviewDomain string

	TokenCodec         *auth.PreviewTokenCodec
	OperatorTokens     *auth.OperatorTokenService
	ProxyController    *controllers.ProxyController
	OperatorController *controllers.OperatorController
}

func NewHTTPServer(ctx context.Context, deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: "forgelink-gateway",
	})

	router.Use(logger.New())

	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "forgelink-gateway",
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	if deps.TokenCodec == nil {
		log.Fatal().Msg("Preview token codec is nil, set PREVIEW_TOKEN_SECRET and restart")
	}

	// The sandbox's only legitimate cross-origin path into the gateway.
	// Other origins get no access-control headers at all.
	proxy := router.Group("/proxy")
	proxy.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return OriginAllowed(origin, deps.PreviewDomain)
		},
		AllowMethods: []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions},
		AllowHeaders: []string{fiber.HeaderContentType, middlewares.PreviewTokenHeader},
	}))
	proxy.Use(middlewares.PreviewTokenMiddleware(deps.TokenCodec))
	proxy.All("/:provider/*", deps.ProxyController.HandleProxy)

	operatorAuth := middlewares.OperatorAuthMiddleware(deps.OperatorTokens)

	operator := router.Group("/operator", operatorAuth)
	operator.Get("/tenants/:tenantID/configuration", deps.OperatorController.GetConfiguration)
	operator.Post("/tenants/:tenantID/configuration/actions", deps.OperatorController.ApplyConfigurationAction)
	operator.Put("/tenants/:tenantID/secrets/:provider", deps.OperatorController.ConnectProvider)
	operator.Delete("/tenants/:tenantID/secrets/:provider", deps.OperatorController.DisconnectProvider)

	internal := router.Group("/internal", operatorAuth)
	internal.Post("/tenants/:tenantID/configuration/check", deps.OperatorController.CheckConfiguration)
	internal.Post("/tenants/:tenantID/preview-token", deps.OperatorController.MintPreviewToken)

	return router
}

// OriginAllowed reports whether origin is the preview domain itself or one of
// its subdomains. Anything else, including suffix look-alikes such as
// evil-preview.dev for preview.dev, is refused.
func OriginAllowed(origin, previewDomain string) bool {
	if previewDomain == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Hostname() == "" {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	domain := strings.ToLower(previewDomain)

	return host == domain || strings.HasSuffix(host, "."+domain)
}
