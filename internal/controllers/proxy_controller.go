package controllers

import (
	"errors"
	"strings"

	"github.com/forgelink/forgelink/internal/agents"
	"github.com/forgelink/forgelink/internal/middlewares"
	"github.com/forgelink/forgelink/pkg/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// ProxyController is the public-facing end of the trust tunnel. It performs
// no interpretation of provider semantics: the authenticated tenant's agent
// gets the method, endpoint, and body verbatim, and its status and body go
// back to the sandbox verbatim.
type ProxyController struct {
	agentManager *agents.Manager
}

type ProxyControllerDependencies struct {
	AgentManager *agents.Manager
}

func NewProxyController(deps ProxyControllerDependencies) *ProxyController {
	return &ProxyController{
		agentManager: deps.AgentManager,
	}
}

// HandleProxy forwards a sandbox call to the owning tenant's agent.
func (c *ProxyController) HandleProxy(ctx fiber.Ctx) error {
	tenantID, ok := ctx.Locals(middlewares.TenantIDKey).(string)
	if !ok || tenantID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing tenant identity")
	}

	provider := ctx.Params("provider")
	endpoint := strings.Trim(ctx.Params("*"), "/")
	if provider == "" || endpoint == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "provider and endpoint are required",
		})
	}

	agent, err := c.agentManager.GetOrCreate(tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to resolve tenant agent")
		return ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   "tenant agent unavailable",
		})
	}

	headers := ctx.GetReqHeaders()
	delete(headers, middlewares.PreviewTokenHeader)

	result, err := agent.HandleProxyRequest(ctx.RequestCtx(), domain.ProxyRequest{
		Provider: provider,
		Endpoint: endpoint,
		Method:   ctx.Method(),
		Headers:  headers,
		Body:     ctx.Body(),
	})
	if err != nil {
		if errors.Is(err, agents.ErrAgentStopped) {
			return ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success": false,
				"error":   "tenant agent unavailable",
			})
		}
		log.Error().Err(err).
			Str("tenant_id", tenantID).
			Str("provider", provider).
			Msg("Proxy request failed")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "proxy request failed",
		})
	}

	ctx.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return ctx.Status(result.Status).Send(result.Body)
}
