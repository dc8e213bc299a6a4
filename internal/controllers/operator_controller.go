package controllers

import (
	"time"

	"github.com/forgelink/forgelink/internal/agents"
	"github.com/forgelink/forgelink/internal/auth"
	"github.com/forgelink/forgelink/pkg/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// OperatorController is the operator-facing channel: configuration card
// actions, provider connect/disconnect, and preview-token minting for
// freshly provisioned sandboxes.
type OperatorController struct {
	agentManager *agents.Manager
	tokenCodec   *auth.PreviewTokenCodec
}

type OperatorControllerDependencies struct {
	AgentManager *agents.Manager
	TokenCodec   *auth.PreviewTokenCodec
}

func NewOperatorController(deps OperatorControllerDependencies) *OperatorController {
	return &OperatorController{
		agentManager: deps.AgentManager,
		tokenCodec:   deps.TokenCodec,
	}
}

// GetConfiguration returns the tenant's pending configuration card, if any.
func (c *OperatorController) GetConfiguration(ctx fiber.Ctx) error {
	agent, err := c.agent(ctx)
	if err != nil {
		return err
	}

	result, open, err := agent.PendingConfiguration(ctx.RequestCtx())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "tenant agent unavailable")
	}
	if !open {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "no pending configuration",
			"state":   result.State,
		})
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"card":    result,
	})
}

// ApplyConfigurationAction handles skip, continue, and service_connected.
func (c *OperatorController) ApplyConfigurationAction(ctx fiber.Ctx) error {
	agent, err := c.agent(ctx)
	if err != nil {
		return err
	}

	var action domain.ConfigurationAction
	if err := ctx.Bind().Body(&action); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := agent.ApplyConfigurationAction(ctx.RequestCtx(), action)
	if err != nil {
		log.Error().Err(err).
			Str("tenant_id", ctx.Params("tenantID")).
			Str("card_id", action.CardID).
			Msg("Failed to apply configuration action")
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"state":   result.State,
		"card":    result,
	})
}

// CheckConfiguration is the generation pipeline's gate entry point.
func (c *OperatorController) CheckConfiguration(ctx fiber.Ctx) error {
	agent, err := c.agent(ctx)
	if err != nil {
		return err
	}

	var req struct {
		Requirements []domain.ServiceRequirement `json:"requirements"`
	}
	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := agent.CheckConfiguration(ctx.RequestCtx(), req.Requirements)
	if err != nil {
		log.Error().Err(err).
			Str("tenant_id", ctx.Params("tenantID")).
			Msg("Configuration check failed")
		return fiber.NewError(fiber.StatusBadGateway, "configuration check failed")
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"state":   result.State,
		"card":    result,
	})
}

// ConnectProvider stores a provider credential for the tenant.
func (c *OperatorController) ConnectProvider(ctx fiber.Ctx) error {
	agent, err := c.agent(ctx)
	if err != nil {
		return err
	}

	provider := ctx.Params("provider")
	if provider == "" {
		return fiber.NewError(fiber.StatusBadRequest, "provider is required")
	}

	var cred domain.ProviderCredential
	if err := ctx.Bind().Body(&cred); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := agent.ConnectProvider(ctx.RequestCtx(), provider, cred); err != nil {
		log.Error().Err(err).
			Str("tenant_id", ctx.Params("tenantID")).
			Str("provider", provider).
			Msg("Failed to connect provider")
		return fiber.NewError(fiber.StatusBadGateway, "failed to store credential")
	}

	return ctx.JSON(fiber.Map{"success": true})
}

// DisconnectProvider removes a provider credential for the tenant.
func (c *OperatorController) DisconnectProvider(ctx fiber.Ctx) error {
	agent, err := c.agent(ctx)
	if err != nil {
		return err
	}

	provider := ctx.Params("provider")
	if provider == "" {
		return fiber.NewError(fiber.StatusBadRequest, "provider is required")
	}

	if err := agent.DisconnectProvider(ctx.RequestCtx(), provider); err != nil {
		log.Error().Err(err).
			Str("tenant_id", ctx.Params("tenantID")).
			Str("provider", provider).
			Msg("Failed to disconnect provider")
		return fiber.NewError(fiber.StatusBadGateway, "failed to delete credential")
	}

	return ctx.JSON(fiber.Map{"success": true})
}

// MintPreviewToken issues the bearer token handed to a tenant's sandbox at
// bootstrap time.
func (c *OperatorController) MintPreviewToken(ctx fiber.Ctx) error {
	tenantID := ctx.Params("tenantID")
	if tenantID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "tenant id is required")
	}

	token, err := c.tokenCodec.Issue(tenantID, time.Now())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to issue preview token")
	}

	log.Info().Str("tenant_id", tenantID).Msg("Issued preview token")

	return ctx.JSON(fiber.Map{
		"success": true,
		"token":   token,
	})
}

func (c *OperatorController) agent(ctx fiber.Ctx) (*agents.Agent, error) {
	tenantID := ctx.Params("tenantID")
	if tenantID == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "tenant id is required")
	}

	agent, err := c.agentManager.GetOrCreate(tenantID)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadGateway, "tenant agent unavailable")
	}
	return agent, nil
}
