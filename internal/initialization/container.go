package initialization

import (
	"context"
	"fmt"
	"time"

	"github.com/forgelink/forgelink/internal/agents"
	"github.com/forgelink/forgelink/internal/auth"
	"github.com/forgelink/forgelink/internal/controllers"
	"github.com/forgelink/forgelink/internal/events"
	"github.com/forgelink/forgelink/internal/gateways"
	"github.com/forgelink/forgelink/internal/secrets"
	"github.com/forgelink/forgelink/pkg/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// GatewayDependencies is everything the HTTP server needs, fully wired.
type GatewayDependencies struct {
	Config             *Config
	TokenCodec         *auth.PreviewTokenCodec
	OperatorTokens     *auth.OperatorTokenService
	AgentManager       *agents.Manager
	ProxyController    *controllers.ProxyController
	OperatorController *controllers.OperatorController
	Notifier           domain.ConfigurationNotifier
}

// BuildGatewayDependencies wires config → stores → agents → controllers.
// Configuration errors (missing secrets, unreachable redis) fail here, at
// startup, not on the first request.
func BuildGatewayDependencies(ctx context.Context, config *Config) (*GatewayDependencies, error) {
	log.Info().Msg("Building gateway dependencies")

	tokenCodec, err := auth.NewPreviewTokenCodec(config.PreviewTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview token codec: %w", err)
	}

	operatorTokens, err := auth.NewOperatorTokenService(config.OperatorJWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create operator token service: %w", err)
	}

	secretsStore, err := buildSecretsStore(ctx, config)
	if err != nil {
		return nil, err
	}

	plaidGateway, err := gateways.NewPlaidGateway(gateways.PlaidGatewayConfig{
		Environment: config.PlaidEnvironment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create provider gateway: %w", err)
	}

	var notifier domain.ConfigurationNotifier
	if config.EventWebhookURL != "" {
		notifier = events.NewWebhookNotifier(config.EventWebhookURL, 10*time.Second)
		log.Info().Msg("Configuration events will be delivered via webhook")
	} else {
		notifier = events.NewChannelNotifier(64)
		log.Info().Msg("Configuration events will be delivered in-process")
	}

	agentManager := agents.NewManager(agents.ManagerDependencies{
		Secrets: secretsStore,
		Gateways: map[string]domain.ProviderGateway{
			"plaid": plaidGateway,
		},
		Notifier: notifier,
		Pipeline: domain.NopPipelineControl{},
	})

	proxyController := controllers.NewProxyController(controllers.ProxyControllerDependencies{
		AgentManager: agentManager,
	})

	operatorController := controllers.NewOperatorController(controllers.OperatorControllerDependencies{
		AgentManager: agentManager,
		TokenCodec:   tokenCodec,
	})

	return &GatewayDependencies{
		Config:             config,
		TokenCodec:         tokenCodec,
		OperatorTokens:     operatorTokens,
		AgentManager:       agentManager,
		ProxyController:    proxyController,
		OperatorController: operatorController,
		Notifier:           notifier,
	}, nil
}

func buildSecretsStore(ctx context.Context, config *Config) (domain.SecretsStore, error) {
	switch config.SecretsBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
		})
		store := secrets.NewRedisStore(client)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("secrets backend unavailable: %w", err)
		}

		log.Info().Str("addr", config.RedisAddr).Msg("Using redis secrets backend")
		return store, nil

	default:
		log.Info().Msg("Using in-memory secrets backend")
		return secrets.NewMemoryStore(), nil
	}
}
