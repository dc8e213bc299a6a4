package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgelink/forgelink/internal/initialization"
	"github.com/forgelink/forgelink/internal/server"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the preview gateway",
		Long:  `Start the gateway service: the sandbox proxy, the operator channel, and the configuration-gate endpoints.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	return cmd
}

func runServe() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Msg("Starting preview gateway")

	config, err := initialization.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	deps, err := initialization.BuildGatewayDependencies(ctx, config)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build gateway dependencies")
	}

	log.Info().
		Str("address", config.HTTPAddress).
		Str("preview_domain", config.PreviewDomain).
		Str("plaid_env", config.PlaidEnvironment).
		Msg("Gateway configuration loaded")

	app := server.NewHTTPServer(ctx, server.HTTPServerDependencies{
		PreviewDomain:      config.PreviewDomain,
		TokenCodec:         deps.TokenCodec,
		OperatorTokens:     deps.OperatorTokens,
		ProxyController:    deps.ProxyController,
		OperatorController: deps.OperatorController,
	})

	if err := app.Listen(config.HTTPAddress, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	}); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := deps.AgentManager.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Agent manager shutdown incomplete")
	}

	log.Info().Msg("Preview gateway stopped")
	return nil
}
