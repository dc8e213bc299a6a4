package initialization

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all gateway configuration
type Config struct {
	// Server settings
	HTTPAddress   string
	PreviewDomain string

	// Preview token signing secret. A missing secret is fatal at startup:
	// the gateway must never run with token verification disabled.
	PreviewTokenSecret string

	// Operator channel auth
	OperatorJWTSecret string

	// Provider settings
	PlaidEnvironment string

	// Secrets backend: memory or redis
	SecretsBackend string
	RedisAddr      string
	RedisPassword  string

	// Optional webhook for configuration events
	EventWebhookURL string
}

// LoadConfig loads configuration from files and environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"HTTPAddress":        "HTTP_ADDRESS",
		"PreviewDomain":      "PREVIEW_DOMAIN",
		"PreviewTokenSecret": "PREVIEW_TOKEN_SECRET",
		"OperatorJWTSecret":  "OPERATOR_JWT_SECRET",
		"PlaidEnvironment":   "PLAID_ENV",
		"SecretsBackend":     "SECRETS_BACKEND",
		"RedisAddr":          "REDIS_ADDR",
		"RedisPassword":      "REDIS_PASSWORD",
		"EventWebhookURL":    "EVENT_WEBHOOK_URL",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("gateway_config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.forgelink")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	log.Debug().Msgf("Config loaded: PreviewDomain=%s, PlaidEnv=%s, SecretsBackend=%s",
		config.PreviewDomain, config.PlaidEnvironment, config.SecretsBackend)

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTPAddress", ":8090")
	v.SetDefault("PlaidEnvironment", "sandbox")
	v.SetDefault("SecretsBackend", "memory")
	v.SetDefault("RedisAddr", "localhost:6379")
}

func validateConfig(config *Config) error {
	var missingVars []string

	if config.PreviewTokenSecret == "" {
		missingVars = append(missingVars, "PREVIEW_TOKEN_SECRET")
	}

	if config.OperatorJWTSecret == "" {
		missingVars = append(missingVars, "OPERATOR_JWT_SECRET")
	}

	if config.PreviewDomain == "" {
		missingVars = append(missingVars, "PREVIEW_DOMAIN")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %s\n\nGenerate secrets with: forgelink keygen",
			strings.Join(missingVars, ", "))
	}

	if config.SecretsBackend != "memory" && config.SecretsBackend != "redis" {
		return fmt.Errorf("unknown secrets backend %q, expected memory or redis", config.SecretsBackend)
	}

	return nil
}
