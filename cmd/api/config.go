package main

import (
	"log/slog"
	"strings"
	"time"

	"github.com/vaultclub/vault-api/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"API_PORT" default:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" default:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" default:"10s"`

	// ServiceAPIKey gates service-to-service calls via x-vault-club-api-key.
	ServiceAPIKey string `env:"VAULT_CLUB_EDGE_KEY"`

	AuthBaseURL string `env:"SUPABASE_URL"`
	AuthAnonKey string `env:"SUPABASE_ANON_KEY"`

	AllowedOrigins string `env:"ALLOWED_ORIGINS" default:"https://vaultclub.io"`

	// PolicyFile optionally overrides the built-in routing policy.
	PolicyFile string `env:"VAULT_POLICY_FILE" default:""`

	Postgres config.PostgresConfig
}

func (c *apiConfig) origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
