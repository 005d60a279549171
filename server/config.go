package server

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime settings, read once from the environment at boot.
type Config struct {
	Addr           string   `env:"FOREST_ADDR" envDefault:":3000"`
	LogFile        string   `env:"FOREST_LOG_FILE" envDefault:"forest.log"`
	LogLevel       string   `env:"FOREST_LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"FOREST_ALLOWED_ORIGINS" envSeparator:","`
	// JWTSecret enables HS256 verification of the bearer token. Empty means
	// presence-only: the surrounding web app owns authentication and the
	// gateway just requires that a token was handed over.
	JWTSecret string `env:"FOREST_JWT_SECRET"`
}

// LoadConfig parses the FOREST_* environment variables into a Config.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	for i := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(cfg.AllowedOrigins[i])
	}
	return cfg, nil
}

// originAllowed reports whether a WebSocket handshake Origin is acceptable.
// An empty allow-list admits everything, matching the browser-client setup
// where the frontend is served from an unknown host during development.
func (c Config) originAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
