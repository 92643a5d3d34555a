package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	// TokenSecret keys the token codec. It must only ever live server-side;
	// the public emergency flow is trustworthy only while that holds.
	TokenSecret       string `env:"TOKEN_SECRET"`
	IdentityJWTSecret string `env:"IDENTITY_JWT_SECRET"`

	TokenTTLHours            int `env:"TOKEN_TTL_HOURS" envDefault:"8760"`
	SessionTTLMinutes        int `env:"SESSION_TTL_MINUTES" envDefault:"30"`
	SessionLimit             int `env:"SESSION_LIMIT" envDefault:"3"`
	IdleTimeoutMinutes       int `env:"IDLE_TIMEOUT_MINUTES" envDefault:"10"`
	EmergencyTTLMinutes      int `env:"EMERGENCY_TTL_MINUTES" envDefault:"3"`
	AutoLogoutMinutes        int `env:"AUTO_LOGOUT_MINUTES" envDefault:"20"`
	AutoLogoutWarningMinutes int `env:"AUTO_LOGOUT_WARNING_MINUTES" envDefault:"3"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:""`
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMinutes) * time.Minute
}

func (c *Config) EmergencyTTL() time.Duration {
	return time.Duration(c.EmergencyTTLMinutes) * time.Minute
}

func (c *Config) AutoLogoutTimeout() time.Duration {
	return time.Duration(c.AutoLogoutMinutes) * time.Minute
}

func (c *Config) AutoLogoutWarning() time.Duration {
	return time.Duration(c.AutoLogoutWarningMinutes) * time.Minute
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.SessionLimit < 1 {
		return fmt.Errorf("SESSION_LIMIT must be at least 1")
	}
	if c.AutoLogoutWarningMinutes >= c.AutoLogoutMinutes {
		return fmt.Errorf("AUTO_LOGOUT_WARNING_MINUTES must be shorter than AUTO_LOGOUT_MINUTES")
	}

	if isProduction {
		if err := validateSecret("TOKEN_SECRET", c.TokenSecret); err != nil {
			return err
		}
		if err := validateSecret("IDENTITY_JWT_SECRET", c.IdentityJWTSecret); err != nil {
			return err
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
