package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// devJWTSecret is only accepted outside CI and production.
const devJWTSecret = "dev-secret"

// ValidateConfig checks if the configuration meets the requirements for the given environment
func ValidateConfig(cfg *Config, env Environment) error {
	var errs []string
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg}.Error())
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" {
			add("db_host", "is required for postgres")
		}
		if cfg.DBName == "" {
			add("db_name", "is required for postgres")
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			add("sqlite_path", "is required for sqlite")
		}
	default:
		add("db_driver", fmt.Sprintf("unsupported driver %q", cfg.DBDriver))
	}

	if cfg.PageSize < 1 {
		add("page_size", "must be at least 1")
	}
	if cfg.TokenTTL <= 0 {
		add("token_ttl", "must be positive")
	}

	switch env {
	case CI, Production:
		if cfg.JWTSecret == "" || cfg.JWTSecret == devJWTSecret {
			add("jwt_secret", "a real secret is required in "+string(env))
		}
		if cfg.DBDriver == "postgres" && cfg.DBPassword == "" {
			add("db_password", "is required in "+string(env))
		}
	default:
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = devJWTSecret
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}
