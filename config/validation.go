package config

import (
	"fmt"
	"net"
	"strconv"
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

var supportedDrivers = map[string]bool{
	"postgres": true,
	"sqlite":   true,
}

// ValidateConfig checks that the configuration is usable for the current environment
func ValidateConfig(cfg *Config) error {
	var errors []string

	if !cfg.MockLLM && cfg.OpenAIAPIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "OPENAI_API_KEY",
			Message: "must be set (or OPENAI_API_KEY_FILE, or the openai_api_key secret) unless MOCK_LLM is enabled",
		}.Error())
	}

	if port, err := strconv.Atoi(cfg.ServerPort); err != nil || port <= 0 || port > 65535 {
		errors = append(errors, ValidationError{Field: "SERVER_PORT", Message: fmt.Sprintf("invalid port %q", cfg.ServerPort)}.Error())
	}

	if cfg.MaxUploadBytes <= 0 {
		errors = append(errors, ValidationError{Field: "MAX_UPLOAD_BYTES", Message: "must be positive"}.Error())
	}

	if cfg.RecipeCount < 1 || cfg.RecipeCount > 10 {
		errors = append(errors, ValidationError{Field: "RECIPE_COUNT", Message: "must be between 1 and 10"}.Error())
	}

	if cfg.RateLimitPerMinute < 0 {
		errors = append(errors, ValidationError{Field: "RATE_LIMIT_PER_MINUTE", Message: "must not be negative"}.Error())
	}

	for _, proxy := range cfg.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				errors = append(errors, ValidationError{Field: "TRUSTED_PROXIES", Message: fmt.Sprintf("%q is not an IP address or CIDR", proxy)}.Error())
			}
		}
	}

	if !supportedDrivers[cfg.DatabaseDriver] {
		errors = append(errors, ValidationError{Field: "DATABASE_DRIVER", Message: fmt.Sprintf("unsupported driver %q", cfg.DatabaseDriver)}.Error())
	}

	// Production keeps its history in postgres
	if cfg.Environment.IsProduction() && cfg.DatabaseDriver != "postgres" {
		errors = append(errors, ValidationError{Field: "DATABASE_DRIVER", Message: "production requires postgres"}.Error())
	}

	if cfg.LLMTimeout <= 0 {
		errors = append(errors, ValidationError{Field: "LLM_TIMEOUT", Message: "must be positive"}.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}
