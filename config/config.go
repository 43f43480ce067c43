package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment

	// Server configuration
	ServerHost     string
	ServerPort     string
	MaxUploadBytes int64
	AllowedOrigins []string
	TrustedProxies []string

	// Model provider configuration
	OpenAIAPIKey string
	OpenAIAPIURL string
	VisionModel  string
	RecipeModel  string
	RecipeCount  int
	LLMTimeout   time.Duration
	MockLLM      bool

	// Database configuration
	DatabaseDriver string
	DatabaseURL    string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string

	// Redis configuration
	RedisURL           string
	RateLimitPerMinute int

	// Image archive configuration
	S3BucketName string
	AWSRegion    string

	LogLevel string
}

const (
	defaultOpenAIURL      = "https://api.openai.com/v1/chat/completions"
	defaultModel          = "gpt-4.1-mini"
	defaultMaxUploadBytes = 10 << 20
)

// LoadConfig creates a new Config instance from the environment, an optional .env file and Docker secrets
func LoadConfig() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	cfg := &Config{
		Environment:    GetEnvironment(),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),
		OpenAIAPIURL:   getEnv("OPENAI_API_URL", defaultOpenAIURL),
		VisionModel:    getEnv("VISION_MODEL", defaultModel),
		RecipeModel:    getEnv("RECIPE_MODEL", defaultModel),
		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getSecret("DB_PASSWORD", "db_password"),
		DBName:         getEnv("DB_NAME", "fridgechef"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		RedisURL:       getSecret("REDIS_URL", "redis_url"),
		S3BucketName:   os.Getenv("S3_BUCKET_NAME"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.OpenAIAPIKey, err = loadAPIKey(); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes, err = getInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes); err != nil {
		return nil, err
	}
	if cfg.RecipeCount, err = getInt("RECIPE_COUNT", 3); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 30); err != nil {
		return nil, err
	}
	if cfg.MockLLM, err = getBool("MOCK_LLM", false); err != nil {
		return nil, err
	}
	if cfg.LLMTimeout, err = getDuration("LLM_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// PostgresDSN builds a postgres connection string, preferring DATABASE_URL when set
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// loadAPIKey reads the model provider key from the environment, a key file or a Docker secret
func loadAPIKey() (string, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}

	if keyFile := os.Getenv("OPENAI_API_KEY_FILE"); keyFile != "" {
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read API key file: %w", err)
		}
		key := strings.TrimSpace(string(data))
		if key == "" {
			return "", fmt.Errorf("API key file is empty")
		}
		return key, nil
	}

	return readSecret("openai_api_key"), nil
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getSecret prefers the environment variable and falls back to the named Docker secret
func getSecret(key, secret string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return readSecret(secret)
}

func getInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, ValidationError{Field: key, Message: fmt.Sprintf("invalid integer %q", valueStr)}
	}
	return value, nil
}

func getInt64(key string, defaultValue int64) (int64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, ValidationError{Field: key, Message: fmt.Sprintf("invalid integer %q", valueStr)}
	}
	return value, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, ValidationError{Field: key, Message: fmt.Sprintf("invalid boolean %q", valueStr)}
	}
	return value, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, ValidationError{Field: key, Message: fmt.Sprintf("invalid duration %q", valueStr)}
	}
	return value, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
