package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	domainconfig "github.com/ithailevi/expert/domain/config"
	"github.com/ithailevi/expert/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress  string   `validate:"required"`
	Environment    string   `validate:"oneof=development staging production test"`
	AllowedOrigins []string `validate:"min=1"`

	// Knowledge base
	KBFile  string `validate:"required_if=Environment production"`
	WatchKB bool

	// Logging
	LogLevel string `validate:"oneof=debug info warn error"`

	// Observability
	EnableMetrics bool
	EnableTracing bool
	OTLPEndpoint  string `validate:"required_if=EnableTracing true"`
	ServiceName   string `validate:"required"`

	// Domain bounds
	MaxTraversalDepth   int `validate:"min=1"`
	MaxImplicationDepth int `validate:"min=1"`
	RandomSeed          int64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWith(nil)
}

// LoadConfigWith loads configuration from environment variables and lets
// override adjust it (command line flags, typically) before validation.
func LoadConfigWith(override func(*Config)) (*Config, error) {
	env := getEnv("ENVIRONMENT", "development")
	bounds := domainconfig.LoadDomainConfig(env)

	cfg := &Config{
		ServerAddress:  getEnv("SERVER_ADDRESS", ":8080"),
		Environment:    env,
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),

		KBFile:  getEnv("KB_FILE", ""),
		WatchKB: getEnvBool("WATCH_KB", false),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		OTLPEndpoint:  getEnv("OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:   getEnv("SERVICE_NAME", "expert"),

		MaxTraversalDepth:   getEnvInt("MAX_TRAVERSAL_DEPTH", bounds.MaxTraversalDepth),
		MaxImplicationDepth: getEnvInt("MAX_IMPLICATION_DEPTH", bounds.MaxImplicationDepth),
		RandomSeed:          int64(getEnvInt("RANDOM_SEED", 0)),
	}
	if override != nil {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DomainConfig returns the bounds handed to every Domain the process builds
func (c *Config) DomainConfig() *domainconfig.DomainConfig {
	return &domainconfig.DomainConfig{
		MaxTraversalDepth:   c.MaxTraversalDepth,
		MaxImplicationDepth: c.MaxImplicationDepth,
		RandomSeed:          c.RandomSeed,
	}
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
