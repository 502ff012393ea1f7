// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"go.ngs.io/rasterwin/internal/domain"
)

// Error codes for configuration errors.
const (
	ErrCodeEnvFile         = "ENV_FILE_INVALID"
	ErrCodeInvalidPort     = "INVALID_PORT"
	ErrCodeInvalidWorkers  = "INVALID_WORKERS"
	ErrCodeInvalidResample = "INVALID_RESAMPLING"
	ErrCodeMissingCatalog  = "MISSING_CATALOG"
	ErrCodeInvalidLogLevel = "INVALID_LOG_LEVEL"
)

// ConfigError represents a configuration error with an instruction for fixing it.
type ConfigError struct {
	Code    string
	Message string
	Action  string
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Config holds the server settings.
type Config struct {
	Port               string
	CatalogPath        string
	Workers            int
	DefaultResampling  domain.Resampling
	LogLevel           string
	LogDevelopment     bool
	LogFile            string
	CORSAllowedOrigins []string
}

// Load reads envFile when it exists, then the environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{
				Code:    ErrCodeEnvFile,
				Message: fmt.Sprintf("Failed to read %s: %v", envFile, err),
				Action:  "Fix the file syntax or remove it",
			}
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           GetEnvOrDefault("PORT", "8080"),
		CatalogPath:    GetEnvOrDefault("RASTER_CATALOG", "./rasters.yaml"),
		LogLevel:       strings.ToLower(GetEnvOrDefault("LOG_LEVEL", "info")),
		LogDevelopment: ParseBoolEnv("LOG_DEVELOPMENT", false),
		LogFile:        os.Getenv("LOG_FILE"),
	}

	if p, err := strconv.Atoi(cfg.Port); err != nil || p < 1 || p > 65535 {
		return nil, &ConfigError{
			Code:    ErrCodeInvalidPort,
			Message: fmt.Sprintf("Invalid PORT '%s'", cfg.Port),
			Action:  "Set PORT to a number between 1 and 65535",
		}
	}

	workers, err := parsePositiveInt("RASTER_WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	cfg.Workers = workers

	alg, err := domain.ParseResampling(GetEnvOrDefault("DEFAULT_RESAMPLING", domain.DefaultResampling.String()))
	if err != nil {
		return nil, &ConfigError{
			Code:    ErrCodeInvalidResample,
			Message: fmt.Sprintf("Invalid DEFAULT_RESAMPLING: %v", err),
			Action:  "Set DEFAULT_RESAMPLING to a GDAL resampling name such as nearest, bilinear or average",
		}
	}
	cfg.DefaultResampling = alg

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, &ConfigError{
			Code:    ErrCodeInvalidLogLevel,
			Message: fmt.Sprintf("Invalid LOG_LEVEL '%s'", cfg.LogLevel),
			Action:  "Set LOG_LEVEL to debug, info, warn or error",
		}
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	return cfg, nil
}

// Validate checks settings that depend on the filesystem.
func (c *Config) Validate() error {
	if _, err := os.Stat(c.CatalogPath); err != nil {
		return &ConfigError{
			Code:    ErrCodeMissingCatalog,
			Message: fmt.Sprintf("Raster catalog not found: %s", c.CatalogPath),
			Action:  "Set RASTER_CATALOG to a YAML file listing the rasters to serve",
		}
	}
	return nil
}

// GetEnvOrDefault returns the value of an environment variable or a default value.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ParseBoolEnv parses an environment variable as a boolean.
// Accepts "true", "1", "yes", "on" and "false", "0", "no", "off", case-insensitive.
// Returns the default value if the variable is not set or cannot be parsed.
func ParseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func parsePositiveInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, &ConfigError{
			Code:    ErrCodeInvalidWorkers,
			Message: fmt.Sprintf("Invalid %s '%s'", key, value),
			Action:  fmt.Sprintf("Set %s to a positive integer or leave it unset", key),
		}
	}
	return n, nil
}
