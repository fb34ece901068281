package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"gotrack/internal/errors"
)

// AppConfig is the process-level configuration: where the server listens,
// whether runs are persisted, and how hard the engine may parallelize.
// Project-level analysis configuration (waves, questions, banner,
// statistical knobs) lives in the tracker workbook or YAML file, not here.
type AppConfig struct {
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
}

// ServerConfig holds the HTTP surface settings
type ServerConfig struct {
	APIPort       string
	DashboardPort string
}

// DatabaseConfig holds run-store settings. An empty URL disables
// persistence entirely; the engine does not need it.
type DatabaseConfig struct {
	URL string
}

// EngineConfig holds process-level engine settings. Statistical knobs
// (alpha, minimum base) belong to the project configuration instead.
type EngineConfig struct {
	MaxParallel int
}

// Load reads configuration from the environment, honoring a .env file in
// the working directory when present.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		Server: ServerConfig{
			APIPort:       getEnvOrDefault("PORT", "8080"),
			DashboardPort: getEnvOrDefault("DASHBOARD_PORT", "8081"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Engine: EngineConfig{
			MaxParallel: getEnvIntOrDefault("TRACK_MAX_PARALLEL", 0), // 0 = number of CPUs
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *AppConfig) error {
	if cfg.Engine.MaxParallel < 0 {
		return errors.ConfigInvalid("TRACK_MAX_PARALLEL must be >= 0", nil)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
