package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for Inkwell.
type Config struct {
	Data   DataConfig
	Remote RemoteConfig
	Log    LogConfig
}

type DataConfig struct {
	Dir           string
	DatabaseFile  string
	CredentialDir string
}

type RemoteConfig struct {
	APIKey  string
	APIBase string
	Timeout time.Duration
}

type LogConfig struct {
	Level string
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	dataDir := envOrDefault("INKWELL_DATA_DIR", filepath.Join(home, ".local", "share", "inkwell"))

	cfg := Config{
		Data: DataConfig{
			Dir:           dataDir,
			DatabaseFile:  envOrDefault("INKWELL_DB_FILE", filepath.Join(dataDir, "inkwell.db")),
			CredentialDir: envOrDefault("INKWELL_CREDENTIAL_DIR", filepath.Join(dataDir, "credentials")),
		},
		Remote: RemoteConfig{
			APIKey:  strings.TrimSpace(os.Getenv("INKWELL_API_KEY")),
			APIBase: envOrDefault("INKWELL_API_BASE", "https://api.inkwell.app/v1"),
			Timeout: time.Duration(envOrDefaultInt("INKWELL_REMOTE_TIMEOUT_MS", 10000)) * time.Millisecond,
		},
		Log: LogConfig{
			Level: envOrDefault("INKWELL_LOG_LEVEL", "info"),
		},
	}

	if cfg.Remote.Timeout <= 0 {
		cfg.Remote.Timeout = 10 * time.Second
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
