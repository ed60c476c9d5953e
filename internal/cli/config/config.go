package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides (RESPONDER_SERVER_PORT, ...).
const EnvPrefix = "RESPONDER"

// Config represents the responder configuration.
type Config struct {
	Serializer   string            `mapstructure:"serializer"`
	MaxDepth     int               `mapstructure:"max_depth"`
	PrettyPrint  bool              `mapstructure:"pretty_print"`
	PageSize     int               `mapstructure:"page_size"`
	Fixtures     string            `mapstructure:"fixtures"`
	CursorSecret string            `mapstructure:"cursor_secret"`
	Messages     map[string]string `mapstructure:"messages"`
	Log          LogConfig         `mapstructure:"log"`
	Server       ServerConfig      `mapstructure:"server"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ServerConfig represents demo server configuration.
type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	Host    string `mapstructure:"host"`
	BaseURL string `mapstructure:"base_url"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load loads the configuration from responder.yml or responder.yaml in the
// working directory.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads the configuration from path. An empty path searches the
// working directory and a missing file falls back to defaults.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("serializer", "simple")
	v.SetDefault("max_depth", 10)
	v.SetDefault("pretty_print", false)
	v.SetDefault("page_size", 20)
	v.SetDefault("fixtures", "")
	v.SetDefault("cursor_secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.base_url", "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("responder")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// FindConfigFile looks for responder.yml or responder.yaml in the working
// directory and its parents.
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range []string{"responder.yml", "responder.yaml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return "", fmt.Errorf("no responder.yml found")
		}
		dir = parent
	}
}

// validateConfig validates the configuration.
func validateConfig(cfg *Config) error {
	switch cfg.Serializer {
	case "simple", "jsonapi":
	default:
		return fmt.Errorf("serializer must be 'simple' or 'jsonapi', got: %s", cfg.Serializer)
	}

	if cfg.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got: %d", cfg.MaxDepth)
	}

	if cfg.PageSize < 1 {
		return fmt.Errorf("page_size must be at least 1, got: %d", cfg.PageSize)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}

	if cfg.Server.BaseURL != "" {
		u, err := url.Parse(cfg.Server.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server.base_url must be an absolute URL, got: %s", cfg.Server.BaseURL)
		}
		if strings.HasSuffix(cfg.Server.BaseURL, "/") {
			return fmt.Errorf("server.base_url must not end with '/', got: %s", cfg.Server.BaseURL)
		}
	}
	return nil
}
