package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ari/statcache/internal/gameplay"
)

// EnvPrefix prefixes environment overrides, e.g. STATCACHE_USER_ID.
const EnvPrefix = "STATCACHE"

// Config represents the application configuration
type Config struct {
	StorageDir string `mapstructure:"storage_dir"`
	ClientID   string `mapstructure:"client_id"`
	UserID     string `mapstructure:"user_id"`
	LogLevel   string `mapstructure:"log_level"`
}

// DefaultDir returns ~/.statcache
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".statcache"
	}
	return filepath.Join(homeDir, ".statcache")
}

// LoadConfig loads configuration from the specified path or default location.
// A missing file leaves the defaults in place.
func LoadConfig(configPath string) (*Config, error) {
	viperInstance := viper.New()

	viperInstance.SetDefault("storage_dir", filepath.Join(DefaultDir(), "gameplay"))
	viperInstance.SetDefault("client_id", "")
	viperInstance.SetDefault("user_id", "")
	viperInstance.SetDefault("log_level", "info")

	viperInstance.SetEnvPrefix(EnvPrefix)
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()

	if configPath == "" {
		configPath = filepath.Join(DefaultDir(), "config.toml")
	}
	viperInstance.SetConfigFile(configPath)

	if err := viperInstance.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := viperInstance.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that a user database can be located.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id is not configured")
	}
	if c.UserID == "" {
		return fmt.Errorf("user_id is not configured")
	}
	_, err := c.GetDatabasePath()
	return err
}

// GetDatabasePath returns the path OpenUser resolves for the configured user.
func (c *Config) GetDatabasePath() (string, error) {
	return gameplay.UserDatabasePath(c.StorageDir, c.ClientID, c.UserID)
}
