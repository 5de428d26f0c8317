package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// fileBase is the config file name without extension.
const fileBase = "cribl-bridge"

// keys lists every config key. Each one is bound to CRIBL_<KEY>.
var keys = []string{
	"base_url",
	"auth_type",
	"client_id",
	"client_secret",
	"cloud_auth_url",
	"audience",
	"username",
	"password",
	"log_level",
	"request_timeout",
	"metrics_addr",
	"trace",
}

// InitViper points viper at configFile, or at cribl-bridge.yaml/.yml in the
// current directory or ~/.cribl-bridge when configFile is empty, and enables
// CRIBL_* environment overrides.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// ReadInConfig then reports ConfigFileNotFoundError, which Load ignores.
		viper.SetConfigName(fileBase)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CRIBL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	for _, key := range keys {
		_ = viper.BindEnv(key)
	}
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	return findConfigFileInPaths([]string{".", filepath.Join(home, "."+fileBase)})
}

// findConfigFileInPaths returns the first cribl-bridge.yaml or .yml found in
// paths, or "".
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, fileBase+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Load reads the config file (if any), applies environment overrides and
// defaults, and validates the result.
func Load() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}
