// Config loading for the vapor CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyBackend = "backend"
	cfgKeyDataDir = "data_dir"
	cfgKeyMaxTTL  = "max_ttl_seconds"

	defaultConfigDir = ".vapor"
	defaultDataDir   = ".vapor-db"
)

// resolveConfigDir returns the config directory from flag, env, or default.
func resolveConfigDir() string {
	if flagConfigDir != "" {
		return flagConfigDir
	}
	if v := os.Getenv("VAPOR_CONFIG_DIR"); v != "" {
		return v
	}
	return defaultConfigDir
}

// loadConfig reads config.yaml from the resolved config directory using
// Viper and folds in the command-line overrides. A missing config.yaml is
// not an error.
func loadConfig() (types.Config, error) {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(resolveConfigDir())
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyMaxTTL, 0)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return types.Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	dataDir := flagDataDir
	if dataDir == "" {
		dataDir = v.GetString(cfgKeyDataDir)
	}
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	cfg := types.Config{
		Backend:       v.GetString(cfgKeyBackend),
		DataDir:       dataDir,
		MaxTTLSeconds: v.GetUint32(cfgKeyMaxTTL),
	}
	return cfg, cfg.Validate()
}

// configFile holds the structure written to config.yaml.
type configFile struct {
	Backend       string `yaml:"backend"`
	DataDir       string `yaml:"data_dir,omitempty"`
	MaxTTLSeconds uint32 `yaml:"max_ttl_seconds,omitempty"`
}

// writeConfigIfMissing creates config.yaml with defaults when it does not
// exist yet.
func writeConfigIfMissing(configDir, dataDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(configDir, configFileName+"."+configFileType)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := yaml.Marshal(configFile{
		Backend: types.BackendSQLite,
		DataDir: dataDir,
	})
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
