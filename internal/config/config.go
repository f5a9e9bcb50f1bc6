// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads the wgkeys configuration from files, environment
// variables and command-line flags (via Viper) and writes it back as YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the full wgkeys configuration.
type Config struct {
	Database struct {
		Type string `mapstructure:"type" yaml:"type"`
		Dsn  string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"database" yaml:"database"`

	API struct {
		URL     string        `mapstructure:"url" yaml:"url"`
		Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	} `mapstructure:"api" yaml:"api"`

	Language string `mapstructure:"language" yaml:"language"`

	Log struct {
		Level string `mapstructure:"level" yaml:"level"`
		File  string `mapstructure:"file" yaml:"file,omitempty"`
	} `mapstructure:"log" yaml:"log"`

	Keys struct {
		RefreshInterval time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`
		CopiedDuration  time.Duration `mapstructure:"copied_duration" yaml:"copied_duration"`
		DisplayLength   int           `mapstructure:"display_length" yaml:"display_length"`
	} `mapstructure:"keys" yaml:"keys"`

	// Watch enables reloading the key when another process rotates it.
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// Defaults returns the built-in configuration values keyed by their viper path.
func Defaults() map[string]any {
	return map[string]any{
		"database.type":         "sqlite",
		"database.dsn":          "./wgkeys.db",
		"api.url":               "http://127.0.0.1:8085",
		"api.timeout":           10 * time.Second,
		"language":              "en",
		"log.level":             "info",
		"log.file":              "",
		"keys.refresh_interval": 60 * time.Second,
		"keys.copied_duration":  3 * time.Second,
		"keys.display_length":   20,
		"watch":                 true,
	}
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "wgkeys")
		default: // Linux, macOS, etc.
			configDir = "/etc/wgkeys"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "wgkeys")
	}

	return filepath.Join(configDir, "wgkeys.yaml"), nil
}

// LoadConfig resolves configuration in increasing precedence: defaults,
// system file, user file, ./wgkeys.yaml, the explicit file (if any),
// WGKEYS_* environment variables and finally flags set on cmd.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string) (T, error) {
	var c T
	v := viper.New()

	// 1. Set defaults
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// 2. Set up file search paths
	v.SetConfigName("wgkeys")
	v.SetConfigType("yaml")

	// 3. An explicit file from --config has the highest file precedence.
	if configFile != nil && *configFile != "" {
		v.SetConfigFile(*configFile)
	}

	// 4. Standard locations
	v.AddConfigPath(".")
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}

	// 5. Read in the primary config file.
	if err := v.ReadInConfig(); err != nil {
		// It's okay if the file is not found, but other errors are fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	// 6. Environment variables
	v.SetEnvPrefix("wgkeys")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 7. Flags
	if cmd != nil {
		if err := bindFlags(v, cmd); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("could not decode configuration: %w", err)
	}
	return c, nil
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"db-type":   "database.type",
	"db-dsn":    "database.dsn",
	"api-url":   "api.url",
	"lang":      "language",
	"log-level": "log.level",
	"log-file":  "log.file",
	"watch":     "watch",
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	flags := cmd.Flags()
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("could not bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// WriteConfigFile writes c as YAML to the user (or system) config path and
// returns the path written.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the file may carry a database DSN with credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", err
	}
	return path, nil
}
