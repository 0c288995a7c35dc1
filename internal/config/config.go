// SPDX-License-Identifier: MPL-2.0

// Package config resolves orb's configuration and filesystem layout.
//
// Process-wide defaults come first, then an optional config.toml in the
// platform config directory, then ORB_* environment variables. Components
// never read ambient globals — they receive an explicit Paths value built
// from the loaded configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for config and state paths.
	AppName = "orb"

	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"

	// DefaultOfficialRepo is the single hard-coded trusted repository,
	// always searched first during resolution.
	DefaultOfficialRepo = "https://git.orbpkg.io/orb/registry"
)

type (
	// Config holds user-tunable settings.
	Config struct {
		// OfficialRepo overrides the official repository URL. Intended for
		// mirrors and tests; resolution semantics are unchanged.
		OfficialRepo string `mapstructure:"official_repo"`
		// GlobalRoot overrides the user-wide install root.
		GlobalRoot string `mapstructure:"global_root"`
		// UpdateCheck disables the opportunistic update check when false.
		UpdateCheck bool `mapstructure:"update_check"`
		// Verbose enables verbose diagnostic output.
		Verbose bool `mapstructure:"verbose"`
	}

	// LoadOptions are explicit inputs for Load, so tests can point it at
	// temp directories instead of the real platform config dir.
	LoadOptions struct {
		// ConfigFilePath loads exactly this file when set.
		ConfigFilePath string
		// ConfigDirPath overrides the platform config directory.
		ConfigDirPath string
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		OfficialRepo: DefaultOfficialRepo,
		UpdateCheck:  true,
	}
}

// ConfigDir returns the orb configuration directory using platform
// conventions: %APPDATA% on Windows, ~/Library/Application Support on
// macOS, $XDG_CONFIG_HOME (default ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load resolves the effective configuration: defaults, then the config
// file (when present), then ORB_* environment variables.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("official_repo", defaults.OfficialRepo)
	v.SetDefault("global_root", defaults.GlobalRoot)
	v.SetDefault("update_check", defaults.UpdateCheck)
	v.SetDefault("verbose", defaults.Verbose)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", opts.ConfigFilePath, err)
		}
	} else {
		cfgDir := opts.ConfigDirPath
		if cfgDir == "" {
			dir, err := ConfigDir()
			if err != nil {
				return nil, err
			}
			cfgDir = dir
		}

		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(cfgDir)
		if err := v.ReadInConfig(); err != nil {
			// A missing config file means defaults; anything else is an
			// actual problem worth surfacing.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.OfficialRepo == "" {
		cfg.OfficialRepo = DefaultOfficialRepo
	}

	return &cfg, nil
}
