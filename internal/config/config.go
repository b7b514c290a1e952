// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads docconvert settings through viper. Values come from
// defaults, an optional YAML file and DOCCONVERT_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/docconvert/internal/logging"
	"github.com/pdiddy/docconvert/pkg/types"
)

const (
	// Name is the config file base name searched for in the default paths.
	Name = "docconvert"

	// EnvPrefix prefixes environment overrides: server.addr is read from
	// DOCCONVERT_SERVER_ADDR.
	EnvPrefix = "DOCCONVERT"

	DefaultAddr  = ":5000"
	DefaultImage = "docconvert-tools:latest"
)

// SetDefaults registers a default for every key so that environment
// variables are honored by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.max_upload_bytes", 0)
	v.SetDefault("server.max_concurrent", 0)
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.api_key", "")

	v.SetDefault("conversion.backend", string(types.BackendLocal))
	v.SetDefault("conversion.image", DefaultImage)
	v.SetDefault("conversion.soffice_bin", "soffice")
	v.SetDefault("conversion.pdf2docx_bin", "pdf2docx")
	v.SetDefault("conversion.work_root", "")
	v.SetDefault("conversion.timeout", time.Duration(0))

	v.SetDefault("history.db_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Setup prepares v with defaults, the environment binding and the config
// file search path. An empty cfgFile searches ./docconvert.yaml and
// ~/.config/docconvert/docconvert.yaml.
func Setup(v *viper.Viper, cfgFile string) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Read loads the config file if one is found and returns its path. A
// missing file in the search path is not an error; a missing explicit file
// is.
func Read(v *viper.Viper) (string, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && v.ConfigFileUsed() == "" {
			return "", nil
		}
		return "", fmt.Errorf("reading config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func Validate(cfg types.Config) error {
	switch {
	case cfg.Server.Addr == "":
		return errors.New("server.addr is required")
	case cfg.Server.MaxUploadBytes < 0:
		return fmt.Errorf("server.max_upload_bytes must not be negative, got %d", cfg.Server.MaxUploadBytes)
	case cfg.Server.MaxConcurrent < 0:
		return fmt.Errorf("server.max_concurrent must not be negative, got %d", cfg.Server.MaxConcurrent)
	case cfg.Conversion.Timeout < 0:
		return fmt.Errorf("conversion.timeout must not be negative, got %s", cfg.Conversion.Timeout)
	}

	switch cfg.Conversion.Backend {
	case types.BackendLocal:
		if cfg.Conversion.SofficeBin == "" || cfg.Conversion.Pdf2docxBin == "" {
			return errors.New("conversion.soffice_bin and conversion.pdf2docx_bin are required for the local backend")
		}
	case types.BackendContainer:
		if cfg.Conversion.Image == "" {
			return errors.New("conversion.image is required for the container backend")
		}
	default:
		return fmt.Errorf("unsupported conversion.backend %q: use %s or %s",
			cfg.Conversion.Backend, types.BackendLocal, types.BackendContainer)
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log.format %q: use text or json", cfg.Log.Format)
	}
	return nil
}
