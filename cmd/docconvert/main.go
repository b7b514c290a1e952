// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docconvert CLI: the conversion
// server plus local and remote conversion, PDF locking and history.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docconvert/internal/config"
	"github.com/pdiddy/docconvert/internal/logging"
	"github.com/pdiddy/docconvert/internal/secrets"
	"github.com/pdiddy/docconvert/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the docconvert CLI.
var rootCmd = &cobra.Command{
	Use:   "docconvert",
	Short: "Convert documents between DOCX and PDF",
	Long: `docconvert converts Word documents to PDF and PDF documents to Word.
It runs as an HTTP service (serve) or converts files directly from the
command line, either locally or against a running server.

Conversions are delegated to LibreOffice (soffice) and pdf2docx, installed
on the host or packaged in a container image.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docconvert.yaml or ~/.config/docconvert/docconvert.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	config.Setup(viper.GetViper(), cfgFile)

	used, err := config.Read(viper.GetViper())
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
		return
	}
	if used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}
}

// loadConfig decodes and validates the merged configuration. The API key
// falls back to .secrets/docconvert-api-key.
func loadConfig() (types.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return cfg, err
	}
	cfg.Server.APIKey = secretDefault(secrets.APIKeyName, cfg.Server.APIKey)
	return cfg, nil
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cfg types.LogConfig) (*slog.Logger, error) {
	logger, err := logging.New(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
