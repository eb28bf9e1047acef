// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the contract-review CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/contract-review/internal/config"
	"github.com/pdiddy/contract-review/internal/logging"
	"github.com/pdiddy/contract-review/internal/secrets"
	"github.com/pdiddy/contract-review/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Set

// logger is configured in PersistentPreRunE once the log level is known.
var logger = slog.Default()

// rootCmd is the base command for the contract-review CLI.
var rootCmd = &cobra.Command{
	Use:   "contract-review",
	Short: "Review company contract folders with an LLM and build a workbook",
	Long: `contract-review walks a processing folder holding one subfolder per
company, extracts text from every PDF, DOCX, and DOC file, and asks an LLM
(Ollama or Perplexity) about assignment, notice, and change-of-control terms.

Results land in an Excel workbook with one row per company. A company that
fails gets an error summary PDF and the run continues. Every run is recorded
in a local SQLite history that the history subcommands query and export.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		if err := bindFlags(cmd, map[string]string{"log-level": config.KeyLogLevel}); err != nil {
			return err
		}
		logger = logging.New(os.Stderr, viper.GetString(config.KeyLogLevel))
		slog.SetDefault(logger)

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Debug("Loaded secrets", "keys", strings.Join(s.Keys(), ","))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./contract-review.yaml or ~/.config/contract-review/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "log level: DEBUG, INFO, WARNING, ERROR")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("contract-review")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "contract-review"))
		}
	}

	viper.SetEnvPrefix("CONTRACT_REVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())
	if err := config.BindEnv(viper.GetViper()); err != nil {
		fmt.Fprintln(os.Stderr, "Binding environment:", err)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags binds flag names to viper keys. Commands bind in PreRunE so
// that two commands sharing a key do not overwrite each other's binding.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for name, key := range keys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// loadConfig resolves the run configuration from viper and the secrets.
func loadConfig() types.Config {
	return config.Load(viper.GetViper(), loadedSecrets)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
