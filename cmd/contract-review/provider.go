// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/contract-review/internal/analysis"
	"github.com/pdiddy/contract-review/internal/config"
	"github.com/pdiddy/contract-review/pkg/types"
)

var providerFlagKeys = map[string]string{
	"provider": config.KeyProvider,
	"model":    config.KeyModel,
}

// --- ping subcommand ---

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the configured AI provider is reachable",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, providerFlagKeys)
	},
	RunE: runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	ai, an, err := providerFromConfig()
	if err != nil {
		return err
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	if err := an.Ping(ctx); err != nil {
		return err
	}
	fmt.Printf("%s reachable at %s (model %s)\n", an.Name(), ai.BaseURL, ai.Model)
	return nil
}

// --- models subcommand ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models installed on the Ollama server",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, providerFlagKeys)
	},
	RunE: runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	ai, an, err := providerFromConfig()
	if err != nil {
		return err
	}
	client, ok := an.(*analysis.OllamaClient)
	if !ok {
		return errors.New("listing models is only supported for the ollama provider")
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	models, err := client.ListModels(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Println("No models installed.")
		return nil
	}
	for _, m := range models {
		marker := " "
		if m == ai.Model {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, m)
	}
	return nil
}

// --- shared helpers ---

func providerFromConfig() (types.AIConfig, analysis.Analyzer, error) {
	ai := loadConfig().AI
	if err := config.ValidateAI(ai); err != nil {
		return ai, nil, err
	}
	an, err := analysis.New(ai, nil)
	return ai, an, err
}

func init() {
	for _, c := range []*cobra.Command{pingCmd, modelsCmd} {
		c.Flags().String("provider", "", "AI provider: ollama or perplexity")
		c.Flags().String("model", "", "model name, overriding the provider default")
		rootCmd.AddCommand(c)
	}
}
