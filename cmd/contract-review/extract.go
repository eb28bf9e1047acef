// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/contract-review/internal/config"
	"github.com/pdiddy/contract-review/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract <folder>",
	Short: "Extract and combine the text of one company folder",
	Long: `Extract runs document extraction on a single company folder and prints
the combined text that analyze would send to the provider, each document under
a "=== DOCUMENT: <name> ===" header. Use it to check OCR and DOC handling
without calling a model.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, map[string]string{
			"ocr-engine": config.KeyOCREngine,
			"ocr-mode":   config.KeyOCRMode,
		})
	},
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	ctx, stop := commandContext(cmd)
	defer stop()

	ct, err := pipeline.CompanyText(ctx, newProcessor(cfg), args[0])
	if err != nil {
		return err
	}
	v := pipeline.ValidateCompany(ct)
	for _, w := range v.Warnings {
		logger.Warn(w)
	}
	if !v.Valid {
		return v.Err()
	}

	var w io.Writer = os.Stdout
	out, _ := cmd.Flags().GetString("out")
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}
	if _, err := fmt.Fprintln(w, ct.CombinedText); err != nil {
		return err
	}
	if out != "" {
		logger.Info("Wrote combined text", "path", out,
			"documents", ct.Stats.Successful, "failed", ct.Stats.Failed)
	}
	return nil
}

func init() {
	extractCmd.Flags().String("out", "", "write the combined text to a file instead of stdout")
	extractCmd.Flags().String("ocr-engine", "", "OCR engine: command, container, or tesseract")
	extractCmd.Flags().String("ocr-mode", "", "when to OCR PDFs: auto, always, or never")

	rootCmd.AddCommand(extractCmd)
}
