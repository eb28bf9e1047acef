// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/contract-review/internal/config"
	"github.com/pdiddy/contract-review/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query and export past runs (runs, show, export)",
	Long: `History reads the SQLite database that analyze records every run in.
Each company outcome is kept with its status (success, failed, or skipped),
the failing step, and the document fingerprint used by --skip-unchanged.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return bindFlags(cmd, map[string]string{"history-db": config.KeyHistoryDB})
	},
}

// --- runs subcommand ---

var historyRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs with their counts",
	RunE:  runHistoryRuns,
}

func runHistoryRuns(cmd *cobra.Command, args []string) error {
	st, err := openHistory()
	if err != nil {
		return err
	}
	defer st.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := st.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	renderRuns(os.Stdout, runs)
	return nil
}

func renderRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Provider", "Model", "Total", "OK", "Failed", "Skipped", "Workbook"})
	for _, r := range runs {
		duration := "running"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			duration,
			r.Provider,
			r.Model,
			r.Total,
			r.Successful,
			r.Failed,
			r.Skipped,
			r.Workbook,
		})
	}
	t.Render()
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show recorded company reviews",
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	st, err := openHistory()
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.Reviews(cmd.Context(), queryFromFlags(cmd))
	if err != nil {
		return err
	}
	renderRecords(os.Stdout, records)
	return nil
}

func renderRecords(w io.Writer, records []store.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No reviews found.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Company", "Status", "Contract", "Action Required", "Detail"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 30},
		{Number: 5, WidthMax: 30},
		{Number: 6, WidthMax: 40},
	})
	for _, rec := range records {
		contract, action, detail := "", "", ""
		if rec.Review != nil {
			contract = rec.Review.ContractName
			action = rec.Review.ActionRequired
			detail = rec.Review.RecommendedAction
		}
		if rec.Status == store.StatusFailed {
			detail = rec.Step + ": " + rec.Error
		}
		t.AppendRow(table.Row{rec.RunID, rec.Company, string(rec.Status), contract, action, detail})
	}
	t.Render()
	fmt.Fprintf(w, "%d reviews\n", len(records))
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded reviews to YAML or JSON",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	st, err := openHistory()
	if err != nil {
		return err
	}
	defer st.Close()

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	q := queryFromFlags(cmd)
	switch format {
	case "yaml", "":
		err = st.ExportYAML(cmd.Context(), w, q)
	case "json":
		err = st.ExportJSON(cmd.Context(), w, q)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintf(os.Stderr, "Exported to %s\n", out)
	}
	return nil
}

// --- shared helpers ---

func openHistory() (*store.Store, error) {
	return store.Open(loadConfig().HistoryDB)
}

func queryFromFlags(cmd *cobra.Command) store.Query {
	company, _ := cmd.Flags().GetString("company")
	runID, _ := cmd.Flags().GetInt64("run")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	return store.Query{
		Company: company,
		RunID:   runID,
		Status:  store.Status(status),
		Limit:   limit,
	}
}

func init() {
	historyCmd.PersistentFlags().String("history-db", config.DefaultHistoryDB, "SQLite history database")

	historyRunsCmd.Flags().Int("limit", 20, "maximum runs to list")

	for _, c := range []*cobra.Command{historyShowCmd, historyExportCmd} {
		c.Flags().String("company", "", "filter by company folder name")
		c.Flags().Int64("run", 0, "filter by run ID")
		c.Flags().String("status", "", "filter by status: success, failed, or skipped")
	}
	historyShowCmd.Flags().Int("limit", 50, "maximum reviews to show")
	historyExportCmd.Flags().Int("limit", 0, "maximum reviews to export (0 = all)")
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("out", "", "write to a file instead of stdout")

	historyCmd.AddCommand(historyRunsCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
