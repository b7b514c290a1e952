package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docconvert/internal/history"
	"github.com/pdiddy/docconvert/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the conversion journal",
	Long: `History reads the SQLite journal written by the server when
history.db_path is configured. Use list for recent entries and export for a
YAML or JSON dump with a summary.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent conversions, newest first",
	RunE:  runHistoryList,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the journal as YAML or JSON",
	RunE:  runHistoryExport,
}

func init() {
	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().String("db", "", "journal database (default: history.db_path)")
		c.Flags().String("conversion", "", "filter by conversion: word_to_pdf or pdf_to_word")
		c.Flags().String("outcome", "", "filter by outcome: succeeded, failed, rejected")
		c.Flags().Duration("since", 0, "only entries newer than this age, e.g. 24h")
	}
	historyListCmd.Flags().Int("limit", 50, "maximum number of entries")
	historyListCmd.Flags().Bool("json", false, "output entries as JSON")
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("out", "", "output file (default: stdout)")

	historyCmd.AddCommand(historyListCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the journal named by --db or history.db_path.
func openHistory(cmd *cobra.Command) (*history.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.History.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("no history database: set history.db_path or pass --db")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("history database %s: %w", path, err)
	}
	return history.Open(path)
}

func queryOptions(cmd *cobra.Command) (history.QueryOptions, error) {
	var opts history.QueryOptions
	if s, _ := cmd.Flags().GetString("conversion"); s != "" {
		kind, err := types.ParseConversion(s)
		if err != nil {
			return opts, err
		}
		opts.Conversion = kind
	}
	if s, _ := cmd.Flags().GetString("outcome"); s != "" {
		switch o := types.Outcome(s); o {
		case types.OutcomeSucceeded, types.OutcomeFailed, types.OutcomeRejected:
			opts.Outcome = o
		default:
			return opts, fmt.Errorf("unsupported outcome %q", s)
		}
	}
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		opts.Since = time.Now().Add(-since)
	}
	return opts, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	opts, err := queryOptions(cmd)
	if err != nil {
		return err
	}
	opts.Limit, _ = cmd.Flags().GetInt("limit")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if entries == nil {
			entries = []types.HistoryEntry{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	return printEntries(os.Stdout, entries)
}

func printEntries(w io.Writer, entries []types.HistoryEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No conversions recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tCONVERSION\tOUTCOME\tINPUT\tOUTPUT\tDURATION")
	for _, e := range entries {
		conv := string(e.Conversion)
		if conv == "" {
			conv = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format(time.DateTime), conv, e.Outcome,
			e.InputName, e.OutputName, e.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	opts, err := queryOptions(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		return store.Export(cmd.Context(), os.Stdout, format, opts)
	}
	if err := download(out, func(w io.Writer) error {
		return store.Export(cmd.Context(), w, format, opts)
	}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported history to %s\n", out)
	return nil
}
