package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/formscan/internal/database"
)

const historyTimeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [source]",
		Short: "List stored detections",
		Long: `History lists the sources in the history database, or the stored
detections of one source, newest first.

Examples:
  # List every source with stored detections
  formscan history

  # List the detections of one page
  formscan history https://example.gov/register

  # Output as JSON
  formscan history --json register.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listSources(ctx, db, out, jsonOutput)
	}
	return listHistory(ctx, db, out, args[0], jsonOutput)
}

// openHistory opens the history database named by the --db-dir flag.
func openHistory(cmd *cobra.Command) (*database.HistoryDB, error) {
	db, err := database.Open(persistentString(cmd, "db-dir"), database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func listSources(ctx context.Context, db *database.HistoryDB, out io.Writer, jsonOutput bool) error {
	sources, err := db.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if jsonOutput {
		if sources == nil {
			sources = []string{}
		}
		return writeJSON(out, sources)
	}

	if len(sources) == 0 {
		fmt.Fprintln(out, "No stored detections found.")
		fmt.Fprintln(out, "\nUse 'formscan detect <file-or-url>' to detect a page.")
		return nil
	}

	fmt.Fprintf(out, "Sources (%d):\n\n", len(sources))
	for _, s := range sources {
		fmt.Fprintf(out, "  • %s\n", s)
	}
	fmt.Fprintln(out, "\nUse 'formscan history <source>' to see the detections of a source.")
	return nil
}

func listHistory(ctx context.Context, db *database.HistoryDB, out io.Writer, source string, jsonOutput bool) error {
	entries, err := db.GetHistory(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if jsonOutput {
		if entries == nil {
			entries = []database.Entry{}
		}
		return writeJSON(out, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintf(out, "No stored detections for %s\n", source)
		return nil
	}

	fmt.Fprintf(out, "Detections of %s (%d):\n\n", source, len(entries))
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %-10s  %-6s  %s\n", "ID", "Date", "State", "Confidence", "Fields", "Business Form")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 72))
	for _, e := range entries {
		state := e.DetectedState
		if state == "" {
			state = "-"
		}
		form := "no"
		if e.IsBusinessForm {
			form = "yes"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-6s  %-10d  %-6d  %s\n",
			e.ID, e.Timestamp.Local().Format(historyTimeLayout), state, e.Confidence, e.FieldCount, form)
	}
	fmt.Fprintln(out, "\nUse 'formscan compare <source>' to compare the latest two detections.")
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
