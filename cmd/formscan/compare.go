package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/formscan/internal/database"
	"github.com/nao1215/formscan/internal/model"
	"github.com/nao1215/formscan/internal/report"
)

// Errors returned when there is nothing to compare.
var (
	ErrNotEnoughHistory = errors.New("at least 2 stored detections are required for comparison")
	ErrDetectionMissing = errors.New("stored detection not found")
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <source>",
		Short: "Compare stored detections of a source",
		Long: `Compare shows what changed between two stored detections of a page:
fields that appeared or disappeared, fields whose category changed, and
the change in overall confidence and verdict.

By default the latest detection is compared with the one before it.

Examples:
  # Compare the latest two detections
  formscan compare https://example.gov/register

  # Compare with a specific detection (see 'formscan history <source>')
  formscan compare --with-id 5 https://example.gov/register

  # Compare with the first detection since a date
  formscan compare --since 2025-01-01 register.html

  # Output in Markdown
  formscan compare --markdown register.html`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with the stored detection of this id")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first detection on or after this date (format: YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	withID, err := cmd.Flags().GetInt64("with-id")
	if err != nil {
		return err
	}
	since, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown cannot be used together")
	}

	var sinceDate time.Time
	if since != "" {
		if sinceDate, err = time.ParseInLocation("2006-01-02", since, time.Local); err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	previous, current, err := selectReports(cmd.Context(), db, args[0], withID, sinceDate)
	if err != nil {
		return err
	}

	format := report.FormatText
	switch {
	case jsonOutput:
		format = report.FormatJSON
	case markdownOutput:
		format = report.FormatMarkdown
	}
	_, err = report.NewComparisonWriter(cmd.OutOrStdout(), format).Write(report.Compare(previous, current))
	return err
}

// selectReports returns the previous and current reports to compare. The
// current report is always the latest one.
func selectReports(ctx context.Context, db *database.HistoryDB, source string, withID int64, since time.Time) (previous, current *model.Report, err error) {
	switch {
	case withID > 0:
		current, err = db.GetLatest(ctx, source)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get latest detection: %w", err)
		}
		if current == nil {
			return nil, nil, fmt.Errorf("%w: no detections of %s", ErrDetectionMissing, source)
		}
		previous, err = db.GetByID(ctx, withID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get detection %d: %w", withID, err)
		}
		if previous == nil {
			return nil, nil, fmt.Errorf("%w: id %d", ErrDetectionMissing, withID)
		}
		if previous.Source != source {
			return nil, nil, fmt.Errorf("detection %d belongs to %s, not %s", withID, previous.Source, source)
		}
		return previous, current, nil

	case !since.IsZero():
		entries, err := db.GetHistory(ctx, source)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get history: %w", err)
		}
		if len(entries) < 2 {
			return nil, nil, fmt.Errorf("%w (found %d)", ErrNotEnoughHistory, len(entries))
		}
		// Entries are newest first; the oldest one on or after since wins.
		var pick *database.Entry
		for i := len(entries) - 1; i >= 1; i-- {
			if !entries[i].Timestamp.Before(since) {
				pick = &entries[i]
				break
			}
		}
		if pick == nil {
			return nil, nil, fmt.Errorf("%w: none since %s besides the latest", ErrNotEnoughHistory, since.Format("2006-01-02"))
		}
		if previous, err = db.GetByID(ctx, pick.ID); err != nil {
			return nil, nil, fmt.Errorf("failed to get detection %d: %w", pick.ID, err)
		}
		if current, err = db.GetByID(ctx, entries[0].ID); err != nil {
			return nil, nil, fmt.Errorf("failed to get detection %d: %w", entries[0].ID, err)
		}
		if previous == nil || current == nil {
			return nil, nil, ErrDetectionMissing
		}
		return previous, current, nil

	default:
		reports, err := db.GetRecent(ctx, source, 2)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get detections: %w", err)
		}
		if len(reports) < 2 {
			return nil, nil, fmt.Errorf("%w (found %d)", ErrNotEnoughHistory, len(reports))
		}
		return reports[1], reports[0], nil
	}
}
