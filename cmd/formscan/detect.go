package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/formscan/internal/browser"
	"github.com/nao1215/formscan/internal/config"
	"github.com/nao1215/formscan/internal/database"
	"github.com/nao1215/formscan/internal/dom"
	"github.com/nao1215/formscan/internal/fetch"
	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/log"
	"github.com/nao1215/formscan/internal/model"
	"github.com/nao1215/formscan/internal/pipeline"
	"github.com/nao1215/formscan/internal/report"
)

// NewDetectCmd creates the detect command.
func NewDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [file|url ...]",
		Short: "Detect and classify the form fields of pages",
		Long: `Detect reads each page, finds its form fields and classifies them.

Sources are local HTML files or http(s) URLs. With --render, URLs are
loaded in headless Chrome so that field positions come from the real
layout. Results are stored in the history database; a page whose content
did not change since a detection younger than --max-age reuses it.

Examples:
  # Detect the fields of a saved page
  formscan detect register.html

  # Detect several pages at once and write a Markdown report
  formscan detect --markdown -o report.md https://example.gov/llc https://example.gov/corp

  # Force the jurisdiction and add knowledge overrides
  formscan detect --state TX --knowledge agency.yaml form.html

  # Read the sources from a file, one per line
  formscan detect --list sources.txt --json`,
		Args: cobra.ArbitraryArgs,
		RunE: runDetectCmd,
	}

	cmd.Flags().StringP("state", "s", "",
		"Force the jurisdiction (state code or name)")
	cmd.Flags().StringP("knowledge", "k", "",
		"YAML file of knowledge overrides")
	cmd.Flags().StringP("list", "l", "",
		"File listing sources, one per line")

	cmd.Flags().BoolP("render", "r", false,
		"Load URLs in headless Chrome to capture the rendered layout")
	cmd.Flags().String("chrome-bin", "",
		"Chrome binary used with --render (default: found or downloaded)")
	cmd.Flags().String("chrome-url", "",
		"DevTools URL of a running Chrome used with --render")

	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy (host:port) for URL sources")
	cmd.Flags().String("cookie", "",
		"Cookie header sent with every request")
	cmd.Flags().StringArrayP("header", "H", nil,
		"Extra request header \"Name: value\" (repeatable)")

	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for acquiring and detecting one source")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sources processed concurrently")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .formscan in current or home directory)")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report")
	cmd.Flags().BoolP("ui", "u", false,
		"Output the display projection of each result as JSON")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	cmd.Flags().Bool("no-cache", false,
		"Always run detection even if the page did not change")
	cmd.Flags().Bool("no-history", false,
		"Do not read or write the history database")
	cmd.Flags().Duration("max-age", config.DefaultMaxAge,
		"Reuse a stored detection of an unchanged page up to this age")

	return cmd
}

func runDetectCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	overrides, err := cfg.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(cmd.ErrOrStderr(), cfg.LogFormat, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runDetect(ctx, cmd, cfg, overrides, logger)
}

// persistentString reads a persistent flag from the command or the root.
func persistentString(cmd *cobra.Command, name string) string {
	if v, err := cmd.Flags().GetString(name); err == nil {
		return v
	}
	v, _ := cmd.Root().PersistentFlags().GetString(name) //nolint:errcheck // missing flag means default
	return v
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.StateCode, err = flags.GetString("state"); err != nil {
		return nil, err
	}
	if cfg.KnowledgePath, err = flags.GetString("knowledge"); err != nil {
		return nil, err
	}
	if cfg.Render, err = flags.GetBool("render"); err != nil {
		return nil, err
	}
	if cfg.ChromeBin, err = flags.GetString("chrome-bin"); err != nil {
		return nil, err
	}
	if cfg.ChromeURL, err = flags.GetString("chrome-url"); err != nil {
		return nil, err
	}
	if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.Cookie, err = flags.GetString("cookie"); err != nil {
		return nil, err
	}
	headers, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	if cfg.Headers, err = fetch.ParseHeaders(headers); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.UIReport, err = flags.GetBool("ui"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.NoCache, err = flags.GetBool("no-cache"); err != nil {
		return nil, err
	}
	if cfg.MaxAge, err = flags.GetDuration("max-age"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if !noHistory {
		cfg.DBDir = persistentString(cmd, "db-dir")
	}
	cfg.LogFormat = persistentString(cmd, "log-format")
	cfg.Verbose = getVerboseFlag(cmd)

	cfg.Targets = args
	listFile, err := flags.GetString("list")
	if err != nil {
		return nil, err
	}
	if listFile != "" {
		listed, err := readTargetList(listFile)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, listed...)
	}
	return cfg, nil
}

// readTargetList reads one source per line. Blank lines and lines starting
// with # are skipped.
func readTargetList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open target list: %w", err)
	}
	defer f.Close()

	var targets []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target list: %w", err)
	}
	return targets, nil
}

// detectRunner acquires and detects one source. It is shared by the
// batch workers and holds no per-source state.
type detectRunner struct {
	cfg       *config.Config
	fetcher   *fetch.Fetcher
	detector  *pipeline.Detector
	overrides *knowledge.File
	digest    string
	db        *database.HistoryDB
	logger    *slog.Logger
}

func runDetect(ctx context.Context, cmd *cobra.Command, cfg *config.Config, overrides *knowledge.File, logger *slog.Logger) error {
	client, err := fetch.NewClient(fetch.ClientOptions{
		Proxy:   cfg.Proxy,
		Cookie:  cfg.Cookie,
		Headers: cfg.Headers,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return err
	}
	if cfg.Proxy != "" {
		logger.Info("fetching through proxy", "proxy", cfg.Proxy)
	}

	r := &detectRunner{
		cfg: cfg,
		fetcher: fetch.New(
			fetch.WithHTTPClient(client),
			fetch.WithUserAgent(cfg.UserAgent),
			fetch.WithMaxBodySize(cfg.MaxBodySize),
			fetch.WithLogger(logger),
		),
		detector:  pipeline.NewDetector(cfg.Settings(), pipeline.WithDetectorLogger(logger)),
		overrides: overrides,
		digest:    cfg.Digest(overrides),
		logger:    logger,
	}

	if cfg.DBDir != "" {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		r.db = db
		logger.Debug("database opened", "path", db.Path())
	}

	progress := cmd.ErrOrStderr()
	started := time.Now()

	var reports []*model.Report
	if len(cfg.Targets) == 1 {
		fmt.Fprintf(progress, "Detecting %s...\n", cfg.Targets[0])
		reports = []*model.Report{r.run(ctx, cfg.Targets[0])}
	} else {
		fmt.Fprintf(progress, "Detecting %d sources (concurrency: %d)...\n", len(cfg.Targets), cfg.BatchSize)
		bp := pipeline.NewBatchProcessor(r.run,
			pipeline.WithConcurrency(cfg.BatchSize),
			pipeline.WithBatchLogger(logger),
		)
		reports = make([]*model.Report, len(cfg.Targets))
		var mu sync.Mutex
		batchErr := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(rep *model.Report, index int) {
			mu.Lock()
			defer mu.Unlock()
			reports[index] = rep
			fmt.Fprintf(progress, "[%d/%d] %s\n", index+1, len(cfg.Targets), rep.Source)
		})
		if batchErr != nil {
			logger.Warn("batch interrupted", "error", batchErr)
		}
		for i, rep := range reports {
			if rep == nil {
				rep = model.NewReport(cfg.Targets[i])
				rep.TimedOut = true
				rep.SetError(context.Canceled)
				reports[i] = rep
			}
		}
	}
	fmt.Fprintf(progress, "Done in %s\n", time.Since(started).Round(time.Millisecond))

	if err := writeReports(cmd, cfg, overrides, reports); err != nil {
		return err
	}

	failed := 0
	for _, rep := range reports {
		if rep.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(reports))
	}
	return nil
}

// run produces the report of one source. It never returns nil.
func (r *detectRunner) run(ctx context.Context, source string) *model.Report {
	rep := model.NewReport(source)
	rep.Digest = r.digest
	started := time.Now()
	defer func() { rep.Duration = time.Since(started) }()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	page, doc, err := r.acquire(ctx, source)
	if err != nil {
		rep.SetError(err)
		rep.TimedOut = ctx.Err() != nil
		r.logger.Warn("acquisition failed", "source", source, "error", err)
		return rep
	}
	rep.Page = page

	if cached := r.cached(ctx, page); cached != nil {
		rep.Result = cached.Result
		rep.Cached = true
		r.logger.Info("reused stored detection", "source", source, "hash", page.Hash)
		return rep
	}

	in := pipeline.Input{
		URL:       page.URL,
		PageText:  fetch.PageText(page, doc),
		StateCode: r.cfg.StateCode,
		Knowledge: r.overrides,
	}
	result, err := r.detector.Detect(ctx, doc, in)
	rep.Result = result
	if err != nil {
		rep.SetError(err)
		rep.TimedOut = errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
		return rep
	}

	r.save(ctx, rep)
	return rep
}

// acquire fetches or renders source and parses it.
func (r *detectRunner) acquire(ctx context.Context, source string) (*model.Page, *dom.Document, error) {
	if r.cfg.Render && fetch.IsURL(source) {
		snap, err := browser.Capture(ctx, source, browser.Options{
			ControlURL: r.cfg.ChromeURL,
			Bin:        r.cfg.ChromeBin,
			Timeout:    r.cfg.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		doc, rendered, err := snap.Document()
		if err != nil {
			return nil, nil, err
		}
		if !rendered {
			r.logger.Warn("rendered layout did not match the document, using static layout", "source", source)
		}
		page := snap.Page(source)
		page.Rendered = rendered
		page.Title = doc.Title()
		page.Lang = doc.Lang()
		return page, doc, nil
	}

	page, err := r.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	doc, err := fetch.Document(page)
	if err != nil {
		return nil, nil, err
	}
	return page, doc, nil
}

// cached returns a stored report of the same page content produced with
// the same settings and knowledge, or nil.
func (r *detectRunner) cached(ctx context.Context, page *model.Page) *model.Report {
	if r.db == nil || r.cfg.NoCache || page.Hash == "" || r.digest == "" {
		return nil
	}
	stored, err := r.db.FindByFingerprint(ctx, page.Source, page.Hash, r.digest, r.cfg.MaxAge)
	if err != nil {
		r.logger.Warn("history lookup failed", "source", page.Source, "error", err)
		return nil
	}
	if stored == nil || stored.Result == nil {
		return nil
	}
	return stored
}

func (r *detectRunner) save(ctx context.Context, rep *model.Report) {
	if r.db == nil {
		return
	}
	id, err := r.db.SaveReport(ctx, rep)
	if err != nil {
		r.logger.Error("failed to save report", "source", rep.Source, "error", err)
		return
	}
	r.logger.Debug("report saved", "source", rep.Source, "id", id)
}

// reportFormat returns the output format selected in cfg.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	case cfg.UIReport:
		return report.FormatUI
	default:
		return report.FormatText
	}
}

// openOutput returns the report destination: the report file, created
// with its directories, or the command output.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	// Reports may quote page content; keep them owner-readable.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func writeReports(cmd *cobra.Command, cfg *config.Config, overrides *knowledge.File, reports []*model.Report) error {
	out, closeFn, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}

	w := report.New(reportFormat(cfg), out, getVersion(), knowledge.Default(), overrides)
	if len(reports) == 1 {
		_, err = w.Write(reports[0])
	} else {
		_, err = w.WriteAll(reports)
	}
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
