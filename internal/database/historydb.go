package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/formscan/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "formscan.db"

// timestampLayout is how detection times are stored. It sorts as text.
const timestampLayout = "2006-01-02 15:04:05.000000"

var (
	// ErrNotFound is returned when the database file does not exist and
	// creation was not requested.
	ErrNotFound = errors.New("database not found")

	// ErrNoResult is returned when saving a report without a result.
	ErrNoResult = errors.New("report has no detection result")
)

// HistoryDB stores detection reports.
type HistoryDB struct {
	db *sql.DB

	path string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the database in dir.
func Open(dir string, opts Options) (*HistoryDB, error) {
	path := filepath.Join(dir, FileName)

	dsn := path + "?mode=rwc"
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = path + "?mode=rw"
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer; concurrent batch workers queue on the connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, path: path}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return h, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.path
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		hash TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL,
		is_business_form INTEGER NOT NULL DEFAULT 0,
		confidence INTEGER NOT NULL DEFAULT 0,
		field_count INTEGER NOT NULL DEFAULT 0,
		detected_state TEXT NOT NULL DEFAULT '',
		digest TEXT NOT NULL DEFAULT '',
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_detections_source ON detections(source);
	CREATE INDEX IF NOT EXISTS idx_detections_hash ON detections(source, hash);
	CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON detections(timestamp);
	`

	if _, err := h.db.ExecContext(context.Background(), schema); err != nil {
		return err
	}
	return h.migrate()
}

// migrate adds the columns missing from databases created by older
// versions.
func (h *HistoryDB) migrate() error {
	var n int
	err := h.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM pragma_table_info('detections') WHERE name = 'digest'`).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = h.db.ExecContext(context.Background(),
		`ALTER TABLE detections ADD COLUMN digest TEXT NOT NULL DEFAULT ''`)
	return err
}

// Entry is the summary of one stored detection.
type Entry struct {
	ID             int64     `json:"id"`
	Source         string    `json:"source"`
	Hash           string    `json:"hash,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	IsBusinessForm bool      `json:"is_business_form"`
	Confidence     int       `json:"confidence"`
	FieldCount     int       `json:"field_count"`
	DetectedState  string    `json:"detected_state,omitempty"`
}

// SaveReport stores report and returns its id. Reports without a result
// are rejected with ErrNoResult.
func (h *HistoryDB) SaveReport(ctx context.Context, report *model.Report) (int64, error) {
	if report == nil || report.Result == nil {
		return 0, ErrNoResult
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	hash := ""
	if report.Page != nil {
		hash = report.Page.Hash
	}
	scanned := report.DateScanned
	if scanned.IsZero() {
		scanned = time.Now()
	}

	query := `
	INSERT INTO detections (source, hash, timestamp, is_business_form, confidence, field_count, detected_state, digest, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := h.db.ExecContext(ctx, query,
		report.Source,
		hash,
		scanned.UTC().Format(timestampLayout),
		report.Result.IsBusinessForm,
		report.Result.OverallConfidence,
		len(report.Result.Fields),
		report.Result.DetectedState,
		report.Digest,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}

	return res.LastInsertId()
}

// GetLatest returns the most recent report for source, or nil if there
// is none.
func (h *HistoryDB) GetLatest(ctx context.Context, source string) (*model.Report, error) {
	reports, err := h.GetRecent(ctx, source, 1)
	if err != nil || len(reports) == 0 {
		return nil, err
	}
	return reports[0], nil
}

// GetRecent returns up to limit reports for source, newest first.
func (h *HistoryDB) GetRecent(ctx context.Context, source string, limit int) ([]*model.Report, error) {
	query := `
	SELECT report_json FROM detections
	WHERE source = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`

	rows, err := h.db.QueryContext(ctx, query, source, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report, err := decodeReport(reportJSON)
		if err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// GetByID returns the report with the given id, or nil if there is none.
func (h *HistoryDB) GetByID(ctx context.Context, id int64) (*model.Report, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM detections WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return decodeReport(reportJSON)
}

// FindByFingerprint returns the newest report for source whose page hash
// equals hash, whose settings digest equals digest and which is not older
// than maxAge. A non-positive maxAge accepts any age. It returns nil when
// there is no such report.
func (h *HistoryDB) FindByFingerprint(ctx context.Context, source, hash, digest string, maxAge time.Duration) (*model.Report, error) {
	if hash == "" {
		return nil, nil
	}

	query := `
	SELECT timestamp, report_json FROM detections
	WHERE source = ? AND hash = ? AND digest = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var timestamp, reportJSON string
	err := h.db.QueryRowContext(ctx, query, source, hash, digest).Scan(&timestamp, &reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find report: %w", err)
	}

	if maxAge > 0 && time.Since(parseTimestamp(timestamp)) > maxAge {
		return nil, nil
	}
	return decodeReport(reportJSON)
}

// ListSources returns every source with at least one stored detection.
func (h *HistoryDB) ListSources(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT source FROM detections ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

// GetHistory returns the summaries of every detection of source, newest
// first. It does not decode the stored reports.
func (h *HistoryDB) GetHistory(ctx context.Context, source string) ([]Entry, error) {
	query := `
	SELECT id, source, hash, timestamp, is_business_form, confidence, field_count, detected_state
	FROM detections
	WHERE source = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := h.db.QueryContext(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			timestamp string
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Hash, &timestamp, &e.IsBusinessForm, &e.Confidence, &e.FieldCount, &e.DetectedState); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Timestamp = parseTimestamp(timestamp)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func decodeReport(reportJSON string) (*model.Report, error) {
	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// timestampFormats are the layouts a stored timestamp may use.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp parses s as UTC with the known layouts, returning the
// zero time if none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
