package config

import (
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/crypto/sha3"

	"github.com/nao1215/formscan/internal/aggregate"
	"github.com/nao1215/formscan/internal/classify"
	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/label"
	"github.com/nao1215/formscan/internal/log"
	"github.com/nao1215/formscan/internal/pipeline"
	"github.com/nao1215/formscan/internal/section"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "formscan"

	// DefaultTimeout bounds one fetch or render of a page.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of sources processed at once.
	DefaultBatchSize = pipeline.DefaultConcurrency

	// DefaultUserAgent identifies formscan in HTTP requests.
	DefaultUserAgent = "formscan/1.0 (+https://github.com/nao1215/formscan)"

	// DefaultMaxBodySize limits the response body read from a page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxAge is how long a stored detection of an unchanged page is
	// reused.
	DefaultMaxAge = 24 * time.Hour

	// DefaultFormThreshold is the overall confidence at which a page is a
	// business registration form.
	DefaultFormThreshold = aggregate.DefaultFormThreshold

	// DefaultAnchorThreshold is the confidence an anchor field needs.
	DefaultAnchorThreshold = aggregate.DefaultAnchorThreshold

	// DefaultSectionGap is the largest vertical gap inside one section.
	DefaultSectionGap = section.DefaultGap

	// DefaultNearbyDepth and DefaultNearbyPixels bound the nearby text
	// label search.
	DefaultNearbyDepth  = label.DefaultNearbyDepth
	DefaultNearbyPixels = label.DefaultNearbyPixels

	// DefaultAffinityBonus is added to categories implied by the control
	// type.
	DefaultAffinityBonus = classify.DefaultAffinityBonus

	// DefaultOptionBias is added to the category implied by the options of
	// a select or group.
	DefaultOptionBias = classify.DefaultOptionBias
)

// Config holds all configuration options for formscan. It is populated
// from CLI flags and the configuration file and passed down explicitly.
type Config struct {
	// Targets are files or URLs to scan.
	Targets []string

	// StateCode forces the jurisdiction for every target.
	StateCode string

	// KnowledgePath is a YAML file of knowledge overrides applied on top
	// of the configuration file's.
	KnowledgePath string

	// ConfigFilePath is the path to the configuration file. If empty,
	// .formscan is searched in the current directory and then in the
	// home directory.
	ConfigFilePath string

	// File is the loaded configuration file, if any.
	File *File

	// Render loads URLs in headless Chrome to capture the layout.
	Render bool

	// ChromeBin is the browser binary used when rendering. Empty means
	// the launcher's default lookup.
	ChromeBin string

	// ChromeURL attaches to a running browser instead of launching one.
	ChromeURL string

	Timeout     time.Duration
	BatchSize   int
	UserAgent   string
	MaxBodySize int64

	// Proxy is a SOCKS5 proxy ("host:port") for URL sources.
	Proxy string

	// Cookie and Headers are sent with every request, for forms behind
	// an agency portal login.
	Cookie  string
	Headers map[string]string

	// JSONReport, MarkdownReport and UIReport select the output format.
	// They are mutually exclusive; none means the plain text report.
	JSONReport     bool
	MarkdownReport bool
	UIReport       bool

	// ReportFile is the output file path. Empty means stdout.
	ReportFile string

	Verbose   bool
	LogFormat string

	// DBDir is the directory of the history database. Empty disables
	// history.
	DBDir string

	// NoCache forces a fresh detection even if an unchanged page was
	// scanned within MaxAge.
	NoCache bool
	MaxAge  time.Duration

	FormThreshold   int
	AnchorThreshold int
	SectionGap      float64
	NearbyDepth     int
	NearbyPixels    float64
	AffinityBonus   int
	OptionBias      int
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:         DefaultTimeout,
		BatchSize:       DefaultBatchSize,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		LogFormat:       log.FormatText,
		MaxAge:          DefaultMaxAge,
		FormThreshold:   DefaultFormThreshold,
		AnchorThreshold: DefaultAnchorThreshold,
		SectionGap:      DefaultSectionGap,
		NearbyDepth:     DefaultNearbyDepth,
		NearbyPixels:    DefaultNearbyPixels,
		AffinityBonus:   DefaultAffinityBonus,
		OptionBias:      DefaultOptionBias,
	}
}

// XDGDataDir returns the XDG data directory for formscan.
// On Linux: ~/.local/share/formscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for formscan.
// On Linux: ~/.config/formscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for formscan.
// On Linux: ~/.cache/formscan
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if countTrue(c.JSONReport, c.MarkdownReport, c.UIReport) > 1 {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxAge < 0 {
		return ErrInvalidMaxAge
	}
	if c.FormThreshold < 0 || c.FormThreshold > 100 || c.AnchorThreshold < 0 || c.AnchorThreshold > 100 {
		return ErrInvalidThreshold
	}
	if c.SectionGap <= 0 {
		return ErrInvalidSectionGap
	}
	if c.LogFormat != log.FormatText && c.LogFormat != log.FormatJSON {
		return ErrInvalidLogFormat
	}
	return nil
}

func countTrue(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

// Settings returns the detection tunables described by c.
func (c *Config) Settings() pipeline.Settings {
	s := pipeline.DefaultSettings()
	s.Label = label.Options{NearbyDepth: c.NearbyDepth, NearbyPixels: c.NearbyPixels}
	s.Classify.AffinityBonus = c.AffinityBonus
	s.Classify.OptionBias = c.OptionBias
	s.Section = section.Options{Gap: c.SectionGap}
	s.Thresholds = aggregate.Thresholds{Anchor: c.AnchorThreshold, Form: c.FormThreshold}
	return s
}

// Digest returns the SHA3-256 fingerprint of everything besides the page
// that shapes a detection: the tunables, the forced jurisdiction and the
// knowledge overrides. Stored results are reused only under an equal
// digest.
func (c *Config) Digest(overrides *knowledge.File) string {
	s := c.Settings()
	s.Knowledge = nil // always knowledge.Default(); overrides carry the rest

	raw, err := json.Marshal(struct {
		Settings  pipeline.Settings `json:"settings"`
		State     string            `json:"state,omitempty"`
		Knowledge *knowledge.File   `json:"knowledge,omitempty"`
	}{s, c.StateCode, overrides})
	if err != nil {
		return ""
	}
	sum := sha3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
