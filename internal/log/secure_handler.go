package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// MaskValue replaces a sensitive value.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	// Form values may hold anything the page pre-filled.
	"value":         true,
	"values":        true,
	"field_value":   true,
	"default":       true,
	"ssn":           true,
	"ein":           true,
	"fein":          true,
	"tin":           true,
	"itin":          true,
	"tax_id":        true,
	"taxid":         true,
	"dob":           true,
	"birth_date":    true,
	"account":       true,
	"routing":       true,
	"card_number":   true,
	"cookie":        true,
	"set-cookie":    true,
	"authorization": true,
	"session":       true,
	"session_id":    true,
	"sessionid":     true,
	"csrf":          true,
	"api_key":       true,
	"apikey":        true,
}

// sensitiveKeywords mask any key that contains them.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "credential", "private",
	"social_security", "date_of_birth",
}

// sensitivePatterns mask a whole string value.
var sensitivePatterns = []*regexp.Regexp{
	// JWT
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	// Long opaque tokens
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// embeddedPatterns are blanked where they occur inside a string.
var embeddedPatterns = []*regexp.Regexp{
	// SSN / ITIN
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	// EIN
	regexp.MustCompile(`\b\d{2}-\d{7}\b`),
}

// SecureHandler wraps an slog.Handler and masks sensitive attributes
// before the wrapped handler sees them.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler. A nil handler means
// slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler. The message is scrubbed the same way as
// string values.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, Scrub(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitized[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitized)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitized := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			sanitized[i] = sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	}

	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, scrubValue(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, Scrub(err.Error()))
		}
	}
	return a
}

// IsSensitiveKey reports whether values under key are always masked.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if sensitiveKeys[k] {
		return true
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(k, kw) {
			return true
		}
	}
	return false
}

func scrubValue(s string) string {
	for _, p := range sensitivePatterns {
		if p.MatchString(s) {
			return MaskValue
		}
	}
	return Scrub(s)
}

// Scrub blanks SSN and EIN shaped substrings of s.
func Scrub(s string) string {
	for _, p := range embeddedPatterns {
		s = p.ReplaceAllString(s, MaskValue)
	}
	return s
}

// New returns a logger writing to w through a SecureHandler. format is
// FormatText or FormatJSON; anything else means text. verbose selects the
// Debug level, otherwise Warn.
func New(w io.Writer, format string, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(format, FormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewSecureHandler(handler))
}

// NewSecureLogger returns a text logger; see New.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return New(w, FormatText, verbose)
}

// NewSecureJSONLogger returns a JSON logger; see New.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return New(w, FormatJSON, verbose)
}
