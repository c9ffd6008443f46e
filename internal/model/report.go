package model

import "time"

// Report is the record of detecting forms on one source.
// It wraps the engine result with acquisition metadata and is the unit
// that report writers render and the history database stores.
type Report struct {
	// Source is the URL or file path that was examined.
	Source string `json:"source"`

	// DateScanned is when the detection started.
	DateScanned time.Time `json:"date_scanned"`

	// Page describes the acquired document. Nil if acquisition failed.
	Page *Page `json:"page,omitempty"`

	// Result is the detection result. Nil if acquisition failed.
	Result *DetectionResult `json:"result,omitempty"`

	// Duration is how long acquisition and detection took.
	Duration time.Duration `json:"duration"`

	// Cached is true when the result was reused from history because the
	// page fingerprint did not change.
	Cached bool `json:"cached,omitempty"`

	// Digest fingerprints the settings and knowledge the result was
	// produced with.
	Digest string `json:"digest,omitempty"`

	// TimedOut indicates the detection was cancelled.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error holds the error that stopped the detection, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewReport creates a report for source stamped with the current time.
func NewReport(source string) *Report {
	return &Report{
		Source:      source,
		DateScanned: time.Now(),
	}
}

// SetError records err on the report.
func (r *Report) SetError(err error) {
	if err == nil {
		return
	}
	r.Error = err
	r.ErrorMessage = err.Error()
}

// Failed reports whether the detection did not produce a result.
func (r *Report) Failed() bool {
	return r.Result == nil || r.ErrorMessage != ""
}
