// Package log builds slog loggers that never print personal or secret
// data.
//
// Registration forms carry taxpayer numbers, dates of birth and session
// tokens. SecureHandler masks attributes whose key names such data, masks
// values shaped like a secret, and blanks SSN and EIN shaped substrings
// inside longer strings such as URLs and error messages.
//
//	logger := log.New(os.Stderr, log.FormatText, verbose)
//	slog.SetDefault(logger)
package log
