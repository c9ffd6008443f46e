// Package config holds the formscan configuration: CLI options, scoring
// thresholds and the optional .formscan file with knowledge overrides.
package config
