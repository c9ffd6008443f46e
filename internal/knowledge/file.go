package knowledge

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrFileNotFound is returned when a knowledge file does not exist.
var ErrFileNotFound = errors.New("knowledge file not found")

// File is the on-disk form of knowledge overrides.
//
// Example:
//
//	categories:
//	  business_name:
//	    keywords: ["name of llc"]
//	jurisdictions:
//	  OR:
//	    state_id:
//	      patterns: ['\bregistry\s+number\b']
type File struct {
	// Categories apply to every jurisdiction.
	Categories Overrides `yaml:"categories" json:"categories,omitempty"`

	// Jurisdictions apply only when the detected or given state matches.
	Jurisdictions map[string]Overrides `yaml:"jurisdictions" json:"jurisdictions,omitempty"`
}

// Jurisdiction returns the overrides for a state code, matched
// case-insensitively.
func (f *File) Jurisdiction(state string) Overrides {
	if f == nil || state == "" {
		return nil
	}
	for code, o := range f.Jurisdictions {
		if strings.EqualFold(code, state) {
			return o
		}
	}
	return nil
}

// Empty reports whether the file carries no overrides.
func (f *File) Empty() bool {
	return f == nil || (len(f.Categories) == 0 && len(f.Jurisdictions) == 0)
}

// LoadFile reads knowledge overrides from a YAML file. Patterns are
// validated against the default base so that mistakes surface at load
// time rather than in the middle of a detection pass.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided knowledge path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return ParseFile(data)
}

// ParseFile decodes and validates knowledge overrides.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse knowledge file: %w", err)
	}
	if _, err := Default().Merge(f.Categories); err != nil {
		return nil, err
	}
	for code, o := range f.Jurisdictions {
		if _, err := Default().Merge(o); err != nil {
			return nil, fmt.Errorf("jurisdiction %s: %w", code, err)
		}
	}
	return &f, nil
}
