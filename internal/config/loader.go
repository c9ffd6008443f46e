package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/formscan/internal/knowledge"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".formscan"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads a configuration file. If the file does not exist it
// returns ErrConfigNotFound; callers decide whether that matters based on
// whether the path was given explicitly.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return ParseConfigFile(data)
}

// ParseConfigFile decodes a configuration file and validates its
// knowledge patterns.
func ParseConfigFile(data []byte) (*File, error) {
	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if _, err := knowledge.Default().Merge(cf.Knowledge); err != nil {
		return nil, fmt.Errorf("knowledge: %w", err)
	}
	for code, o := range cf.Jurisdictions {
		if _, err := knowledge.Default().Merge(o); err != nil {
			return nil, fmt.Errorf("jurisdiction %s: %w", code, err)
		}
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .formscan in the current directory
// 3. Look for .formscan in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// Load finds and applies the configuration file and the knowledge file
// named in c. A missing file is an error only when its path was given
// explicitly. It returns the merged knowledge overrides.
func (c *Config) Load() (*knowledge.File, error) {
	var overrides *knowledge.File

	if path := FindConfigFile(c.ConfigFilePath); path != "" {
		f, err := LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
		c.File = f
		f.Apply(c)
		overrides = f.KnowledgeFile()
	} else if c.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, c.ConfigFilePath)
	}

	if c.KnowledgePath != "" {
		kf, err := knowledge.LoadFile(c.KnowledgePath)
		if err != nil {
			return nil, fmt.Errorf("load knowledge file %s: %w", c.KnowledgePath, err)
		}
		overrides = MergeKnowledge(overrides, kf)
	}
	return overrides, nil
}
