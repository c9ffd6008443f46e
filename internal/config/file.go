package config

import (
	"maps"

	"github.com/nao1215/formscan/internal/knowledge"
)

// Thresholds override the scoring defaults. Nil leaves the value alone.
type Thresholds struct {
	Form         *int     `yaml:"form,omitempty"`
	Anchor       *int     `yaml:"anchor,omitempty"`
	SectionGap   *float64 `yaml:"section_gap,omitempty"`
	NearbyDepth  *int     `yaml:"nearby_depth,omitempty"`
	NearbyPixels *float64 `yaml:"nearby_pixels,omitempty"`
	Affinity     *int     `yaml:"affinity_bonus,omitempty"`
	OptionBias   *int     `yaml:"option_bias,omitempty"`
}

// File represents the structure of the .formscan configuration file.
type File struct {
	Thresholds Thresholds `yaml:"thresholds,omitempty"`

	// Knowledge overrides apply to every jurisdiction.
	Knowledge knowledge.Overrides `yaml:"knowledge,omitempty"`

	// Jurisdictions maps state codes to overrides applied only when the
	// page belongs to that state.
	Jurisdictions map[string]knowledge.Overrides `yaml:"jurisdictions,omitempty"`

	// UserAgent replaces the default User-Agent header when set.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Proxy is used unless one is given on the command line.
	Proxy string `yaml:"proxy,omitempty"`

	// Headers are added to requests. Command line headers win.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Apply copies the values set in f onto c.
func (f *File) Apply(c *Config) {
	if f == nil {
		return
	}
	t := f.Thresholds
	if t.Form != nil {
		c.FormThreshold = *t.Form
	}
	if t.Anchor != nil {
		c.AnchorThreshold = *t.Anchor
	}
	if t.SectionGap != nil {
		c.SectionGap = *t.SectionGap
	}
	if t.NearbyDepth != nil {
		c.NearbyDepth = *t.NearbyDepth
	}
	if t.NearbyPixels != nil {
		c.NearbyPixels = *t.NearbyPixels
	}
	if t.Affinity != nil {
		c.AffinityBonus = *t.Affinity
	}
	if t.OptionBias != nil {
		c.OptionBias = *t.OptionBias
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if c.Proxy == "" {
		c.Proxy = f.Proxy
	}
	for name, value := range f.Headers {
		if _, ok := c.Headers[name]; ok {
			continue
		}
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(f.Headers))
		}
		c.Headers[name] = value
	}
}

// KnowledgeFile returns the knowledge overrides of f.
func (f *File) KnowledgeFile() *knowledge.File {
	if f == nil {
		return nil
	}
	return &knowledge.File{Categories: f.Knowledge, Jurisdictions: f.Jurisdictions}
}

// MergeKnowledge layers over on top of base. Overrides of the same
// category in over replace those in base. Either may be nil.
func MergeKnowledge(base, over *knowledge.File) *knowledge.File {
	if base.Empty() {
		return over
	}
	if over.Empty() {
		return base
	}
	out := &knowledge.File{
		Categories:    maps.Clone(base.Categories),
		Jurisdictions: make(map[string]knowledge.Overrides, len(base.Jurisdictions)+len(over.Jurisdictions)),
	}
	if out.Categories == nil {
		out.Categories = make(knowledge.Overrides)
	}
	maps.Copy(out.Categories, over.Categories)
	for code, o := range base.Jurisdictions {
		out.Jurisdictions[code] = maps.Clone(o)
	}
	for code, o := range over.Jurisdictions {
		if out.Jurisdictions[code] == nil {
			out.Jurisdictions[code] = make(knowledge.Overrides, len(o))
		}
		maps.Copy(out.Jurisdictions[code], o)
	}
	return out
}
