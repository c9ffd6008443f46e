package knowledge

import "strings"

// jurisdictionOverrides holds per-state vocabulary that the base entries
// do not cover: state agency names for registration and tax numbers.
var jurisdictionOverrides = map[string]Overrides{
	"CA": {
		CategoryStateID: {
			Patterns: []string{`\bsecretary\s+of\s+state\s+(file|entity)\s+number\b`, `\bca\s+entity\s+number\b`},
		},
		CategoryStateTaxID: {
			Patterns: []string{`\bedd\s+(account|employer)\b`, `\bcdtfa\b`, `\bsellers?\s+permit\b`},
		},
	},
	"DE": {
		CategoryStateID:         {Keywords: []string{"delaware file number"}},
		CategoryRegisteredAgent: {Keywords: []string{"registered office"}},
	},
	"FL": {
		CategoryStateID:         {Patterns: []string{`\bdocument\s+number\b`, `\bsunbiz\b`}},
		CategoryRegisteredAgent: {Keywords: []string{"registered office"}},
	},
	"NV": {
		CategoryStateID:    {Patterns: []string{`\bnv\s+business\s+id\b`}},
		CategoryStateTaxID: {Patterns: []string{`\bstate\s+business\s+license\b`}},
	},
	"NY": {
		CategoryStateID: {Patterns: []string{`\bdos\s+id\b`}},
		CategoryDBAName: {Keywords: []string{"certificate of assumed name"}},
	},
	"TX": {
		CategoryStateID:    {Patterns: []string{`\bsos\s+file\s+number\b`}},
		CategoryStateTaxID: {Patterns: []string{`\btexas\s+taxpayer\s+(id|number)\b`, `\bcomptroller\b`}},
	},
	"WA": {
		CategoryStateID: {Patterns: []string{`\bubi\b`, `\bunified\s+business\s+identifier\b`}},
	},
	"LA": {
		CategoryCounty: {Keywords: []string{"parish"}},
	},
}

// ForState returns b with the built-in overrides for the given two-letter
// state code applied. Unknown or empty codes return b unchanged.
func (b *Base) ForState(code string) (*Base, error) {
	o, ok := jurisdictionOverrides[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return b, nil
	}
	return b.Merge(o)
}

// Resolve builds the knowledge for one pass: b, then the built-in
// overrides for state, then the file's global overrides, then the file's
// overrides for state.
func (b *Base) Resolve(state string, f *File) (*Base, error) {
	merged, err := b.ForState(state)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return merged, nil
	}
	if merged, err = merged.Merge(f.Categories); err != nil {
		return nil, err
	}
	return merged.Merge(f.Jurisdiction(state))
}
