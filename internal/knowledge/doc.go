// Package knowledge holds the field categories the classifier can assign
// and the vocabulary that identifies them.
//
// A Base is an ordered list of entries. The built-in Base covers the
// fields found on US business registration forms; per-state overrides and
// user supplied YAML files are merged on top of it for each pass. Merging
// never mutates a Base, so one Base can serve concurrent passes.
package knowledge
