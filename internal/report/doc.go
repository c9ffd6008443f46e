// Package report renders detection reports.
//
// Writers for the supported output formats:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: GitHub Flavored Markdown with a category pie chart
//   - JSONWriter and FullJSONWriter: the full report as JSON
//   - UIWriter: the display projection of each result as JSON
//
// Compare diffs two reports of the same source; ComparisonWriter renders
// the diff.
package report
