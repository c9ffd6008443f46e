// Package label resolves the human-readable label of a form field.
//
// A Resolver runs a fixed list of strategies (aria-label, label elements,
// aria-labelledby, nearby text, table headers, legends, placeholder, title
// and the humanized name) and keeps the candidate with the highest score.
// Candidate text is cleaned and validated before it is ranked. When no
// strategy yields usable text the result is the "Unknown Field" sentinel.
package label
