// Package model defines the core data structures used throughout formscan.
//
// This package contains the following main types:
//   - FieldCandidate: one interactive control found by the scanner
//   - LabelCandidate: the label chosen for a control and where it came from
//   - ClassifiedField: a control or control group with its semantic category
//   - Section: a titled run of classified fields
//   - DetectionResult: the outcome of one detection pass
//   - Page and Report: the acquired page and the stored detection record
//
// Models live in their own package so that the engine packages (scanner,
// label, group, section, classify, aggregate) can share them without import
// cycles. Everything except DOM node references is serializable to JSON.
package model
