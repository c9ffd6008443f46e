// Package pipeline runs a detection pass over one document.
//
// A pass is a fixed sequence of steps: jurisdiction, scan, group,
// classify, section and aggregate. Each step reads what the previous steps
// left on the Pass and adds its own output. The pipeline checks for
// cancellation between steps and logs each one.
//
// Detector wires the default steps from Settings. BatchProcessor runs many
// sources concurrently with a bounded number of goroutines.
package pipeline
