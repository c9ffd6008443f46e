// Package database stores detection reports in SQLite so that later runs
// can list, compare and reuse them.
//
// Reports are stored whole as JSON next to a few indexed summary columns.
// The page fingerprint lets a caller skip detection for a page that has not
// changed since it was last examined.
package database
