// Package sqlite provides the site persistence adapter backed by SQLite.
//
// Timestamps are stored as UTC unix milliseconds and every schema change
// ships as an embedded migration applied on Open.
package sqlite
