// Package storage declares the persistence contracts behind the site.
//
// Records here are plain values shared between domain services and the
// SQLite implementation. Domain rules such as validation, slug policy and
// approval workflow live in the domain packages, not in the store.
package storage
