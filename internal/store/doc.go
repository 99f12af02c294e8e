// Package store holds what the article store backends share: the SQL
// builders, the schema, the duplicate sentinel and the insert loop.
// Backends live in subpackages; this package must not import database
// drivers.
package store
