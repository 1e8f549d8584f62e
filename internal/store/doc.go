// Package store persists training samples, trained observation models, and
// emitted pose estimates to a sqlite-backed database, migrated with
// golang-migrate from an embedded migrations directory. The shape mirrors
// the teacher's internal/db: a thin DB wrapper around *sql.DB, PRAGMAs
// applied once at open, and MigrateUp/MigrateVersion built on
// golang-migrate's iofs source driver.
//
// Dependency rule: store depends on geometry and pipeline (for the types
// it serializes); trained models are stored as opaque payload bytes.
package store
