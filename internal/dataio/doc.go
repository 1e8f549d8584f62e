// Package dataio loads training samples, the static beacon registry, and
// map specs from the external file formats the engine is fed from, and
// (de)serializes a trained observation model to a versioned JSON schema.
// Loader shape follows the teacher's config-parsing conventions
// (internal/lidar/config.go): small value-returning parse functions that
// fail fast with a wrapped error rather than a panic or a log.Fatal.
//
// Dependency rule: dataio depends on geometry, gp, observation, and
// pathloss for the types it marshals; nothing else in this module depends
// on it except cmd/bleloc-replay.
package dataio
