// Package config owns the filter's runtime configuration: particle count,
// resampling and mixture-recovery thresholds, pose and RSSI-bias priors,
// and motion parameters, collected into one struct with a Default() and a
// Validate() rather than the teacher's partial-JSON-patch pattern, since
// every field here is a required part of constructing a filter.
//
// Dependency rule: config depends on seed, motion, observation, resample,
// and recovery only to re-export their sub-config types; it has no behavior of its
// own besides defaulting and validation.
package config
