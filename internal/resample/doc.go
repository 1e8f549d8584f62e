// Package resample implements the particle filter's weight-normalization,
// effective-sample-size computation, and resampling strategies: low-
// variance systematic resampling, and a spatially bucketed grid resampler
// that preserves particle diversity across rooms.
//
// Dependency rule: resample depends on geometry (for the grid resampler's
// spatial bucketing) and randutil. Strategy selection is a small
// capability table, not a class hierarchy, dispatched once per update.
package resample
