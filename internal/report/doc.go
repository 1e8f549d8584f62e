// Package report renders pull-based diagnostics over a run's particle
// states and pose-estimate history: a static PNG scatter of a particle
// cloud over its floor raster, and an HTML trend chart of N_eff,
// log-likelihood, and resample events over time. Nothing in the engine
// calls into this package on its own; it exists for a caller (typically
// cmd/bleloc-replay) to inspect a run after the fact.
//
// Dependency rule: report depends on geometry and pipeline; within this
// module only cmd/bleloc-replay depends on report.
package report
