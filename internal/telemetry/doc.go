// Package telemetry owns the engine's three logging streams: ops
// (actionable lifecycle events and warnings), diag (day-to-day training
// and resampling diagnostics), and trace (per-scan, high-frequency
// detail). The shape mirrors the teacher's internal/lidar debug logging:
// package-level writers guarded by a mutex, configured once at startup.
//
// Dependency rule: telemetry has no dependency on any other package in
// this module.
package telemetry
