// Package pipeline owns StreamParticleFilter, the streaming orchestrator
// that wires the system model, observation model, resampler, status
// initializer, and observation-dependent recovery sampler into the three
// event-driven update methods a caller drives a live localization session
// with. The shape — a single composition-root struct built once from a
// config, returning a processed estimate per event, with numbered stage
// comments inside the hot-path method — mirrors the teacher's
// internal/lidar/pipeline.TrackingPipelineConfig.NewFrameCallback.
//
// Dependency rule: pipeline depends on geometry, randutil, motion,
// observation, resample, recovery, seed, config, and telemetry. Within this
// module, store, report, and cmd/bleloc-replay depend on pipeline.
package pipeline
