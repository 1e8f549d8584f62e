// Package randutil owns the seeded sources of randomness used by a filter
// instance: uniform draws, Gaussian and truncated-Gaussian draws, and
// random-subset-without-replacement sampling, all reproducible from a
// fixed seed.
//
// Dependency rule: randutil has no dependency on any other package in this
// module. Everything above it draws from a seeded randutil.Source rather
// than reaching for math/rand/v2's global generator, so that a run is
// reproducible end to end under fixed seeds.
package randutil
