// Package recovery implements the observation-dependent initializer: a
// Metropolis sampler that walks a candidate set of states toward regions
// whose observation log-likelihood is consistent with the current beacon
// scan, used to mix fresh, scan-consistent particles into a filter that
// has started to diverge.
//
// Dependency rule: recovery depends on geometry and randutil. It scores
// candidates through a caller-supplied log-likelihood function rather
// than depending on observation directly, so it stays reusable across any
// scoring model.
package recovery
