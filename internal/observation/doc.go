// Package observation composes the ITU path-loss mean with a per-beacon
// Gaussian-process residual and an empirically estimated noise term into
// the filter's RSSI likelihood: training from labeled surveys, mean/stdev
// prediction per beacon, and the per-state joint log-likelihood against a
// scan.
//
// Dependency rule: observation depends on geometry, pathloss, and gp. It
// knows nothing about the particle filter, resampling, or motion.
package observation
