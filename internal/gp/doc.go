// Package gp learns a Gaussian-process residual model per beacon: the gap
// between observed RSSI and the ITU path-loss mean, as a function of
// training-site geometry. It provides posterior-mean prediction and a
// small cross-validated hyperparameter search over a fixed RBF-plus-floor-
// mismatch kernel family.
//
// Dependency rule: gp depends on geometry only. It does not know about
// beacons, scans, or the particle filter — it operates purely on point
// clouds and residual columns.
package gp
