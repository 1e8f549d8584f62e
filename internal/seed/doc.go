// Package seed owns the status initializer: drawing N hypothetical
// particle states from training-sample locations filtered by walkability,
// with randomized pose attributes, and the localized variant that reseeds
// states around a known mean pose.
//
// Dependency rule: seed depends on geometry and randutil, and nothing
// else.
package seed
