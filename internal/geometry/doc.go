// Package geometry owns the building/map layer: world-frame value types
// (Location, Pose, State), the per-floor raster map, and the predicates and
// segment tests the rest of the engine uses to stay off walls and on the
// correct floor.
//
// Dependency rule: geometry has no dependency on any other package in this
// module. Everything else depends on it.
package geometry
