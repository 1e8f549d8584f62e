// Package motion implements the pose random walker: per-step prediction
// driven by a step detector and a heading estimator, with building-aware
// rejection of wall-crossing and off-map proposals, floor-change gating
// through stair/elevator cells, and RSSI-bias/orientation-bias diffusion.
//
// Dependency rule: motion depends on geometry and randutil. It is the
// only package besides pipeline that touches Building predicates on the
// filter's hot path.
package motion
