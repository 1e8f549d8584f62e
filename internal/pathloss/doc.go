// Package pathloss implements the ITU-style log-distance path-loss model:
// a deterministic mean-RSSI prediction from transmitter/receiver geometry
// given four fitted parameters per beacon.
//
// Dependency rule: pathloss depends only on geometry.
package pathloss
