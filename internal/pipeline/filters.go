package pipeline

import "github.com/banshee-data/bleloc/internal/geometry"

// BeaconFilter transforms a raw scan before it reaches the observation
// model. The chain runs in order: cleansing filters first, then
// selection filters such as StrongestK.
type BeaconFilter func(scan []geometry.Beacon) []geometry.Beacon

// DedupeStrongest drops duplicate readings for the same beacon id, keeping
// only the strongest RSSI seen for each id. A single BLE receiver can
// report the same beacon more than once per scan window (e.g. across
// adjacent advertising channels); this is the "cleansing" stage of the
// chain.
func DedupeStrongest() BeaconFilter {
	return func(scan []geometry.Beacon) []geometry.Beacon {
		best := make(map[int64]geometry.Beacon, len(scan))
		for _, b := range scan {
			cur, ok := best[b.ID]
			if !ok || b.RSSI > cur.RSSI {
				best[b.ID] = b
			}
		}
		out := make([]geometry.Beacon, 0, len(best))
		for _, b := range best {
			out = append(out, b)
		}
		return out
	}
}

// StrongestK keeps only the k beacons with the highest RSSI, discarding
// the rest. A scan with k or fewer beacons passes through unchanged.
func StrongestK(k int) BeaconFilter {
	return func(scan []geometry.Beacon) []geometry.Beacon {
		if len(scan) <= k {
			return scan
		}
		sorted := make([]geometry.Beacon, len(scan))
		copy(sorted, scan)
		// Simple selection is fine here: k is small (typically 3-6) and
		// scans rarely carry more than a few dozen beacons.
		for i := 0; i < k; i++ {
			maxIdx := i
			for j := i + 1; j < len(sorted); j++ {
				if sorted[j].RSSI > sorted[maxIdx].RSSI {
					maxIdx = j
				}
			}
			sorted[i], sorted[maxIdx] = sorted[maxIdx], sorted[i]
		}
		return sorted[:k]
	}
}

// ApplyChain runs scan through every filter in chain, in order.
func ApplyChain(chain []BeaconFilter, scan []geometry.Beacon) []geometry.Beacon {
	for _, f := range chain {
		scan = f(scan)
	}
	return scan
}
