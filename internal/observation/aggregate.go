package observation

import "github.com/banshee-data/bleloc/internal/geometry"

// averageConsecutiveSamples groups consecutive samples that share the
// same location into a single aggregated sample, averaging each known
// beacon's RSSI across the run. A beacon missing from one sample in a run
// but present in another is filled with minRSSI for the missing reading
// before averaging, so a beacon that drops in and out of range during a
// run still contributes a value rather than being silently dropped.
func averageConsecutiveSamples(samples []geometry.Sample, beaconIDs []int64, minRSSI float64) []geometry.Sample {
	if len(samples) == 0 {
		return nil
	}

	var out []geometry.Sample
	runStart := 0
	for i := 1; i <= len(samples); i++ {
		if i < len(samples) && samples[i].Location == samples[runStart].Location {
			continue
		}
		out = append(out, averageRun(samples[runStart:i], beaconIDs, minRSSI))
		runStart = i
	}
	return out
}

func averageRun(run []geometry.Sample, beaconIDs []int64, minRSSI float64) geometry.Sample {
	sums := make(map[int64]float64, len(beaconIDs))
	for _, id := range beaconIDs {
		var sum float64
		for _, s := range run {
			if b, ok := s.BeaconByID(id); ok {
				sum += b.RSSI
			} else {
				sum += minRSSI
			}
		}
		sums[id] = sum / float64(len(run))
	}

	beacons := make([]geometry.Beacon, 0, len(beaconIDs))
	for _, id := range beaconIDs {
		beacons = append(beacons, geometry.Beacon{ID: id, RSSI: sums[id]})
	}

	return geometry.Sample{
		ID:        run[0].ID,
		Location:  run[0].Location,
		Beacons:   beacons,
		Timestamp: run[0].Timestamp,
	}
}
