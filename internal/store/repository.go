package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/pipeline"
	"github.com/google/uuid"
)

// beaconReading is the training_samples.beacons_json row shape.
type beaconReading struct {
	ID   int64   `json:"id"`
	RSSI float64 `json:"rssi"`
}

// InsertTrainingSample persists one labeled training sample under siteID.
func (db *DB) InsertTrainingSample(siteID string, s geometry.Sample) error {
	readings := make([]beaconReading, len(s.Beacons))
	for i, b := range s.Beacons {
		readings[i] = beaconReading{ID: b.ID, RSSI: b.RSSI}
	}
	payload, err := json.Marshal(readings)
	if err != nil {
		return fmt.Errorf("store: marshaling training sample beacons: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO training_samples (site_id, sample_id, timestamp, x, y, z, floor, beacons_json) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		siteID, s.ID.String(), s.Timestamp.UnixNano(), s.Location.X, s.Location.Y, s.Location.Z, s.Location.Floor, string(payload),
	)
	if err != nil {
		return fmt.Errorf("store: inserting training sample: %w", err)
	}
	return nil
}

// ListTrainingSamples returns every training sample persisted under siteID,
// ordered by timestamp.
func (db *DB) ListTrainingSamples(siteID string) ([]geometry.Sample, error) {
	rows, err := db.Query(
		`SELECT sample_id, timestamp, x, y, z, floor, beacons_json FROM training_samples WHERE site_id = ? ORDER BY timestamp`,
		siteID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: querying training samples: %w", err)
	}
	defer rows.Close()

	var samples []geometry.Sample
	for rows.Next() {
		var sampleIDStr string
		var tsNano int64
		var x, y, z, floor float64
		var beaconsJSON string
		if err := rows.Scan(&sampleIDStr, &tsNano, &x, &y, &z, &floor, &beaconsJSON); err != nil {
			return nil, fmt.Errorf("store: scanning training sample row: %w", err)
		}
		sampleID, err := uuid.Parse(sampleIDStr)
		if err != nil {
			return nil, fmt.Errorf("store: parsing training sample id: %w", err)
		}
		var readings []beaconReading
		if err := json.Unmarshal([]byte(beaconsJSON), &readings); err != nil {
			return nil, fmt.Errorf("store: unmarshaling training sample beacons: %w", err)
		}
		beacons := make([]geometry.Beacon, len(readings))
		for i, r := range readings {
			beacons[i] = geometry.Beacon{ID: r.ID, RSSI: r.RSSI}
		}
		samples = append(samples, geometry.Sample{
			ID:        sampleID,
			Location:  geometry.Location{X: x, Y: y, Z: z, Floor: floor},
			Beacons:   beacons,
			Timestamp: time.Unix(0, tsNano),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating training samples: %w", err)
	}
	return samples, nil
}

// SaveTrainedModel persists a trained model's already-serialized JSON
// payload under siteID at the given schema version and timestamp.
func (db *DB) SaveTrainedModel(siteID string, schemaVersion int, trainedAt time.Time, payload []byte) error {
	_, err := db.Exec(
		`INSERT INTO trained_models (site_id, version, trained_at, payload_json) VALUES (?, ?, ?, ?)`,
		siteID, schemaVersion, trainedAt.UnixNano(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("store: inserting trained model: %w", err)
	}
	return nil
}

// LoadLatestTrainedModel returns the most recently trained model payload
// persisted under siteID, or false if none exists.
func (db *DB) LoadLatestTrainedModel(siteID string) (payload []byte, schemaVersion int, trainedAt time.Time, ok bool, err error) {
	var payloadStr string
	var tsNano int64
	row := db.QueryRow(
		`SELECT version, trained_at, payload_json FROM trained_models WHERE site_id = ? ORDER BY trained_at DESC LIMIT 1`,
		siteID,
	)
	if scanErr := row.Scan(&schemaVersion, &tsNano, &payloadStr); scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil, 0, time.Time{}, false, nil
		}
		return nil, 0, time.Time{}, false, fmt.Errorf("store: loading latest trained model: %w", scanErr)
	}
	return []byte(payloadStr), schemaVersion, time.Unix(0, tsNano), true, nil
}

// InsertPoseEstimate persists one streaming pose estimate under siteID.
func (db *DB) InsertPoseEstimate(siteID string, e pipeline.Estimate) error {
	resampled := 0
	if e.Resampled {
		resampled = 1
	}
	_, err := db.Exec(
		`INSERT INTO pose_estimates (site_id, run_id, timestamp, x, y, z, floor, orientation, n_eff, resampled, mean_log_likelihood) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		siteID, e.RunID.String(), e.Timestamp.UnixNano(), e.Pose.X, e.Pose.Y, e.Pose.Z, e.Pose.Floor, e.Pose.Orientation, e.NEff, resampled, e.MeanLogLikelihood,
	)
	if err != nil {
		return fmt.Errorf("store: inserting pose estimate: %w", err)
	}
	return nil
}

// ListPoseEstimates returns every pose estimate persisted under siteID in
// the half-open timestamp range [since, until), ordered by timestamp.
func (db *DB) ListPoseEstimates(siteID string, since, until time.Time) ([]pipeline.Estimate, error) {
	rows, err := db.Query(
		`SELECT run_id, timestamp, x, y, z, floor, orientation, n_eff, resampled, mean_log_likelihood FROM pose_estimates
		 WHERE site_id = ? AND timestamp >= ? AND timestamp < ? ORDER BY timestamp`,
		siteID, since.UnixNano(), until.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("store: querying pose estimates: %w", err)
	}
	defer rows.Close()

	var estimates []pipeline.Estimate
	for rows.Next() {
		var runIDStr string
		var tsNano int64
		var x, y, z, floor, orientation, nEff, meanLogLikelihood float64
		var resampled int
		if err := rows.Scan(&runIDStr, &tsNano, &x, &y, &z, &floor, &orientation, &nEff, &resampled, &meanLogLikelihood); err != nil {
			return nil, fmt.Errorf("store: scanning pose estimate row: %w", err)
		}
		runID, err := uuid.Parse(runIDStr)
		if err != nil {
			return nil, fmt.Errorf("store: parsing pose estimate run id: %w", err)
		}
		estimates = append(estimates, pipeline.Estimate{
			RunID:     runID,
			Timestamp: time.Unix(0, tsNano),
			Pose: geometry.Pose{
				Location:    geometry.Location{X: x, Y: y, Z: z, Floor: floor},
				Orientation: orientation,
			},
			NEff:              nEff,
			Resampled:         resampled != 0,
			MeanLogLikelihood: meanLogLikelihood,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating pose estimates: %w", err)
	}
	return estimates, nil
}
