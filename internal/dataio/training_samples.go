package dataio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/google/uuid"
)

// footToMeter is the scale factor applied to the "short" 3-foot training
// CSV variant's x/y/z columns.
const footToMeter = 0.9144

// LoadTrainingSamplesCSV parses the row format:
//
//	timestamp, x, y, z, floor, n_beacons, (major, minor, rssi)*
//
// When short is true, x/y/z are multiplied by footToMeter (the "short"
// 3-foot unit variant).
func LoadTrainingSamplesCSV(r io.Reader, short bool) ([]geometry.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var samples []geometry.Sample
	rowNum := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataio: reading training sample row %d: %w", rowNum, err)
		}
		rowNum++
		if len(row) < 6 {
			return nil, fmt.Errorf("dataio: training sample row %d has %d fields, want at least 6", rowNum, len(row))
		}

		tsRaw, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: row %d: parsing timestamp: %w", rowNum, err)
		}
		x, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: row %d: parsing x: %w", rowNum, err)
		}
		y, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: row %d: parsing y: %w", rowNum, err)
		}
		z, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: row %d: parsing z: %w", rowNum, err)
		}
		floor, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: row %d: parsing floor: %w", rowNum, err)
		}
		nBeacons, err := strconv.Atoi(row[5])
		if err != nil {
			return nil, fmt.Errorf("dataio: row %d: parsing n_beacons: %w", rowNum, err)
		}
		wantFields := 6 + nBeacons*3
		if len(row) < wantFields {
			return nil, fmt.Errorf("dataio: row %d: declares %d beacons but has only %d fields", rowNum, nBeacons, len(row))
		}

		if short {
			x *= footToMeter
			y *= footToMeter
			z *= footToMeter
		}

		beacons := make([]geometry.Beacon, 0, nBeacons)
		for i := 0; i < nBeacons; i++ {
			base := 6 + i*3
			major, err := strconv.ParseUint(row[base], 10, 16)
			if err != nil {
				return nil, fmt.Errorf("dataio: row %d: parsing beacon %d major: %w", rowNum, i, err)
			}
			minor, err := strconv.ParseUint(row[base+1], 10, 16)
			if err != nil {
				return nil, fmt.Errorf("dataio: row %d: parsing beacon %d minor: %w", rowNum, i, err)
			}
			rssi, err := strconv.ParseFloat(row[base+2], 64)
			if err != nil {
				return nil, fmt.Errorf("dataio: row %d: parsing beacon %d rssi: %w", rowNum, i, err)
			}
			beacons = append(beacons, geometry.Beacon{ID: geometry.BeaconID(uint16(major), uint16(minor)), RSSI: rssi})
		}

		samples = append(samples, geometry.Sample{
			ID:        uuid.New(),
			Location:  geometry.Location{X: x, Y: y, Z: z, Floor: floor},
			Beacons:   beacons,
			Timestamp: time.Unix(0, tsRaw),
		})
	}
	return samples, nil
}

// jsonTrainingSample mirrors the JSON training-sample variant's wire
// format: an array of {timestamp, location, beacons}.
type jsonTrainingSample struct {
	Timestamp int64 `json:"timestamp"`
	Location  struct {
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Z     float64 `json:"z"`
		Floor float64 `json:"floor"`
	} `json:"location"`
	Beacons []struct {
		Major uint16  `json:"major"`
		Minor uint16  `json:"minor"`
		RSSI  float64 `json:"rssi"`
	} `json:"beacons"`
}

// LoadTrainingSamplesJSON parses the JSON training-sample variant: an
// array of {timestamp, location:{x,y,z,floor}, beacons:[{major,minor,rssi}...]}.
func LoadTrainingSamplesJSON(r io.Reader) ([]geometry.Sample, error) {
	var raw []jsonTrainingSample
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("dataio: decoding JSON training samples: %w", err)
	}
	samples := make([]geometry.Sample, len(raw))
	for i, rs := range raw {
		beacons := make([]geometry.Beacon, len(rs.Beacons))
		for j, b := range rs.Beacons {
			beacons[j] = geometry.Beacon{ID: geometry.BeaconID(b.Major, b.Minor), RSSI: b.RSSI}
		}
		samples[i] = geometry.Sample{
			ID:        uuid.New(),
			Location:  geometry.Location{X: rs.Location.X, Y: rs.Location.Y, Z: rs.Location.Z, Floor: rs.Location.Floor},
			Beacons:   beacons,
			Timestamp: time.Unix(0, rs.Timestamp),
		}
	}
	return samples, nil
}
