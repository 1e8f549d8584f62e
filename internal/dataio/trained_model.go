package dataio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/gp"
	"github.com/banshee-data/bleloc/internal/observation"
	"github.com/banshee-data/bleloc/internal/pathloss"
)

// currentTrainedModelVersion is the schema version SaveTrainedModel
// writes. LoadTrainedModel accepts this version and v0.
const currentTrainedModelVersion = 1

// trainedModelFile is the on-disk JSON schema for a fitted
// observation.Model.
type trainedModelFile struct {
	Version            int                    `json:"version"`
	ITU                []ituEntry             `json:"itu"`
	GP                 []gpEntry              `json:"gp,omitempty"`
	NoiseStdev         []noiseEntry           `json:"noise_stdev"`
	UnknownBeaconStdev float64                `json:"unknown_beacon_stdev"`
}

type ituEntry struct {
	BeaconID        int64   `json:"beacon_id"`
	GainDistance    float64 `json:"gain_distance"`
	Constant        float64 `json:"constant"`
	CrossFloorGain  float64 `json:"cross_floor_gain"`
	CrossFloorConst float64 `json:"cross_floor_const"`
}

type gpEntry struct {
	BeaconID         int64           `json:"beacon_id"`
	Amplitude        float64         `json:"amplitude"`
	Lengthscale      float64         `json:"lengthscale"`
	FloorLengthscale float64         `json:"floor_lengthscale"`
	Nugget           float64         `json:"nugget"`
	X                []locationEntry `json:"x"`
	Alpha            []float64       `json:"alpha"`
}

type locationEntry struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Floor float64 `json:"floor"`
}

type noiseEntry struct {
	BeaconID int64   `json:"beacon_id"`
	Stdev    float64 `json:"stdev"`
}

// SaveTrainedModel serializes a fitted observation.Model to w as JSON.
func SaveTrainedModel(w io.Writer, m *observation.Model) error {
	file := trainedModelFile{
		Version:            currentTrainedModelVersion,
		UnknownBeaconStdev: m.UnknownBeaconStdev(),
	}

	for id, p := range m.ITUParams() {
		file.ITU = append(file.ITU, ituEntry{
			BeaconID:        id,
			GainDistance:    p.GainDistance,
			Constant:        p.Constant,
			CrossFloorGain:  p.CrossFloorGain,
			CrossFloorConst: p.CrossFloorConst,
		})
	}
	for id, stdev := range m.NoiseStdev() {
		file.NoiseStdev = append(file.NoiseStdev, noiseEntry{BeaconID: id, Stdev: stdev})
	}
	for id, g := range m.GPModels() {
		entry := gpEntry{
			BeaconID:         id,
			Amplitude:        g.Kernel.Amplitude,
			Lengthscale:      g.Kernel.Lengthscale,
			FloorLengthscale: g.Kernel.FloorLengthscale,
			Nugget:           g.Nugget,
			Alpha:            g.Alpha(),
		}
		for _, loc := range g.X {
			entry.X = append(entry.X, locationEntry{X: loc.X, Y: loc.Y, Z: loc.Z, Floor: loc.Floor})
		}
		file.GP = append(file.GP, entry)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("dataio: encoding trained model: %w", err)
	}
	return nil
}

// LoadTrainedModel decodes a persisted trained model from r and installs
// it into m via observation.Model.LoadTrained, bypassing Train. Version 0
// predates per-beacon GP residual persistence and broadcasts a single
// shared ITU fit (entry with BeaconID 0) to every id in
// registeredBeaconIDs; versions other than 0 and the current version are
// rejected.
func LoadTrainedModel(r io.Reader, m *observation.Model, registeredBeaconIDs []int64) error {
	var file trainedModelFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return fmt.Errorf("dataio: decoding trained model: %w", err)
	}

	switch file.Version {
	case currentTrainedModelVersion:
		return installTrainedModel(m, file)
	case 0:
		return installLegacyTrainedModel(m, file, registeredBeaconIDs)
	default:
		return fmt.Errorf("dataio: trained model has unsupported version %d", file.Version)
	}
}

func installTrainedModel(m *observation.Model, file trainedModelFile) error {
	itu := make(map[int64]pathloss.Params, len(file.ITU))
	for _, e := range file.ITU {
		itu[e.BeaconID] = pathloss.Params{
			GainDistance:    e.GainDistance,
			Constant:        e.Constant,
			CrossFloorGain:  e.CrossFloorGain,
			CrossFloorConst: e.CrossFloorConst,
		}
	}

	gps := make(map[int64]*gp.Model, len(file.GP))
	for _, e := range file.GP {
		if len(e.X) != len(e.Alpha) {
			return fmt.Errorf("dataio: trained model: beacon %d has %d GP points but %d alpha weights", e.BeaconID, len(e.X), len(e.Alpha))
		}
		X := make([]geometry.Location, len(e.X))
		for i, loc := range e.X {
			X[i] = geometry.Location{X: loc.X, Y: loc.Y, Z: loc.Z, Floor: loc.Floor}
		}
		kernel := gp.Kernel{Amplitude: e.Amplitude, Lengthscale: e.Lengthscale, FloorLengthscale: e.FloorLengthscale}
		gps[e.BeaconID] = gp.FromTrained(X, kernel, e.Nugget, e.Alpha)
	}

	noise := make(map[int64]float64, len(file.NoiseStdev))
	for _, e := range file.NoiseStdev {
		noise[e.BeaconID] = e.Stdev
	}

	m.LoadTrained(itu, gps, noise, file.UnknownBeaconStdev)
	return nil
}

func installLegacyTrainedModel(m *observation.Model, file trainedModelFile, registeredBeaconIDs []int64) error {
	if len(file.ITU) != 1 {
		return fmt.Errorf("dataio: legacy (version 0) trained model must carry exactly one shared ITU entry, got %d", len(file.ITU))
	}
	shared := pathloss.Params{
		GainDistance:    file.ITU[0].GainDistance,
		Constant:        file.ITU[0].Constant,
		CrossFloorGain:  file.ITU[0].CrossFloorGain,
		CrossFloorConst: file.ITU[0].CrossFloorConst,
	}

	itu := make(map[int64]pathloss.Params, len(registeredBeaconIDs))
	noise := make(map[int64]float64, len(registeredBeaconIDs))
	for _, id := range registeredBeaconIDs {
		itu[id] = shared
		noise[id] = 0
	}

	m.LoadTrained(itu, map[int64]*gp.Model{}, noise, file.UnknownBeaconStdev)
	return nil
}
