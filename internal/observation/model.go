package observation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/gp"
	"github.com/banshee-data/bleloc/internal/pathloss"
	"gonum.org/v1/gonum/stat/distuv"
)

// Prediction is a per-beacon mean/stdev pair produced by Model.Predict.
type Prediction struct {
	Mean  float64
	Stdev float64
}

// LogLikelihoodResult is the joint scoring outcome for one state against
// one scan.
type LogLikelihoodResult struct {
	LogLikelihood     float64
	SumMahalanobisSq  float64
	KnownBeaconCount  int
	UnknownBeaconCount int
}

// TrainDiagnostics aggregates the counters the filter logs once per
// training run instead of failing on individual bad rows.
type TrainDiagnostics struct {
	SamplesIn         int
	SamplesAggregated int
	SkippedRows       int
	DivergedBeacons   []int64
}

// Model is the trained ITU+GP+noise observation model.
type Model struct {
	cfg      Config
	pathLoss pathloss.Model
	beacons  map[int64]geometry.BLEBeacon

	itu map[int64]pathloss.Params
	gps map[int64]*gp.Model

	noiseStdev         map[int64]float64
	unknownBeaconStdev float64
}

// New constructs an untrained Model over a fixed beacon registry. Call
// Train before using Predict/ComputeLogLikelihood.
func New(cfg Config, beacons []geometry.BLEBeacon) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(beacons) == 0 {
		return nil, fmt.Errorf("observation: beacon registry is empty")
	}
	reg := make(map[int64]geometry.BLEBeacon, len(beacons))
	for _, b := range beacons {
		reg[b.ID] = b
	}
	return &Model{
		cfg:        cfg,
		pathLoss:   pathloss.Model{MinRSSI: cfg.MinRSSI, DistanceOffset: cfg.DistanceOffset},
		beacons:    reg,
		itu:        make(map[int64]pathloss.Params),
		gps:        make(map[int64]*gp.Model),
		noiseStdev: make(map[int64]float64),
	}, nil
}

// Train fits the ITU model, the per-beacon GP residual correction, and the
// noise model from labeled samples.
//
// Step 1 averages consecutive same-location samples into aggregated rows,
// filling any beacon missing from a raw sample with MinRSSI before
// averaging (this is the "usesMinRssiObs=true" data-prep pass: a run
// where a beacon drops out should read as "observed at the floor", not
// "absent from the regression"). fitITUModel's own per-sweep activity
// mask is independently derived from each beacon's current fitted
// prediction, not from this fill — see the package-level design note in
// DESIGN.md.
//
// ctx is checked between beacons so a long-running training call over many
// registered beacons can be cancelled cooperatively; on cancellation Train
// returns ctx.Err() and leaves the model's previously trained parameters
// untouched.
func (m *Model) Train(ctx context.Context, samples []geometry.Sample) (TrainDiagnostics, error) {
	diag := TrainDiagnostics{SamplesIn: len(samples)}
	if len(samples) == 0 {
		return diag, fmt.Errorf("observation: cannot train on zero samples")
	}
	if err := ctx.Err(); err != nil {
		return diag, err
	}

	aggregated := averageConsecutiveSamples(samples, m.beaconIDs(), m.cfg.MinRSSI)
	diag.SamplesAggregated = len(aggregated)
	if len(aggregated) == 0 {
		return diag, fmt.Errorf("observation: zero aggregated samples after averaging")
	}

	prevITU, prevGPs := m.ITUParams(), m.GPModels()
	designs := m.buildDesigns(aggregated)
	thetas, _ := fitITUModel(m.cfg, designs)
	for id, theta := range thetas {
		m.itu[id] = pathloss.Params{
			GainDistance:    theta[0],
			Constant:        theta[1],
			CrossFloorGain:  theta[2],
			CrossFloorConst: theta[3],
		}
	}

	for _, d := range designs {
		if thetas[d.beaconID] == m.cfg.PriorTheta && len(d.phi) > 0 {
			// Heuristically flag beacons that never moved off the shared
			// prior as having diverged during fitting.
			diverged := true
			for i := range d.phi {
				if dot4(d.phi[i], thetas[d.beaconID]) != dot4(d.phi[i], m.cfg.PriorTheta) {
					diverged = false
					break
				}
			}
			if diverged {
				diag.DivergedBeacons = append(diag.DivergedBeacons, d.beaconID)
			}
		}
	}
	sort.Slice(diag.DivergedBeacons, func(i, j int) bool { return diag.DivergedBeacons[i] < diag.DivergedBeacons[j] })

	if err := m.fitGPResiduals(ctx, aggregated); err != nil {
		m.itu, m.gps = prevITU, prevGPs
		return diag, err
	}

	m.fitNoise(samples)

	return diag, nil
}

func (m *Model) beaconIDs() []int64 {
	ids := make([]int64, 0, len(m.beacons))
	for id := range m.beacons {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Model) buildDesigns(samples []geometry.Sample) []beaconDesign {
	ids := m.beaconIDs()
	designs := make([]beaconDesign, 0, len(ids))
	for _, id := range ids {
		beacon := m.beacons[id]
		d := beaconDesign{beaconID: id}
		for _, s := range samples {
			reading, ok := s.BeaconByID(id)
			if !ok {
				continue
			}
			phi := m.pathLoss.Features(s.Location, beacon.Location)
			d.phi = append(d.phi, phi)
			d.y = append(d.y, reading.RSSI)
		}
		if len(d.phi) > 0 {
			designs = append(designs, d)
		}
	}
	return designs
}

func (m *Model) fitGPResiduals(ctx context.Context, samples []geometry.Sample) error {
	for _, id := range m.beaconIDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		beacon := m.beacons[id]
		theta, ok := m.itu[id]
		if !ok {
			theta = pathloss.Params{
				GainDistance:    m.cfg.PriorTheta[0],
				Constant:        m.cfg.PriorTheta[1],
				CrossFloorGain:  m.cfg.PriorTheta[2],
				CrossFloorConst: m.cfg.PriorTheta[3],
			}
		}
		var X []geometry.Location
		var dY []float64
		for _, s := range samples {
			reading, ok := s.BeaconByID(id)
			if !ok {
				continue
			}
			predicted := m.pathLoss.PredictAt(s.Location, beacon.Location, theta)
			X = append(X, s.Location)
			dY = append(dY, reading.RSSI-predicted)
		}
		if len(X) < 2 {
			continue
		}
		model, err := gp.FitCV(X, dY)
		if err != nil {
			continue
		}
		m.gps[id] = model
	}
	return nil
}

func (m *Model) fitNoise(rawSamples []geometry.Sample) {
	var sumSq float64
	var count int
	for _, id := range m.beaconIDs() {
		beacon := m.beacons[id]
		theta, hasTheta := m.itu[id]
		if !hasTheta {
			continue
		}
		var sq float64
		var n int
		for _, s := range rawSamples {
			reading, ok := s.BeaconByID(id)
			if !ok {
				continue
			}
			mean := m.pathLoss.PredictAt(s.Location, beacon.Location, theta)
			if gpm, ok := m.gps[id]; ok {
				mean += gpm.Predict(s.Location)
			}
			diff := reading.RSSI - mean
			sq += diff * diff
			n++
		}
		if n == 0 {
			continue
		}
		variance := sq / float64(n)
		m.noiseStdev[id] = math.Sqrt(variance)
		sumSq += variance
		count++
	}
	if count > 0 {
		m.unknownBeaconStdev = math.Sqrt(sumSq / float64(count))
	} else {
		m.unknownBeaconStdev = 10
	}
}

// ITUParams returns a copy of the fitted per-beacon ITU coefficients, for
// persistence.
func (m *Model) ITUParams() map[int64]pathloss.Params {
	out := make(map[int64]pathloss.Params, len(m.itu))
	for id, p := range m.itu {
		out[id] = p
	}
	return out
}

// GPModels returns the fitted per-beacon GP residual models, for
// persistence. The returned map shares the underlying *gp.Model values.
func (m *Model) GPModels() map[int64]*gp.Model {
	out := make(map[int64]*gp.Model, len(m.gps))
	for id, g := range m.gps {
		out[id] = g
	}
	return out
}

// NoiseStdev returns a copy of the fitted per-beacon noise standard
// deviations, for persistence.
func (m *Model) NoiseStdev() map[int64]float64 {
	out := make(map[int64]float64, len(m.noiseStdev))
	for id, s := range m.noiseStdev {
		out[id] = s
	}
	return out
}

// UnknownBeaconStdev returns the fitted RMS noise used to score scanned
// beacons that are not in the registry, and as the stdev of any registered
// beacon whose own fitted noise is not positive.
func (m *Model) UnknownBeaconStdev() float64 {
	return m.unknownBeaconStdev
}

// LoadTrained installs previously fitted parameters directly, bypassing
// Train. Used to rehydrate a Model from a persisted trained model without
// repeating the IRLS and GP solves.
func (m *Model) LoadTrained(itu map[int64]pathloss.Params, gps map[int64]*gp.Model, noiseStdev map[int64]float64, unknownBeaconStdev float64) {
	m.itu = itu
	m.gps = gps
	m.noiseStdev = noiseStdev
	m.unknownBeaconStdev = unknownBeaconStdev
}

// Predict returns mean/stdev pairs for every beacon observed in scan that
// is registered in the beacon registry.
func (m *Model) Predict(state geometry.State, scan []geometry.Beacon) map[int64]Prediction {
	out := make(map[int64]Prediction, len(scan))
	for _, obs := range scan {
		beacon, known := m.beacons[obs.ID]
		if !known {
			continue
		}
		theta, hasTheta := m.itu[beacon.ID]
		if !hasTheta {
			continue
		}
		mean := m.pathLoss.PredictAt(state.Location, beacon.Location, theta)
		if gpm, ok := m.gps[beacon.ID]; ok {
			mean += gpm.Predict(state.Location)
		}
		stdev := m.noiseStdev[beacon.ID]
		if stdev <= 0 {
			stdev = m.unknownBeaconStdev
		}
		if math.Abs(state.FloorDiff(beacon.Location)) >= 1 {
			stdev *= m.cfg.CoeffDiffFloorStdev
		}
		out[beacon.ID] = Prediction{Mean: mean, Stdev: stdev}
	}
	return out
}

// ComputeLogLikelihood scores state against scan: known beacons are
// evaluated under the fitted mean/stdev (Gaussian, or Student-t when
// cfg.TDistributionDF >= 1), and scanned beacons that aren't registered
// are optionally scored at their observed RSSI under Normal(MinRSSI,
// unknownBeaconStdev) — a beacon too far away to have been trained
// still looks like a beacon heard at the noise floor.
func (m *Model) ComputeLogLikelihood(state geometry.State, scan []geometry.Beacon) LogLikelihoodResult {
	var result LogLikelihoodResult

	for _, obs := range scan {
		beacon, known := m.beacons[obs.ID]
		if !known {
			if m.cfg.FillsUnknownBeaconRssi {
				rssiAdj := obs.RSSI
				if m.cfg.ConsiderBias {
					rssiAdj -= state.RSSIBias
				}
				result.LogLikelihood += m.logPDF(rssiAdj, m.cfg.MinRSSI, m.unknownBeaconStdev)
				z := (rssiAdj - m.cfg.MinRSSI) / m.unknownBeaconStdev
				result.SumMahalanobisSq += z * z
				result.UnknownBeaconCount++
			}
			continue
		}
		theta, hasTheta := m.itu[beacon.ID]
		if !hasTheta {
			continue
		}
		mean := m.pathLoss.PredictAt(state.Location, beacon.Location, theta)
		if gpm, ok := m.gps[beacon.ID]; ok {
			mean += gpm.Predict(state.Location)
		}
		stdev := m.noiseStdev[beacon.ID]
		if stdev <= 0 {
			stdev = m.unknownBeaconStdev
		}
		if math.Abs(state.FloorDiff(beacon.Location)) >= 1 {
			stdev *= m.cfg.CoeffDiffFloorStdev
		}

		rssiAdj := obs.RSSI
		if m.cfg.ConsiderBias {
			rssiAdj -= state.RSSIBias
		}

		result.LogLikelihood += m.logPDF(rssiAdj, mean, stdev)
		z := (rssiAdj - mean) / stdev
		result.SumMahalanobisSq += z * z
		result.KnownBeaconCount++
	}

	return result
}

func (m *Model) logPDF(x, mean, stdev float64) float64 {
	if stdev <= 0 {
		stdev = 1e-6
	}
	if m.cfg.TDistributionDF >= 1 {
		t := distuv.StudentsT{Mu: mean, Sigma: stdev, Nu: m.cfg.TDistributionDF}
		return t.LogProb(x)
	}
	n := distuv.Normal{Mu: mean, Sigma: stdev}
	return n.LogProb(x)
}
