package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/banshee-data/bleloc/internal/config"
	"github.com/banshee-data/bleloc/internal/dataio"
	"github.com/banshee-data/bleloc/internal/geometry"
	"github.com/banshee-data/bleloc/internal/observation"
	"github.com/banshee-data/bleloc/internal/pipeline"
	"github.com/banshee-data/bleloc/internal/randutil"
	"github.com/banshee-data/bleloc/internal/report"
	"github.com/banshee-data/bleloc/internal/seed"
	"github.com/banshee-data/bleloc/internal/store"
	"github.com/banshee-data/bleloc/internal/version"
)

func main() {
	var (
		beaconsPath  string
		mapSpec      string
		trainPath    string
		trainJSON    bool
		shortUnit    bool
		beaconUnit   float64
		dbPath       string
		siteID       string
		retrain      bool
		plotOutPath  string
		trendOutPath string
		printVersion bool
	)

	flag.StringVar(&beaconsPath, "beacons", "", "path to the beacon registry CSV (uuid,major,minor,x,y,z,floor)")
	flag.StringVar(&mapSpec, "map", "", "floor map spec: a single image path, or floor,ppmx,ppmy,originx,originy,path groups")
	flag.StringVar(&trainPath, "train", "", "path to the training-sample file (CSV or JSON, see -train-json)")
	flag.BoolVar(&trainJSON, "train-json", false, "parse -train as the JSON training-sample format instead of CSV")
	flag.BoolVar(&shortUnit, "short", false, "scale the CSV training-sample x/y/z columns from 3-foot units (yards) to meters")
	flag.Float64Var(&beaconUnit, "beacon-unit", 1, "scale applied to the beacon registry's x/y columns")
	flag.StringVar(&dbPath, "db", "bleloc.db", "path to the sqlite persistence database")
	flag.StringVar(&siteID, "site", "default", "site identifier rows are scoped under")
	flag.BoolVar(&retrain, "retrain", false, "retrain the observation model even if a trained model is already persisted")
	flag.StringVar(&plotOutPath, "plot-out", "", "if set, write a PNG particle-cloud snapshot to this path after replay")
	flag.StringVar(&trendOutPath, "trend-out", "", "if set, write an HTML N_eff trend chart to this path after replay")
	flag.BoolVar(&printVersion, "version", false, "print version information and exit")
	flag.Parse()

	if printVersion {
		fmt.Printf("bleloc-replay %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if beaconsPath == "" || mapSpec == "" || trainPath == "" {
		log.Fatalf("bleloc-replay: -beacons, -map, and -train are all required")
	}

	beacons, err := loadBeacons(beaconsPath, beaconUnit)
	if err != nil {
		log.Fatalf("loading beacons: %v", err)
	}

	building, err := loadBuilding(mapSpec)
	if err != nil {
		log.Fatalf("loading floor maps: %v", err)
	}

	samples, err := loadSamples(trainPath, trainJSON, shortUnit)
	if err != nil {
		log.Fatalf("loading training samples: %v", err)
	}
	log.Printf("loaded %d beacons, %d training samples", len(beacons), len(samples))

	db, err := store.NewDB(dbPath)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	cfg := config.Default()

	obsModel, err := observation.New(cfg.Observation, beacons)
	if err != nil {
		log.Fatalf("constructing observation model: %v", err)
	}

	beaconIDs := make([]int64, len(beacons))
	for i, b := range beacons {
		beaconIDs[i] = b.ID
	}
	if err := loadOrTrainModel(db, siteID, obsModel, beaconIDs, samples, retrain); err != nil {
		log.Fatalf("preparing observation model: %v", err)
	}

	initializer, err := seed.New(samples, building, cfg.Priors, randutil.New(cfg.Seed))
	if err != nil {
		log.Fatalf("constructing status initializer: %v", err)
	}

	filter, err := pipeline.New(pipeline.Params{
		Config:      cfg,
		Building:    building,
		Observation: obsModel,
		Initializer: initializer,
	})
	if err != nil {
		log.Fatalf("constructing particle filter: %v", err)
	}

	estimates, err := replay(filter, samples, db, siteID)
	if err != nil {
		log.Fatalf("replay failed: %v", err)
	}
	log.Printf("replayed %d scans, emitted %d pose estimates", len(samples), len(estimates))

	if plotOutPath != "" {
		if err := writeParticlePlot(filter, estimates, building, plotOutPath); err != nil {
			log.Fatalf("writing particle plot: %v", err)
		}
	}
	if trendOutPath != "" {
		if err := writeTrend(estimates, trendOutPath); err != nil {
			log.Fatalf("writing trend chart: %v", err)
		}
	}
}

func loadBeacons(path string, unit float64) ([]geometry.BLEBeacon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()
	return dataio.LoadBeaconsCSV(f, unit)
}

func loadBuilding(mapSpec string) (*geometry.Building, error) {
	specs, err := dataio.ParseMapSpec(mapSpec)
	if err != nil {
		return nil, err
	}
	floors := make(map[int]*geometry.FloorMap, len(specs))
	for _, spec := range specs {
		fm, err := dataio.LoadFloorMap(spec)
		if err != nil {
			return nil, err
		}
		floors[spec.Floor] = fm
	}
	return geometry.NewBuilding(floors)
}

func loadSamples(path string, asJSON, short bool) ([]geometry.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()
	if asJSON {
		return dataio.LoadTrainingSamplesJSON(f)
	}
	return dataio.LoadTrainingSamplesCSV(f, short)
}

// loadOrTrainModel installs a previously persisted trained model unless
// retrain is set or none exists, in which case it trains from samples and
// persists the result.
func loadOrTrainModel(db *store.DB, siteID string, m *observation.Model, beaconIDs []int64, samples []geometry.Sample, retrain bool) error {
	if !retrain {
		payload, schemaVersion, _, ok, err := db.LoadLatestTrainedModel(siteID)
		if err != nil {
			return err
		}
		if ok {
			_ = schemaVersion
			log.Printf("loading previously trained model for site %q", siteID)
			return dataio.LoadTrainedModel(bytes.NewReader(payload), m, beaconIDs)
		}
	}

	log.Printf("training observation model from %d samples", len(samples))
	diag, err := m.Train(context.Background(), samples)
	if err != nil {
		return fmt.Errorf("training observation model: %w", err)
	}
	log.Printf("trained: %d samples in, %d aggregated, %d diverged beacons", diag.SamplesIn, diag.SamplesAggregated, len(diag.DivergedBeacons))

	var buf bytes.Buffer
	if err := dataio.SaveTrainedModel(&buf, m); err != nil {
		return fmt.Errorf("serializing trained model: %w", err)
	}
	if err := db.SaveTrainedModel(siteID, 1, time.Now(), buf.Bytes()); err != nil {
		return fmt.Errorf("persisting trained model: %w", err)
	}
	return nil
}

// replay drives the filter with every training sample in the order given,
// treating each sample's beacon readings as one beacon scan, and persists
// every emitted estimate.
//
// The training corpus carries ground-truth positions but no separate
// pedometer/compass stream, so the step/heading cues the motion model
// needs are derived from consecutive samples' recorded positions: a step
// is detected whenever a sample moves from the last one, its heading is
// the bearing between them, and a floor cue fires on a floor-index
// change. This keeps the motion/floor-transition path exercised by the
// replay driver itself rather than only by package tests.
func replay(filter *pipeline.StreamParticleFilter, samples []geometry.Sample, db *store.DB, siteID string) ([]pipeline.Estimate, error) {
	ctx := context.Background()
	estimates := make([]pipeline.Estimate, 0, len(samples))
	var prev geometry.Sample
	havePrev := false

	for _, s := range samples {
		stepDetected := false
		if havePrev {
			dx := s.X - prev.X
			dy := s.Y - prev.Y
			stepDetected = dx != 0 || dy != 0
			if stepDetected {
				heading := math.Atan2(dy, dx)
				if err := filter.UpdateInertial(s.Timestamp, heading); err != nil && !errors.Is(err, pipeline.ErrOutOfOrder) {
					return estimates, fmt.Errorf("updating inertial heading at %s: %w", s.Timestamp, err)
				}
			}
			if floorDelta := s.FloorIndex() - prev.FloorIndex(); floorDelta != 0 {
				filter.SetFloorChangeCue(floorDelta)
			}
		}
		if err := filter.UpdateAcceleration(s.Timestamp, stepDetected); err != nil && !errors.Is(err, pipeline.ErrOutOfOrder) {
			return estimates, fmt.Errorf("updating acceleration at %s: %w", s.Timestamp, err)
		}
		prev, havePrev = s, true

		estimate, err := filter.UpdateBeacons(ctx, s.Timestamp, s.Beacons)
		if err != nil {
			return estimates, fmt.Errorf("updating beacons at %s: %w", s.Timestamp, err)
		}
		if err := db.InsertPoseEstimate(siteID, estimate); err != nil {
			return estimates, fmt.Errorf("persisting pose estimate: %w", err)
		}
		estimates = append(estimates, estimate)
	}
	return estimates, nil
}

func writeParticlePlot(filter *pipeline.StreamParticleFilter, estimates []pipeline.Estimate, building *geometry.Building, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	defer f.Close()

	particles := filter.Particles()
	floorIdx, _ := building.FloorRange()
	var mean geometry.Pose
	if len(estimates) > 0 {
		mean = estimates[len(estimates)-1].Pose
		floorIdx = mean.FloorIndex()
	}
	floor, _ := building.FloorMapAt(floorIdx)
	return report.PlotParticles(f, floor, particles, mean)
}

func writeTrend(estimates []pipeline.Estimate, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	defer f.Close()
	return report.RenderTrend(f, estimates)
}
