package dataio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/bleloc/internal/geometry"
)

// LoadBeaconsCSV parses the BLE-beacon registry row format:
//
//	uuid, major, minor, x, y, z, floor
//
// unit, when non-zero, multiplies x and y (the optional unit scale the
// format allows); pass 1 to leave x/y unscaled.
func LoadBeaconsCSV(r io.Reader, unit float64) ([]geometry.BLEBeacon, error) {
	if unit == 0 {
		unit = 1
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var beacons []geometry.BLEBeacon
	rowNum := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataio: reading beacon row %d: %w", rowNum, err)
		}
		rowNum++
		if len(row) < 7 {
			return nil, fmt.Errorf("dataio: beacon row %d has %d fields, want 7", rowNum, len(row))
		}

		major, err := strconv.ParseUint(row[1], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("dataio: row %d: parsing major: %w", rowNum, err)
		}
		minor, err := strconv.ParseUint(row[2], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("dataio: row %d: parsing minor: %w", rowNum, err)
		}
		x, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: row %d: parsing x: %w", rowNum, err)
		}
		y, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: row %d: parsing y: %w", rowNum, err)
		}
		z, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: row %d: parsing z: %w", rowNum, err)
		}
		floor, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return nil, fmt.Errorf("dataio: row %d: parsing floor: %w", rowNum, err)
		}

		beacons = append(beacons, geometry.BLEBeacon{
			ID:       geometry.BeaconID(uint16(major), uint16(minor)),
			Location: geometry.Location{X: x * unit, Y: y * unit, Z: z, Floor: floor},
		})
	}
	return beacons, nil
}
