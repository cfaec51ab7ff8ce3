// Package ioattrs writes the goal-attribute CSV export (spec.md 6, 4.9):
// first line is the feature count excluding background, second line is
// the header, then one comma-separated record per feature starting at the
// first non-background id. Grounded on the teacher's telemetry.OutputManager
// (telemetry/output.go), which drives the same gocsv.Marshal/WithoutHeaders
// split between a first write (with header) and subsequent writes.
package ioattrs

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/microforge/internal/feature"
)

// ErrIOFailure reports a CSV target that cannot be created or written
// (spec.md 7).
var ErrIOFailure = fmt.Errorf("ioattrs: io failure")

// Row is one feature's exported goal-attribute record (spec.md 6: header
// "FeatureID" followed by one column per exported attribute, multi-
// component arrays expanded as name_k).
type Row struct {
	FeatureID int32 `csv:"FeatureID"`

	Phase         int32   `csv:"Phase"`
	EquivDiameter float64 `csv:"EquivalentDiameter"`
	Volume        float64 `csv:"Volume"`

	AxisLength0 float64 `csv:"AxisLengths_0"`
	AxisLength1 float64 `csv:"AxisLengths_1"`
	AxisLength2 float64 `csv:"AxisLengths_2"`

	AxisEuler0 float64 `csv:"AxisEulerAngles_0"`
	AxisEuler1 float64 `csv:"AxisEulerAngles_1"`
	AxisEuler2 float64 `csv:"AxisEulerAngles_2"`

	Omega3 float64 `csv:"Omega3"`

	Centroid0 float64 `csv:"Centroids_0"`
	Centroid1 float64 `csv:"Centroids_1"`
	Centroid2 float64 `csv:"Centroids_2"`

	Neighborhood int `csv:"NumNeighbors"`
}

// RowsFrom converts features (already excluding any background/id-0 entry)
// to export rows in id order.
func RowsFrom(features []*feature.Feature) []Row {
	rows := make([]Row, len(features))
	for i, f := range features {
		rows[i] = Row{
			FeatureID:     f.ID,
			Phase:         f.Phase,
			EquivDiameter: f.EquivDiameter,
			Volume:        f.Volume,
			AxisLength0:   f.A,
			AxisLength1:   f.B,
			AxisLength2:   f.C,
			AxisEuler0:    f.Phi1,
			AxisEuler1:    f.Phi,
			AxisEuler2:    f.Phi2,
			Omega3:        f.Omega3,
			Centroid0:     f.CentroidX,
			Centroid1:     f.CentroidY,
			Centroid2:     f.CentroidZ,
			Neighborhood:  f.Neighborhood,
		}
	}
	return rows
}

// Write emits the goal-attribute CSV to w: a leading count line, then the
// gocsv header and records (spec.md 6).
func Write(w io.Writer, features []*feature.Feature) error {
	rows := RowsFrom(features)
	if _, err := fmt.Fprintln(w, len(rows)); err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	return nil
}

// WriteFile creates (or truncates) path and writes the goal-attribute CSV
// to it (spec.md 7: IOFailure when the target path cannot be created).
func WriteFile(path string, features []*feature.Feature) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrIOFailure, path, err)
	}
	defer f.Close()
	return Write(f, features)
}
