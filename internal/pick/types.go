// Package pick implements the stick-slip event detection pipeline: gap
// filling, windowed residual estimation, multi-station merging, threshold
// picking, and catalog culling.
package pick

import "time"

// ReferenceInterval is the reference sampling interval in seconds. Window
// and slide parameters are expressed in units of this interval regardless
// of a station's native sampling rate.
const ReferenceInterval = 15

// Sample is one positioned GPS epoch for a station.
type Sample struct {
	Time      time.Time
	X         float64 // projected easting, meters
	Y         float64 // projected northing, meters
	Elevation float64 // meters
	Sats      float64 // satellites used in solution
	GDOP      float64
}

// StationSeries is the ordered sample sequence for one station over the
// configured year range, with its nominal sampling interval in seconds.
// Samples are time-ordered ascending.
type StationSeries struct {
	Name     string
	Interval int
	Samples  []Sample
}

// Gap is a span whose inter-sample spacing exceeded the interpolation
// threshold and was left unfilled.
type Gap struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Run is a half-open index span [Start, End) into a filled series with no
// unresolved gap inside it.
type Run struct {
	Start int
	End   int
}

// FilledSeries is the output of the gap filler: the series with short gaps
// interpolated, the unresolved gaps in order, and the run partition they
// induce.
type FilledSeries struct {
	Station  string
	Interval int
	Samples  []Sample
	Gaps     []Gap
	Runs     []Run
}

// RunSeries holds the parallel per-sample arrays produced for one run:
// timestamps, positions, elevation, the windowed residual, and its
// broadcast baseline.
type RunSeries struct {
	Times     []time.Time
	X         []float64
	Y         []float64
	Elevation []float64
	Residual  []float64
	Baseline  []float64
}

// StationResult is the per-station output of the residual estimator across
// all runs, ready for merging.
type StationResult struct {
	Station  string
	Interval int
	Runs     []RunSeries
	Gaps     []Gap
}

// StationColumns are one station's value columns on the merged timeline.
// Rows where the station has no data hold NaN.
type StationColumns struct {
	X      []float64
	Y      []float64
	Res    []float64
	ResAvg []float64
}

// MergedTimeline is the outer join of all stations' runs on timestamp: one
// row per distinct timestamp, ascending, with per-station columns.
type MergedTimeline struct {
	Times    []time.Time
	Stations []string
	Cols     map[string]*StationColumns
}

// Detection is the event detector's output: the padded active mask plus the
// per-row sums retained for diagnostics.
type Detection struct {
	Mask        []bool
	ResSum      []float64
	Thresh      []float64
	ActiveCount []int
	Pad         int
}

// Event is an immutable snapshot of one maximal active range of the merged
// timeline surviving the culls.
type Event struct {
	Start        time.Time
	End          time.Time
	Times        []time.Time
	Stations     []string
	Cols         map[string]*StationColumns
	Displacement float64 // averaged net displacement across valid stations, meters
}

// Catalog is the ordered sequence of events surviving culling for one
// pipeline run.
type Catalog struct {
	RunID  string
	Events []Event
}

// NoDataSpan is a period during which fewer than the required number of
// stations had an active run.
type NoDataSpan struct {
	Start time.Time
	End   time.Time
}
