// Package types holds the shared data structures passed between the pipeline
// and its storage backends.
package types

import (
	"time"

	"github.com/glaciodyn/stickslip/internal/pick"
)

// RunParams echoes the detection parameters a run was produced with, so every
// backend can record provenance next to the catalog.
type RunParams struct {
	Window             int     `json:"window"`
	Slide              int     `json:"slide"`
	ActiveStations     int     `json:"active_stations"`
	PadHours           float64 `json:"pad_hours"`
	CullTimeMinutes    float64 `json:"cull_time_minutes"`
	CullDistanceMeters float64 `json:"cull_distance_meters"`
	MaxGapSeconds      int     `json:"max_gap_seconds"`
	SmoothStation      string  `json:"smooth_station,omitempty"`
	MinStations        int     `json:"min_stations"`
}

// Result is everything one pipeline run produces, handed to storage backends
// as a unit.
type Result struct {
	RunID     string
	StartedAt time.Time
	Stations  []string
	Years     []int
	Params    RunParams

	Catalog   *pick.Catalog
	Timeline  *pick.MergedTimeline
	Detection *pick.Detection
	Gaps      map[string][]pick.Gap
	NoData    []pick.NoDataSpan
}
