package sqlitedb

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/glaciodyn/stickslip/internal/pick"
	"github.com/glaciodyn/stickslip/internal/types"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	engine, err := New(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

func sampleResult(runID string) *types.Result {
	start := time.Date(2011, 1, 12, 14, 5, 15, 0, time.UTC)
	times := []time.Time{start, start.Add(15 * time.Second)}

	event := pick.Event{
		Start:    times[0],
		End:      times[1],
		Times:    times,
		Stations: []string{"la01", "la05"},
		Cols: map[string]*pick.StationColumns{
			"la01": {
				X:      []float64{1, 2},
				Y:      []float64{-1, -2},
				Res:    []float64{0.1, 0.2},
				ResAvg: []float64{0.15, 0.15},
			},
			"la05": {
				X:      []float64{math.NaN(), 5},
				Y:      []float64{math.NaN(), -5},
				Res:    []float64{math.NaN(), 0.5},
				ResAvg: []float64{math.NaN(), 0.25},
			},
		},
		Displacement: 1.5,
	}

	return &types.Result{
		RunID:     runID,
		StartedAt: time.Date(2011, 2, 1, 0, 0, 0, 0, time.UTC),
		Stations:  []string{"la01", "la05"},
		Years:     []int{2010, 2011},
		Params: types.RunParams{
			Window:             600,
			Slide:              25,
			ActiveStations:     2,
			PadHours:           0.5,
			CullTimeMinutes:    30,
			CullDistanceMeters: 0.1,
			MaxGapSeconds:      120,
			SmoothStation:      "la01",
			MinStations:        1,
		},
		Catalog: &pick.Catalog{RunID: runID, Events: []pick.Event{event}},
		Gaps: map[string][]pick.Gap{
			"la05": {{
				Start:    start.Add(-time.Hour),
				End:      start.Add(-30 * time.Minute),
				Duration: 30 * time.Minute,
			}},
		},
		NoData: []pick.NoDataSpan{{
			Start: start.Add(-2 * time.Hour),
			End:   start.Add(-time.Hour),
		}},
	}
}

func countRows(t *testing.T, engine *Storage, table string) int {
	t.Helper()
	var n int
	if err := engine.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestStoreRunPersistsEverything(t *testing.T) {
	engine := newTestStorage(t)
	if engine.Name() != "sqlite" {
		t.Errorf("Name = %q", engine.Name())
	}

	if err := engine.StoreRun(context.Background(), sampleResult("run-1")); err != nil {
		t.Fatalf("StoreRun: %v", err)
	}

	if n := countRows(t, engine, "runs"); n != 1 {
		t.Errorf("runs = %d, want 1", n)
	}
	if n := countRows(t, engine, "events"); n != 1 {
		t.Errorf("events = %d, want 1", n)
	}
	// 2 rows x 2 stations.
	if n := countRows(t, engine, "event_samples"); n != 4 {
		t.Errorf("event_samples = %d, want 4", n)
	}
	if n := countRows(t, engine, "gaps"); n != 1 {
		t.Errorf("gaps = %d, want 1", n)
	}
	if n := countRows(t, engine, "nodata_spans"); n != 1 {
		t.Errorf("nodata_spans = %d, want 1", n)
	}

	var stations, years, smooth string
	var window, eventCount int
	err := engine.db.QueryRow(`
		SELECT stations, years, window_len, smooth_station, event_count
		FROM runs WHERE id = 'run-1'`,
	).Scan(&stations, &years, &window, &smooth, &eventCount)
	if err != nil {
		t.Fatalf("run row: %v", err)
	}
	if stations != "la01,la05" || years != "2010,2011" {
		t.Errorf("stations/years = %q/%q", stations, years)
	}
	if window != 600 || smooth != "la01" || eventCount != 1 {
		t.Errorf("window/smooth/count = %d/%q/%d", window, smooth, eventCount)
	}

	var displacement float64
	var sampleCount int
	err = engine.db.QueryRow(
		"SELECT displacement_m, sample_count FROM events WHERE run_id = 'run-1'",
	).Scan(&displacement, &sampleCount)
	if err != nil {
		t.Fatalf("event row: %v", err)
	}
	if displacement != 1.5 || sampleCount != 2 {
		t.Errorf("displacement/samples = %v/%d", displacement, sampleCount)
	}
}

func TestStoreRunMapsNaNToNull(t *testing.T) {
	engine := newTestStorage(t)
	if err := engine.StoreRun(context.Background(), sampleResult("run-1")); err != nil {
		t.Fatalf("StoreRun: %v", err)
	}

	var nullRows int
	err := engine.db.QueryRow(`
		SELECT COUNT(*) FROM event_samples
		WHERE station = 'la05' AND x IS NULL AND residual IS NULL`,
	).Scan(&nullRows)
	if err != nil {
		t.Fatal(err)
	}
	if nullRows != 1 {
		t.Errorf("NULL sample rows = %d, want 1", nullRows)
	}

	var x float64
	err = engine.db.QueryRow(`
		SELECT x FROM event_samples
		WHERE station = 'la01' ORDER BY sample_time LIMIT 1`,
	).Scan(&x)
	if err != nil {
		t.Fatal(err)
	}
	if x != 1 {
		t.Errorf("first la01 x = %v, want 1", x)
	}
}

func TestStoreRunMultipleRuns(t *testing.T) {
	engine := newTestStorage(t)
	for _, id := range []string{"run-1", "run-2"} {
		if err := engine.StoreRun(context.Background(), sampleResult(id)); err != nil {
			t.Fatalf("StoreRun %s: %v", id, err)
		}
	}

	if n := countRows(t, engine, "runs"); n != 2 {
		t.Errorf("runs = %d, want 2", n)
	}
	if n := countRows(t, engine, "events"); n != 2 {
		t.Errorf("events = %d, want 2", n)
	}
}

func TestStoreRunDuplicateRunIDFails(t *testing.T) {
	engine := newTestStorage(t)
	if err := engine.StoreRun(context.Background(), sampleResult("run-1")); err != nil {
		t.Fatalf("first StoreRun: %v", err)
	}
	if err := engine.StoreRun(context.Background(), sampleResult("run-1")); err == nil {
		t.Fatal("expected primary key violation for duplicate run id")
	}
	// The failed transaction must not leave partial rows behind.
	if n := countRows(t, engine, "events"); n != 1 {
		t.Errorf("events = %d, want 1", n)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	engine, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := engine.StoreRun(context.Background(), sampleResult("run-1")); err != nil {
		t.Fatalf("StoreRun: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if n := countRows(t, reopened, "runs"); n != 1 {
		t.Errorf("runs after reopen = %d, want 1", n)
	}
}
