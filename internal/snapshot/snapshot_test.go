package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/glaciodyn/stickslip/internal/pick"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "cache"), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func sampleResult() *pick.StationResult {
	base := time.Date(2011, 1, 12, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, 4)
	for i := range times {
		times[i] = base.Add(time.Duration(i) * 15 * time.Second)
	}
	return &pick.StationResult{
		Station:  "la01",
		Interval: 15,
		Runs: []pick.RunSeries{
			{
				Times:     times,
				X:         []float64{0, 0.1, 0.2, 0.3},
				Y:         []float64{0, -0.1, -0.2, -0.3},
				Elevation: []float64{100, 100.5, 101, 101.5},
				Residual:  []float64{0, 0.01, 0.02, 0},
				Baseline:  []float64{0.0075, 0.0075, 0.0075, 0.0075},
			},
		},
		Gaps: []pick.Gap{
			{
				Start:    base.Add(-time.Hour),
				End:      base,
				Duration: time.Hour,
			},
		},
	}
}

func TestKeyIsParameterSensitive(t *testing.T) {
	base := Key("la01", []int{2010, 2011}, 15, 600, 25, 120)
	if len(base) != 16 {
		t.Fatalf("key length = %d, want 16", len(base))
	}
	if again := Key("la01", []int{2010, 2011}, 15, 600, 25, 120); again != base {
		t.Errorf("key not deterministic: %s vs %s", base, again)
	}

	variants := map[string]string{
		"station":  Key("la05", []int{2010, 2011}, 15, 600, 25, 120),
		"years":    Key("la01", []int{2011}, 15, 600, 25, 120),
		"interval": Key("la01", []int{2010, 2011}, 30, 600, 25, 120),
		"window":   Key("la01", []int{2010, 2011}, 15, 300, 25, 120),
		"slide":    Key("la01", []int{2010, 2011}, 15, 600, 50, 120),
		"max gap":  Key("la01", []int{2010, 2011}, 15, 600, 25, 300),
	}
	for param, key := range variants {
		if key == base {
			t.Errorf("changing %s did not change the key", param)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	key := Key("la01", []int{2011}, 15, 600, 25, 120)
	want := sampleResult()

	if err := store.Save("la01", key, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok := store.Load("la01", key)
	if !ok {
		t.Fatal("Load missed a freshly saved entry")
	}

	if got.Station != want.Station || got.Interval != want.Interval {
		t.Errorf("identity = %s/%d, want %s/%d",
			got.Station, got.Interval, want.Station, want.Interval)
	}
	if len(got.Runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(got.Runs))
	}
	gr, wr := got.Runs[0], want.Runs[0]
	if len(gr.Times) != len(wr.Times) {
		t.Fatalf("got %d times, want %d", len(gr.Times), len(wr.Times))
	}
	for i := range wr.Times {
		if !gr.Times[i].Equal(wr.Times[i]) {
			t.Errorf("Times[%d] = %v, want %v", i, gr.Times[i], wr.Times[i])
		}
	}
	if !reflect.DeepEqual(gr.X, wr.X) || !reflect.DeepEqual(gr.Y, wr.Y) {
		t.Error("position columns did not survive the round trip")
	}
	if !reflect.DeepEqual(gr.Residual, wr.Residual) || !reflect.DeepEqual(gr.Baseline, wr.Baseline) {
		t.Error("residual columns did not survive the round trip")
	}
	if !reflect.DeepEqual(gr.Elevation, wr.Elevation) {
		t.Error("elevation column did not survive the round trip")
	}
	if len(got.Gaps) != 1 {
		t.Fatalf("got %d gaps, want 1", len(got.Gaps))
	}
	if !got.Gaps[0].Start.Equal(want.Gaps[0].Start) || got.Gaps[0].Duration != want.Gaps[0].Duration {
		t.Errorf("gap = %+v, want %+v", got.Gaps[0], want.Gaps[0])
	}
}

func TestLoadMissingEntry(t *testing.T) {
	store := newTestStore(t)
	if _, ok := store.Load("la01", Key("la01", []int{2011}, 15, 600, 25, 120)); ok {
		t.Error("Load reported a hit on an empty store")
	}
}

func TestLoadCorruptEntryMisses(t *testing.T) {
	store := newTestStore(t)
	key := Key("la01", []int{2011}, 15, 600, 25, 120)

	if err := os.WriteFile(store.path("la01", key), []byte("not msgpack"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Load("la01", key); ok {
		t.Error("Load reported a hit on a corrupt entry")
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	key := Key("la01", []int{2011}, 15, 600, 25, 120)

	first := sampleResult()
	if err := store.Save("la01", key, first); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	second := sampleResult()
	second.Runs[0].X[0] = 42
	if err := store.Save("la01", key, second); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, ok := store.Load("la01", key)
	if !ok {
		t.Fatal("Load missed after overwrite")
	}
	if got.Runs[0].X[0] != 42 {
		t.Errorf("X[0] = %v, want 42", got.Runs[0].X[0])
	}
}
