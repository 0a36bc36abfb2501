package pick

import (
	"math"
	"testing"
	"time"
)

// quietTimeline builds a merged timeline of n rows at 15s spacing where every
// station reports position with zero residual and zero baseline, so no row is
// a raw candidate until a test pokes one.
func quietTimeline(n int, stations ...string) *MergedTimeline {
	base := time.Date(2010, 12, 28, 0, 0, 0, 0, time.UTC)
	tl := &MergedTimeline{
		Times: make([]time.Time, n),
		Cols:  make(map[string]*StationColumns, len(stations)),
	}
	for i := 0; i < n; i++ {
		tl.Times[i] = base.Add(time.Duration(i*15) * time.Second)
	}
	for _, sta := range stations {
		cols := &StationColumns{
			X:      make([]float64, n),
			Y:      make([]float64, n),
			Res:    make([]float64, n),
			ResAvg: make([]float64, n),
		}
		tl.Stations = append(tl.Stations, sta)
		tl.Cols[sta] = cols
	}
	return tl
}

func TestDetectSumsSkipMissing(t *testing.T) {
	tl := quietTimeline(3, "la01", "la05")
	a, b := tl.Cols["la01"], tl.Cols["la05"]

	a.Res[1], a.ResAvg[1] = 2.0, 0.5
	b.Res[1], b.ResAvg[1] = math.NaN(), math.NaN()
	b.X[1] = math.NaN()

	det := NewDetector(1, 0).Detect(tl)

	if det.ResSum[1] != 2.0 {
		t.Errorf("ressum[1] = %v, want 2.0 (missing station excluded)", det.ResSum[1])
	}
	if det.Thresh[1] != 0.5 {
		t.Errorf("thresh[1] = %v, want 0.5", det.Thresh[1])
	}
	if det.ActiveCount[1] != 1 {
		t.Errorf("active[1] = %d, want 1", det.ActiveCount[1])
	}
	if det.ActiveCount[0] != 2 {
		t.Errorf("active[0] = %d, want 2", det.ActiveCount[0])
	}
}

func TestDetectAllMissingRowIsQuiet(t *testing.T) {
	tl := quietTimeline(3, "la01", "la05")
	for _, sta := range tl.Stations {
		c := tl.Cols[sta]
		c.Res[1], c.ResAvg[1], c.X[1], c.Y[1] = math.NaN(), math.NaN(), math.NaN(), math.NaN()
	}

	det := NewDetector(1, 0).Detect(tl)
	if det.ResSum[1] != 0 || det.Thresh[1] != 0 {
		t.Errorf("all-missing row sums = %v/%v, want 0/0", det.ResSum[1], det.Thresh[1])
	}
	if det.Mask[1] {
		t.Error("all-missing row must not be active")
	}
}

func TestDetectActiveStationGate(t *testing.T) {
	tl := quietTimeline(5, "la01", "la05")
	a, b := tl.Cols["la01"], tl.Cols["la05"]

	// Row 1: residual exceeds threshold but only one station has position.
	a.Res[1] = 5
	b.X[1] = math.NaN()
	// Row 3: residual exceeds threshold with both stations reporting.
	a.Res[3] = 5

	det := NewDetector(2, 0).Detect(tl)
	if det.Mask[1] {
		t.Error("row 1 active despite only one reporting station")
	}
	if !det.Mask[3] {
		t.Error("row 3 inactive despite sum above threshold and two stations")
	}
}

func TestDetectThresholdIsStrict(t *testing.T) {
	tl := quietTimeline(3, "la01")
	c := tl.Cols["la01"]
	c.Res[1], c.ResAvg[1] = 1.0, 1.0 // equal, not above

	det := NewDetector(1, 0).Detect(tl)
	if det.Mask[1] {
		t.Error("row with ressum == thresh must stay inactive")
	}
}

func TestDetectPadGeometry(t *testing.T) {
	tl := quietTimeline(300, "la01")
	tl.Cols["la01"].Res[150] = 1

	det := NewDetector(1, 0.25).Detect(tl)
	if det.Pad != 60 {
		t.Fatalf("pad = %d, want 60", det.Pad)
	}

	// A single raw row pads to 2*60-1 = 119 active rows [91, 210).
	for r := 0; r < 300; r++ {
		want := r >= 91 && r < 210
		if det.Mask[r] != want {
			t.Fatalf("mask[%d] = %v, want %v", r, det.Mask[r], want)
		}
	}
}

func TestDetectPadClipsAtEdges(t *testing.T) {
	tl := quietTimeline(300, "la01")
	tl.Cols["la01"].Res[5] = 1
	tl.Cols["la01"].Res[295] = 1

	det := NewDetector(1, 0.25).Detect(tl) // pad 60
	for r := 0; r < 300; r++ {
		want := r < 65 || r >= 236
		if det.Mask[r] != want {
			t.Fatalf("mask[%d] = %v, want %v", r, det.Mask[r], want)
		}
	}
}

func TestDetectZeroPad(t *testing.T) {
	tl := quietTimeline(10, "la01")
	tl.Cols["la01"].Res[4] = 1

	det := NewDetector(1, 0).Detect(tl)
	if det.Pad != 0 {
		t.Fatalf("pad = %d, want 0", det.Pad)
	}
	for r := 0; r < 10; r++ {
		if det.Mask[r] != (r == 4) {
			t.Errorf("mask[%d] = %v", r, det.Mask[r])
		}
	}
}

func TestDetectPaddingDoesNotCascade(t *testing.T) {
	tl := quietTimeline(300, "la01")
	tl.Cols["la01"].Res[100] = 1
	tl.Cols["la01"].Res[200] = 1

	det := NewDetector(1, 0.125).Detect(tl) // pad 30
	if det.Pad != 30 {
		t.Fatalf("pad = %d, want 30", det.Pad)
	}
	// Two distinct regions [71,130) and [171,230); padded rows must not seed
	// further padding, so the space between stays inactive.
	for r := 0; r < 300; r++ {
		want := (r >= 71 && r < 130) || (r >= 171 && r < 230)
		if det.Mask[r] != want {
			t.Fatalf("mask[%d] = %v, want %v", r, det.Mask[r], want)
		}
	}
}
