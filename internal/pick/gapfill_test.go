package pick

import (
	"math"
	"testing"
	"time"
)

// seriesAt builds a station series with samples at the given second offsets
// from base. X walks 0.1 m per sample so interpolated values are easy to
// predict; the other columns follow fixed ramps.
func seriesAt(name string, interval int, base time.Time, offsets []int) StationSeries {
	samples := make([]Sample, len(offsets))
	for i, off := range offsets {
		samples[i] = Sample{
			Time:      base.Add(time.Duration(off) * time.Second),
			X:         0.1 * float64(i),
			Y:         -0.05 * float64(i),
			Elevation: 100.0 + float64(i),
			Sats:      float64(8 + i%3),
			GDOP:      1.5,
		}
	}
	return StationSeries{Name: name, Interval: interval, Samples: samples}
}

func TestFillShortGap(t *testing.T) {
	base := time.Date(2010, 12, 28, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		offsets    []int
		maxGap     int
		wantLen    int
		wantInsert int // synthetic samples inside the single gap
	}{
		{
			name:       "60s gap inserts three samples",
			offsets:    []int{0, 15, 75, 90},
			maxGap:     120,
			wantLen:    7,
			wantInsert: 3,
		},
		{
			name:       "gap exactly at limit still fills",
			offsets:    []int{0, 120},
			maxGap:     120,
			wantLen:    9,
			wantInsert: 7,
		},
		{
			name:       "17s spacing is a gap too short to hold a sample",
			offsets:    []int{0, 17},
			maxGap:     120,
			wantLen:    2,
			wantInsert: 0,
		},
		{
			name:       "nominal spacing with one second slack is not a gap",
			offsets:    []int{0, 16, 31},
			maxGap:     120,
			wantLen:    3,
			wantInsert: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := seriesAt("la01", 15, base, tt.offsets)
			fs := NewGapFiller(tt.maxGap).Fill(series)

			if len(fs.Samples) != tt.wantLen {
				t.Fatalf("filled length = %d, want %d", len(fs.Samples), tt.wantLen)
			}
			if len(fs.Gaps) != 0 {
				t.Errorf("gaps = %d, want 0", len(fs.Gaps))
			}
			if len(fs.Runs) != 1 {
				t.Fatalf("runs = %d, want 1", len(fs.Runs))
			}
			if fs.Runs[0].Start != 0 || fs.Runs[0].End != tt.wantLen {
				t.Errorf("run = [%d,%d), want [0,%d)", fs.Runs[0].Start, fs.Runs[0].End, tt.wantLen)
			}
			for i := 1; i < len(fs.Samples); i++ {
				if !fs.Samples[i].Time.After(fs.Samples[i-1].Time) {
					t.Errorf("timestamps not ascending at %d: %v then %v",
						i, fs.Samples[i-1].Time, fs.Samples[i].Time)
				}
			}
		})
	}
}

func TestFillInterpolatesEvenlyAndLinearly(t *testing.T) {
	base := time.Date(2010, 12, 28, 0, 0, 0, 0, time.UTC)
	// One 60s gap between samples 1 and 2: floor(60/15)-1 = 3 inserted.
	series := seriesAt("la01", 15, base, []int{0, 15, 75})
	fs := NewGapFiller(120).Fill(series)

	if len(fs.Samples) != 6 {
		t.Fatalf("filled length = %d, want 6", len(fs.Samples))
	}

	wantOffsets := []int{0, 15, 30, 45, 60, 75}
	for i, want := range wantOffsets {
		got := fs.Samples[i].Time
		if !got.Equal(base.Add(time.Duration(want) * time.Second)) {
			t.Errorf("sample %d at %v, want offset %ds", i, got, want)
		}
	}

	// Bounding samples carry x = 0.1 and 0.2; the three synthetic samples
	// interpolate at quarters.
	wantX := []float64{0.125, 0.15, 0.175}
	wantElev := []float64{101.25, 101.5, 101.75}
	for i := 0; i < 3; i++ {
		s := fs.Samples[2+i]
		if math.Abs(s.X-wantX[i]) > 1e-12 {
			t.Errorf("synthetic %d x = %v, want %v", i, s.X, wantX[i])
		}
		if math.Abs(s.Elevation-wantElev[i]) > 1e-12 {
			t.Errorf("synthetic %d elevation = %v, want %v", i, s.Elevation, wantElev[i])
		}
		if math.Abs(s.GDOP-1.5) > 1e-12 {
			t.Errorf("synthetic %d gdop = %v, want 1.5", i, s.GDOP)
		}
	}
}

func TestFillRecordsLongGap(t *testing.T) {
	base := time.Date(2010, 12, 28, 0, 0, 0, 0, time.UTC)
	// 300s gap exceeds the 120s limit: recorded, nothing inserted.
	series := seriesAt("la01", 15, base, []int{0, 15, 315, 330})
	fs := NewGapFiller(120).Fill(series)

	if len(fs.Samples) != 4 {
		t.Fatalf("filled length = %d, want 4 (no insertion)", len(fs.Samples))
	}
	if len(fs.Gaps) != 1 {
		t.Fatalf("gaps = %d, want 1", len(fs.Gaps))
	}
	gap := fs.Gaps[0]
	if !gap.Start.Equal(base.Add(15 * time.Second)) {
		t.Errorf("gap start = %v, want %v", gap.Start, base.Add(15*time.Second))
	}
	if !gap.End.Equal(base.Add(315 * time.Second)) {
		t.Errorf("gap end = %v, want %v", gap.End, base.Add(315*time.Second))
	}
	if gap.Duration != 300*time.Second {
		t.Errorf("gap duration = %v, want 300s", gap.Duration)
	}

	if len(fs.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(fs.Runs))
	}
	if fs.Runs[0].Start != 0 || fs.Runs[0].End != 2 {
		t.Errorf("first run = [%d,%d), want [0,2)", fs.Runs[0].Start, fs.Runs[0].End)
	}
	if fs.Runs[1].Start != 2 || fs.Runs[1].End != 4 {
		t.Errorf("second run = [%d,%d), want [2,4)", fs.Runs[1].Start, fs.Runs[1].End)
	}
}

func TestFillMixedGaps(t *testing.T) {
	base := time.Date(2010, 12, 28, 0, 0, 0, 0, time.UTC)
	// Short gap (45s), then long gap (600s), then short gap (30s).
	series := seriesAt("la01", 15, base, []int{0, 45, 645, 675})
	fs := NewGapFiller(120).Fill(series)

	// 45s inserts 2, 30s inserts 1; long gap inserts none.
	if len(fs.Samples) != 7 {
		t.Fatalf("filled length = %d, want 7", len(fs.Samples))
	}
	if len(fs.Gaps) != 1 {
		t.Fatalf("gaps = %d, want 1", len(fs.Gaps))
	}
	if len(fs.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(fs.Runs))
	}
	// First run holds samples 0..3 (two real, two synthetic).
	if fs.Runs[0].End-fs.Runs[0].Start != 4 {
		t.Errorf("first run length = %d, want 4", fs.Runs[0].End-fs.Runs[0].Start)
	}
	if fs.Runs[1].End-fs.Runs[1].Start != 3 {
		t.Errorf("second run length = %d, want 3", fs.Runs[1].End-fs.Runs[1].Start)
	}
}

// The trailing-tail scenario: a sparse 270s stretch of short gaps is fully
// backfilled to 15s spacing, while the final 330s gap stays open, so the
// series ends ..., 23:53:30, 23:53:45, 23:54:00, 23:54:15, then 23:59:45.
func TestFillTrailingTail(t *testing.T) {
	day := time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	offsets := []int{
		0, 15, 30, // steady lead-in
		23*3600 + 49*60 + 45, // 23:49:45
		23*3600 + 51*60 + 30, // 23:51:30, 105s gap
		23*3600 + 53*60 + 15, // 23:53:15, 105s gap
		23*3600 + 54*60 + 15, // 23:54:15, 60s gap
		23*3600 + 59*60 + 45, // 23:59:45, 330s gap
	}
	series := seriesAt("la01", 15, day, offsets)
	fs := NewGapFiller(120).Fill(series)

	want := []string{
		"23:53:30",
		"23:53:45",
		"23:54:00",
		"23:54:15",
		"23:59:45",
	}
	n := len(fs.Samples)
	if n < len(want) {
		t.Fatalf("filled length = %d, want at least %d", n, len(want))
	}
	for i, w := range want {
		got := fs.Samples[n-len(want)+i].Time.Format("15:04:05")
		if got != w {
			t.Errorf("trailing sample %d = %s, want %s", i, got, w)
		}
	}

	if len(fs.Gaps) != 2 {
		t.Fatalf("gaps = %d, want 2 (lead-in jump and 330s tail)", len(fs.Gaps))
	}
	tail := fs.Gaps[1]
	if tail.Duration != 330*time.Second {
		t.Errorf("tail gap duration = %v, want 330s", tail.Duration)
	}
	if got := tail.Start.Format("15:04:05"); got != "23:54:15" {
		t.Errorf("tail gap start = %s, want 23:54:15", got)
	}
}

func TestFillDegenerateSeries(t *testing.T) {
	fs := NewGapFiller(120).Fill(StationSeries{Name: "la01", Interval: 15})
	if len(fs.Samples) != 0 || len(fs.Runs) != 0 || len(fs.Gaps) != 0 {
		t.Errorf("empty series should yield empty result, got %d samples, %d runs, %d gaps",
			len(fs.Samples), len(fs.Runs), len(fs.Gaps))
	}

	one := seriesAt("la01", 15, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), []int{0})
	fs = NewGapFiller(120).Fill(one)
	if len(fs.Samples) != 1 {
		t.Fatalf("single sample series length = %d, want 1", len(fs.Samples))
	}
	if len(fs.Runs) != 1 || fs.Runs[0].Start != 0 || fs.Runs[0].End != 1 {
		t.Errorf("single sample runs = %+v, want one [0,1) run", fs.Runs)
	}
}
