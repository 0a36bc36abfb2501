package pick

import (
	"math"
	"sort"
	"time"
)

// Merger aligns all stations' run series onto one timeline by outer join on
// timestamp. Rows a station has no sample for hold NaN. When SmoothStation
// names a station, that station's residual, baseline, and x columns get
// single isolated missing rows midpoint-filled after the join; longer holes
// are genuine gaps and stay missing.
type Merger struct {
	SmoothStation string
}

// NewMerger returns a merger. An empty smoothStation disables smoothing.
func NewMerger(smoothStation string) *Merger {
	return &Merger{SmoothStation: smoothStation}
}

// Merge joins the per-station results into a merged timeline with one row
// per distinct timestamp, ascending.
func (m *Merger) Merge(results []*StationResult) *MergedTimeline {
	seen := make(map[int64]time.Time)
	for _, sr := range results {
		for _, run := range sr.Runs {
			for _, ts := range run.Times {
				seen[ts.UnixNano()] = ts
			}
		}
	}
	keys := make([]int64, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	tl := &MergedTimeline{
		Times: make([]time.Time, len(keys)),
		Cols:  make(map[string]*StationColumns, len(results)),
	}
	index := make(map[int64]int, len(keys))
	for i, k := range keys {
		tl.Times[i] = seen[k]
		index[k] = i
	}

	for _, sr := range results {
		cols := newStationColumns(len(keys))
		for _, run := range sr.Runs {
			for i, ts := range run.Times {
				r := index[ts.UnixNano()]
				cols.X[r] = run.X[i]
				cols.Y[r] = run.Y[i]
				cols.Res[r] = run.Residual[i]
				cols.ResAvg[r] = run.Baseline[i]
			}
		}
		tl.Stations = append(tl.Stations, sr.Station)
		tl.Cols[sr.Station] = cols
	}

	if m.SmoothStation != "" {
		if cols, ok := tl.Cols[m.SmoothStation]; ok {
			fillIsolated(cols.Res)
			fillIsolated(cols.ResAvg)
			fillIsolated(cols.X)
		}
	}
	return tl
}

func newStationColumns(n int) *StationColumns {
	cols := &StationColumns{
		X:      make([]float64, n),
		Y:      make([]float64, n),
		Res:    make([]float64, n),
		ResAvg: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		cols.X[i] = math.NaN()
		cols.Y[i] = math.NaN()
		cols.Res[i] = math.NaN()
		cols.ResAvg[i] = math.NaN()
	}
	return cols
}

// fillIsolated midpoint-fills missing values whose both neighbors hold data.
// A hole of two or more rows is left untouched.
func fillIsolated(col []float64) {
	for i := 1; i < len(col)-1; i++ {
		if math.IsNaN(col[i]) && !math.IsNaN(col[i-1]) && !math.IsNaN(col[i+1]) {
			col[i] = (col[i-1] + col[i+1]) / 2
		}
	}
}
