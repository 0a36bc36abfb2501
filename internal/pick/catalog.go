package pick

import (
	"math"
	"time"
)

// Builder extracts maximal active ranges of a merged timeline as candidate
// events and culls them by minimum duration and minimum averaged net
// displacement. Both culls are strict: a candidate exactly at a limit is
// dropped.
type Builder struct {
	CullTime float64 // minutes
	CullDist float64 // meters
}

// NewBuilder returns a catalog builder with the given culling limits.
func NewBuilder(cullTime, cullDist float64) *Builder {
	return &Builder{CullTime: cullTime, CullDist: cullDist}
}

// Build scans the mask for rising and falling edges and returns the catalog
// of surviving events, ordered by time.
func (b *Builder) Build(tl *MergedTimeline, det *Detection, runID string) *Catalog {
	cat := &Catalog{RunID: runID}
	n := len(tl.Times)
	for r := 0; r < n; {
		if !det.Mask[r] {
			r++
			continue
		}
		rise := r
		for r < n && det.Mask[r] {
			r++
		}
		if ev, ok := b.buildEvent(tl, rise, r); ok {
			cat.Events = append(cat.Events, ev)
		}
	}
	return cat
}

// buildEvent applies the culls to the half-open candidate [rise, fall) and
// snapshots it when it survives.
func (b *Builder) buildEvent(tl *MergedTimeline, rise, fall int) (Event, bool) {
	duration := tl.Times[fall-1].Sub(tl.Times[rise])
	if duration.Minutes() <= b.CullTime {
		return Event{}, false
	}

	// Net displacement per station, de-meaned to remove the window's own
	// drift, averaged over stations with data at both endpoints. No valid
	// station means displacement cannot be confirmed.
	var sum float64
	var valid int
	for _, sta := range tl.Stations {
		xs := tl.Cols[sta].X[rise:fall]
		first, last := xs[0], xs[len(xs)-1]
		if math.IsNaN(first) || math.IsNaN(last) {
			continue
		}
		mean := nanMean(xs)
		net := (last - mean) - (first - mean)
		if math.IsNaN(net) {
			continue
		}
		sum += net
		valid++
	}
	if valid == 0 {
		return Event{}, false
	}
	displacement := sum / float64(valid)
	if displacement <= b.CullDist {
		return Event{}, false
	}

	ev := Event{
		Start:        tl.Times[rise],
		End:          tl.Times[fall-1],
		Times:        append([]time.Time(nil), tl.Times[rise:fall]...),
		Stations:     append([]string(nil), tl.Stations...),
		Cols:         make(map[string]*StationColumns, len(tl.Stations)),
		Displacement: displacement,
	}
	for _, sta := range tl.Stations {
		c := tl.Cols[sta]
		ev.Cols[sta] = &StationColumns{
			X:      append([]float64(nil), c.X[rise:fall]...),
			Y:      append([]float64(nil), c.Y[rise:fall]...),
			Res:    append([]float64(nil), c.Res[rise:fall]...),
			ResAvg: append([]float64(nil), c.ResAvg[rise:fall]...),
		}
	}
	return ev, true
}

// nanMean averages the non-missing values; all-missing input yields NaN.
func nanMean(vals []float64) float64 {
	var sum float64
	var n int
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
