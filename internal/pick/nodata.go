package pick

import (
	"sort"
	"time"
)

// runBoundary is one station run onset or offset.
type runBoundary struct {
	t  int64 // UnixNano
	on bool
}

// NoDataReport sweeps every station's run onsets and offsets and returns the
// spans during which fewer than minStations stations had an active run,
// ordered ascending. Onsets at the same instant as offsets count first, so a
// clean handover between stations opens no span.
func NoDataReport(results []*StationResult, minStations int) []NoDataSpan {
	var bounds []runBoundary
	for _, sr := range results {
		for _, run := range sr.Runs {
			if len(run.Times) == 0 {
				continue
			}
			bounds = append(bounds,
				runBoundary{run.Times[0].UnixNano(), true},
				runBoundary{run.Times[len(run.Times)-1].UnixNano(), false})
		}
	}
	if len(bounds) == 0 {
		return nil
	}

	sort.Slice(bounds, func(i, j int) bool {
		if bounds[i].t == bounds[j].t {
			return bounds[i].on && !bounds[j].on
		}
		return bounds[i].t < bounds[j].t
	})

	var spans []NoDataSpan
	count := 0
	low := true
	start := bounds[0].t
	for _, b := range bounds {
		if b.on {
			count++
		} else {
			count--
		}
		if low && count >= minStations {
			if start < b.t {
				spans = append(spans, NoDataSpan{Start: nanoTime(start), End: nanoTime(b.t)})
			}
			low = false
		} else if !low && count < minStations {
			start = b.t
			low = true
		}
	}
	last := bounds[len(bounds)-1].t
	if low && start < last {
		spans = append(spans, NoDataSpan{Start: nanoTime(start), End: nanoTime(last)})
	}
	return spans
}

func nanoTime(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
