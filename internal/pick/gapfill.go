package pick

import "time"

// GapFiller detects sampling discontinuities in a station series, fills the
// short ones by linear interpolation, and records the long ones as explicit
// gaps. A spacing is a discontinuity when it exceeds the station's nominal
// interval by more than one second.
type GapFiller struct {
	MaxGap int // longest interpolatable gap, seconds
}

// NewGapFiller returns a filler that interpolates gaps up to maxGap seconds.
func NewGapFiller(maxGap int) *GapFiller {
	return &GapFiller{MaxGap: maxGap}
}

// Fill walks the series in order and returns the filled series, the
// unresolved gaps, and the run partition they induce. An empty series yields
// a result with no runs.
func (g *GapFiller) Fill(series StationSeries) *FilledSeries {
	out := &FilledSeries{
		Station:  series.Name,
		Interval: series.Interval,
	}
	if len(series.Samples) == 0 {
		return out
	}

	interval := time.Duration(series.Interval) * time.Second
	tolerance := interval + time.Second
	maxGap := time.Duration(g.MaxGap) * time.Second

	filled := make([]Sample, 0, len(series.Samples))
	runStart := 0

	for i, cur := range series.Samples {
		if i == 0 {
			filled = append(filled, cur)
			continue
		}
		prev := series.Samples[i-1]
		dt := cur.Time.Sub(prev.Time)

		switch {
		case dt <= tolerance:
			// nominal spacing
		case dt <= maxGap:
			n := int(dt/interval) - 1
			spacing := dt / time.Duration(n+1)
			for k := 1; k <= n; k++ {
				frac := float64(k) / float64(n+1)
				filled = append(filled, lerpSample(prev, cur, prev.Time.Add(spacing*time.Duration(k)), frac))
			}
		default:
			out.Gaps = append(out.Gaps, Gap{Start: prev.Time, End: cur.Time, Duration: dt})
			out.Runs = append(out.Runs, Run{Start: runStart, End: len(filled)})
			runStart = len(filled)
		}
		filled = append(filled, cur)
	}

	out.Runs = append(out.Runs, Run{Start: runStart, End: len(filled)})
	out.Samples = filled
	return out
}

// lerpSample builds a synthetic sample at time t with every numeric column
// interpolated at fraction frac between a and b.
func lerpSample(a, b Sample, t time.Time, frac float64) Sample {
	return Sample{
		Time:      t,
		X:         lerp(a.X, b.X, frac),
		Y:         lerp(a.Y, b.Y, frac),
		Elevation: lerp(a.Elevation, b.Elevation, frac),
		Sats:      lerp(a.Sats, b.Sats, frac),
		GDOP:      lerp(a.GDOP, b.GDOP, frac),
	}
}

func lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}
