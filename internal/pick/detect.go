package pick

import "math"

// Detector classifies merged rows as active. A row is a raw candidate when
// the summed residual exceeds the summed baseline and enough stations report
// position data; raw candidates are then padded on both sides. The summed
// baseline acts as a per-row dynamic threshold, so dropouts and trend shifts
// move the bar instead of mis-firing a fixed global one.
type Detector struct {
	ActiveStations int
	HrOff          float64 // padding on each side of a raw candidate, hours
}

// NewDetector returns a detector requiring activeStations reporting stations
// and padding candidates by hrOff hours on each side.
func NewDetector(activeStations int, hrOff float64) *Detector {
	return &Detector{ActiveStations: activeStations, HrOff: hrOff}
}

// Detect computes the padded active mask for the timeline. The per-row sums
// and active-station counts are retained for diagnostics. Missing values are
// excluded from sums; a row with no data at all sums to zero.
func (d *Detector) Detect(tl *MergedTimeline) *Detection {
	n := len(tl.Times)
	det := &Detection{
		Mask:        make([]bool, n),
		ResSum:      make([]float64, n),
		Thresh:      make([]float64, n),
		ActiveCount: make([]int, n),
		Pad:         int(d.HrOff * 3600 / ReferenceInterval),
	}

	for r := 0; r < n; r++ {
		var ressum, thresh float64
		var active int
		for _, sta := range tl.Stations {
			cols := tl.Cols[sta]
			if v := cols.Res[r]; !math.IsNaN(v) {
				ressum += v
			}
			if v := cols.ResAvg[r]; !math.IsNaN(v) {
				thresh += v
			}
			if !math.IsNaN(cols.X[r]) {
				active++
			}
		}
		det.ResSum[r] = ressum
		det.Thresh[r] = thresh
		det.ActiveCount[r] = active
	}

	raw := make([]bool, n)
	for r := 0; r < n; r++ {
		raw[r] = det.ResSum[r] > det.Thresh[r] && det.ActiveCount[r] >= d.ActiveStations
	}

	// Padding reads the frozen raw mask, so one candidate's padding never
	// cascades through another's.
	for r, hot := range raw {
		if !hot {
			continue
		}
		lo, hi := r, r+1
		if det.Pad > 0 {
			lo = r - det.Pad + 1
			hi = r + det.Pad
		}
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		for i := lo; i < hi; i++ {
			det.Mask[i] = true
		}
	}
	return det
}
