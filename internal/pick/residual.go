package pick

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErrIncrementSlide is the configuration error raised when the window length
// is not an integer multiple of the slide step after rate normalization. It
// is fatal and never coerced.
var ErrIncrementSlide = errors.New("increment/slide not an integer")

// ResidualEstimator slides a least-squares fit window across each run of a
// filled series and assigns each sample a residual and a per-run baseline.
// Window and Slide are expressed in reference-interval units so that
// stations with different native rates share the same physical window
// length.
type ResidualEstimator struct {
	Window int
	Slide  int
}

// NewResidualEstimator returns an estimator with a window of the given
// length stepped by slide, both in reference-interval units.
func NewResidualEstimator(window, slide int) *ResidualEstimator {
	return &ResidualEstimator{Window: window, Slide: slide}
}

// Estimate computes the residual series for every run of the filled series.
// Zero-length runs contribute nothing. The returned result carries the gaps
// through for downstream bookkeeping.
func (e *ResidualEstimator) Estimate(fs *FilledSeries) (*StationResult, error) {
	rate := fs.Interval / ReferenceInterval
	if rate < 1 {
		return nil, fmt.Errorf("station %s: sampling interval %ds is below the %ds reference interval",
			fs.Station, fs.Interval, ReferenceInterval)
	}
	inc := e.Window / rate
	sl := e.Slide / rate
	if sl <= 0 || inc%sl != 0 {
		return nil, ErrIncrementSlide
	}

	result := &StationResult{
		Station:  fs.Station,
		Interval: fs.Interval,
		Gaps:     fs.Gaps,
	}
	for _, run := range fs.Runs {
		if run.End-run.Start <= 0 {
			continue
		}
		result.Runs = append(result.Runs, estimateRun(fs.Samples[run.Start:run.End], inc, sl))
	}
	return result, nil
}

// estimateRun produces the parallel arrays for one run: a window residual
// per slide step (ordinary least squares of x against elapsed seconds,
// residual sum of squares of the fit), smeared back onto samples as the
// trailing average of the last increment/slide window residuals, plus the
// scalar mean of that array broadcast as the baseline.
func estimateRun(samples []Sample, inc, sl int) RunSeries {
	n := len(samples)
	rs := RunSeries{
		Times:     make([]time.Time, n),
		X:         make([]float64, n),
		Y:         make([]float64, n),
		Elevation: make([]float64, n),
		Residual:  make([]float64, n),
		Baseline:  make([]float64, n),
	}
	elapsed := make([]float64, n)
	for i, s := range samples {
		rs.Times[i] = s.Time
		rs.X[i] = s.X
		rs.Y[i] = s.Y
		rs.Elevation[i] = s.Elevation
		elapsed[i] = float64(s.Time.Unix()) + float64(s.Time.Nanosecond())/1e9
	}

	k := inc / sl
	numWindows := n/sl - k
	if numWindows < 0 {
		numWindows = 0
	}
	windowRes := make([]float64, numWindows)
	for w := 0; w < numWindows; w++ {
		lo := w * sl
		hi := lo + inc
		alpha, beta := stat.LinearRegression(elapsed[lo:hi], rs.X[lo:hi], nil, false)
		var rss float64
		for i := lo; i < hi; i++ {
			d := rs.X[i] - (alpha + beta*elapsed[i])
			rss += d * d
		}
		windowRes[w] = rss
	}

	// Warm-up steps (fewer than k prior windows) and the tail beyond the
	// last window keep residual 0.
	for s := k; s < numWindows; s++ {
		avg := stat.Mean(windowRes[s-k:s], nil)
		lo := s * sl
		for i := lo; i < lo+sl; i++ {
			rs.Residual[i] = avg
		}
	}

	base := stat.Mean(rs.Residual, nil)
	for i := range rs.Baseline {
		rs.Baseline[i] = base
	}
	return rs
}
