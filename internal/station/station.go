// Package station assembles raw position series for ground stations from
// yearly directories of .pos solution files.
package station

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/glaciodyn/stickslip/internal/pick"
	"github.com/glaciodyn/stickslip/internal/posfile"
	"github.com/glaciodyn/stickslip/pkg/stereo"
)

// Config selects which station to assemble and where its archive lives.
// Files are expected under <DataRoot>/<Name>/<year>/*.pos.
type Config struct {
	Name     string
	Interval int // nominal sample spacing, seconds
	Years    []int
	DataRoot string
}

// Assembler reads station archives and produces time-ordered series in polar
// stereographic coordinates. Files that no known parser matches are skipped
// with a warning so one bad download never sinks a whole season.
type Assembler struct {
	proj *stereo.Projection
	log  *zap.SugaredLogger
}

// NewAssembler returns an assembler projecting onto the standard Antarctic
// grid.
func NewAssembler(logger *zap.SugaredLogger) *Assembler {
	return &Assembler{proj: stereo.South3031(), log: logger}
}

// Assemble reads every .pos file for the configured years, projects the
// solutions, and returns one series sorted by time with duplicate timestamps
// collapsed. A station with no usable samples is an error so the caller can
// exclude it.
func (a *Assembler) Assemble(cfg Config) (pick.StationSeries, error) {
	series := pick.StationSeries{Name: cfg.Name, Interval: cfg.Interval}

	var files []string
	for _, year := range cfg.Years {
		pattern := filepath.Join(cfg.DataRoot, cfg.Name, strconv.Itoa(year), "*.pos")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return series, fmt.Errorf("station %s: bad pattern %q: %w", cfg.Name, pattern, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return series, fmt.Errorf("station %s: no .pos files under %s for years %v",
			cfg.Name, cfg.DataRoot, cfg.Years)
	}

	var skipped int
	for _, path := range files {
		recs, err := posfile.ParseFile(path)
		if err != nil {
			a.log.Warnf("skipping %s: %v", path, err)
			skipped++
			continue
		}
		for _, rec := range recs {
			x, y := a.proj.Forward(rec.Longitude, rec.Latitude)
			series.Samples = append(series.Samples, pick.Sample{
				Time:      rec.Time,
				X:         x,
				Y:         y,
				Elevation: rec.Elevation,
				Sats:      rec.Sats,
				GDOP:      rec.GDOP,
			})
		}
	}
	if len(series.Samples) == 0 {
		return series, fmt.Errorf("station %s: no usable samples in %d files (%d unparseable)",
			cfg.Name, len(files), skipped)
	}

	sort.SliceStable(series.Samples, func(i, j int) bool {
		return series.Samples[i].Time.Before(series.Samples[j].Time)
	})
	series.Samples = dedupe(series.Samples)

	a.log.Debugw("assembled station series",
		"station", cfg.Name,
		"files", len(files),
		"skipped", skipped,
		"samples", len(series.Samples),
		"start", series.Samples[0].Time,
		"end", series.Samples[len(series.Samples)-1].Time)
	return series, nil
}

// dedupe collapses samples sharing a timestamp, keeping the first. Adjacent
// yearly files occasionally both carry the midnight epoch.
func dedupe(samples []pick.Sample) []pick.Sample {
	out := samples[:1]
	for _, s := range samples[1:] {
		if s.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, s)
	}
	return out
}
