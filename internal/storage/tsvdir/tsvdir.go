// Package tsvdir writes catalog events as tab-separated files in a flat
// directory, one file per event, plus a JSON manifest describing the run.
package tsvdir

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/glaciodyn/stickslip/internal/log"
	"github.com/glaciodyn/stickslip/internal/pick"
	"github.com/glaciodyn/stickslip/internal/types"
)

const timeLayout = "2006-01-02 15:04:05"

// Storage writes events beneath a single directory.
type Storage struct {
	dir string
}

// New creates the output directory if needed and returns the engine.
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create events directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Name identifies the backend.
func (s *Storage) Name() string { return "tsvdir" }

// StoreRun writes one file per event, a no-data summary, and the run
// manifest.
func (s *Storage) StoreRun(ctx context.Context, result *types.Result) error {
	m := manifest{
		RunID:     result.RunID,
		StartedAt: result.StartedAt,
		Stations:  result.Stations,
		Years:     result.Years,
		Params:    result.Params,
	}

	for _, ev := range result.Catalog.Events {
		name, err := s.writeEvent(ev)
		if err != nil {
			return err
		}
		m.Events = append(m.Events, manifestEvent{
			Start:        ev.Start,
			End:          ev.End,
			Displacement: ev.Displacement,
			Samples:      len(ev.Times),
			File:         name,
		})
	}

	if err := s.writeNoData(result.NoData); err != nil {
		return err
	}

	for station, gaps := range result.Gaps {
		for _, gap := range gaps {
			if m.Gaps == nil {
				m.Gaps = make(map[string][]manifestGap)
			}
			m.Gaps[station] = append(m.Gaps[station], manifestGap{
				Start:           gap.Start,
				End:             gap.End,
				DurationSeconds: gap.Duration.Seconds(),
			})
		}
	}
	for _, span := range result.NoData {
		m.NoData = append(m.NoData, manifestSpan{Start: span.Start, End: span.End})
	}

	if err := s.writeManifest(&m); err != nil {
		return err
	}

	log.Infof("wrote %d events to %s", len(result.Catalog.Events), s.dir)
	return nil
}

// Close is a no-op for directory storage.
func (s *Storage) Close() error { return nil }

// writeEvent writes one event as a TSV named for its start time, with a time
// column followed by x/y/res/resavg columns per station. Missing values are
// written as NaN.
func (s *Storage) writeEvent(ev pick.Event) (string, error) {
	name := ev.Start.UTC().Format("20060102T150405") + ".tsv"
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create event file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'

	header := []string{"time"}
	for _, st := range ev.Stations {
		header = append(header,
			st+"_x", st+"_y", st+"_res", st+"_resavg")
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	row := make([]string, len(header))
	for i, t := range ev.Times {
		row[0] = t.UTC().Format(timeLayout)
		col := 1
		for _, st := range ev.Stations {
			cols := ev.Cols[st]
			row[col] = formatFloat(cols.X[i])
			row[col+1] = formatFloat(cols.Y[i])
			row[col+2] = formatFloat(cols.Res[i])
			row[col+3] = formatFloat(cols.ResAvg[i])
			col += 4
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write event %s: %w", name, err)
	}
	return name, f.Close()
}

func (s *Storage) writeNoData(spans []pick.NoDataSpan) error {
	f, err := os.Create(filepath.Join(s.dir, "nodata.csv"))
	if err != nil {
		return fmt.Errorf("failed to create nodata file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"start", "end"}); err != nil {
		return err
	}
	for _, span := range spans {
		rec := []string{
			span.Start.UTC().Format(timeLayout),
			span.End.UTC().Format(timeLayout),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write nodata file: %w", err)
	}
	return f.Close()
}

func (s *Storage) writeManifest(m *manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	name := filepath.Join(s.dir, "manifest-"+m.RunID+".json")
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type manifest struct {
	RunID     string                   `json:"run_id"`
	StartedAt time.Time                `json:"started_at"`
	Stations  []string                 `json:"stations"`
	Years     []int                    `json:"years"`
	Params    types.RunParams          `json:"params"`
	Events    []manifestEvent          `json:"events"`
	Gaps      map[string][]manifestGap `json:"gaps,omitempty"`
	NoData    []manifestSpan           `json:"nodata,omitempty"`
}

type manifestEvent struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Displacement float64   `json:"displacement_m"`
	Samples      int       `json:"samples"`
	File         string    `json:"file"`
}

type manifestGap struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationSeconds float64   `json:"duration_seconds"`
}

type manifestSpan struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
