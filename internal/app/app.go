// Package app wires configuration, station assembly, the detection pipeline,
// and storage into a single catalog run.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/glaciodyn/stickslip/internal/managers"
	"github.com/glaciodyn/stickslip/internal/pick"
	"github.com/glaciodyn/stickslip/internal/snapshot"
	"github.com/glaciodyn/stickslip/internal/station"
	"github.com/glaciodyn/stickslip/internal/types"
	"github.com/glaciodyn/stickslip/pkg/config"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run executes one catalog run and blocks until it completes: assemble every
// configured station, fill and window each series in parallel, merge the
// results onto one timeline, detect and cull events, then fan the catalog out
// to the configured storage backends.
func (a *App) Run(ctx context.Context) error {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	p := cfg.Pipeline

	runID := uuid.NewString()
	startedAt := time.Now().UTC()

	a.logger.Infow("starting catalog run",
		"run_id", runID,
		"stations", cfg.StationNames(),
		"years", cfg.Years)

	storageManager, err := managers.NewStorageManager(ctx, &cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := storageManager.Close(); err != nil {
			a.logger.Warnf("closing storage backends: %v", err)
		}
	}()

	var cache *snapshot.Store
	if cfg.CacheDir != "" {
		cache, err = snapshot.New(cfg.CacheDir, a.logger)
		if err != nil {
			return fmt.Errorf("could not open snapshot cache: %w", err)
		}
	}

	// Each station's series is independent until the merge, so assembly,
	// gap-filling, and windowing all run in parallel. A station that cannot
	// be assembled is logged and excluded; a windowing error is a
	// configuration problem and aborts the run.
	results := make([]*pick.StationResult, len(cfg.Stations))
	assembler := station.NewAssembler(a.logger)
	g, gctx := errgroup.WithContext(ctx)
	for i, st := range cfg.Stations {
		i, st := i, st
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			interval := st.IntervalForYears(cfg.Years)

			var key string
			if cache != nil {
				key = snapshot.Key(st.Name, cfg.Years, interval, p.Window, p.Slide, p.MaxGapSeconds)
				if cached, ok := cache.Load(st.Name, key); ok {
					a.logger.Debugw("snapshot hit", "station", st.Name, "key", key)
					results[i] = cached
					return nil
				}
			}

			series, err := assembler.Assemble(station.Config{
				Name:     st.Name,
				Interval: interval,
				Years:    cfg.Years,
				DataRoot: cfg.DataRoot,
			})
			if err != nil {
				a.logger.Warnf("excluding station %s: %v", st.Name, err)
				return nil
			}

			filled := pick.NewGapFiller(p.MaxGapSeconds).Fill(series)
			result, err := pick.NewResidualEstimator(p.Window, p.Slide).Estimate(filled)
			if err != nil {
				return fmt.Errorf("station %s: %w", st.Name, err)
			}

			if cache != nil {
				if err := cache.Save(st.Name, key, result); err != nil {
					a.logger.Warnf("could not snapshot station %s: %v", st.Name, err)
				}
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	usable := make([]*pick.StationResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return fmt.Errorf("no station produced usable data for years %v", cfg.Years)
	}

	timeline := pick.NewMerger(p.SmoothStation).Merge(usable)
	detection := pick.NewDetector(p.ActiveStations, p.PadHours).Detect(timeline)
	catalog := pick.NewBuilder(p.CullTimeMinutes, p.CullDistanceMeters).Build(timeline, detection, runID)
	noData := pick.NoDataReport(usable, p.MinStations)

	stations := make([]string, 0, len(usable))
	gaps := make(map[string][]pick.Gap, len(usable))
	for _, r := range usable {
		stations = append(stations, r.Station)
		if len(r.Gaps) > 0 {
			gaps[r.Station] = r.Gaps
		}
	}

	result := &types.Result{
		RunID:     runID,
		StartedAt: startedAt,
		Stations:  stations,
		Years:     cfg.Years,
		Params: types.RunParams{
			Window:             p.Window,
			Slide:              p.Slide,
			ActiveStations:     p.ActiveStations,
			PadHours:           p.PadHours,
			CullTimeMinutes:    p.CullTimeMinutes,
			CullDistanceMeters: p.CullDistanceMeters,
			MaxGapSeconds:      p.MaxGapSeconds,
			SmoothStation:      p.SmoothStation,
			MinStations:        p.MinStations,
		},
		Catalog:   catalog,
		Timeline:  timeline,
		Detection: detection,
		Gaps:      gaps,
		NoData:    noData,
	}

	if err := storageManager.StoreRun(ctx, result); err != nil {
		return fmt.Errorf("could not store run: %w", err)
	}

	a.logger.Infow("catalog run complete",
		"run_id", runID,
		"stations", stations,
		"rows", len(timeline.Times),
		"events", len(catalog.Events),
		"nodata_spans", len(noData),
		"elapsed", time.Since(startedAt).Round(time.Millisecond))

	return nil
}
