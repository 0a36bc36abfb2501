// Package managers wires configured storage backends together and fans
// completed runs out to all of them.
package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/glaciodyn/stickslip/internal/log"
	"github.com/glaciodyn/stickslip/internal/storage"
	"github.com/glaciodyn/stickslip/internal/types"
	"github.com/glaciodyn/stickslip/pkg/config"
)

// StorageManager holds our active storage backends
type StorageManager struct {
	Engines []storage.Engine
}

// NewStorageManager creates a StorageManager object, populated with all
// configured storage engines
func NewStorageManager(ctx context.Context, cfg *config.StorageData) (*StorageManager, error) {
	s := &StorageManager{}

	// Check the configuration for the supported storage backends and
	// enable them if found
	if cfg.TSVDir != nil {
		if err := s.AddEngine(ctx, "tsvdir", cfg); err != nil {
			return s, fmt.Errorf("could not add TSV directory storage backend: %w", err)
		}
	}

	if cfg.SQLite != nil {
		if err := s.AddEngine(ctx, "sqlite", cfg); err != nil {
			return s, fmt.Errorf("could not add SQLite storage backend: %w", err)
		}
	}

	if cfg.TimescaleDB != nil {
		if err := s.AddEngine(ctx, "timescaledb", cfg); err != nil {
			return s, fmt.Errorf("could not add TimescaleDB storage backend: %w", err)
		}
	}

	if cfg.InfluxDB != nil {
		if err := s.AddEngine(ctx, "influxdb", cfg); err != nil {
			return s, fmt.Errorf("could not add InfluxDB storage backend: %w", err)
		}
	}

	if len(s.Engines) == 0 {
		return s, fmt.Errorf("no storage backends configured")
	}

	return s, nil
}

// AddEngine adds a new storage engine of name engineName to the manager
func (s *StorageManager) AddEngine(ctx context.Context, engineName string, cfg *config.StorageData) error {
	var engine storage.Engine
	var err error

	switch engineName {
	case "tsvdir":
		engine, err = storage.NewTSVDirStorage(cfg.TSVDir.Directory)
	case "sqlite":
		engine, err = storage.NewSQLiteStorage(cfg.SQLite.Path)
	case "timescaledb":
		engine, err = storage.NewTimescaleDBStorage(ctx, cfg.TimescaleDB.ConnectionString)
	case "influxdb":
		engine, err = storage.NewInfluxDBStorage(ctx, cfg.InfluxDB)
	default:
		return fmt.Errorf("unknown storage engine %q", engineName)
	}
	if err != nil {
		return err
	}

	s.Engines = append(s.Engines, engine)
	return nil
}

// StoreRun fans the completed run out to every backend concurrently and
// reports the first failure.
func (s *StorageManager) StoreRun(ctx context.Context, result *types.Result) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, engine := range s.Engines {
		engine := engine
		g.Go(func() error {
			start := time.Now()
			if err := engine.StoreRun(ctx, result); err != nil {
				return fmt.Errorf("%s: %w", engine.Name(), err)
			}
			log.Debugf("stored run %s to %s in %s",
				result.RunID, engine.Name(), time.Since(start).Round(time.Millisecond))
			return nil
		})
	}
	return g.Wait()
}

// Close closes every backend, reporting all failures.
func (s *StorageManager) Close() error {
	var errs []error
	for _, engine := range s.Engines {
		if err := engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", engine.Name(), err))
		}
	}
	return errors.Join(errs...)
}
