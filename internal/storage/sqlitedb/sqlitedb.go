// Package sqlitedb persists catalogs to a self-contained SQLite file: runs,
// events, per-sample event columns, gaps, and no-data spans.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/glaciodyn/stickslip/internal/log"
	"github.com/glaciodyn/stickslip/internal/types"
	"github.com/glaciodyn/stickslip/pkg/migrate"
)

var schemaMigrations = []migrate.Migration{
	{
		Version: 1,
		Name:    "initial schema",
		SQL: `
		CREATE TABLE runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			stations TEXT NOT NULL,
			years TEXT NOT NULL,
			window_len INTEGER NOT NULL,
			slide_len INTEGER NOT NULL,
			active_stations INTEGER NOT NULL,
			pad_hours REAL NOT NULL,
			cull_time_minutes REAL NOT NULL,
			cull_distance_meters REAL NOT NULL,
			max_gap_seconds INTEGER NOT NULL,
			smooth_station TEXT,
			min_stations INTEGER NOT NULL,
			event_count INTEGER NOT NULL
		);
		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			displacement_m REAL NOT NULL,
			sample_count INTEGER NOT NULL
		);
		CREATE INDEX idx_events_run ON events(run_id, start_time);
		CREATE TABLE event_samples (
			event_id INTEGER NOT NULL,
			station TEXT NOT NULL,
			sample_time DATETIME NOT NULL,
			x REAL,
			y REAL,
			residual REAL,
			residual_avg REAL
		);
		CREATE INDEX idx_event_samples_event ON event_samples(event_id, station, sample_time);
		CREATE TABLE gaps (
			run_id TEXT NOT NULL,
			station TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			duration_seconds REAL NOT NULL
		);
		CREATE TABLE nodata_spans (
			run_id TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL
		);
		`,
	},
}

// Storage is the SQLite catalog backend.
type Storage struct {
	db *sql.DB
}

// New opens (creating and migrating if necessary) the catalog database.
func New(path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if err := migrate.New(db, "sqlite", schemaMigrations).Up(); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Name identifies the backend.
func (s *Storage) Name() string { return "sqlite" }

// StoreRun writes the run and everything hanging off it in one transaction.
func (s *Storage) StoreRun(ctx context.Context, result *types.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p := result.Params
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, started_at, stations, years, window_len, slide_len,
			active_stations, pad_hours, cull_time_minutes, cull_distance_meters,
			max_gap_seconds, smooth_station, min_stations, event_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.StartedAt, strings.Join(result.Stations, ","),
		joinInts(result.Years), p.Window, p.Slide, p.ActiveStations, p.PadHours,
		p.CullTimeMinutes, p.CullDistanceMeters, p.MaxGapSeconds,
		p.SmoothStation, p.MinStations, len(result.Catalog.Events),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	sampleStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO event_samples (event_id, station, sample_time, x, y, residual, residual_avg)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer sampleStmt.Close()

	for _, ev := range result.Catalog.Events {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO events (run_id, start_time, end_time, displacement_m, sample_count)
			VALUES (?, ?, ?, ?, ?)`,
			result.RunID, ev.Start, ev.End, ev.Displacement, len(ev.Times),
		)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
		eventID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for i, t := range ev.Times {
			for _, station := range ev.Stations {
				cols := ev.Cols[station]
				_, err := sampleStmt.ExecContext(ctx, eventID, station, t,
					nullFloat(cols.X[i]), nullFloat(cols.Y[i]),
					nullFloat(cols.Res[i]), nullFloat(cols.ResAvg[i]))
				if err != nil {
					return fmt.Errorf("failed to insert event sample: %w", err)
				}
			}
		}
	}

	for station, gaps := range result.Gaps {
		for _, gap := range gaps {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO gaps (run_id, station, start_time, end_time, duration_seconds)
				VALUES (?, ?, ?, ?, ?)`,
				result.RunID, station, gap.Start, gap.End, gap.Duration.Seconds(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert gap: %w", err)
			}
		}
	}

	for _, span := range result.NoData {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO nodata_spans (run_id, start_time, end_time)
			VALUES (?, ?, ?)`,
			result.RunID, span.Start, span.End,
		)
		if err != nil {
			return fmt.Errorf("failed to insert nodata span: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	log.Infof("stored run %s: %d events", result.RunID, len(result.Catalog.Events))
	return nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// nullFloat maps NaN to NULL. Merged columns use NaN where a station has no
// data; SQL gets NULL instead.
func nullFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
