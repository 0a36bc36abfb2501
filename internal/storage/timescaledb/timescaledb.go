// Package timescaledb persists catalogs to TimescaleDB: run, event, gap, and
// no-data rows through GORM, and the per-sample event columns through COPY
// into a hypertable.
package timescaledb

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/glaciodyn/stickslip/internal/log"
	"github.com/glaciodyn/stickslip/internal/types"
)

// We declare the Tabler interface for purposes of customizing the table name in the DB
type Tabler interface {
	TableName() string
}

// Run is one pipeline run with the parameters that produced it.
type Run struct {
	ID                 string `gorm:"primaryKey"`
	StartedAt          time.Time
	Stations           string
	Years              string
	WindowLen          int
	SlideLen           int
	ActiveStations     int
	PadHours           float64
	CullTimeMinutes    float64
	CullDistanceMeters float64
	MaxGapSeconds      int
	SmoothStation      string
	MinStations        int
	EventCount         int
}

// TableName sets the table name for run records
func (Run) TableName() string { return "catalog_runs" }

// Event is one cataloged stick-slip event.
type Event struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	RunID         string `gorm:"index"`
	StartTime     time.Time
	EndTime       time.Time
	DisplacementM float64
	SampleCount   int
}

// TableName sets the table name for event records
func (Event) TableName() string { return "catalog_events" }

// Gap is one unfilled acquisition gap for a station.
type Gap struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	RunID           string `gorm:"index"`
	Station         string
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds float64
}

// TableName sets the table name for gap records
func (Gap) TableName() string { return "catalog_gaps" }

// NoDataSpan is a period with too few active stations.
type NoDataSpan struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"index"`
	StartTime time.Time
	EndTime   time.Time
}

// TableName sets the table name for no-data records
func (NoDataSpan) TableName() string { return "catalog_nodata" }

// Storage holds the connections for a TimescaleDB storage backend
type Storage struct {
	db   *gorm.DB
	pool *pgxpool.Pool
}

// New connects to TimescaleDB and brings the catalog schema up to date.
func New(ctx context.Context, connectionString string) (*Storage, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TimescaleDB: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&Run{}, &Event{}, &Gap{}, &NoDataSpan{}); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog tables: %w", err)
	}
	if err := db.WithContext(ctx).Exec(createExtensionSQL).Error; err != nil {
		return nil, fmt.Errorf("failed to create TimescaleDB extension: %w", err)
	}
	if err := db.WithContext(ctx).Exec(createSamplesTableSQL).Error; err != nil {
		return nil, fmt.Errorf("failed to create samples table: %w", err)
	}
	if err := db.WithContext(ctx).Exec(createHypertableSQL).Error; err != nil {
		return nil, fmt.Errorf("failed to create hypertable: %w", err)
	}

	// Samples go through COPY, which GORM does not speak.
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &Storage{db: db, pool: pool}, nil
}

// Name identifies the backend.
func (s *Storage) Name() string { return "timescaledb" }

// StoreRun writes the run rows through GORM and bulk-copies the event
// samples into the hypertable.
func (s *Storage) StoreRun(ctx context.Context, result *types.Result) error {
	p := result.Params
	run := Run{
		ID:                 result.RunID,
		StartedAt:          result.StartedAt,
		Stations:           strings.Join(result.Stations, ","),
		Years:              joinInts(result.Years),
		WindowLen:          p.Window,
		SlideLen:           p.Slide,
		ActiveStations:     p.ActiveStations,
		PadHours:           p.PadHours,
		CullTimeMinutes:    p.CullTimeMinutes,
		CullDistanceMeters: p.CullDistanceMeters,
		MaxGapSeconds:      p.MaxGapSeconds,
		SmoothStation:      p.SmoothStation,
		MinStations:        p.MinStations,
		EventCount:         len(result.Catalog.Events),
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}

	var rows [][]interface{}
	for _, ev := range result.Catalog.Events {
		event := Event{
			RunID:         result.RunID,
			StartTime:     ev.Start,
			EndTime:       ev.End,
			DisplacementM: ev.Displacement,
			SampleCount:   len(ev.Times),
		}
		if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
			return fmt.Errorf("failed to store event: %w", err)
		}
		for i, ts := range ev.Times {
			for _, station := range ev.Stations {
				cols := ev.Cols[station]
				rows = append(rows, []interface{}{
					ts, result.RunID, event.ID, station,
					nullFloat(cols.X[i]), nullFloat(cols.Y[i]),
					nullFloat(cols.Res[i]), nullFloat(cols.ResAvg[i]),
				})
			}
		}
	}

	var gaps []Gap
	for station, gs := range result.Gaps {
		for _, g := range gs {
			gaps = append(gaps, Gap{
				RunID:           result.RunID,
				Station:         station,
				StartTime:       g.Start,
				EndTime:         g.End,
				DurationSeconds: g.Duration.Seconds(),
			})
		}
	}
	if len(gaps) > 0 {
		if err := s.db.WithContext(ctx).Create(&gaps).Error; err != nil {
			return fmt.Errorf("failed to store gaps: %w", err)
		}
	}

	var spans []NoDataSpan
	for _, span := range result.NoData {
		spans = append(spans, NoDataSpan{
			RunID:     result.RunID,
			StartTime: span.Start,
			EndTime:   span.End,
		})
	}
	if len(spans) > 0 {
		if err := s.db.WithContext(ctx).Create(&spans).Error; err != nil {
			return fmt.Errorf("failed to store nodata spans: %w", err)
		}
	}

	if len(rows) > 0 {
		if err := s.copySamples(ctx, rows); err != nil {
			return err
		}
	}

	log.Infof("stored run %s to TimescaleDB: %d events, %d sample rows",
		result.RunID, len(result.Catalog.Events), len(rows))
	return nil
}

func (s *Storage) copySamples(ctx context.Context, rows [][]interface{}) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin copy transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	columns := []string{"sample_time", "run_id", "event_id", "station", "x", "y", "residual", "residual_avg"}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"event_samples"}, columns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to copy event samples: %w", err)
	}
	return tx.Commit(ctx)
}

// Close releases both connections.
func (s *Storage) Close() error {
	s.pool.Close()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// nullFloat maps NaN to NULL for rows where a station has no data.
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
