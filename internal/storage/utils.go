package storage

import (
	"context"

	"github.com/glaciodyn/stickslip/internal/storage/influxdb"
	"github.com/glaciodyn/stickslip/internal/storage/sqlitedb"
	"github.com/glaciodyn/stickslip/internal/storage/timescaledb"
	"github.com/glaciodyn/stickslip/internal/storage/tsvdir"
	"github.com/glaciodyn/stickslip/pkg/config"
)

// NewTSVDirStorage sets up a new flat-directory TSV storage backend
func NewTSVDirStorage(dir string) (Engine, error) {
	return tsvdir.New(dir)
}

// NewSQLiteStorage sets up a new SQLite catalog storage backend
func NewSQLiteStorage(path string) (Engine, error) {
	return sqlitedb.New(path)
}

// NewTimescaleDBStorage sets up a new TimescaleDB storage backend
func NewTimescaleDBStorage(ctx context.Context, connectionString string) (Engine, error) {
	return timescaledb.New(ctx, connectionString)
}

// NewInfluxDBStorage sets up a new InfluxDB storage backend
func NewInfluxDBStorage(ctx context.Context, cfg *config.InfluxDBData) (Engine, error) {
	return influxdb.New(ctx, cfg)
}
