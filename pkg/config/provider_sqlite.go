package config

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/glaciodyn/stickslip/pkg/migrate"
)

// schemaMigrations is the full schema history for configuration databases.
// New databases replay it from the start; older ones pick up where they left
// off.
var schemaMigrations = []migrate.Migration{
	{
		Version: 1,
		Name:    "initial schema",
		SQL: `
		CREATE TABLE configs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL DEFAULT 'default',
			data_root TEXT NOT NULL,
			cache_dir TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE config_years (
			config_id INTEGER NOT NULL,
			year INTEGER NOT NULL,
			UNIQUE(config_id, year)
		);
		CREATE TABLE stations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			config_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			interval INTEGER NOT NULL DEFAULT 15,
			UNIQUE(config_id, name)
		);
		CREATE TABLE station_year_intervals (
			station_id INTEGER NOT NULL,
			year INTEGER NOT NULL,
			interval INTEGER NOT NULL,
			UNIQUE(station_id, year)
		);
		CREATE TABLE pipeline_configs (
			config_id INTEGER PRIMARY KEY,
			window_len INTEGER NOT NULL,
			slide_len INTEGER NOT NULL,
			active_stations INTEGER NOT NULL,
			pad_hours REAL NOT NULL,
			cull_time_minutes REAL NOT NULL,
			cull_distance_meters REAL NOT NULL,
			max_gap_seconds INTEGER NOT NULL,
			smooth_station TEXT,
			min_stations INTEGER NOT NULL
		);
		CREATE TABLE storage_configs (
			config_id INTEGER NOT NULL,
			backend TEXT NOT NULL,
			tsv_directory TEXT,
			sqlite_path TEXT,
			timescale_connection_string TEXT,
			influx_url TEXT,
			influx_token TEXT,
			influx_org TEXT,
			influx_bucket TEXT,
			UNIQUE(config_id, backend)
		);
		`,
	},
}

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens (creating and migrating if necessary) a SQLite
// configuration database.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if err := migrate.New(db, "sqlite", schemaMigrations).Up(); err != nil {
		return nil, fmt.Errorf("failed to migrate config schema: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from the database.
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	var id int64
	var cacheDir sql.NullString
	err := s.db.QueryRow(
		"SELECT id, data_root, cache_dir FROM configs WHERE name = 'default'",
	).Scan(&id, &config.DataRoot, &cacheDir)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no configuration named 'default' in %s", s.dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config row: %w", err)
	}
	config.CacheDir = cacheDir.String

	rows, err := s.db.Query("SELECT year FROM config_years WHERE config_id = ? ORDER BY year", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query years: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, err
		}
		config.Years = append(config.Years, year)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stations, err := s.GetStations()
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}
	config.Stations = stations

	pipeline, err := s.GetPipelineConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline config: %w", err)
	}
	config.Pipeline = *pipeline

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	return config, nil
}

// GetStations returns station configurations from the database
func (s *SQLiteProvider) GetStations() ([]StationData, error) {
	query := `
		SELECT id, name, interval
		FROM stations
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
		ORDER BY name
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []StationData
	ids := make(map[int64]int)
	for rows.Next() {
		var id int64
		var station StationData
		if err := rows.Scan(&id, &station.Name, &station.Interval); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		ids[id] = len(stations)
		stations = append(stations, station)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ivRows, err := s.db.Query(`
		SELECT station_id, year, interval FROM station_year_intervals
		WHERE station_id IN (
			SELECT id FROM stations
			WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query interval overrides: %w", err)
	}
	defer ivRows.Close()
	for ivRows.Next() {
		var stationID int64
		var year, interval int
		if err := ivRows.Scan(&stationID, &year, &interval); err != nil {
			return nil, err
		}
		i, ok := ids[stationID]
		if !ok {
			continue
		}
		if stations[i].YearIntervals == nil {
			stations[i].YearIntervals = make(map[int]int)
		}
		stations[i].YearIntervals[year] = interval
	}
	return stations, ivRows.Err()
}

// GetPipelineConfig returns the detection parameters from the database. A
// database without a pipeline row yields the zero value for the defaults to
// fill in.
func (s *SQLiteProvider) GetPipelineConfig() (*PipelineData, error) {
	query := `
		SELECT window_len, slide_len, active_stations, pad_hours,
		       cull_time_minutes, cull_distance_meters, max_gap_seconds,
		       smooth_station, min_stations
		FROM pipeline_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`
	var p PipelineData
	var smooth sql.NullString
	err := s.db.QueryRow(query).Scan(
		&p.Window, &p.Slide, &p.ActiveStations, &p.PadHours,
		&p.CullTimeMinutes, &p.CullDistanceMeters, &p.MaxGapSeconds,
		&smooth, &p.MinStations,
	)
	if err == sql.ErrNoRows {
		return &PipelineData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pipeline config: %w", err)
	}
	p.SmoothStation = smooth.String
	return &p, nil
}

// GetStorageConfig returns storage configuration from the database
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	query := `
		SELECT backend, tsv_directory, sqlite_path, timescale_connection_string,
		       influx_url, influx_token, influx_org, influx_bucket
		FROM storage_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage configs: %w", err)
	}
	defer rows.Close()

	storage := &StorageData{}
	for rows.Next() {
		var backend string
		var tsvDir, sqlitePath, connStr sql.NullString
		var url, token, org, bucket sql.NullString
		if err := rows.Scan(&backend, &tsvDir, &sqlitePath, &connStr,
			&url, &token, &org, &bucket); err != nil {
			return nil, fmt.Errorf("failed to scan storage config: %w", err)
		}
		switch backend {
		case "tsvdir":
			storage.TSVDir = &TSVDirData{Directory: tsvDir.String}
		case "sqlite":
			storage.SQLite = &SQLiteData{Path: sqlitePath.String}
		case "timescaledb":
			storage.TimescaleDB = &TimescaleDBData{ConnectionString: connStr.String}
		case "influxdb":
			storage.InfluxDB = &InfluxDBData{
				URL:    url.String,
				Token:  token.String,
				Org:    org.String,
				Bucket: bucket.String,
			}
		default:
			return nil, fmt.Errorf("unknown storage backend %q in database", backend)
		}
	}
	return storage, rows.Err()
}

// SaveConfig replaces the default configuration with the given one.
func (s *SQLiteProvider) SaveConfig(config *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldID int64
	err = tx.QueryRow("SELECT id FROM configs WHERE name = 'default'").Scan(&oldID)
	switch {
	case err == sql.ErrNoRows:
		// first save
	case err != nil:
		return fmt.Errorf("failed to look up existing config: %w", err)
	default:
		stmts := []string{
			"DELETE FROM station_year_intervals WHERE station_id IN (SELECT id FROM stations WHERE config_id = ?)",
			"DELETE FROM stations WHERE config_id = ?",
			"DELETE FROM config_years WHERE config_id = ?",
			"DELETE FROM pipeline_configs WHERE config_id = ?",
			"DELETE FROM storage_configs WHERE config_id = ?",
			"DELETE FROM configs WHERE id = ?",
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt, oldID); err != nil {
				return fmt.Errorf("failed to clear existing config: %w", err)
			}
		}
	}

	res, err := tx.Exec(
		"INSERT INTO configs (name, data_root, cache_dir) VALUES ('default', ?, ?)",
		config.DataRoot, nullable(config.CacheDir),
	)
	if err != nil {
		return fmt.Errorf("failed to insert config row: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, year := range config.Years {
		if _, err := tx.Exec(
			"INSERT INTO config_years (config_id, year) VALUES (?, ?)", id, year,
		); err != nil {
			return fmt.Errorf("failed to insert year %d: %w", year, err)
		}
	}

	for _, station := range config.Stations {
		res, err := tx.Exec(
			"INSERT INTO stations (config_id, name, interval) VALUES (?, ?, ?)",
			id, station.Name, station.Interval,
		)
		if err != nil {
			return fmt.Errorf("failed to insert station %s: %w", station.Name, err)
		}
		stationID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for year, interval := range station.YearIntervals {
			if _, err := tx.Exec(
				"INSERT INTO station_year_intervals (station_id, year, interval) VALUES (?, ?, ?)",
				stationID, year, interval,
			); err != nil {
				return fmt.Errorf("failed to insert interval override: %w", err)
			}
		}
	}

	p := config.Pipeline
	if _, err := tx.Exec(`
		INSERT INTO pipeline_configs (
			config_id, window_len, slide_len, active_stations, pad_hours,
			cull_time_minutes, cull_distance_meters, max_gap_seconds,
			smooth_station, min_stations
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Window, p.Slide, p.ActiveStations, p.PadHours,
		p.CullTimeMinutes, p.CullDistanceMeters, p.MaxGapSeconds,
		nullable(p.SmoothStation), p.MinStations,
	); err != nil {
		return fmt.Errorf("failed to insert pipeline config: %w", err)
	}

	if st := config.Storage.TSVDir; st != nil {
		if _, err := tx.Exec(
			"INSERT INTO storage_configs (config_id, backend, tsv_directory) VALUES (?, 'tsvdir', ?)",
			id, st.Directory,
		); err != nil {
			return fmt.Errorf("failed to insert tsvdir storage: %w", err)
		}
	}
	if st := config.Storage.SQLite; st != nil {
		if _, err := tx.Exec(
			"INSERT INTO storage_configs (config_id, backend, sqlite_path) VALUES (?, 'sqlite', ?)",
			id, st.Path,
		); err != nil {
			return fmt.Errorf("failed to insert sqlite storage: %w", err)
		}
	}
	if st := config.Storage.TimescaleDB; st != nil {
		if _, err := tx.Exec(
			"INSERT INTO storage_configs (config_id, backend, timescale_connection_string) VALUES (?, 'timescaledb', ?)",
			id, st.ConnectionString,
		); err != nil {
			return fmt.Errorf("failed to insert timescaledb storage: %w", err)
		}
	}
	if st := config.Storage.InfluxDB; st != nil {
		if _, err := tx.Exec(
			`INSERT INTO storage_configs
			 (config_id, backend, influx_url, influx_token, influx_org, influx_bucket)
			 VALUES (?, 'influxdb', ?, ?, ?, ?)`,
			id, st.URL, nullable(st.Token), st.Org, st.Bucket,
		); err != nil {
			return fmt.Errorf("failed to insert influxdb storage: %w", err)
		}
	}

	return tx.Commit()
}

// IsReadOnly returns false since SQLite configurations are writable
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}

// nullable maps empty strings to NULL.
func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
