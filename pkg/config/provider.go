// Package config loads pipeline configuration from YAML files or SQLite
// databases behind one provider interface.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetStations() ([]StationData, error)
	GetPipelineConfig() (*PipelineData, error)
	GetStorageConfig() (*StorageData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	DataRoot string        `json:"data_root"`
	CacheDir string        `json:"cache_dir,omitempty"`
	Years    []int         `json:"years"`
	Stations []StationData `json:"stations"`
	Pipeline PipelineData  `json:"pipeline"`
	Storage  StorageData   `json:"storage,omitempty"`
}

// StationData holds configuration for one ground station. YearIntervals
// overrides the nominal sampling interval for archive years recorded at a
// different rate.
type StationData struct {
	Name          string      `json:"name"`
	Interval      int         `json:"interval,omitempty"`
	YearIntervals map[int]int `json:"year_intervals,omitempty"`
}

// IntervalForYears resolves the sampling interval for a season spanning the
// given years: the first year carrying an override wins, otherwise the
// station's nominal interval applies.
func (s StationData) IntervalForYears(years []int) int {
	for _, year := range years {
		if iv, ok := s.YearIntervals[year]; ok {
			return iv
		}
	}
	return s.Interval
}

// PipelineData holds the detection parameters.
type PipelineData struct {
	Window             int     `json:"window"`
	Slide              int     `json:"slide"`
	ActiveStations     int     `json:"active_stations"`
	PadHours           float64 `json:"pad_hours"`
	CullTimeMinutes    float64 `json:"cull_time_minutes"`
	CullDistanceMeters float64 `json:"cull_distance_meters"`
	MaxGapSeconds      int     `json:"max_gap_seconds"`
	SmoothStation      string  `json:"smooth_station,omitempty"`
	MinStations        int     `json:"min_stations"`
}

// StorageData holds the configuration for various storage backends
type StorageData struct {
	TSVDir      *TSVDirData      `json:"tsvdir,omitempty"`
	SQLite      *SQLiteData      `json:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
	InfluxDB    *InfluxDBData    `json:"influxdb,omitempty"`
}

// Storage backend configuration structs
type TSVDirData struct {
	Directory string `json:"directory"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

type InfluxDBData struct {
	URL    string `json:"url"`
	Token  string `json:"token,omitempty"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// Reference detection parameters. Omitted config fields fall back to these.
const (
	DefaultInterval           = 15
	DefaultWindow             = 600
	DefaultSlide              = 25
	DefaultActiveStations     = 2
	DefaultPadHours           = 0.5
	DefaultCullTimeMinutes    = 30.0
	DefaultCullDistanceMeters = 0.1
	DefaultMaxGapSeconds      = 120
	DefaultMinStations        = 1
	DefaultEventsDirectory    = "events"
)

// ApplyDefaults fills zero-valued fields with the reference parameters. A
// configuration with no storage backend at all gets a TSV directory so a run
// always lands somewhere.
func (c *ConfigData) ApplyDefaults() {
	for i := range c.Stations {
		if c.Stations[i].Interval == 0 {
			c.Stations[i].Interval = DefaultInterval
		}
	}
	p := &c.Pipeline
	if p.Window == 0 {
		p.Window = DefaultWindow
	}
	if p.Slide == 0 {
		p.Slide = DefaultSlide
	}
	if p.ActiveStations == 0 {
		p.ActiveStations = DefaultActiveStations
	}
	if p.PadHours == 0 {
		p.PadHours = DefaultPadHours
	}
	if p.CullTimeMinutes == 0 {
		p.CullTimeMinutes = DefaultCullTimeMinutes
	}
	if p.CullDistanceMeters == 0 {
		p.CullDistanceMeters = DefaultCullDistanceMeters
	}
	if p.MaxGapSeconds == 0 {
		p.MaxGapSeconds = DefaultMaxGapSeconds
	}
	if p.MinStations == 0 {
		p.MinStations = DefaultMinStations
	}
	s := &c.Storage
	if s.TSVDir == nil && s.SQLite == nil && s.TimescaleDB == nil && s.InfluxDB == nil {
		s.TSVDir = &TSVDirData{Directory: DefaultEventsDirectory}
	}
}

// Validate reports the first problem that would sink a run.
func (c *ConfigData) Validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("data-root is required")
	}
	if len(c.Years) == 0 {
		return fmt.Errorf("at least one year is required")
	}
	if len(c.Stations) == 0 {
		return fmt.Errorf("at least one station is required")
	}
	seen := make(map[string]bool, len(c.Stations))
	for _, st := range c.Stations {
		if st.Name == "" {
			return fmt.Errorf("station with empty name")
		}
		if seen[st.Name] {
			return fmt.Errorf("station %q configured twice", st.Name)
		}
		seen[st.Name] = true
		if st.Interval <= 0 {
			return fmt.Errorf("station %q: interval must be positive", st.Name)
		}
		for year, iv := range st.YearIntervals {
			if iv <= 0 {
				return fmt.Errorf("station %q: interval override for %d must be positive", st.Name, year)
			}
		}
	}
	p := c.Pipeline
	if p.Window <= 0 || p.Slide <= 0 {
		return fmt.Errorf("window and slide must be positive")
	}
	if p.Slide > p.Window {
		return fmt.Errorf("slide %d exceeds window %d", p.Slide, p.Window)
	}
	if p.ActiveStations < 1 {
		return fmt.Errorf("active-stations must be at least 1")
	}
	if p.PadHours < 0 {
		return fmt.Errorf("pad-hours must not be negative")
	}
	if p.CullTimeMinutes < 0 || p.CullDistanceMeters < 0 {
		return fmt.Errorf("cull limits must not be negative")
	}
	if p.MaxGapSeconds <= 0 {
		return fmt.Errorf("max-gap-seconds must be positive")
	}
	if p.MinStations < 1 {
		return fmt.Errorf("min-stations must be at least 1")
	}
	if p.SmoothStation != "" && !seen[p.SmoothStation] {
		return fmt.Errorf("smooth-station %q is not a configured station", p.SmoothStation)
	}
	s := c.Storage
	if s.TSVDir != nil && s.TSVDir.Directory == "" {
		return fmt.Errorf("tsvdir storage: directory is required")
	}
	if s.SQLite != nil && s.SQLite.Path == "" {
		return fmt.Errorf("sqlite storage: path is required")
	}
	if s.TimescaleDB != nil && s.TimescaleDB.ConnectionString == "" {
		return fmt.Errorf("timescaledb storage: connection-string is required")
	}
	if s.InfluxDB != nil {
		if s.InfluxDB.URL == "" || s.InfluxDB.Org == "" || s.InfluxDB.Bucket == "" {
			return fmt.Errorf("influxdb storage: url, org and bucket are required")
		}
	}
	return nil
}

// StationNames returns the configured station names in order.
func (c *ConfigData) StationNames() []string {
	names := make([]string, len(c.Stations))
	for i, st := range c.Stations {
		names[i] = st.Name
	}
	return names
}

// NewProvider opens the provider matching the backend name. An empty backend
// is inferred from the path extension; anything that is not a SQLite
// database is treated as YAML.
func NewProvider(path, backend string) (ConfigProvider, error) {
	if backend == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".db", ".sqlite", ".sqlite3":
			backend = "sqlite"
		default:
			backend = "yaml"
		}
	}
	switch backend {
	case "yaml":
		return NewYAMLProvider(path), nil
	case "sqlite":
		return NewSQLiteProvider(path)
	default:
		return nil, fmt.Errorf("unknown config backend %q", backend)
	}
}
