package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	var yamlConfig configYAML
	if err := yaml.Unmarshal(cfgFile, &yamlConfig); err != nil {
		return nil, err
	}

	config := &ConfigData{
		DataRoot: yamlConfig.DataRoot,
		CacheDir: yamlConfig.CacheDir,
		Years:    yamlConfig.Years,
		Stations: make([]StationData, len(yamlConfig.Stations)),
		Pipeline: PipelineData{
			Window:             yamlConfig.Pipeline.Window,
			Slide:              yamlConfig.Pipeline.Slide,
			ActiveStations:     yamlConfig.Pipeline.ActiveStations,
			PadHours:           yamlConfig.Pipeline.PadHours,
			CullTimeMinutes:    yamlConfig.Pipeline.CullTimeMinutes,
			CullDistanceMeters: yamlConfig.Pipeline.CullDistanceMeters,
			MaxGapSeconds:      yamlConfig.Pipeline.MaxGapSeconds,
			SmoothStation:      yamlConfig.Pipeline.SmoothStation,
			MinStations:        yamlConfig.Pipeline.MinStations,
		},
	}

	for i, station := range yamlConfig.Stations {
		config.Stations[i] = StationData{
			Name:          station.Name,
			Interval:      station.Interval,
			YearIntervals: station.YearIntervals,
		}
	}

	config.Storage = StorageData{}
	if yamlConfig.Storage.TSVDir != nil {
		config.Storage.TSVDir = &TSVDirData{
			Directory: yamlConfig.Storage.TSVDir.Directory,
		}
	}
	if yamlConfig.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{
			Path: yamlConfig.Storage.SQLite.Path,
		}
	}
	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}
	if yamlConfig.Storage.InfluxDB != nil {
		config.Storage.InfluxDB = &InfluxDBData{
			URL:    yamlConfig.Storage.InfluxDB.URL,
			Token:  yamlConfig.Storage.InfluxDB.Token,
			Org:    yamlConfig.Storage.InfluxDB.Org,
			Bucket: yamlConfig.Storage.InfluxDB.Bucket,
		}
	}

	y.config = config
	return config, nil
}

// GetStations returns station configurations
func (y *YAMLProvider) GetStations() ([]StationData, error) {
	if y.config == nil {
		if _, err := y.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return y.config.Stations, nil
}

// GetPipelineConfig returns the detection parameters
func (y *YAMLProvider) GetPipelineConfig() (*PipelineData, error) {
	if y.config == nil {
		if _, err := y.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return &y.config.Pipeline, nil
}

// GetStorageConfig returns storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	if y.config == nil {
		if _, err := y.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return &y.config.Storage, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags for parsing the on-disk format
type configYAML struct {
	DataRoot string        `yaml:"data-root"`
	CacheDir string        `yaml:"cache-dir,omitempty"`
	Years    []int         `yaml:"years"`
	Stations []stationYAML `yaml:"stations"`
	Pipeline pipelineYAML  `yaml:"pipeline,omitempty"`
	Storage  storageYAML   `yaml:"storage,omitempty"`
}

type stationYAML struct {
	Name          string      `yaml:"name"`
	Interval      int         `yaml:"interval,omitempty"`
	YearIntervals map[int]int `yaml:"year-intervals,omitempty"`
}

type pipelineYAML struct {
	Window             int     `yaml:"window,omitempty"`
	Slide              int     `yaml:"slide,omitempty"`
	ActiveStations     int     `yaml:"active-stations,omitempty"`
	PadHours           float64 `yaml:"pad-hours,omitempty"`
	CullTimeMinutes    float64 `yaml:"cull-time-minutes,omitempty"`
	CullDistanceMeters float64 `yaml:"cull-distance-meters,omitempty"`
	MaxGapSeconds      int     `yaml:"max-gap-seconds,omitempty"`
	SmoothStation      string  `yaml:"smooth-station,omitempty"`
	MinStations        int     `yaml:"min-stations,omitempty"`
}

type storageYAML struct {
	TSVDir      *tsvDirYAML      `yaml:"tsvdir,omitempty"`
	SQLite      *sqliteYAML      `yaml:"sqlite,omitempty"`
	TimescaleDB *timescaleDBYAML `yaml:"timescaledb,omitempty"`
	InfluxDB    *influxDBYAML    `yaml:"influxdb,omitempty"`
}

type tsvDirYAML struct {
	Directory string `yaml:"directory"`
}

type sqliteYAML struct {
	Path string `yaml:"path"`
}

type timescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type influxDBYAML struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token,omitempty"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}
