package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/glaciodyn/stickslip/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <stickslip.yaml> -sqlite <stickslip.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Check if YAML file exists
	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	// Check if SQLite file already exists
	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
	}

	// Load YAML configuration
	fmt.Printf("Loading YAML configuration...\n")
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	configData, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("  Loaded %d stations over %d years\n", len(configData.Stations), len(configData.Years))

	if *dryRun {
		printConfigSummary(configData)
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	// Remove existing SQLite file if force is specified
	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	// Create the SQLite database and write the configuration into it
	fmt.Printf("Creating SQLite database...\n")
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite database: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	fmt.Printf("Loading configuration into SQLite database...\n")
	if err := sqliteProvider.SaveConfig(configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration into SQLite: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now use the SQLite backend with: -config-backend sqlite -config %s\n", *sqliteFile)
}

// printConfigSummary shows what a conversion would carry over.
func printConfigSummary(cfg *config.ConfigData) {
	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Data root: %s\n", cfg.DataRoot)
	if cfg.CacheDir != "" {
		fmt.Printf("  Cache dir: %s\n", cfg.CacheDir)
	}
	fmt.Printf("  Years: %v\n", cfg.Years)

	fmt.Printf("  Stations (%d):\n", len(cfg.Stations))
	for _, st := range cfg.Stations {
		line := fmt.Sprintf("    %s: %ds", st.Name, st.Interval)
		if len(st.YearIntervals) > 0 {
			line += fmt.Sprintf(" (overrides: %v)", st.YearIntervals)
		}
		fmt.Println(line)
	}

	p := cfg.Pipeline
	fmt.Printf("  Pipeline: window=%d slide=%d active-stations=%d pad-hours=%g\n",
		p.Window, p.Slide, p.ActiveStations, p.PadHours)
	fmt.Printf("            cull-time=%gm cull-distance=%gm max-gap=%ds min-stations=%d\n",
		p.CullTimeMinutes, p.CullDistanceMeters, p.MaxGapSeconds, p.MinStations)
	if p.SmoothStation != "" {
		fmt.Printf("            smooth-station=%s\n", p.SmoothStation)
	}

	var backends []string
	if cfg.Storage.TSVDir != nil {
		backends = append(backends, "tsvdir")
	}
	if cfg.Storage.SQLite != nil {
		backends = append(backends, "sqlite")
	}
	if cfg.Storage.TimescaleDB != nil {
		backends = append(backends, "timescaledb")
	}
	if cfg.Storage.InfluxDB != nil {
		backends = append(backends, "influxdb")
	}
	if len(backends) == 0 {
		fmt.Printf("  Storage: none configured\n")
	} else {
		fmt.Printf("  Storage: %s\n", strings.Join(backends, ", "))
	}
}
