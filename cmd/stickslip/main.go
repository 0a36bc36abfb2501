package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/glaciodyn/stickslip/internal/app"
	"github.com/glaciodyn/stickslip/internal/log"
	"github.com/glaciodyn/stickslip/pkg/config"
)

const version = "1.2-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "stickslip.yaml", "Path to configuration source:\n\t\t\t  YAML: stickslip.yaml\n\t\t\t  SQLite: stickslip.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "", "Configuration backend type: 'yaml' or 'sqlite' (inferred from the file extension when empty)")
	logFile := flag.String("log-file", "", "Also write logs to this file, with rotation")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("stickslip %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug, *logFile); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Open the configuration source
	filename, _ := filepath.Abs(*cfgFile)
	provider, err := config.NewProvider(filename, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to open configuration: %v", err)
		os.Exit(1)
	}
	defer provider.Close()

	// A run can take a while on a full season; let SIGINT/SIGTERM cancel it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(provider, log.GetSugaredLogger())
	if err := application.Run(ctx); err != nil {
		log.Errorf("Catalog run failed: %v", err)
		os.Exit(1)
	}
}
