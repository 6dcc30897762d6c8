// Package main implements the driftd server binary: a versioned table engine
// with a mutable schema, a field-level change ledger, and rollback over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/driftdb/driftdb/internal/app"
	"github.com/driftdb/driftdb/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configFile  string
		dataDir     string
		httpAddr    string
		tableName   string
		actor       string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address")
	flag.StringVar(&tableName, "table", "", "Name of the managed data table")
	flag.StringVar(&actor, "default-actor", "", "Actor attributed to unattributed changes")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "DriftDB - Versioned Tables With A Schema That Moves\n\n")
		fmt.Fprintf(os.Stderr, "Usage: driftd [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  driftd --data-dir /data/driftdb\n")
		fmt.Fprintf(os.Stderr, "  driftd --table inventory --http-addr :9090\n")
		fmt.Fprintf(os.Stderr, "  driftd --config /etc/driftdb/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_DATA_DIR         Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_TABLE            Name of the managed data table\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_DEFAULT_ACTOR    Actor for unattributed changes\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_HTTP_ADDR        HTTP listen address\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_SNAPSHOT_UPLOAD  Push finished snapshots to storage (true/false)\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_STORAGE_TYPE     Storage type (local, s3)\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_S3_BUCKET        S3 bucket for snapshot archives\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("driftd version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := loadConfig(configFile, dataDir, httpAddr, tableName, actor)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Print startup banner
	printBanner(cfg)

	// Create and start the application
	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Block until SIGTERM/SIGINT, then shut down.
	if err := application.Wait(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(configFile, dataDir, httpAddr, tableName, actor string) (*config.Config, error) {
	config.LoadDotEnv()

	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables
	config.LoadFromEnv(cfg)

	// Apply command line flags (highest priority)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if tableName != "" {
		cfg.Table = tableName
	}
	if actor != "" {
		cfg.DefaultActor = actor
	}

	return cfg, nil
}

// printBanner prints the startup banner with configuration summary.
func printBanner(cfg *config.Config) {
	log.Printf("╔═══════════════════════════════════════════════════════════╗")
	log.Printf("║                       DRIFTDB                             ║")
	log.Printf("║        Versioned Tables With A Schema That Moves          ║")
	log.Printf("╚═══════════════════════════════════════════════════════════╝")
	log.Printf("")
	log.Printf("Configuration:")
	log.Printf("  Table:    %s", cfg.Table)
	log.Printf("  Data Dir: %s", cfg.DataDir)
	log.Printf("  HTTP:     %s", cfg.HTTP.Addr)
	log.Printf("  Storage:  %s", cfg.Storage.Type)
	if cfg.Snapshot.Upload {
		log.Printf("  Snapshot Upload: enabled")
	}
	log.Printf("")
}
