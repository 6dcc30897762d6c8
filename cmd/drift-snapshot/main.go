// Package main implements the drift-snapshot tool: it takes a point-in-time
// archive of a DriftDB database (compacted copy, compressed ledger export,
// manifest) and optionally pushes it to object storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/driftdb/driftdb/internal/config"
	"github.com/driftdb/driftdb/internal/snapshot"
	"github.com/driftdb/driftdb/internal/storage"
	"github.com/driftdb/driftdb/internal/table"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		dataDir     string
		verify      bool
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.BoolVar(&verify, "verify", false, "Re-read the ledger export and check its digest")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "drift-snapshot - Archive a DriftDB database\n\n")
		fmt.Fprintf(os.Stderr, "Usage: drift-snapshot [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  drift-snapshot --data-dir /data/driftdb\n")
		fmt.Fprintf(os.Stderr, "  drift-snapshot --config /etc/driftdb/config.yaml --verify\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_DATA_DIR              Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_SNAPSHOT_WORK_DIR     Directory snapshots are staged in\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_SNAPSHOT_EXPORT_LIMIT Ledger entries per export\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_SNAPSHOT_UPLOAD       Push the snapshot to storage (true/false)\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_STORAGE_TYPE          Storage type (local, s3)\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_S3_BUCKET             S3 bucket for snapshot archives\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("drift-snapshot version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	config.LoadDotEnv()

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}
	config.LoadFromEnv(cfg)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	ctx := context.Background()

	engine, err := table.NewEngine(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Failed to open database %s: %v", cfg.DatabasePath(), err)
	}
	defer engine.Close()

	var archive storage.ArchiveStore
	if cfg.Snapshot.Upload {
		archive, err = storage.FromConfig(ctx, cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to configure storage: %v", err)
		}
	}

	manager := snapshot.NewManager(engine, cfg.Snapshot.WorkDir, cfg.Table,
		cfg.Snapshot.ExportLimit, archive)

	manifest, err := manager.Create(ctx)
	if err != nil {
		log.Fatalf("Snapshot failed: %v", err)
	}

	fmt.Printf("Snapshot:       %s\n", manifest.SnapshotID)
	fmt.Printf("Table:          %s\n", manifest.Table)
	fmt.Printf("Database Bytes: %d\n", manifest.DatabaseBytes)
	fmt.Printf("Ledger Entries: %d\n", manifest.EntryCount)
	fmt.Printf("Export Digest:  %s\n", manifest.ExportDigest)
	fmt.Printf("Uploaded:       %v\n", manifest.Uploaded)

	if verify {
		exportPath := filepath.Join(cfg.Snapshot.WorkDir, manifest.SnapshotID, "versions.jsonl.sz")
		ok, err := snapshot.VerifyExport(exportPath, manifest.ExportDigest)
		if err != nil {
			log.Fatalf("Verification failed: %v", err)
		}
		if !ok {
			log.Fatalf("Export digest mismatch for %s", exportPath)
		}
		fmt.Printf("Verified:       true\n")
	}
}
