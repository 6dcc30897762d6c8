// Package snapshot produces consistent point-in-time archives of the table
// database: a compacted database copy, a compressed ledger export, and a
// manifest describing both. Archives can optionally be pushed to object
// storage.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"

	"github.com/driftdb/driftdb/internal/errors"
	"github.com/driftdb/driftdb/internal/storage"
	"github.com/driftdb/driftdb/internal/table"
)

const (
	databaseFileName = "drift.db"
	exportFileName   = "versions.jsonl.sz"
	manifestFileName = "manifest.json"
)

// Manifest describes one finished snapshot.
type Manifest struct {
	// SnapshotID is the unique identifier of this snapshot
	SnapshotID string `json:"snapshot_id"`

	// CreatedAt is when the snapshot was taken
	CreatedAt time.Time `json:"created_at"`

	// Table is the managed data table captured in the database copy
	Table string `json:"table"`

	// DatabaseBytes is the size of the compacted database copy
	DatabaseBytes int64 `json:"database_bytes"`

	// EntryCount is the number of ledger entries in the export
	EntryCount int `json:"entry_count"`

	// ExportDigest is the content hash of the uncompressed export stream
	ExportDigest string `json:"export_digest"`

	// Uploaded reports whether the snapshot was pushed to object storage
	Uploaded bool `json:"uploaded"`
}

// Manager takes snapshots of one engine into a working directory.
type Manager struct {
	engine      *table.Engine
	workDir     string
	tableName   string
	exportLimit int
	archive     storage.ArchiveStore // nil disables upload
}

// NewManager creates a snapshot manager. archive may be nil, in which case
// snapshots stay in workDir.
func NewManager(engine *table.Engine, workDir, tableName string, exportLimit int, archive storage.ArchiveStore) *Manager {
	return &Manager{
		engine:      engine,
		workDir:     workDir,
		tableName:   tableName,
		exportLimit: exportLimit,
		archive:     archive,
	}
}

// Create takes a snapshot: checkpoint, compacted database copy, compressed
// ledger export, manifest, then optional upload. The returned manifest
// reflects what landed on disk.
func (m *Manager) Create(ctx context.Context) (*Manifest, error) {
	id := uuid.New().String()
	dir := filepath.Join(m.workDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewStorageError(errors.CodeUploadFailed, "failed to create snapshot directory", err)
	}

	// Fold the WAL into the main file first so the copy carries every
	// committed write.
	if err := m.engine.Store().Checkpoint(ctx); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(dir, databaseFileName)
	if err := m.engine.Store().VacuumInto(ctx, dbPath); err != nil {
		return nil, err
	}
	dbInfo, err := os.Stat(dbPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: failed to stat database copy: %w", err)
	}

	count, digest, err := m.exportLedger(ctx, filepath.Join(dir, exportFileName))
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		SnapshotID:    id,
		CreatedAt:     time.Now().UTC(),
		Table:         m.tableName,
		DatabaseBytes: dbInfo.Size(),
		EntryCount:    count,
		ExportDigest:  digest,
	}

	if m.archive != nil {
		if err := m.upload(ctx, dir, id, manifest); err != nil {
			return nil, err
		}
		manifest.Uploaded = true
	}

	if err := m.writeManifest(dir, manifest); err != nil {
		return nil, err
	}

	log.Printf("snapshot: created %s (%d ledger entries, %d bytes)", id, count, dbInfo.Size())
	return manifest, nil
}

// exportLedger writes the ledger as snappy-compressed JSON lines, oldest
// first, and returns the entry count and the digest of the uncompressed
// stream.
func (m *Manager) exportLedger(ctx context.Context, destPath string) (int, string, error) {
	entries, err := m.engine.ListVersions(ctx, nil, m.exportLimit, "id", "asc")
	if err != nil {
		return 0, "", err
	}

	file, err := os.Create(destPath)
	if err != nil {
		return 0, "", fmt.Errorf("snapshot: failed to create export file: %w", err)
	}
	defer file.Close()

	writer := snappy.NewBufferedWriter(file)
	hash := murmur3.New64()

	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return 0, "", fmt.Errorf("snapshot: failed to encode ledger entry %d: %w", entry.ID, err)
		}
		line = append(line, '\n')
		if _, err := writer.Write(line); err != nil {
			return 0, "", fmt.Errorf("snapshot: failed to write export: %w", err)
		}
		hash.Write(line)
	}

	if err := writer.Close(); err != nil {
		return 0, "", fmt.Errorf("snapshot: failed to flush export: %w", err)
	}
	if err := file.Sync(); err != nil {
		return 0, "", fmt.Errorf("snapshot: failed to sync export: %w", err)
	}

	return len(entries), strconv.FormatUint(hash.Sum64(), 16), nil
}

func (m *Manager) writeManifest(dir string, manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFileName), data, 0644); err != nil {
		return fmt.Errorf("snapshot: failed to write manifest: %w", err)
	}
	return nil
}

// upload pushes the database copy and export to the archive store under
// snapshots/<id>/. The manifest is written locally after upload so its
// Uploaded flag is accurate.
func (m *Manager) upload(ctx context.Context, dir, id string, manifest *Manifest) error {
	for _, name := range []string{databaseFileName, exportFileName} {
		local := filepath.Join(dir, name)
		object := path.Join("snapshots", id, name)
		if err := m.archive.Put(ctx, local, object); err != nil {
			return err
		}
	}
	return nil
}

// ReadManifest loads the manifest of a finished snapshot.
func ReadManifest(workDir, snapshotID string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(workDir, snapshotID, manifestFileName))
	if err != nil {
		return nil, fmt.Errorf("snapshot: failed to read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("snapshot: failed to decode manifest: %w", err)
	}
	return &manifest, nil
}

// VerifyExport re-reads an export file and checks its digest against the
// manifest. Used by operators to confirm an archive survived transfer.
func VerifyExport(exportPath, wantDigest string) (bool, error) {
	file, err := os.Open(exportPath)
	if err != nil {
		return false, fmt.Errorf("snapshot: failed to open export: %w", err)
	}
	defer file.Close()

	hash := murmur3.New64()
	reader := snappy.NewReader(file)
	buf := make([]byte, 64*1024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, fmt.Errorf("snapshot: failed to read export: %w", err)
		}
	}

	return strconv.FormatUint(hash.Sum64(), 16) == wantDigest, nil
}
