package table

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/driftdb/driftdb/internal/errors"
)

// Store owns the SQLite connections for one database file. It enforces the
// single-logical-writer model: every externally-visible write operation runs
// on the single write connection under the store mutex, inside one
// transaction. Readers use a separate WAL read pool and see either the
// pre-mutation or post-mutation state in full, never an intermediate one.
type Store struct {
	db     *sql.DB // Write connection (single writer)
	readDB *sql.DB // Read connection pool (concurrent readers)
	dbPath string
	mu     sync.Mutex // Write-only lock (reads don't need this)
}

// Open opens (creating if needed) the database at dbPath and initializes the
// fixed schema. The caller owns the returned store and must Close it.
func Open(dbPath string) (*Store, error) {
	// Write connection: single writer with WAL mode
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("table: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Read connection pool: concurrent readers via read-only mode
	readDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&mode=ro")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("table: failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(4)
	readDB.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{
		db:     db,
		readDB: readDB,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		readDB.Close()
		db.Close()
		return nil, fmt.Errorf("table: failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the ledger table and its indexes.
func (s *Store) initSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// EnsureTable creates the data table with just its primary key if it does
// not exist yet. Schema evolution happens afterwards through the planner.
func (s *Store) EnsureTable(ctx context.Context, tableName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := SanitizeIdentifier(tableName)
	if _, err := s.db.ExecContext(ctx, createDataTableSQL(name)); err != nil {
		return fmt.Errorf("table: failed to ensure table %s: %w", name, err)
	}
	return nil
}

// DBPath returns the path of the underlying database file.
func (s *Store) DBPath() string {
	return s.dbPath
}

// Checkpoint forces a WAL checkpoint so the main database file reflects all
// committed writes. Used before taking a consistent snapshot.
func (s *Store) Checkpoint(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("table: failed to checkpoint: %w", err)
	}
	return nil
}

// VacuumInto writes a consistent, compacted copy of the database to destPath.
func (s *Store) VacuumInto(ctx context.Context, destPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("table: failed to vacuum into %s: %w", destPath, err)
	}
	return nil
}

// ExecRaw runs an operator-issued statement against the write connection.
// It bypasses planning entirely and is the only operation that can corrupt
// schema/ledger consistency; it is logged as a privileged action and must
// not be part of normal flow.
func (s *Store) ExecRaw(ctx context.Context, actor, stmt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("[WARN] table: raw statement executed by %q: %s", actor, stmt)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return errors.NewMigrationError("raw statement failed", err)
	}
	return nil
}

// withWriteTx runs fn inside one transaction on the write connection with
// the store mutex held. Any error rolls the whole transaction back, so no
// partial state is ever observable.
func (s *Store) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("table: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("table: failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes both database connections.
func (s *Store) Close() error {
	if err := s.readDB.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
