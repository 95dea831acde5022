package gcsmock

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// snapshotRow is the flattened form of one member object for persistence.
type snapshotRow struct {
	bucket   string
	name     string
	position int
	contents []byte
	metadata string // JSON
}

// snapshotLoop runs in a background goroutine and writes a snapshot at the
// configured interval until Close.
func (s *Storage) snapshotLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.WriteSnapshot(s.snapshotPath); err != nil {
				slog.Error("gcsmock snapshot failed", "path", s.snapshotPath, "error", err)
			}
		}
	}
}

// LoadSnapshot restores buckets and member objects from a SQLite snapshot
// file into s, preserving membership insertion order. A missing file is a
// no-op (fresh start). Fault queues and non-member handles are never part
// of a snapshot.
func (s *Storage) LoadSnapshot(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("opening snapshot database: %w", err)
	}
	defer db.Close()

	// Check if tables exist before querying.
	var tableCount int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('buckets', 'objects')`).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("checking snapshot tables: %w", err)
	}
	if tableCount < 2 {
		return nil
	}

	rows, err := db.Query("SELECT name FROM buckets ORDER BY name")
	if err != nil {
		return fmt.Errorf("querying bucket snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning bucket snapshot row: %w", err)
		}
		s.Bucket(name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating bucket snapshot rows: %w", err)
	}

	objRows, err := db.Query("SELECT bucket, name, contents, metadata FROM objects ORDER BY bucket, position")
	if err != nil {
		return fmt.Errorf("querying object snapshots: %w", err)
	}
	defer objRows.Close()

	for objRows.Next() {
		var bucketName, objectName, metadataJSON string
		var contents []byte
		if err := objRows.Scan(&bucketName, &objectName, &contents, &metadataJSON); err != nil {
			return fmt.Errorf("scanning object snapshot row: %w", err)
		}

		var md Metadata
		if err := json.Unmarshal([]byte(metadataJSON), &md); err != nil {
			return fmt.Errorf("decoding metadata for %s/%s: %w", bucketName, objectName, err)
		}

		s.Bucket(bucketName).Object(objectName).restore(contents, md)
	}
	if err := objRows.Err(); err != nil {
		return fmt.Errorf("iterating object snapshot rows: %w", err)
	}

	return nil
}

// restore sets the object's stored state directly and marks it a member,
// bypassing metrics and the fault protocol. Snapshot loading only.
func (o *Object) restore(contents []byte, md Metadata) {
	s := o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	o.bucket.markPresentLocked(o.name)
	o.contents = contents
	if md != nil {
		o.metadata = md
	}
}

// WriteSnapshot atomically writes the current buckets and member objects to
// a SQLite snapshot file at path. It writes to a temporary file first, then
// renames it to the final path for crash safety.
func (s *Storage) WriteSnapshot(path string) error {
	bucketNames, objects := s.snapshotState()

	// Ensure the parent directory exists.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmpPath := path + ".tmp"

	// Remove any stale temp file from a previous failed attempt.
	os.Remove(tmpPath)

	db, err := sql.Open("sqlite", tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp snapshot database: %w", err)
	}

	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = FULL;

		CREATE TABLE buckets (
			name TEXT NOT NULL PRIMARY KEY
		);

		CREATE TABLE objects (
			bucket   TEXT NOT NULL,
			name     TEXT NOT NULL,
			position INTEGER NOT NULL,
			contents BLOB NOT NULL,
			metadata TEXT NOT NULL,
			PRIMARY KEY (bucket, name)
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("creating snapshot schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}

	bucketStmt, err := tx.Prepare("INSERT INTO buckets (name) VALUES (?)")
	if err != nil {
		tx.Rollback()
		db.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("preparing bucket insert: %w", err)
	}
	defer bucketStmt.Close()

	for _, name := range bucketNames {
		if _, err := bucketStmt.Exec(name); err != nil {
			tx.Rollback()
			db.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("inserting bucket snapshot for %q: %w", name, err)
		}
	}

	objStmt, err := tx.Prepare("INSERT INTO objects (bucket, name, position, contents, metadata) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		db.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("preparing object insert: %w", err)
	}
	defer objStmt.Close()

	for _, row := range objects {
		if _, err := objStmt.Exec(row.bucket, row.name, row.position, row.contents, row.metadata); err != nil {
			tx.Rollback()
			db.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("inserting object snapshot for %s/%s: %w", row.bucket, row.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		db.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("committing snapshot transaction: %w", err)
	}

	if err := db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp snapshot database: %w", err)
	}

	// Atomic rename: temp -> final path.
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming snapshot file: %w", err)
	}

	// Clean up WAL and SHM files from the temp database (they may linger
	// after rename on some platforms).
	os.Remove(tmpPath + "-wal")
	os.Remove(tmpPath + "-shm")

	return nil
}

// snapshotState copies the persistable state out under the lock: sorted
// bucket names for deterministic output, and member objects in membership
// insertion order.
func (s *Storage) snapshotState() ([]string, []snapshotRow) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucketNames := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		bucketNames = append(bucketNames, name)
	}
	sort.Strings(bucketNames)

	var objects []snapshotRow
	for _, bucketName := range bucketNames {
		b := s.buckets[bucketName]
		for i, objectName := range b.order {
			o := b.handles[objectName]
			metadataJSON, err := json.Marshal(o.metadata)
			if err != nil {
				// Metadata is built from YAML/JSON-compatible values; a
				// marshal failure means a test stored something exotic.
				// Persist the default rather than losing the object.
				metadataJSON = []byte(`{"metadata":{}}`)
				slog.Warn("gcsmock snapshot: metadata not serializable", "object", o.URI(), "error", err)
			}
			// A non-nil copy so the driver binds an empty blob, not NULL.
			objects = append(objects, snapshotRow{
				bucket:   bucketName,
				name:     objectName,
				position: i,
				contents: append([]byte{}, o.contents...),
				metadata: string(metadataJSON),
			})
		}
	}

	return bucketNames, objects
}
