// Package store provides the persistence backend over embedded SQLite.
//
// The database runs in embedded mode using ncruces/go-sqlite3 (wazero
// underneath, no cgo) with WAL for concurrent reads. It is authoritative
// for which files exist: the in-memory file list is a cache that
// reconciles against these records and filesystem reality.
//
// Schema:
//   - files: one row per tagged file (id, path, added_at)
//   - file_tags: file id -> tag id, drives OR-of-tags search
//   - tags, collections, collection_members: the persisted tag hierarchy,
//     with member position columns preserving display order
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/model"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store wraps the SQLite connection with backend-specific functionality.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a database connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If it doesn't exist it is created; call InitSchema before first use.
// The caller MUST call Close when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return s, nil
}

// Close closes the database connection after checkpointing the WAL.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// InitSchema creates the schema if it doesn't exist. Idempotent.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		added_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS file_tags (
		file_id TEXT NOT NULL,
		tag_id TEXT NOT NULL,
		PRIMARY KEY (file_id, tag_id),
		FOREIGN KEY (file_id) REFERENCES files(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		added_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collections (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collection_members (
		collection_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('tag', 'collection')),
		position INTEGER NOT NULL,
		PRIMARY KEY (collection_id, member_id),
		FOREIGN KEY (collection_id) REFERENCES collections(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
	CREATE INDEX IF NOT EXISTS idx_file_tags_tag ON file_tags(tag_id);
	CREATE INDEX IF NOT EXISTS idx_members_position
		ON collection_members(collection_id, position);
	`
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateFile persists a new file record along with its tag links.
func (s *Store) CreateFile(ctx context.Context, rec *model.FileRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("cannot create invalid file record: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	addedAt := rec.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO files (id, path, added_at) VALUES (?, ?, ?)",
		string(rec.ID), rec.Path, addedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert file %s: %w", rec.ID, err)
	}
	for _, tagID := range rec.TagIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO file_tags (file_id, tag_id) VALUES (?, ?)",
			string(rec.ID), string(tagID))
		if err != nil {
			return fmt.Errorf("failed to link file %s to tag %s: %w", rec.ID, tagID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit file %s: %w", rec.ID, err)
	}
	return nil
}

// FetchFiles returns every file record, ordered by added_at then id.
func (s *Store) FetchFiles(ctx context.Context) ([]*model.FileRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT id, path, added_at FROM files ORDER BY added_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch files: %w", err)
	}
	defer rows.Close()
	return s.scanFiles(ctx, rows)
}

// SearchFiles returns file records matching ANY of the given tag ids
// (OR semantics). An empty tag list returns no rows; callers wanting all
// files use FetchFiles.
func (s *Store) SearchFiles(ctx context.Context, tagIDs []ids.ID) ([]*model.FileRecord, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(tagIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(tagIDs))
	for i, id := range tagIDs {
		args[i] = string(id)
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT f.id, f.path, f.added_at
		FROM files f
		JOIN file_tags ft ON ft.file_id = f.id
		WHERE ft.tag_id IN (%s)
		ORDER BY f.added_at, f.id`, placeholders)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}
	defer rows.Close()
	return s.scanFiles(ctx, rows)
}

// scanFiles reads file rows and attaches each file's tag ids.
func (s *Store) scanFiles(ctx context.Context, rows *sql.Rows) ([]*model.FileRecord, error) {
	var records []*model.FileRecord
	for rows.Next() {
		var rec model.FileRecord
		var id, addedAt string
		if err := rows.Scan(&id, &rec.Path, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		rec.ID = ids.ID(id)
		if ts, err := time.Parse(time.RFC3339Nano, addedAt); err == nil {
			rec.AddedAt = ts
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate file rows: %w", err)
	}

	for _, rec := range records {
		tagRows, err := s.conn.QueryContext(ctx,
			"SELECT tag_id FROM file_tags WHERE file_id = ? ORDER BY tag_id", string(rec.ID))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch tags for file %s: %w", rec.ID, err)
		}
		for tagRows.Next() {
			var tagID string
			if err := tagRows.Scan(&tagID); err != nil {
				_ = tagRows.Close()
				return nil, fmt.Errorf("failed to scan tag row: %w", err)
			}
			rec.TagIDs = append(rec.TagIDs, ids.ID(tagID))
		}
		if err := tagRows.Err(); err != nil {
			_ = tagRows.Close()
			return nil, fmt.Errorf("failed to iterate tag rows: %w", err)
		}
		_ = tagRows.Close()
	}
	return records, nil
}

// RemoveFile deletes a file record. Idempotent: removing an already
// removed record is not an error.
func (s *Store) RemoveFile(ctx context.Context, rec *model.FileRecord) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM files WHERE id = ?", string(rec.ID))
	if err != nil {
		return fmt.Errorf("failed to remove file %s: %w", rec.ID, err)
	}
	return nil
}

// TagFile links a tag to a file. Idempotent.
func (s *Store) TagFile(ctx context.Context, fileID, tagID ids.ID) error {
	_, err := s.conn.ExecContext(ctx,
		"INSERT OR IGNORE INTO file_tags (file_id, tag_id) VALUES (?, ?)",
		string(fileID), string(tagID))
	if err != nil {
		return fmt.Errorf("failed to tag file %s with %s: %w", fileID, tagID, err)
	}
	return nil
}

// UntagFile removes a tag link from a file. Idempotent.
func (s *Store) UntagFile(ctx context.Context, fileID, tagID ids.ID) error {
	_, err := s.conn.ExecContext(ctx,
		"DELETE FROM file_tags WHERE file_id = ? AND tag_id = ?",
		string(fileID), string(tagID))
	if err != nil {
		return fmt.Errorf("failed to untag file %s from %s: %w", fileID, tagID, err)
	}
	return nil
}
