// Package store persists the edit journal in SQLite.
//
// Every committed edit, undo and detected external modification of a project
// file is one row. Edit rows carry the pre-edit bytes, zstd-compressed, so the
// most recent edits can be undone.
package store

import (
	"bytes"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
	"lukechampine.com/blake3"
)

// Kind classifies a journal entry.
type Kind string

const (
	KindCreate   Kind = "create"
	KindEdit     Kind = "edit"
	KindUndo     Kind = "undo"
	KindExternal Kind = "external"
)

// Entry is one journal row.
type Entry struct {
	ID         int64
	Project    string
	Tool       string
	Kind       Kind
	BeforeHash string
	AfterHash  string
	Undone     bool
	CreatedAt  time.Time
	// Snapshot holds the pre-edit bytes. It is only loaded by LastUndoable.
	Snapshot []byte
}

// Hash returns the hex BLAKE3 digest of a project file's contents. Missing
// contents hash to the empty string.
func Hash(data []byte) string {
	if data == nil {
		return ""
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Store handles persistence of the edit journal using SQLite.
type Store struct {
	db *sql.DB
	// MaxSnapshots bounds the snapshots kept per project. Older edit rows
	// stay in the history but can no longer be undone. Zero keeps all.
	MaxSnapshots int
}

// NewStore opens or creates journal.db in storageDir, creating the directory
// and the schema as needed.
func NewStore(storageDir string) (*Store, error) {
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	dbPath := filepath.Join(storageDir, "journal.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project TEXT NOT NULL,
			tool TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			before_hash TEXT NOT NULL DEFAULT '',
			after_hash TEXT NOT NULL DEFAULT '',
			snapshot BLOB,
			undone INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_project ON entries(project, id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec schema query: %w", err)
		}
	}
	return nil
}

// Record journals a change of project from before to after. Edit entries
// keep before as an undo snapshot; other kinds only keep the hashes.
func (s *Store) Record(project, tool string, kind Kind, before, after []byte) (int64, error) {
	var snapshot []byte
	if kind == KindEdit && before != nil {
		c, err := compress(before)
		if err != nil {
			return 0, err
		}
		snapshot = c
	}

	id, err := s.insert(project, tool, kind, Hash(before), Hash(after), snapshot)
	if err != nil {
		return 0, err
	}
	if snapshot != nil {
		if err := s.prune(project); err != nil {
			return id, err
		}
	}
	return id, nil
}

// RecordExternal journals a change made by another process. Only the hash of
// the previous content is known.
func (s *Store) RecordExternal(project, beforeHash string, after []byte) (int64, error) {
	return s.insert(project, "", KindExternal, beforeHash, Hash(after), nil)
}

func (s *Store) insert(project, tool string, kind Kind, beforeHash, afterHash string, snapshot []byte) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO entries (project, tool, kind, before_hash, after_hash, snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, project, tool, string(kind), beforeHash, afterHash, snapshot, time.Now().UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("record %s entry: %w", kind, err)
	}
	return res.LastInsertId()
}

// prune drops snapshots beyond MaxSnapshots, oldest first.
func (s *Store) prune(project string) error {
	if s.MaxSnapshots <= 0 {
		return nil
	}
	_, err := s.db.Exec(`
		UPDATE entries SET snapshot = NULL
		WHERE project = ? AND snapshot IS NOT NULL AND id NOT IN (
			SELECT id FROM entries
			WHERE project = ? AND snapshot IS NOT NULL
			ORDER BY id DESC LIMIT ?
		)
	`, project, project, s.MaxSnapshots)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// LastUndoable returns the newest edit of project that still has a snapshot
// and has not been undone, with its snapshot decompressed. It returns nil
// when there is none.
func (s *Store) LastUndoable(project string) (*Entry, error) {
	row := s.db.QueryRow(`
		SELECT id, project, tool, kind, before_hash, after_hash, undone, created_at, snapshot
		FROM entries
		WHERE project = ? AND kind = ? AND undone = 0 AND snapshot IS NOT NULL
		ORDER BY id DESC LIMIT 1
	`, project, string(KindEdit))

	var (
		e    Entry
		blob []byte
	)
	if err := scanEntry(row, &e, &blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load last edit: %w", err)
	}
	data, err := decompress(blob)
	if err != nil {
		return nil, fmt.Errorf("snapshot %d: %w", e.ID, err)
	}
	e.Snapshot = data
	return &e, nil
}

// RecordUndo marks the edit undone and journals the restore in one
// transaction.
func (s *Store) RecordUndo(undone *Entry, before, after []byte) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE entries SET undone = 1 WHERE id = ?", undone.ID); err != nil {
		return 0, err
	}
	res, err := tx.Exec(`
		INSERT INTO entries (project, tool, kind, before_hash, after_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, undone.Project, undone.Tool, string(KindUndo), Hash(before), Hash(after), time.Now().UTC().UnixNano())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// History lists entries newest first. An empty project lists every project;
// a non-positive limit lists everything.
func (s *Store) History(project string, limit int) ([]Entry, error) {
	query := `SELECT id, project, tool, kind, before_hash, after_hash, undone, created_at, NULL FROM entries`
	var args []any
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			blob []byte
		)
		if err := scanEntry(rows, &e, &blob); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestHash returns the after-hash of the newest entry for project.
func (s *Store) LatestHash(project string) (string, bool, error) {
	var hash string
	err := s.db.QueryRow(
		"SELECT after_hash FROM entries WHERE project = ? ORDER BY id DESC LIMIT 1", project,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner, e *Entry, blob *[]byte) error {
	var (
		kind   string
		undone int
		nanos  int64
	)
	if err := sc.Scan(&e.ID, &e.Project, &e.Tool, &kind, &e.BeforeHash, &e.AfterHash, &undone, &nanos, blob); err != nil {
		return err
	}
	e.Kind = Kind(kind)
	e.Undone = undone != 0
	e.CreatedAt = time.Unix(0, nanos).UTC()
	return nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	encoder, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(data); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()
	return io.ReadAll(decoder)
}
