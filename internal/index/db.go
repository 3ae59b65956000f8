package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
)

// The database only memoizes per-file listing metadata keyed by path and
// validated by mtime and size. Deleting it loses nothing but speed.
const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS file_meta (
    path   TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    mtime  INTEGER NOT NULL DEFAULT 0,
    size   INTEGER NOT NULL DEFAULT 0,
    meta   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

// schemaVersion should be bumped whenever parse.FileMeta extraction changes
// so stale rows are dropped.
const schemaVersion = "1"

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	d := &DB{db: db}
	if err := d.migrateSchemaVersion(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *DB) migrateSchemaVersion() error {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err == nil && ver == schemaVersion {
		return nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if _, err := d.db.Exec("DELETE FROM file_meta"); err != nil {
		return err
	}
	_, err = d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	return err
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Get returns the cached metadata for path if it was recorded for the same
// mtime and size.
func (d *DB) Get(path string, mtime time.Time, size int64) (parse.FileMeta, bool, error) {
	var (
		gotMtime, gotSize int64
		raw               string
	)
	err := d.db.QueryRow(
		"SELECT mtime, size, meta FROM file_meta WHERE path = ?", path,
	).Scan(&gotMtime, &gotSize, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return parse.FileMeta{}, false, nil
	}
	if err != nil {
		return parse.FileMeta{}, false, err
	}
	if gotMtime != mtime.UnixNano() || gotSize != size {
		return parse.FileMeta{}, false, nil
	}
	var meta parse.FileMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return parse.FileMeta{}, false, nil // unreadable row, rescan
	}
	return meta, true, nil
}

func (d *DB) Put(src model.Source, path string, mtime time.Time, size int64, meta parse.FileMeta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(
		`INSERT OR REPLACE INTO file_meta (path, source, mtime, size, meta) VALUES (?, ?, ?, ?, ?)`,
		path, string(src), mtime.UnixNano(), size, string(raw),
	)
	return err
}

func (d *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := d.db.Query("SELECT path FROM file_meta")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths[p] = struct{}{}
	}
	return paths, rows.Err()
}

func (d *DB) Delete(path string) error {
	_, err := d.db.Exec("DELETE FROM file_meta WHERE path = ?", path)
	return err
}

// Count returns the number of cached rows per source.
func (d *DB) Count() (map[model.Source]int, error) {
	rows, err := d.db.Query("SELECT source, COUNT(*) FROM file_meta GROUP BY source")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.Source]int)
	for rows.Next() {
		var (
			src string
			n   int
		)
		if err := rows.Scan(&src, &n); err != nil {
			return nil, err
		}
		counts[model.Source(src)] = n
	}
	return counts, rows.Err()
}
