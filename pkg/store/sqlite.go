package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SchemaVersion is the version recorded in the metadata table.
const SchemaVersion = "1"

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	mu    sync.Mutex
	db    *sql.DB
	limit int
}

// NewSQLite opens (or creates) the history database at path. limit <= 0
// means DefaultLimit.
func NewSQLite(path string, limit int) (*SQLite, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS plots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			expression TEXT NOT NULL,
			x_min REAL NOT NULL,
			x_max REAL NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			points INTEGER NOT NULL,
			valid_count INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			error_kind TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db, limit: limit}
	if err := s.checkSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) checkSchema() error {
	var version string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec("INSERT INTO metadata (key, value) VALUES ('schema_version', ?)", SchemaVersion)
		return err
	case err != nil:
		return err
	case version != SchemaVersion:
		return fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}
	return nil
}

// Record inserts e and prunes rows beyond the retention limit.
func (s *SQLite) Record(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreateTime.IsZero() {
		e.CreateTime = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO plots (expression, x_min, x_max, title, points, valid_count, error, error_kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Expression, e.XMin, e.XMax, e.Title, e.Points, e.ValidCount, e.Error, e.ErrorKind, e.CreateTime.UnixNano())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = formatID(id)

	_, err = s.db.ExecContext(ctx, "DELETE FROM plots WHERE id <= ?", id-int64(s.limit))
	return err
}

// Recent returns the newest rows.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, expression, x_min, x_max, title, points, valid_count, error, error_kind, created_at
		FROM plots ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var (
			e       Entry
			id      int64
			created int64
		)
		if err := rows.Scan(&id, &e.Expression, &e.XMin, &e.XMax, &e.Title, &e.Points,
			&e.ValidCount, &e.Error, &e.ErrorKind, &created); err != nil {
			return nil, err
		}
		e.ID = formatID(id)
		e.CreateTime = time.Unix(0, created)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
