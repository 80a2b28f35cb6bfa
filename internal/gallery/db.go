package gallery

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/tiedye/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS patterns (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	session_id  TEXT NOT NULL DEFAULT '',
	folds       TEXT NOT NULL DEFAULT '',
	layer_count INTEGER NOT NULL DEFAULT 1,
	dye_count   INTEGER NOT NULL DEFAULT 0,
	checksum    TEXT NOT NULL DEFAULT '',
	size        INTEGER NOT NULL DEFAULT 0,
	width       INTEGER NOT NULL DEFAULT 0,
	height      INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_patterns_created ON patterns(created_at);
CREATE INDEX IF NOT EXISTS idx_patterns_session ON patterns(session_id);
`

// Pattern is one exported image.
type Pattern struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SessionID  string    `json:"session_id,omitempty"`
	Folds      string    `json:"folds"`
	LayerCount int       `json:"layer_count"`
	DyeCount   int       `json:"dye_count"`
	Checksum   string    `json:"checksum"`
	Size       int64     `json:"size"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CreatedAt  time.Time `json:"created_at"`
}

// DB is the SQLite index of exported patterns.
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the index database and applies the schema.
func OpenDB(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("gallery: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("gallery: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("gallery: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Insert adds a pattern row.
func (db *DB) Insert(p Pattern) error {
	_, err := db.conn.Exec(`
		INSERT INTO patterns (id, title, session_id, folds, layer_count, dye_count, checksum, size, width, height, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Title, p.SessionID, p.Folds, p.LayerCount, p.DyeCount, p.Checksum, p.Size, p.Width, p.Height, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("gallery: insert: %w", err)
	}
	return nil
}

const patternColumns = `id, title, session_id, folds, layer_count, dye_count, checksum, size, width, height, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPattern(s scanner) (Pattern, error) {
	var p Pattern
	err := s.Scan(&p.ID, &p.Title, &p.SessionID, &p.Folds, &p.LayerCount, &p.DyeCount,
		&p.Checksum, &p.Size, &p.Width, &p.Height, &p.CreatedAt)
	return p, err
}

// Get returns the pattern with the given id.
func (db *DB) Get(id string) (Pattern, error) {
	row := db.conn.QueryRow(`SELECT `+patternColumns+` FROM patterns WHERE id = ?`, id)
	p, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Pattern{}, fmt.Errorf("pattern %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return Pattern{}, fmt.Errorf("gallery: get: %w", err)
	}
	return p, nil
}

// List returns a page of patterns, newest first, and the total count. A
// non-empty sessionID restricts the result to that session's exports.
func (db *DB) List(limit, offset int, sessionID string) ([]Pattern, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where, args := "", []any{}
	if sessionID != "" {
		where = ` WHERE session_id = ?`
		args = append(args, sessionID)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM patterns`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("gallery: count: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+patternColumns+` FROM patterns`+where+
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("gallery: list: %w", err)
	}
	defer rows.Close()

	out := []Pattern{}
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("gallery: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// Delete removes a pattern row. It reports apperr.ErrNotFound when no row
// matched.
func (db *DB) Delete(id string) error {
	res, err := db.conn.Exec(`DELETE FROM patterns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("gallery: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("pattern %q: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// AllIDs returns every indexed pattern id.
func (db *DB) AllIDs() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT id FROM patterns`)
	if err != nil {
		return nil, fmt.Errorf("gallery: all ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}
