package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"kinobot/internal/catalog"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
    code       TEXT PRIMARY KEY,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS parts (
    code     TEXT NOT NULL REFERENCES entries(code) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    label    TEXT NOT NULL,
    asset    TEXT NOT NULL,
    PRIMARY KEY (code, position),
    UNIQUE (code, label)
);
CREATE TABLE IF NOT EXISTS channels (
    channel TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS users (
    user_id    INTEGER PRIMARY KEY,
    first_seen TEXT NOT NULL
);`

type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("SQLITE_PATH is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Entries(ctx context.Context) ([]catalog.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, label, asset FROM parts ORDER BY code, position`)
	if err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}
	defer rows.Close()

	var out []catalog.Entry
	for rows.Next() {
		var code string
		var p catalog.Part
		if err := rows.Scan(&code, &p.Label, &p.Asset); err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].Code != code {
			out = append(out, catalog.Entry{Code: code})
		}
		last := &out[len(out)-1]
		last.Parts = append(last.Parts, p)
	}
	return out, rows.Err()
}

func (s *SQLite) SaveEntry(ctx context.Context, e catalog.Entry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (code, updated_at) VALUES (?, ?)
             ON CONFLICT(code) DO UPDATE SET updated_at = excluded.updated_at`,
			e.Code, now); err != nil {
			return fmt.Errorf("upsert entry: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM parts WHERE code = ?`, e.Code); err != nil {
			return fmt.Errorf("clear parts: %w", err)
		}
		for i, p := range e.Parts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO parts (code, position, label, asset) VALUES (?, ?, ?, ?)`,
				e.Code, i, p.Label, p.Asset); err != nil {
				return fmt.Errorf("insert part %q: %w", p.Label, err)
			}
		}
		return nil
	})
}

func (s *SQLite) DeleteEntry(ctx context.Context, code string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM parts WHERE code = ?`, code); err != nil {
			return fmt.Errorf("delete parts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE code = ?`, code); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		return nil
	})
}

func (s *SQLite) Channels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel FROM channels ORDER BY channel`)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var ch string
		if err := rows.Scan(&ch); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *SQLite) SaveChannels(ctx context.Context, channels []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM channels`); err != nil {
			return fmt.Errorf("clear channels: %w", err)
		}
		for _, ch := range channels {
			if _, err := tx.ExecContext(ctx, `INSERT INTO channels (channel) VALUES (?)`, ch); err != nil {
				return fmt.Errorf("insert channel %q: %w", ch, err)
			}
		}
		return nil
	})
}

func (s *SQLite) AddUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, first_seen) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING`,
		userID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLite) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *SQLite) Close(context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
