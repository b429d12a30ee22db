package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps all corpora in one SQLite database. Save replaces a
// user's rows inside a single transaction.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite corpus store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS corpus_users (
		user_name  TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS corpus_entries (
		user_name TEXT NOT NULL REFERENCES corpus_users(user_name),
		permalink TEXT NOT NULL,
		text      TEXT NOT NULL,
		PRIMARY KEY (user_name, permalink)
	);
	`)
	return err
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, user string) (Corpus, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, fmt.Errorf("sqlite corpus store: empty user")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO corpus_users (user_name, created_at, updated_at) VALUES (?, ?, ?)`,
		user, now, now,
	); err != nil {
		return nil, fmt.Errorf("register user %s: %w", user, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT permalink, text FROM corpus_entries WHERE user_name = ?`, user)
	if err != nil {
		return nil, fmt.Errorf("query corpus %s: %w", user, err)
	}
	defer rows.Close()

	out := Corpus{}
	for rows.Next() {
		var key string
		var text sql.NullString
		if err := rows.Scan(&key, &text); err != nil {
			return nil, fmt.Errorf("%w: scan corpus %s: %v", ErrStorageCorrupt, user, err)
		}
		out[key] = text.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", user, err)
	}
	return out, nil
}

func (s *SQLiteStore) Save(ctx context.Context, user string, c Corpus) (err error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return fmt.Errorf("sqlite corpus store: empty user")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save %s: %w", user, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO corpus_users (user_name, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_name) DO UPDATE SET updated_at = excluded.updated_at`,
		user, now, now,
	); err != nil {
		return fmt.Errorf("upsert user %s: %w", user, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM corpus_entries WHERE user_name = ?`, user); err != nil {
		return fmt.Errorf("clear corpus %s: %w", user, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO corpus_entries (user_name, permalink, text) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, key := range c.Keys() {
		if _, err = stmt.ExecContext(ctx, user, key, c[key]); err != nil {
			return fmt.Errorf("insert %s: %w", key, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save %s: %w", user, err)
	}
	return nil
}
