package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// TTLs per data type. Prices move constantly, fundamentals change with
// filings, earnings tables only change once a quarter.
const (
	TTLPrices   = 10 * time.Minute
	TTLProfile  = 1 * time.Hour
	TTLEarnings = 6 * time.Hour
)

// Store is a SQLite-backed TTL cache for upstream payloads. It sits in front
// of the market data provider as a read-through collaborator; it is never a
// system of record.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	schema := `
    CREATE TABLE IF NOT EXISTS cache (
        key     TEXT PRIMARY KEY,
        value   TEXT NOT NULL,
        expires INTEGER NOT NULL
    );`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetJSON stores v under key with the given TTL, replacing any previous entry.
func (s *Store) SetJSON(key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	expires := time.Now().Add(ttl).Unix()
	_, err = s.db.Exec(
		"REPLACE INTO cache (key, value, expires) VALUES (?, ?, ?)",
		key, string(payload), expires,
	)
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// GetJSON loads the entry for key into v. The second return is false when the
// entry is absent or expired; expired entries are deleted on read.
func (s *Store) GetJSON(key string, v any) (bool, error) {
	var payload string
	var expires int64
	err := s.db.QueryRow("SELECT value, expires FROM cache WHERE key = ?", key).
		Scan(&payload, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache entry: %w", err)
	}

	if expires < time.Now().Unix() {
		_, _ = s.db.Exec("DELETE FROM cache WHERE key = ?", key)
		return false, nil
	}

	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return false, fmt.Errorf("decode cache value: %w", err)
	}
	return true, nil
}

// Purge removes all expired entries.
func (s *Store) Purge() error {
	_, err := s.db.Exec("DELETE FROM cache WHERE expires < ?", time.Now().Unix())
	return err
}
