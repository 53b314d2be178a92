// Package cache keeps fetched Discogs payloads in a local sqlite database
// so repeated dashboard loads don't re-walk a few hundred pages of the
// collection endpoint. Only raw API payloads are stored; every analysis is
// recomputed from them on read.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deepcogs/deepcogs/internal/discogs"
)

const (
	kindCollection = "collection"
	kindWantlist   = "wantlist"
)

// DefaultTTL matches how often a collection realistically changes between
// dashboard visits.
const DefaultTTL = time.Hour

type Cache struct {
	db  *sql.DB
	ttl time.Duration

	// now is swapped out by tests to age entries without sleeping.
	now func() time.Time
}

// New opens (creating if necessary) the cache database at dbPath. A ttl of
// zero or less falls back to DefaultTTL.
func New(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache tables: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func createTables(db *sql.DB) error {
	query := `
CREATE TABLE IF NOT EXISTS Payload (
  kind TEXT NOT NULL,
  username TEXT NOT NULL,
  payload BLOB NOT NULL,
  fetched_at INTEGER NOT NULL,
  PRIMARY KEY (kind, username)
);
`
	if _, err := db.Exec(query); err != nil {
		return err
	}
	return nil
}

func (c *Cache) put(kind, username string, payload interface{}) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload for %s: %w", kind, username, err)
	}
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO Payload (kind, username, payload, fetched_at) VALUES (?, ?, ?, ?)",
		kind, username, encoded, c.now().Unix())
	if err != nil {
		return fmt.Errorf("writing %s payload for %s: %w", kind, username, err)
	}
	return nil
}

// get loads a payload if present and fresh. The second return is false for
// both a miss and an expired entry; expired entries are deleted on the way
// out.
func (c *Cache) get(kind, username string, out interface{}) (bool, error) {
	row := c.db.QueryRow(
		"SELECT payload, fetched_at FROM Payload WHERE kind = ? AND username = ?",
		kind, username)

	var encoded []byte
	var fetchedAt int64
	err := row.Scan(&encoded, &fetchedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s payload for %s: %w", kind, username, err)
	}

	if c.now().Sub(time.Unix(fetchedAt, 0)) > c.ttl {
		if _, err := c.db.Exec(
			"DELETE FROM Payload WHERE kind = ? AND username = ?", kind, username); err != nil {
			return false, fmt.Errorf("evicting stale %s payload for %s: %w", kind, username, err)
		}
		return false, nil
	}

	if err := json.Unmarshal(encoded, out); err != nil {
		return false, fmt.Errorf("decoding %s payload for %s: %w", kind, username, err)
	}
	return true, nil
}

// PutCollection stores a freshly fetched collection.
func (c *Cache) PutCollection(username string, releases []discogs.Release) error {
	return c.put(kindCollection, username, releases)
}

// Collection returns the cached collection for a user, if fresh.
func (c *Cache) Collection(username string) ([]discogs.Release, bool, error) {
	var releases []discogs.Release
	ok, err := c.get(kindCollection, username, &releases)
	if !ok || err != nil {
		return nil, false, err
	}
	return releases, true, nil
}

// PutWantlist stores a freshly fetched wantlist.
func (c *Cache) PutWantlist(username string, wants []discogs.WantlistEntry) error {
	return c.put(kindWantlist, username, wants)
}

// Wantlist returns the cached wantlist for a user, if fresh.
func (c *Cache) Wantlist(username string) ([]discogs.WantlistEntry, bool, error) {
	var wants []discogs.WantlistEntry
	ok, err := c.get(kindWantlist, username, &wants)
	if !ok || err != nil {
		return nil, false, err
	}
	return wants, true, nil
}

// Invalidate drops everything cached for a user, e.g. after a wantlist
// edit.
func (c *Cache) Invalidate(username string) error {
	if _, err := c.db.Exec("DELETE FROM Payload WHERE username = ?", username); err != nil {
		return fmt.Errorf("invalidating cache for %s: %w", username, err)
	}
	return nil
}
