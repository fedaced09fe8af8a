// Package geocache stores forward geocoding results in SQLite.
package geocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/pkg/metrics"
)

// Open opens (or creates) the cache database at path and ensures its schema.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		path = "geocache.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	// journal_mode is not supported for in-memory databases
	_, _ = db.Exec(`PRAGMA journal_mode=WAL`)
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address    TEXT PRIMARY KEY,
		lat        REAL NOT NULL,
		lon        REAL NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_geocode_cache_created_at ON geocode_cache(created_at);
	`)
	if err != nil {
		return fmt.Errorf("init geocode cache schema: %w", err)
	}
	return nil
}

// SqliteCache maps normalized addresses to their best coordinate.
type SqliteCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSqliteCache wraps db. Entries older than ttl are treated as missing; a
// non-positive ttl keeps entries forever.
func NewSqliteCache(db *sql.DB, ttl time.Duration) *SqliteCache {
	return &SqliteCache{db: db, ttl: ttl, now: time.Now}
}

// Get returns the cached coordinate for address, if fresh.
func (s *SqliteCache) Get(ctx context.Context, address string) (models.Coordinate, bool, error) {
	if s.db == nil {
		return models.Coordinate{}, false, errors.New("geocode cache: db is nil")
	}

	var (
		c         models.Coordinate
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
	SELECT lat, lon, created_at
	FROM geocode_cache
	WHERE address = ?;
	`, Normalize(address)).Scan(&c.Latitude, &c.Longitude, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.GeocodeCacheLookups.WithLabelValues("miss").Inc()
		return models.Coordinate{}, false, nil
	}
	if err != nil {
		return models.Coordinate{}, false, fmt.Errorf("get geocode cache: %w", err)
	}

	if s.ttl > 0 && s.now().Sub(time.Unix(createdAt, 0)) > s.ttl {
		metrics.GeocodeCacheLookups.WithLabelValues("expired").Inc()
		return models.Coordinate{}, false, nil
	}

	metrics.GeocodeCacheLookups.WithLabelValues("hit").Inc()
	return c, true, nil
}

// Put stores c for address, replacing any previous entry.
func (s *SqliteCache) Put(ctx context.Context, address string, c models.Coordinate) error {
	if s.db == nil {
		return errors.New("geocode cache: db is nil")
	}
	key := Normalize(address)
	if key == "" {
		return errors.New("insert geocode cache: empty address key")
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO geocode_cache (address, lat, lon, created_at)
	VALUES (?, ?, ?, ?);
	`, key, c.Latitude, c.Longitude, s.now().Unix())
	if err != nil {
		return fmt.Errorf("insert geocode cache %q: %w", key, err)
	}
	return nil
}

// Purge deletes entries older than the ttl and returns how many were removed.
func (s *SqliteCache) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	cutoff := s.now().Add(-s.ttl).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM geocode_cache WHERE created_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge geocode cache: %w", err)
	}
	return res.RowsAffected()
}

// Normalize is the cache key for an address: lower case, single spaced.
func Normalize(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}
