// Package storage keeps per-location lookup counters in Postgres. It feeds
// the popular-searches route and the cache warmer; weather data itself is
// never stored here.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gometeo/weatherlookup/internal/model"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DBTX = (*pgxpool.Pool)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS lookup_stats (
	kind       VARCHAR(16)  NOT NULL,
	lookup_key VARCHAR(255) NOT NULL,
	label      VARCHAR(255) NOT NULL DEFAULT '',
	lat        VARCHAR(32)  NOT NULL DEFAULT '',
	lon        VARCHAR(32)  NOT NULL DEFAULT '',
	hits       BIGINT       NOT NULL DEFAULT 0,
	last_seen  TIMESTAMPTZ  NOT NULL,
	PRIMARY KEY (kind, lookup_key)
);`

// Connect opens a pool, checks it and creates the table if needed.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create lookup_stats: %w", err)
	}
	return pool, nil
}

// ConnectWithRetry calls Connect up to attempts times, waiting delay between
// tries. Postgres often comes up after the services that use it.
func ConnectWithRetry(ctx context.Context, dsn string, attempts int, delay time.Duration, logger *slog.Logger) (*pgxpool.Pool, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		pool, err := Connect(ctx, dsn)
		if err == nil {
			return pool, nil
		}
		lastErr = err
		if i == attempts {
			break
		}

		logger.Warn("database not ready, retrying",
			"attempt", i,
			"of", attempts,
			"retry_in", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("database unavailable after %d attempts: %w", attempts, lastErr)
}

type LookupStore struct {
	db     DBTX
	logger *slog.Logger
}

func NewLookupStore(db DBTX, logger *slog.Logger) *LookupStore {
	return &LookupStore{db: db, logger: logger}
}

// Record counts one lookup (upsert).
func (s *LookupStore) Record(ctx context.Context, ev model.LookupEvent) error {
	query := `
		INSERT INTO lookup_stats (kind, lookup_key, label, lat, lon, hits, last_seen)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (kind, lookup_key) DO UPDATE
		SET hits = lookup_stats.hits + 1,
		    label = CASE WHEN EXCLUDED.label <> '' THEN EXCLUDED.label ELSE lookup_stats.label END,
		    last_seen = GREATEST(lookup_stats.last_seen, EXCLUDED.last_seen);
	`

	_, err := s.db.Exec(ctx, query,
		string(ev.Kind),
		ev.Key(),
		ev.Label,
		ev.Lat,
		ev.Lon,
		ev.At,
	)
	if err != nil {
		return fmt.Errorf("record %s lookup %q: %w", ev.Kind, ev.Key(), err)
	}
	return nil
}

// PopularQueries lists the most searched city names.
func (s *LookupStore) PopularQueries(ctx context.Context, limit int) ([]model.PopularQuery, error) {
	query := `
		SELECT lookup_key, hits, last_seen
		FROM lookup_stats
		WHERE kind = $1
		ORDER BY hits DESC, last_seen DESC
		LIMIT $2;
	`

	rows, err := s.db.Query(ctx, query, string(model.LookupSearch), limit)
	if err != nil {
		return nil, fmt.Errorf("query popular searches: %w", err)
	}
	defer rows.Close()

	out := make([]model.PopularQuery, 0, limit)
	for rows.Next() {
		var p model.PopularQuery
		if err := rows.Scan(&p.Query, &p.Hits, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("scan popular search: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate popular searches: %w", err)
	}
	return out, nil
}

// HotLocations lists the most requested weather coordinate pairs.
func (s *LookupStore) HotLocations(ctx context.Context, limit int) ([]model.HotLocation, error) {
	query := `
		SELECT lat, lon, hits
		FROM lookup_stats
		WHERE kind = $1
		ORDER BY hits DESC, last_seen DESC
		LIMIT $2;
	`

	rows, err := s.db.Query(ctx, query, string(model.LookupWeather), limit)
	if err != nil {
		return nil, fmt.Errorf("query hot locations: %w", err)
	}
	defer rows.Close()

	out := make([]model.HotLocation, 0, limit)
	for rows.Next() {
		var h model.HotLocation
		if err := rows.Scan(&h.Lat, &h.Lon, &h.Hits); err != nil {
			return nil, fmt.Errorf("scan hot location: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hot locations: %w", err)
	}
	return out, nil
}

// Ping is used by the health check.
func (s *LookupStore) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}
