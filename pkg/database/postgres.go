package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultApplicationName = "forensic-query-engine"
	// facetConnections is the number of facets a query can run at once.
	facetConnections = 6
)

// DB is the process-wide pool over the evidence store. Request handlers never
// use it directly; they acquire a Scope through a ScopeProvider.
type DB struct {
	*pgxpool.Pool
}

// Config holds the evidence store connection settings.
type Config struct {
	URL            string
	MaxConnections int32
	// StatementTimeout bounds every statement on the pool's connections. Zero
	// leaves the server default in place.
	StatementTimeout time.Duration
	ApplicationName  string
}

// NewConnection opens the pool and pings it once so a bad URL fails at startup.
func NewConnection(ctx context.Context, cfg *Config) (*DB, error) {
	poolConfig, err := poolConfigFor(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func poolConfigFor(cfg *Config) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns <= 0 {
		poolConfig.MaxConns = 25
	}
	// Query fan-out holds one connection per facet, so keep a few warm.
	poolConfig.MinConns = min(facetConnections, poolConfig.MaxConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	name := cfg.ApplicationName
	if name == "" {
		name = defaultApplicationName
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = name
	if cfg.StatementTimeout > 0 {
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	return poolConfig, nil
}
