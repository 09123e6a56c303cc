// Package database owns the Postgres pool and schema migrations for
// the run provenance store.
package database

import (
	"context"
	"fmt"

	pgxzerolog "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
)

// NewPool opens a pgx pool for url. Query logging goes through the
// given zerolog logger; when app is non-nil, queries are also traced
// by the New Relic agent.
func NewPool(ctx context.Context, url string, log zerolog.Logger, app *newrelic.Application) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("database: parse url: %w", err)
	}

	cfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   pgxzerolog.NewLogger(log),
		LogLevel: tracelog.LogLevelWarn,
	}
	if app != nil {
		cfg.ConnConfig.Tracer = nrpgx5.NewTracer()
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}
	return pool, nil
}
