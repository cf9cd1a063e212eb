// Package source wraps the relational Postgres projection of the chain
// (accounts, gateways, transactions, blocks, locations) that the ETL
// daemon reads from. It mirrors the connect-verify-wrap-errors shape the
// rest of this codebase uses for external clients, bound to pgxpool
// instead of an RPC client.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/evandiewald/helium-arango-etl/pkg/errs"
)

// Client is a thin wrapper around a pgxpool.Pool that adds the
// block-height/time lookups every component of the ETL needs and
// classifies connection failures into the shared error kinds.
type Client struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New dials postgres at dsn and verifies reachability with a ping.
// A DSN that fails to parse is ConnectFatal (retrying a bad DSN is
// pointless); a failed ping is ConnectTransient.
func New(ctx context.Context, dsn string, logger zerolog.Logger) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.New(errs.KindConnectFatal, "source.New", fmt.Errorf("parse dsn: %w", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errs.New(errs.KindConnectTransient, "source.New", fmt.Errorf("ping: %w", err))
	}

	return &Client{pool: pool, logger: logger.With().Str("component", "source").Logger()}, nil
}

// Pool exposes the underlying pool so cursor constructors in
// internal/query can bind their own prepared queries to it.
func (c *Client) Pool() *pgxpool.Pool { return c.pool }

// Close releases the connection pool.
func (c *Client) Close() { c.pool.Close() }

// CurrentHeight returns the highest block height the source has recorded.
func (c *Client) CurrentHeight(ctx context.Context) (int64, error) {
	var height int64
	err := c.pool.QueryRow(ctx, `SELECT max(height) FROM blocks`).Scan(&height)
	if err != nil {
		return 0, errs.New(errs.KindQuery, "source.CurrentHeight", err)
	}
	return height, nil
}

// TimeOfBlock returns the unix timestamp recorded for the given height.
func (c *Client) TimeOfBlock(ctx context.Context, height int64) (int64, error) {
	var ts int64
	err := c.pool.QueryRow(ctx, `SELECT time FROM blocks WHERE height = $1`, height).Scan(&ts)
	if err != nil {
		return 0, errs.New(errs.KindQuery, "source.TimeOfBlock", err)
	}
	return ts, nil
}

// HeightAtOrAfter returns the lowest block height whose recorded time is
// strictly greater than ts, matching the original get_block_by_timestamp
// query (Blocks.time > timestamp).
func (c *Client) HeightAtOrAfter(ctx context.Context, ts int64) (int64, error) {
	var height int64
	err := c.pool.QueryRow(ctx, `SELECT min(height) FROM blocks WHERE time > $1`, ts).Scan(&height)
	if err != nil {
		return 0, errs.New(errs.KindQuery, "source.HeightAtOrAfter", err)
	}
	return height, nil
}
