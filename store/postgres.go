// Package store is the authoritative relational record of links and users.
// It is the only writer of durable state; the cache layer holds disposable
// projections of it.
package store

import (
	"context"
	"database/sql"
	"time"

	"short-link-service/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY,
    username      VARCHAR(255) NOT NULL,
    email         VARCHAR(255) NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT users_username_key UNIQUE (username),
    CONSTRAINT users_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS urls (
    id                 UUID PRIMARY KEY,
    short_code         VARCHAR(50) NOT NULL,
    custom_alias       VARCHAR(50),
    original_url       VARCHAR(2048) NOT NULL,
    expires_at         TIMESTAMPTZ,
    password_hash      VARCHAR(255),
    click_count        BIGINT NOT NULL DEFAULT 0,
    platform_reference VARCHAR(100),
    user_id            UUID REFERENCES users(id) ON DELETE SET NULL,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT urls_short_code_key UNIQUE (short_code),
    CONSTRAINT urls_custom_alias_key UNIQUE (custom_alias)
);

CREATE INDEX IF NOT EXISTS urls_user_id_idx ON urls (user_id, created_at DESC);
`

// DB wraps the shared process-wide connection pool.
type DB struct {
	conn         *sql.DB
	queryTimeout time.Duration
}

// Open connects to Postgres, applies pool limits and runs migrations.
func Open(cfg config.PostgresConfig) (*DB, error) {
	conn, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetConnMaxIdleTime(time.Duration(cfg.ConnIdleTimeout) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{
		conn:         conn,
		queryTimeout: time.Duration(cfg.QueryTimeout) * time.Second,
	}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info().Int("max_open_conns", cfg.MaxOpenConns).Msg("Connected to Postgres")
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, schema)
	return err
}

// Ping reports store connectivity for health checks.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}
