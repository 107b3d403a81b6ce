package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool with conservative defaults.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable defaults for small services; callers can override if needed.
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	// Validate connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// EnsureSchema creates the users and verses tables when missing.
// The unique indexes are the source of truth for the uniqueness
// guarantees: application-level duplicate checks are advisory only,
// and a race between concurrent registrations is settled here.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              BIGSERIAL PRIMARY KEY,
	username        TEXT NOT NULL UNIQUE,
	email           TEXT NOT NULL UNIQUE,
	hashed_password TEXT NOT NULL,
	disabled        BOOLEAN NOT NULL DEFAULT FALSE,
	score           BIGINT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_users_score ON users (score DESC);

CREATE TABLE IF NOT EXISTS verses (
	id        BIGSERIAL PRIMARY KEY,
	book_name TEXT NOT NULL,
	book      INT NOT NULL,
	chapter   INT NOT NULL,
	verse     INT NOT NULL,
	text      TEXT NOT NULL,
	CONSTRAINT unique_verse_location UNIQUE (book, chapter, verse)
);

CREATE INDEX IF NOT EXISTS idx_verses_book ON verses (book);
CREATE INDEX IF NOT EXISTS idx_verses_book_chapter ON verses (book, chapter);
`
	_, err := db.Exec(ctx, schema)
	return err
}
