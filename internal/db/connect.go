package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

type dialect struct {
	sqlDriver  string
	defaultDSN string
	schema     string
}

var dialects = map[Driver]dialect{
	DriverSQLite: {
		sqlDriver:  "sqlite",
		defaultDSN: "file:formquiz.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)",
		schema:     schemaSQLite,
	},
	DriverPostgres: {
		sqlDriver:  "pgx",
		defaultDSN: "postgres://localhost:5432/formquiz?sslmode=disable",
		schema:     schemaPostgres,
	},
}

// Open connects to driver (empty dsn selects a local default) and creates
// the users, token and history tables when missing.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver: %q", driver)
	}
	if dsn == "" {
		dsn = d.defaultDSN
	}

	conn, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one writer; in-memory databases also vanish with their last connection
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := ensureSchema(ctx, conn, driver); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return conn, nil
}

func ensureSchema(ctx context.Context, conn *sql.DB, driver Driver) error {
	_, err := conn.ExecContext(ctx, dialects[driver].schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,                 -- google|<sub>
  email TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  picture TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  last_login_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS oauth_tokens (
  user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  ciphertext BLOB NOT NULL,            -- nonce || sealed oauth2.Token JSON
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS published_quizzes (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL DEFAULT '',   -- empty when published without a session
  form_id TEXT NOT NULL,
  title TEXT NOT NULL,
  edit_url TEXT NOT NULL,
  responder_url TEXT NOT NULL DEFAULT '',
  question_count INTEGER NOT NULL,
  auth_mode TEXT NOT NULL,             -- user | delegated | service
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_published_owner ON published_quizzes(owner_id, created_at);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  picture TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL,
  last_login_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS oauth_tokens (
  user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  ciphertext BYTEA NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS published_quizzes (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL DEFAULT '',
  form_id TEXT NOT NULL,
  title TEXT NOT NULL,
  edit_url TEXT NOT NULL,
  responder_url TEXT NOT NULL DEFAULT '',
  question_count INTEGER NOT NULL,
  auth_mode TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_published_owner ON published_quizzes(owner_id, created_at);
`
