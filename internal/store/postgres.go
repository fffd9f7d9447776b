// Package store provides profile storage backends for NorthForm.
//
// This file implements a PostgreSQL-backed store for session profiles.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/Punshui30/NF2/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists profiles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure the profiles table exists
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore.NewPostgresStore: migrations applied")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) models.Profile {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT profile FROM profiles WHERE session_id = $1`, sessionID).Scan(&raw)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("PostgresStore.Get: read failed, treating as empty", "error", err, "sessionID", sessionID)
		}
		return models.Profile{}
	}
	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		slog.Warn("PostgresStore.Get: corrupt profile JSON, treating as empty", "error", err, "sessionID", sessionID)
		return models.Profile{}
	}
	return p
}

func (s *PostgresStore) Set(ctx context.Context, sessionID string, p models.Profile) {
	raw, err := json.Marshal(p)
	if err != nil {
		slog.Error("PostgresStore.Set: marshal failed, write skipped", "error", err, "sessionID", sessionID)
		return
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (session_id, profile) VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET profile = EXCLUDED.profile, updated_at = NOW()`,
		sessionID, raw)
	if err != nil {
		slog.Error("PostgresStore.Set: write failed, ignored", "error", err, "sessionID", sessionID)
		return
	}
	slog.Debug("PostgresStore.Set: profile persisted", "sessionID", sessionID)
}

func (s *PostgresStore) Merge(ctx context.Context, sessionID string, patch models.Profile) models.Profile {
	merged := s.Get(ctx, sessionID).Merge(patch)
	s.Set(ctx, sessionID, merged)
	return merged
}

func (s *PostgresStore) Reset(ctx context.Context, sessionID string) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE session_id = $1`, sessionID); err != nil {
		slog.Error("PostgresStore.Reset: delete failed, ignored", "error", err, "sessionID", sessionID)
		return
	}
	slog.Debug("PostgresStore.Reset: profile cleared", "sessionID", sessionID)
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
