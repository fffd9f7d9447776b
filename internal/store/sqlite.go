// Package store provides profile storage backends for NorthForm.
//
// This file implements a SQLite-backed store for session profiles.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/Punshui30/NF2/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists profiles in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating SQLite store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure the profiles table exists
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: migrations applied")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) models.Profile {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT profile FROM profiles WHERE session_id = ?`, sessionID).Scan(&raw)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("SQLiteStore.Get: read failed, treating as empty", "error", err, "sessionID", sessionID)
		}
		return models.Profile{}
	}
	var p models.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		// Corrupt rows are swallowed; the session starts over.
		slog.Warn("SQLiteStore.Get: corrupt profile JSON, treating as empty", "error", err, "sessionID", sessionID)
		return models.Profile{}
	}
	return p
}

func (s *SQLiteStore) Set(ctx context.Context, sessionID string, p models.Profile) {
	raw, err := json.Marshal(p)
	if err != nil {
		slog.Error("SQLiteStore.Set: marshal failed, write skipped", "error", err, "sessionID", sessionID)
		return
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (session_id, profile) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET profile = excluded.profile, updated_at = CURRENT_TIMESTAMP`,
		sessionID, string(raw))
	if err != nil {
		slog.Error("SQLiteStore.Set: write failed, ignored", "error", err, "sessionID", sessionID)
		return
	}
	slog.Debug("SQLiteStore.Set: profile persisted", "sessionID", sessionID)
}

func (s *SQLiteStore) Merge(ctx context.Context, sessionID string, patch models.Profile) models.Profile {
	merged := s.Get(ctx, sessionID).Merge(patch)
	s.Set(ctx, sessionID, merged)
	return merged
}

func (s *SQLiteStore) Reset(ctx context.Context, sessionID string) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE session_id = ?`, sessionID); err != nil {
		slog.Error("SQLiteStore.Reset: delete failed, ignored", "error", err, "sessionID", sessionID)
		return
	}
	slog.Debug("SQLiteStore.Reset: profile cleared", "sessionID", sessionID)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
