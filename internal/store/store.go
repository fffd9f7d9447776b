// Package store provides profile storage backends for NorthForm.
//
// One profile is kept per browser session, keyed by session ID. Storage
// failures never propagate to callers: reads of missing or corrupt rows
// degrade to the empty profile and failed writes are logged no-ops, so the
// onboarding UI is never crashed by persistence trouble.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/Punshui30/NF2/internal/models"
)

// Store is the profile persistence contract shared by all backends.
type Store interface {
	// Get returns the profile for the session, or the empty profile when
	// none exists or the persisted value is corrupt.
	Get(ctx context.Context, sessionID string) models.Profile
	// Set replaces the persisted profile wholesale. Persistence failures
	// are swallowed.
	Set(ctx context.Context, sessionID string, p models.Profile)
	// Merge applies a field-wise merge of patch onto the stored profile,
	// persists the result, and returns it.
	Merge(ctx context.Context, sessionID string, patch models.Profile) models.Profile
	// Reset deletes the stored profile for the session.
	Reset(ctx context.Context, sessionID string)
	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite file path as the store DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string as the store DSN.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL is
// recognized by URL scheme or key=value connection strings; anything else
// is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore keeps profiles in process memory. It backs tests and
// deployments that run without a database DSN.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

// NewInMemoryStore creates an empty in-memory profile store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[string]models.Profile)}
}

func (s *InMemoryStore) Get(ctx context.Context, sessionID string) models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles[sessionID]
}

func (s *InMemoryStore) Set(ctx context.Context, sessionID string, p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[sessionID] = p
}

func (s *InMemoryStore) Merge(ctx context.Context, sessionID string, patch models.Profile) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := s.profiles[sessionID].Merge(patch)
	s.profiles[sessionID] = merged
	return merged
}

func (s *InMemoryStore) Reset(ctx context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, sessionID)
}

func (s *InMemoryStore) Close() error { return nil }
