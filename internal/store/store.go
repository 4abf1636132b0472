// Package store provides the shared key-value storage backends for MissionLink.
//
// Every page of a mission (the sender watching for feedback and the receiver
// playing the briefing) talks to the same namespace, so a value written by one
// process is visible to the others on the same device or database.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// DefaultNamespace groups all MissionLink keys inside a shared backend.
const DefaultNamespace = "missionlink"

// ErrUnsupportedDSN is returned by New when no backend matches the DSN.
var ErrUnsupportedDSN = errors.New("unsupported store DSN")

// KV is a small string key-value store. Set is a single atomic replace of the
// stored value; there is no read-modify-write primitive.
type KV interface {
	// Get returns the value of key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key of the namespace.
	Clear(ctx context.Context) error
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN       string // data source name
	Namespace string // key namespace, DefaultNamespace when empty
}

// Option configures store options.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithRedisDSN sets the Redis URL (redis:// or rediss://).
func WithRedisDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithNamespace isolates keys of one deployment from another sharing the backend.
func WithNamespace(ns string) Option {
	return func(o *Opts) { o.Namespace = ns }
}

func applyOptions(opts []Option) Opts {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	return cfg
}

// DetectDSNType returns the driver name for a DSN: "postgres", "redis" or
// "sqlite3". Anything that is not recognisably Postgres or Redis is treated
// as a SQLite file path.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname="):
		return "postgres"
	case strings.HasPrefix(lower, "redis://"), strings.HasPrefix(lower, "rediss://"):
		return "redis"
	default:
		return "sqlite3"
	}
}

// New opens the backend selected by the DSN. An empty DSN yields a
// process-local in-memory store.
func New(opts ...Option) (KV, error) {
	cfg := applyOptions(opts)
	if cfg.DSN == "" {
		slog.Debug("store.New: no DSN, using in-memory store")
		return NewInMemoryStore(), nil
	}

	driver := DetectDSNType(cfg.DSN)
	slog.Debug("store.New: opening store", "driver", driver, "namespace", cfg.Namespace)
	switch driver {
	case "postgres":
		return NewPostgresStore(opts...)
	case "redis":
		return NewRedisStore(opts...)
	case "sqlite3":
		return NewSQLiteStore(opts...)
	default:
		return nil, ErrUnsupportedDSN
	}
}

// InMemoryStore is a process-local KV used in tests and when no DSN is set.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]string)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *InMemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]string)
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *InMemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *InMemoryStore) Close() error { return nil }
