// Package cache provides the read-through response cache used by the gateway.
// Entries are content-addressed by a hash of the endpoint path and its
// parameters and never expire on their own.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry is the envelope stored for a cached response.
type Entry struct {
	Path     string          `json:"path" db:"path"`
	CachedAt time.Time       `json:"timestamp" db:"cached_at"`
	Payload  json.RawMessage `json:"data" db:"payload"`
}

// Store is a key/value store for cached responses.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)
	Len(ctx context.Context) (int, error)
}

// Key derives the cache key for a request. Parameters are sorted by name so
// the key does not depend on the order they were added in.
func Key(path string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(path)
	for _, name := range names {
		b.WriteString("\n")
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(params[name])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Drivers accepted by Open.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config selects and configures a Store.
type Config struct {
	Driver string
	Dir    string
	DSN    string
}

// Open builds the Store named by cfg.Driver. A nil Store means caching is off.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(cfg.Dir)
	case DriverPostgres:
		return OpenSQLStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
