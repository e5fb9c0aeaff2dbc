// Package objectstore defines the minimal bucket/key blob interface the merge
// job reads inputs from and writes output to, plus a kind-keyed factory
// registry that backend packages populate from init().
//
// Production uses the "s3" backend. The "file", "sqlite", "postgres" and
// "mssql" backends exist so an event can be replayed locally or against a
// database that stores uploaded exports as blobs.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned (possibly wrapped) by Get when bucket/key does not exist.
var ErrNotFound = errors.New("object not found")

// Store reads and writes whole objects.
type Store interface {
	// Get returns the full content of bucket/key.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Put creates or replaces bucket/key with body.
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error

	// Close releases client resources. Call once.
	Close() error
}

// Config selects and configures a backend.
//
// Fields a backend does not use are ignored by it.
type Config struct {
	Kind string `koanf:"kind"`

	// DSN is the database connection string for sqlite/postgres/mssql.
	DSN string `koanf:"dsn"`

	// Root is the base directory of the file backend; buckets are subdirectories.
	Root string `koanf:"root"`

	// Region, Endpoint and PathStyle configure the s3 backend. Endpoint is
	// only needed for S3-compatible stores (MinIO, LocalStack).
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	PathStyle bool   `koanf:"path_style"`
}

// Factory constructs a Store for a Config.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind.
//
// Call it from a backend package's init(). Registering an empty kind, a nil
// factory, or the same kind twice panics.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("objectstore: Register called with empty kind")
	}
	if f == nil {
		panic("objectstore: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("objectstore: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs the Store registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("objectstore: missing store kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("objectstore: unsupported store kind=%q (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds lists registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
