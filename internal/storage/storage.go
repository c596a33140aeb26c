// Package storage contains the storage-agnostic contract for the batch
// object store the wranglers read input payloads from and persist outputs
// to, plus a factory over the concrete backends.
//
// The store is a flat key/blob space: keys are file names chosen by the
// orchestrator, values are row-oriented JSON payloads. Every write records
// an xxh3 checksum of the payload which is verified on read, so a corrupted
// batch fails the run instead of feeding garbage into an aggregation.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("storage: object not found")

// ErrChecksum is returned by Get when the stored payload no longer matches
// its recorded checksum.
var ErrChecksum = errors.New("storage: checksum mismatch")

// Repository is the minimal object-store contract the wranglers consume.
type Repository interface {
	// Put stores body under key, overwriting any previous object.
	Put(ctx context.Context, key string, body []byte) error
	// Get returns the object stored under key, verifying its checksum.
	Get(ctx context.Context, key string) ([]byte, error)
}

// Config selects and configures a backend.
type Config struct {
	// Kind selects the backend: "sqlite" or "postgres".
	Kind string `json:"kind" yaml:"kind"`
	// DSN is the backend connection string.
	DSN string `json:"dsn" yaml:"dsn"`
	// Table is the object table name; backends apply their own default
	// when empty.
	Table string `json:"table" yaml:"table"`
}

// Factory builds a Repository for a configured kind. Backends register
// themselves from their package init to keep driver imports out of this
// package.
type Factory func(ctx context.Context, cfg Config) (Repository, func(), error)

var factories = map[string]Factory{}

// Register installs a backend factory under kind. Later registrations for
// the same kind win, which tests use to stub backends.
func Register(kind string, f Factory) {
	factories[kind] = f
}

// Open builds the Repository selected by cfg.Kind and returns it with a
// close function.
func Open(ctx context.Context, cfg Config) (Repository, func(), error) {
	f, ok := factories[cfg.Kind]
	if !ok {
		return nil, nil, fmt.Errorf("storage: unknown kind %q", cfg.Kind)
	}
	return f(ctx, cfg)
}
