// Package kvstore provides the persistent string key-value storage the
// client keeps its session, cache, queue and cart in.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// Store is an asynchronous string-keyed storage. Missing keys are reported
// through the bool of Get, never as an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	MultiRemove(ctx context.Context, keys ...string) error
	AllKeys(ctx context.Context) ([]string, error)
}

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown kv driver")

// Options selects and configures a Store backend.
type Options struct {
	Driver string
	Path   string
	DSN    string
}

// Open builds the configured backend. The returned close func is never nil.
func Open(ctx context.Context, opts Options) (Store, func(), error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemStore(), func() {}, nil
	case DriverFile:
		s, err := NewFileStore(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case DriverPostgres:
		if err := MigrateUp(ctx, opts.DSN); err != nil {
			return nil, nil, fmt.Errorf("migrate kv schema: %w", err)
		}
		db, err := Connect(ctx, opts.DSN)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresStore(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
