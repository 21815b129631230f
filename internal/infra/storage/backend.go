package storage

import (
	"context"
	"fmt"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options selects and sizes a backend.
type Options struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// Backend bundles the save store with the event history of the same
// database.
type Backend struct {
	Store  Store
	Events EventRepository
}

// Close releases the underlying database.
func (b *Backend) Close() error {
	return b.Store.Close()
}

// Open connects the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		db, err := InitSQLite(opts.DSN)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store:  NewSQLiteStore(db),
			Events: NewSQLiteEventRepository(db),
		}, nil

	case DriverPostgres:
		pool, err := OpenPostgres(ctx, opts.DSN, int32(opts.MaxOpenConns))
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store:  NewPostgresStore(pool),
			Events: NewPostgresEventRepository(pool),
		}, nil

	case DriverMemory:
		return &Backend{
			Store:  NewMemoryStore(),
			Events: NewMemoryEventRepository(),
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
}
