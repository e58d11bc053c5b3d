package repository

import (
	"context"
	"fmt"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
	"github.com/taskmanager/taskmanager-go/internal/docstore/memory"
	"github.com/taskmanager/taskmanager-go/internal/docstore/mongostore"
	"github.com/taskmanager/taskmanager-go/internal/docstore/mysqlstore"
	"github.com/taskmanager/taskmanager-go/internal/docstore/pgstore"
)

// Store drivers accepted by OpenStore.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// StoreOptions selects and configures the document store backend.
type StoreOptions struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	MySQLDSN      string
	PostgresDSN   string
}

// OpenStore creates the shared document store for the process. The returned
// store is owned by the caller, which must Close it on shutdown.
func OpenStore(ctx context.Context, opts StoreOptions) (docstore.Store, error) {
	var (
		store docstore.Store
		err   error
	)

	switch opts.Driver {
	case DriverMemory:
		return memory.New(), nil
	case DriverMongo:
		store, err = mongoStore(ctx, opts)
	case DriverMySQL:
		store, err = mysqlStore(ctx, opts)
	case DriverPostgres:
		store, err = postgresStore(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", opts.Driver, err)
	}
	return store, nil
}

func mongoStore(ctx context.Context, opts StoreOptions) (docstore.Store, error) {
	s, err := mongostore.Open(ctx, opts.MongoURI, opts.MongoDatabase)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func mysqlStore(ctx context.Context, opts StoreOptions) (docstore.Store, error) {
	s, err := mysqlstore.Open(ctx, opts.MySQLDSN)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func postgresStore(ctx context.Context, opts StoreOptions) (docstore.Store, error) {
	s, err := pgstore.Open(ctx, opts.PostgresDSN)
	if err != nil {
		return nil, err
	}
	return s, nil
}
