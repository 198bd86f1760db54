package storage

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/logger"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = DialectPostgres
	BackendSqlite   = DialectSqlite
)

// Store is a document store addressed by slash separated paths.
type Store interface {
	Get(ctx context.Context, path string) (Document, error)
	Set(ctx context.Context, path string, fields Fields) error
	Merge(ctx context.Context, path string, fields Fields) error
	Add(ctx context.Context, collection string, fields Fields) (Document, error)
	Delete(ctx context.Context, path string) error
	DeleteAll(ctx context.Context, paths ...string) (int, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	Close() error
}

type backendConfig interface {
	Kind() string
}

// Open returns the store the config selects.
func Open(backend backendConfig, pg postgresConfig, lite sqliteConfig) (Store, error) {
	logger.Info("opening storage", zap.String("backend", backend.Kind()))
	var (
		store *SQLStorage
		err   error
	)
	switch backend.Kind() {
	case BackendMemory:
		return NewInMemStorage(), nil
	case BackendPostgres:
		store, err = NewPostgresStorage(pg)
	case BackendSqlite:
		store, err = NewSqliteStorage(lite)
	default:
		return nil, errors.Errorf("unknown storage backend %q", backend.Kind())
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
