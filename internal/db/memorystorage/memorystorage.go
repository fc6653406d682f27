package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/bookshelf/internal/db/jsondb"
)

// MemoryStorage is a JSONDB that is never flushed to disk.
type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.NewCache(),
		},
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
