package cli

import (
	"context"

	"github.com/roach88/histories/internal/config"
	"github.com/roach88/histories/internal/history"
	"github.com/roach88/histories/internal/mongostore"
	"github.com/roach88/histories/internal/store"
)

// openBackend opens the durable medium selected by cfg. Connection failures
// are reported as storage errors.
func openBackend(ctx context.Context, cfg *config.Config) (history.Backend, error) {
	switch cfg.Backend {
	case config.BackendMongo:
		st, err := mongostore.Open(ctx, mongostore.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
		if err != nil {
			return nil, history.NewStorageError("open", err)
		}
		return st, nil
	default:
		path, err := cfg.SQLitePath()
		if err != nil {
			return nil, history.NewStorageError("open", err)
		}
		st, err := store.Open(path)
		if err != nil {
			return nil, history.NewStorageError("open", err)
		}
		return st, nil
	}
}

// describeBackend names the configured medium for logs and stats output.
func describeBackend(cfg *config.Config) string {
	if cfg.Backend == config.BackendMongo {
		return "mongo " + cfg.Mongo.Database + "." + cfg.Mongo.Collection
	}
	path, err := cfg.SQLitePath()
	if err != nil {
		return "sqlite"
	}
	return "sqlite " + path
}

// withBackend opens the configured backend, runs fn and closes it.
func (o *RootOptions) withBackend(ctx context.Context, fn func(history.Backend) error) error {
	o.Logger.Debug("opening store", "backend", describeBackend(o.Config))
	b, err := openBackend(ctx, o.Config)
	if err != nil {
		return wrapStoreError("failed to open store", err)
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			o.Logger.Error("error closing store", "error", closeErr)
		}
	}()
	return fn(b)
}
