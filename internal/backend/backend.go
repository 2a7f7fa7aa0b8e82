// Package backend opens the Store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/punchamoorthee/pointsops/internal/config"
	"github.com/punchamoorthee/pointsops/internal/store"
	"github.com/punchamoorthee/pointsops/internal/store/memory"
	"github.com/punchamoorthee/pointsops/internal/store/mongo"
	"github.com/punchamoorthee/pointsops/internal/store/postgres"
	"github.com/punchamoorthee/pointsops/internal/store/sqlite"
)

func Open(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendPostgres:
		return postgres.NewStore(ctx, cfg.DBSource)
	case config.BackendSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.BackendMongo:
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
