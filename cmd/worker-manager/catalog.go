package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"borehole-workers/internal/catalog"
	"borehole-workers/internal/common/config"
	"borehole-workers/internal/common/database"
	"borehole-workers/internal/common/logger"
)

// newCatalogSource builds the configured endpoint catalog, fronted by the
// redis cache when a TTL is set. The returned func releases connections.
func newCatalogSource(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, log logger.Logger) (catalog.Source, func(), error) {
	var (
		src     catalog.Source
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Catalog.Backend {
	case config.CatalogStatic, "":
		src = catalog.NewStaticSource(cfg.Catalog.Endpoints)

	case config.CatalogPostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { pg.Close() })
		src = catalog.NewPostgresSource(pg.DB, cfg.Catalog.Table)
		zapLog.Info("PostgreSQL catalog connected successfully")

	case config.CatalogElasticsearch:
		var es *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			return nil, closeAll, err
		}
		src = catalog.NewElasticsearchSource(es.Client, cfg.Catalog.Index)
		zapLog.Info("Elasticsearch catalog connected successfully")

	default:
		return nil, closeAll, fmt.Errorf("unknown catalog backend %q", cfg.Catalog.Backend)
	}

	if cfg.Catalog.CacheTTL <= 0 {
		return src, closeAll, nil
	}

	rdb := database.NewRedis(cfg.Database.Redis)
	if err := rdb.Ping(ctx); err != nil {
		// CachedSource bypasses redis errors per call.
		zapLog.Warn("redis unreachable at startup, catalog cache will bypass", zap.Error(err))
	}
	closers = append(closers, func() { rdb.Close() })

	ttl := time.Duration(cfg.Catalog.CacheTTL) * time.Second
	return catalog.NewCachedSource(src, rdb.Client, ttl, log), closeAll, nil
}
