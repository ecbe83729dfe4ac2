package container

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"grocery/catalog/internal/cache"
	"grocery/catalog/internal/client"
	"grocery/catalog/internal/config"
	"grocery/catalog/internal/proxy"
	"grocery/catalog/internal/repository"
	"grocery/catalog/internal/server"
	"grocery/catalog/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config           *config.Config
	Client           client.CatalogClient
	TopologyCache    *cache.TopologyCache
	SubcategoryCache *cache.SubcategoryCache
	SearchCache      *cache.SearchCache
	ShoppingList     repository.ShoppingListRepository
	Service          *service.Service
	Server           *server.Server

	db *pgxpool.Pool
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	proxySupplier := proxy.NewProxySupplier(ctx, cfg.Catalog.Proxies, cfg.Catalog.BaseURL+"/categories/")
	if len(cfg.Catalog.Proxies) > 0 && proxySupplier.Len() == 0 {
		log.Warn("⚠️ No configured proxy passed validation, connecting directly")
	}

	catalogClient := client.NewCatalogClient(cfg.Catalog, proxySupplier)
	container.Client = catalogClient

	container.TopologyCache = cache.NewTopologyCache(catalogClient, cfg.Cache.TreeTTL)
	container.SubcategoryCache = cache.NewSubcategoryCache(catalogClient, cfg.Cache.SubcategoryTTL)
	container.SearchCache = cache.NewSearchCache(cfg.Cache.SearchMaxSize, cfg.Cache.SearchTTL, cfg.Admin.Identity)

	if cfg.Database.Enabled {
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := repository.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("✅ Connected to database successfully")

		container.db = db
		container.ShoppingList = repository.NewShoppingListRepository(db)
	} else {
		log.Warn("⚠️ Database disabled, shopping list additions will be rejected")
	}

	container.Service = service.NewService(
		container.TopologyCache,
		container.SubcategoryCache,
		container.SearchCache,
		container.ShoppingList,
		cfg.Search,
		cfg.Catalog.MaxWorkers,
	)

	container.Server = server.New(cfg.Server, container.Service)

	return container, nil
}

// Run serves HTTP until ctx is cancelled, then shuts the server down
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Server.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return c.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}

	log.Info("Container shut down successfully")
	return nil
}
