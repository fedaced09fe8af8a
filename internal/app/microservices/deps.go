package microservices

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Temutjin2k/droply/config"
	"github.com/Temutjin2k/droply/internal/adapter/geocache"
	"github.com/Temutjin2k/droply/internal/adapter/http/handler"
	"github.com/Temutjin2k/droply/internal/adapter/locationIQ"
	"github.com/Temutjin2k/droply/internal/adapter/memory"
	repo "github.com/Temutjin2k/droply/internal/adapter/postgres"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/internal/jobs"
	"github.com/Temutjin2k/droply/internal/service/lifecycle"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	"github.com/Temutjin2k/droply/pkg/postgres"
	"github.com/Temutjin2k/droply/pkg/trm"
)

// storeDeps is the package record store selected by config.
type storeDeps struct {
	packages lifecycle.PackageStore
	events   lifecycle.EventRepo
	trm      trm.TxManager
	db       *postgres.PostgreDB
}

func newStore(ctx context.Context, cfg config.Config, log logger.Logger) (*storeDeps, error) {
	switch cfg.Store.Driver {
	case types.StoreMemory:
		log.Warn(ctx, "using in-memory package store, data is lost on restart and not shared between services")
		store := memory.NewPackageStore()
		return &storeDeps{packages: store, events: store, trm: trm.Nop{}}, nil

	case types.StorePostgres, "":
		db, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("setup database: %w", err)
		}

		if cfg.Database.AutoMigrate {
			if err := repo.Migrate(ctx, db.Pool); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate database: %w", err)
			}
			log.Info(ctx, "database schema is up to date")
		}

		return &storeDeps{
			packages: repo.NewPackageRepo(db.Pool),
			events:   repo.NewEventRepo(db.Pool),
			trm:      trm.New(db.Pool),
			db:       db,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func (s *storeDeps) pingers(deps map[string]handler.Pinger) {
	if s.db != nil {
		deps["postgres"] = s.db.Pool
	}
}

func (s *storeDeps) close() {
	if s.db != nil {
		s.db.Close()
	}
}

// geocoderDeps is the LocationIQ client behind the sqlite cache, if configured.
type geocoderDeps struct {
	geocoder geocache.Geocoder
	cacheDB  *sql.DB
	purge    *jobs.GeoCachePurgeJob
}

func newGeocoder(ctx context.Context, cfg config.Config, log logger.Logger) (*geocoderDeps, error) {
	ctx = wrap.WithAction(ctx, "setup_geocoder")
	api := cfg.ExternalAPIConfig

	if api.LocationIQapiKey == "" {
		log.Warn(ctx, "LOCATIONIQ_API_KEY is empty, geocoding disabled: packages without coordinates use the fallback point")
		return &geocoderDeps{}, nil
	}

	var g geocache.Geocoder = locationIQ.New(api.LocationIQapiKey, api.LocationIQBaseURL, api.Timeout)
	if !cfg.GeoCache.Enabled {
		return &geocoderDeps{geocoder: g}, nil
	}

	db, err := geocache.Open(cfg.GeoCache.Path)
	if err != nil {
		return nil, fmt.Errorf("open geocode cache: %w", err)
	}

	cache := geocache.NewSqliteCache(db, cfg.GeoCache.TTL)
	deps := &geocoderDeps{
		geocoder: geocache.NewCachedGeocoder(g, cache, log),
		cacheDB:  db,
		purge:    jobs.NewGeoCachePurgeJob(cache, cfg.GeoCache.PurgeSpec, log),
	}
	log.Info(ctx, "geocode cache opened", "path", cfg.GeoCache.Path, "ttl", cfg.GeoCache.TTL)

	return deps, nil
}

func (g *geocoderDeps) pingers(deps map[string]handler.Pinger) {
	if g.cacheDB != nil {
		deps["geocache"] = pingFunc(g.cacheDB.PingContext)
	}
}

func (g *geocoderDeps) close(ctx context.Context, log logger.Logger) {
	if g.purge != nil {
		g.purge.Stop()
	}
	if g.cacheDB != nil {
		if err := g.cacheDB.Close(); err != nil {
			log.Warn(ctx, "failed to close geocode cache", "error", err.Error())
		}
	}
}

// pingFunc adapts a function to handler.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}
