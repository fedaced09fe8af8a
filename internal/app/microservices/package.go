package microservices

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Temutjin2k/droply/config"
	"github.com/Temutjin2k/droply/internal/adapter/http/handler"
	"github.com/Temutjin2k/droply/internal/adapter/http/server"
	broker "github.com/Temutjin2k/droply/internal/adapter/rabbit"
	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/service/auth"
	"github.com/Temutjin2k/droply/internal/service/lifecycle"
	"github.com/Temutjin2k/droply/internal/service/mapview"
	"github.com/Temutjin2k/droply/internal/service/resolver"
	"github.com/Temutjin2k/droply/pkg/logger"
	"github.com/Temutjin2k/droply/pkg/rabbit"
)

// PackageService serves package CRUD, lifecycle transitions and the map.
type PackageService struct {
	store      *storeDeps
	geo        *geocoderDeps
	rabbit     *rabbit.RabbitMQ
	httpServer *server.API
	cfg        config.Config
	log        logger.Logger
}

func NewPackage(ctx context.Context, cfg config.Config, log logger.Logger) (*PackageService, error) {
	s := &PackageService{cfg: cfg, log: log}

	var err error
	if s.store, err = newStore(ctx, cfg, log); err != nil {
		log.Error(ctx, "Failed to setup package store", err)
		return nil, err
	}

	if s.geo, err = newGeocoder(ctx, cfg, log); err != nil {
		log.Error(ctx, "Failed to setup geocoder", err)
		s.close(ctx)
		return nil, err
	}

	s.rabbit, err = rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Error(ctx, "Failed to connect to rabbitmq", err)
		s.close(ctx)
		return nil, err
	}
	publisher := broker.NewPackageBroker(s.rabbit, cfg.RabbitMQ.Exchange, log)

	res := resolver.New(s.geo.geocoder, resolverDefaults(cfg.Map), log)
	projector := mapview.NewProjector(res, cfg.Map.GeocodeConcurrency, log)
	packages := lifecycle.New(s.store.packages, s.store.events, publisher, s.geo.geocoder, res, projector, s.store.trm, log)

	health := map[string]handler.Pinger{
		"rabbitmq": pingFunc(s.rabbit.EnsureConnection),
	}
	s.store.pingers(health)
	s.geo.pingers(health)

	s.httpServer, err = server.New(cfg, server.Options{
		Auth:     auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, log),
		Packages: packages,
		Health:   health,
	}, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		s.close(ctx)
		return nil, err
	}

	return s, nil
}

func (s *PackageService) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	s.httpServer.Run(ctx, errCh)
	defer func() {
		s.close(ctx)
		s.log.Info(ctx, "package service closed")
	}()

	if s.geo.purge != nil {
		if err := s.geo.purge.Start(); err != nil {
			return err
		}
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "package service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shuting down application", "signal", sig.String())
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (s *PackageService) close(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if s.geo != nil {
		s.geo.close(ctx, s.log)
	}

	if s.rabbit != nil {
		if err := s.rabbit.Close(ctx); err != nil {
			s.log.Warn(ctx, "Failed to close rabbitmq connection", "error", err.Error())
		}
	}

	if s.store != nil {
		s.store.close()
	}
}

func resolverDefaults(c config.MapConfig) resolver.Defaults {
	return resolver.Defaults{
		Fallback:        models.Coordinate{Latitude: c.FallbackLatitude, Longitude: c.FallbackLongitude},
		DetailPickup:    models.Coordinate{Latitude: c.DetailPickupLatitude, Longitude: c.DetailPickupLongitude},
		DetailDropoff:   models.Coordinate{Latitude: c.DetailDropoffLatitude, Longitude: c.DetailDropoffLongitude},
		CourierSpeedKmh: c.CourierSpeedKmh,
	}
}
