package microservices

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Temutjin2k/droply/config"
	"github.com/Temutjin2k/droply/internal/adapter/http/handler"
	"github.com/Temutjin2k/droply/internal/adapter/http/server"
	broker "github.com/Temutjin2k/droply/internal/adapter/rabbit"
	"github.com/Temutjin2k/droply/internal/service/auth"
	"github.com/Temutjin2k/droply/internal/service/tracker"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	"github.com/Temutjin2k/droply/pkg/rabbit"
	ws "github.com/Temutjin2k/droply/pkg/wsHub"
)

// TrackerService owns device connections and their location reporting loops.
type TrackerService struct {
	store      *storeDeps
	rabbit     *rabbit.RabbitMQ
	consumer   *broker.PackageConsumer
	registry   *tracker.Registry
	hub        *ws.ConnectionHub
	httpServer *server.API
	cfg        config.Config
	log        logger.Logger
}

func NewTracker(ctx context.Context, cfg config.Config, log logger.Logger) (*TrackerService, error) {
	s := &TrackerService{cfg: cfg, log: log}

	var err error
	if s.store, err = newStore(ctx, cfg, log); err != nil {
		log.Error(ctx, "Failed to setup package store", err)
		return nil, err
	}

	s.rabbit, err = rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Error(ctx, "Failed to connect to rabbitmq", err)
		s.close(ctx)
		return nil, err
	}
	s.consumer = broker.NewPackageConsumer(s.rabbit, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, log)

	s.registry = tracker.NewRegistry(s.store.packages, tracker.Config{
		CheckInterval:     cfg.Tracker.CheckInterval,
		SampleMinInterval: cfg.Tracker.SampleMinInterval,
		SampleMinDistance: cfg.Tracker.SampleMinDistance,
		WriteTimeout:      cfg.Tracker.WriteTimeout,
	}, log)
	s.hub = ws.NewConnHub(log)

	health := map[string]handler.Pinger{
		"rabbitmq": pingFunc(s.rabbit.EnsureConnection),
	}
	s.store.pingers(health)

	s.httpServer, err = server.New(cfg, server.Options{
		Auth:    auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, log),
		Tracker: handler.NewTracker(s.registry, s.hub, log),
		Health:  health,
	}, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		s.close(ctx)
		return nil, err
	}

	return s, nil
}

func (s *TrackerService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	s.httpServer.Run(ctx, errCh)
	defer func() {
		s.close(ctx)
		s.log.Info(ctx, "tracker service closed")
	}()

	// change feed: wake the deliverer's supervisor instead of waiting for its next tick
	go func() {
		if err := s.consumer.ConsumeStatusChanged(ctx, s.registry.OnStatusChanged); err != nil {
			errCh <- fmt.Errorf("package status consumer: %w", err)
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(wrap.WithAction(ctx, "tracker_service_start"), "tracker service started")

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

func (s *TrackerService) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if s.hub != nil {
		s.hub.Close()
	}
	if s.registry != nil {
		s.registry.Close()
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
