package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Temutjin2k/droply/config"
	"github.com/Temutjin2k/droply/internal/adapter/http/handler"
	"github.com/Temutjin2k/droply/internal/adapter/http/middleware"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
)

const serverIPAddress = "%s:%s"

type API struct {
	mode   types.ServiceMode
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	health  *handler.Health
	pkg     *handler.Package
	tracker *handler.Tracker
}

// Options carries the per-mode handlers. Only the ones the mode serves are required.
type Options struct {
	Auth     middleware.AuthService
	Packages handler.PackageService
	Tracker  *handler.Tracker
	Health   map[string]handler.Pinger
}

func New(cfg config.Config, opts Options, logger logger.Logger) (*API, error) {
	var addr string
	handlers := &handlers{
		health: handler.NewHealth(cfg.Mode.String(), logger, opts.Health),
	}

	if opts.Auth == nil {
		return nil, errors.New("auth service is required")
	}

	switch cfg.Mode {
	case types.PackageService:
		if opts.Packages == nil {
			return nil, errors.New("package service is required")
		}
		addr = fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Services.PackageService)
		handlers.pkg = handler.NewPackage(opts.Packages, logger)
	case types.TrackerService:
		if opts.Tracker == nil {
			return nil, errors.New("tracker handler is required")
		}
		addr = fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Services.TrackerService)
		handlers.tracker = opts.Tracker
	default:
		return nil, fmt.Errorf("invalid mode: %s", cfg.Mode)
	}

	api := &API{
		mode:   cfg.Mode,
		mux:    http.NewServeMux(),
		routes: handlers,
		m:      middleware.NewMiddleware(opts.Auth, logger),
		addr:   addr,
		cfg:    cfg,
		log:    logger,
	}

	setupRoutes(api.mux, api.routes, api.m, api.mode, api.log)

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return api, nil
}

// Handler returns the routed mux wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	m := a.m
	return m.Recover(m.RequestID(m.Logging(m.Metrics(a.mode.String())(m.Auth(a.mux)))))
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}
