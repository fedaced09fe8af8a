package server

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/droply/internal/adapter/http/middleware"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware, mode types.ServiceMode, log logger.Logger) {
	mux.HandleFunc("GET /health", routes.health.HealthCheck)

	setupSwaggerRoutes(mux, mode, log)
	setupMetricsRoute(mux)

	switch mode {
	case types.PackageService:
		setupPackageRoutes(mux, routes, m)
	case types.TrackerService:
		setupTrackerRoutes(mux, routes, m)
	}
}

func setupPackageRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /packages", m.RequireAuth(routes.pkg.Create))
	mux.Handle("GET /packages", m.RequireAuth(routes.pkg.List))                // ?view=sent|deliveries
	mux.Handle("GET /packages/available", m.RequireAuth(routes.pkg.Available)) // pending, newest first
	mux.Handle("GET /packages/tracked", m.RequireAuth(routes.pkg.Tracked))
	mux.Handle("GET /packages/{id}", m.RequireAuth(routes.pkg.Get))

	mux.Handle("POST /packages/{id}/accept", m.RequireAuth(routes.pkg.Accept))
	mux.Handle("POST /packages/{id}/start", m.RequireAuth(routes.pkg.Start))
	mux.Handle("POST /packages/{id}/deliver", m.RequireAuth(routes.pkg.Deliver))
	mux.Handle("POST /packages/{id}/cancel", m.RequireAuth(routes.pkg.Cancel))

	// anonymous viewers see every package as "available" or "other"
	mux.HandleFunc("GET /map", routes.pkg.Map)
}

func setupTrackerRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("GET /ws/devices", m.RequireAuth(routes.tracker.HandleDeviceWS))
	mux.Handle("GET /tracker/status", m.RequireAuth(routes.tracker.Status))
}

// setupSwaggerRoutes configures Swagger UI endpoints based on service mode
func setupSwaggerRoutes(mux *http.ServeMux, mode types.ServiceMode, log logger.Logger) {
	var instanceName string

	switch mode {
	case types.PackageService:
		instanceName = "package"
	case types.TrackerService:
		instanceName = "tracker"
	default:
		log.Warn(wrap.WithAction(context.Background(), "setup swagger routes"), "unknown service mode for swagger setup", "mode", mode)
		return
	}

	swaggerURL := httpSwagger.InstanceName(instanceName)
	mux.HandleFunc("/swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
