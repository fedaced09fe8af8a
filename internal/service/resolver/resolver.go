// Package resolver turns a package's stored, geocodable and live location data
// into renderable coordinates.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/pkg/geo"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	"github.com/Temutjin2k/droply/pkg/metrics"
)

// Geocoder converts a free-text address into candidate coordinates.
type Geocoder interface {
	ForwardGeocode(ctx context.Context, address string) ([]models.Coordinate, error)
}

// Defaults are the coordinates substituted when an endpoint cannot be resolved.
type Defaults struct {
	// Fallback is used for every endpoint in listing scope.
	Fallback models.Coordinate
	// DetailPickup and DetailDropoff are used in detail scope.
	DetailPickup  models.Coordinate
	DetailDropoff models.Coordinate
	// CourierSpeedKmh drives the arrival estimate of the tracking view.
	CourierSpeedKmh float64
}

// DefaultDefaults centers everything on Algiers.
var DefaultDefaults = Defaults{
	Fallback:        models.Coordinate{Latitude: 36.75, Longitude: 3.06},
	DetailPickup:    models.Coordinate{Latitude: 36.75, Longitude: 3.06},
	DetailDropoff:   models.Coordinate{Latitude: 36.70, Longitude: 3.05},
	CourierSpeedKmh: 30,
}

type Resolver struct {
	geocoder Geocoder
	defaults Defaults
	now      func() time.Time
	log      logger.Logger
}

// New creates a resolver. geocoder may be nil, in which case only stored coordinates resolve.
func New(geocoder Geocoder, defaults Defaults, log logger.Logger) *Resolver {
	return &Resolver{
		geocoder: geocoder,
		defaults: defaults,
		now:      time.Now,
		log:      log,
	}
}

// ResolveEndpoint returns the best known coordinate of an endpoint:
// the stored pair when valid, otherwise the first valid geocoding result.
// It returns types.ErrResolutionFailed when neither is available.
func (r *Resolver) ResolveEndpoint(ctx context.Context, pkg *models.Package, endpoint types.Endpoint) (models.ResolvedCoordinate, error) {
	const op = "Resolver.ResolveEndpoint"

	if c, ok := pkg.StoredEndpoint(endpoint); ok {
		return models.ResolvedCoordinate{Coordinate: c, Source: types.SourceStored}, nil
	}

	address := strings.TrimSpace(pkg.Address(endpoint))
	if address == "" || r.geocoder == nil {
		return models.ResolvedCoordinate{}, fmt.Errorf("%s: %s: %w", op, endpoint, types.ErrResolutionFailed)
	}

	results, err := r.geocoder.ForwardGeocode(ctx, address)
	if err != nil {
		// geocoder outages count as "nothing found"
		r.log.Debug(wrap.ErrorCtx(wrap.WithAction(ctx, types.ActionGeocodeFailed), err), "geocoding failed",
			"endpoint", endpoint, "package", pkg.ID, "error", err.Error())
		return models.ResolvedCoordinate{}, fmt.Errorf("%s: %s: %w", op, endpoint, types.ErrResolutionFailed)
	}

	for _, c := range results {
		if c.Valid() {
			return models.ResolvedCoordinate{Coordinate: c, Source: types.SourceGeocoded}, nil
		}
	}

	return models.ResolvedCoordinate{}, fmt.Errorf("%s: %s: %w", op, endpoint, types.ErrResolutionFailed)
}

// ResolveOrFallback never fails: unresolvable endpoints get the default for the scope.
func (r *Resolver) ResolveOrFallback(ctx context.Context, pkg *models.Package, endpoint types.Endpoint, scope types.ResolveScope) models.ResolvedCoordinate {
	resolved, err := r.ResolveEndpoint(ctx, pkg, endpoint)
	if err == nil {
		return resolved
	}

	metrics.ResolverFallbacks.WithLabelValues(string(endpoint)).Inc()
	r.log.Debug(wrap.WithPackageID(ctx, pkg.ID), "using fallback coordinate", "endpoint", endpoint)

	return models.ResolvedCoordinate{Coordinate: r.fallbackFor(endpoint, scope), Source: types.SourceFallback}
}

func (r *Resolver) fallbackFor(endpoint types.Endpoint, scope types.ResolveScope) models.Coordinate {
	if scope == types.ScopeDetail {
		if endpoint == types.EndpointDropoff {
			return r.defaults.DetailDropoff
		}
		return r.defaults.DetailPickup
	}
	return r.defaults.Fallback
}

// DriverPosition derives where the deliverer is for listing views, given already
// resolved endpoints.
//
//   - in_transit: the live reported position; else the midpoint of pickup and
//     dropoff when both really resolved; else the pickup, since fallen back
//     endpoints share one point in listing scope.
//   - picked_up: the pickup.
//   - anything else: no position.
func (r *Resolver) DriverPosition(pkg *models.Package, pickup, dropoff models.ResolvedCoordinate) (models.ResolvedCoordinate, bool) {
	return driverPosition(pkg, pickup, dropoff, types.ScopeListing)
}

// driverPosition in detail scope always simulates the midpoint of the two
// endpoints, defaults included.
func driverPosition(pkg *models.Package, pickup, dropoff models.ResolvedCoordinate, scope types.ResolveScope) (models.ResolvedCoordinate, bool) {
	switch pkg.Status {
	case types.StatusInTransit:
		if live, ok := pkg.LivePosition(); ok {
			return models.ResolvedCoordinate{Coordinate: live, Source: types.SourceLive}, true
		}
		resolved := pickup.Source != types.SourceFallback && dropoff.Source != types.SourceFallback
		if scope == types.ScopeDetail || resolved {
			return models.ResolvedCoordinate{
				Coordinate: models.Midpoint(pickup.Coordinate, dropoff.Coordinate),
				Source:     types.SourceSimulated,
			}, true
		}
		return models.ResolvedCoordinate{Coordinate: pickup.Coordinate, Source: types.SourcePickup}, true
	case types.StatusPickedUp:
		return models.ResolvedCoordinate{Coordinate: pickup.Coordinate, Source: types.SourcePickup}, true
	default:
		return models.ResolvedCoordinate{}, false
	}
}

// Track builds the detail view of one package: both endpoints with detail defaults,
// the driver when moving, and the pickup, driver, dropoff polyline.
func (r *Resolver) Track(ctx context.Context, pkg *models.Package) models.TrackingView {
	pickup := r.ResolveOrFallback(ctx, pkg, types.EndpointPickup, types.ScopeDetail)
	dropoff := r.ResolveOrFallback(ctx, pkg, types.EndpointDropoff, types.ScopeDetail)

	view := models.TrackingView{
		Pickup:  pickup,
		Dropoff: dropoff,
		Route:   []models.Coordinate{pickup.Coordinate},
	}

	from := pickup.Coordinate
	if driver, ok := driverPosition(pkg, pickup, dropoff, types.ScopeDetail); ok {
		view.Driver = &driver
		view.Route = append(view.Route, driver.Coordinate)
		from = driver.Coordinate
	}
	view.Route = append(view.Route, dropoff.Coordinate)

	if pkg.Status.IsTerminal() {
		return view
	}

	view.DistanceRemainingKm = geo.HaversineKm(from.Latitude, from.Longitude, dropoff.Latitude, dropoff.Longitude)
	if eta := geo.TravelTime(view.DistanceRemainingKm, r.defaults.CourierSpeedKmh); eta > 0 && view.Driver != nil {
		at := r.now().Add(eta).UTC()
		view.EstimatedArrival = &at
	}

	return view
}
