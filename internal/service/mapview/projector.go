// Package mapview projects package records into map markers and routes.
package mapview

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/pkg/logger"
)

const defaultConcurrency = 4

// Resolver is the subset of the coordinate resolver the projector needs.
type Resolver interface {
	ResolveOrFallback(ctx context.Context, pkg *models.Package, endpoint types.Endpoint, scope types.ResolveScope) models.ResolvedCoordinate
	DriverPosition(pkg *models.Package, pickup, dropoff models.ResolvedCoordinate) (models.ResolvedCoordinate, bool)
}

type Projector struct {
	resolver    Resolver
	concurrency int
	log         logger.Logger
}

// NewProjector creates a projector that resolves at most concurrency packages at once.
func NewProjector(resolver Resolver, concurrency int, log logger.Logger) *Projector {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Projector{
		resolver:    resolver,
		concurrency: concurrency,
		log:         log,
	}
}

type projection struct {
	markers []models.Marker
	route   *models.Route
}

// Project builds the map for viewerID. Every package yields a marker, falling back
// to the default point when it cannot be located. Output order follows pkgs.
func (p *Projector) Project(ctx context.Context, pkgs []models.Package, viewerID string) models.MapData {
	results := make([]projection, len(pkgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := range pkgs {
		g.Go(func() error {
			results[i] = p.projectOne(gctx, &pkgs[i], viewerID)
			return nil
		})
	}
	_ = g.Wait() // projectOne never fails

	data := models.MapData{
		Markers: make([]models.Marker, 0, len(pkgs)),
		Routes:  make([]models.Route, 0),
	}
	for _, r := range results {
		data.Markers = append(data.Markers, r.markers...)
		if r.route != nil {
			data.Routes = append(data.Routes, *r.route)
		}
	}

	p.log.Debug(ctx, "map projected", "packages", len(pkgs), "markers", len(data.Markers), "routes", len(data.Routes))

	return data
}

func (p *Projector) projectOne(ctx context.Context, pkg *models.Package, viewerID string) projection {
	category := Categorize(pkg, viewerID)
	style := StyleOf(category)

	pickup := p.resolver.ResolveOrFallback(ctx, pkg, types.EndpointPickup, types.ScopeListing)
	primary := pickup

	if category != types.CategoryMyDelivery {
		return projection{markers: []models.Marker{p.primaryMarker(pkg, category, style, primary)}}
	}

	dropoff := p.resolver.ResolveOrFallback(ctx, pkg, types.EndpointDropoff, types.ScopeListing)
	if driver, ok := p.resolver.DriverPosition(pkg, pickup, dropoff); ok {
		primary = driver
	}

	destStyle := StyleOf(types.CategoryDestination)
	destination := models.Marker{
		ID:             fmt.Sprintf("dropoff-%d", pkg.ID),
		PackageID:      pkg.ID,
		Coordinate:     dropoff.Coordinate,
		Category:       types.CategoryDestination,
		Color:          destStyle.Color,
		Icon:           destStyle.Icon,
		Title:          "Destination",
		Description:    pkg.DropoffAddress,
		Status:         pkg.Status,
		DropoffAddress: pkg.DropoffAddress,
		Source:         dropoff.Source,
	}

	return projection{
		markers: []models.Marker{p.primaryMarker(pkg, category, style, primary), destination},
		route: &models.Route{
			PackageID: pkg.ID,
			Points:    []models.Coordinate{primary.Coordinate, dropoff.Coordinate},
			Color:     style.Color,
		},
	}
}

func (p *Projector) primaryMarker(pkg *models.Package, category types.MarkerCategory, style Style, at models.ResolvedCoordinate) models.Marker {
	title := pkg.Title
	if title == "" {
		title = fmt.Sprintf("Package #%d", pkg.ID)
	}

	return models.Marker{
		ID:             fmt.Sprintf("%d", pkg.ID),
		PackageID:      pkg.ID,
		Coordinate:     at.Coordinate,
		Category:       category,
		Color:          style.Color,
		Icon:           style.Icon,
		Title:          title,
		Description:    describe(pkg, category),
		Status:         pkg.Status,
		PickupAddress:  pkg.PickupAddress,
		DropoffAddress: pkg.DropoffAddress,
		Source:         at.Source,
	}
}
