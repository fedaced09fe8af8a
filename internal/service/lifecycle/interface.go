package lifecycle

import (
	"context"

	"github.com/Temutjin2k/droply/internal/domain/models"
)

/*=================Package Store==========================*/

type PackageStore interface {
	Find(ctx context.Context, filter models.PackageFilter, order *models.OrderBy) ([]models.Package, error)
	FindOne(ctx context.Context, filter models.PackageFilter) (*models.Package, error)
	Insert(ctx context.Context, pkg *models.Package) (*models.Package, error)
	// UpdateWhere applies patch to every package matching filter and returns the affected count.
	UpdateWhere(ctx context.Context, filter models.PackageFilter, patch models.PackagePatch) (int64, error)
}

/*=================Package Event Repository===============*/

type EventRepo interface {
	// CreateEvent appends a row to the package audit log.
	CreateEvent(ctx context.Context, rec models.PackageEventRecord) error
}

/*========================Publisher========================*/

type Publisher interface {
	PublishStatusChanged(ctx context.Context, msg models.PackageStatusChanged) error
}

/*=====================Address Geo Coder===================*/

type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, c models.Coordinate) (string, error)
}

/*=====================Tracking / Map======================*/

type Tracker interface {
	Track(ctx context.Context, pkg *models.Package) models.TrackingView
}

type MapProjector interface {
	Project(ctx context.Context, pkgs []models.Package, viewerID string) models.MapData
}
