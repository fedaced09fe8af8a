package tracker

import (
	"context"
	"time"

	"github.com/Temutjin2k/droply/internal/domain/models"
)

/*=================Package Store==========================*/

type PackageStore interface {
	Find(ctx context.Context, filter models.PackageFilter, order *models.OrderBy) ([]models.Package, error)
	UpdateWhere(ctx context.Context, filter models.PackageFilter, patch models.PackagePatch) (int64, error)
}

/*=================Device Location========================*/

// SampleHandler receives location samples one at a time, in arrival order.
type SampleHandler func(ctx context.Context, c models.Coordinate)

// SubscribeOptions bound how often samples are delivered.
type SubscribeOptions struct {
	MinInterval  time.Duration
	MinDistanceM float64
}

// DeviceLocation is the deliverer's device as a position source.
type DeviceLocation interface {
	// RequestPermission returns types.ErrPermissionDenied when the user refused location access.
	RequestPermission(ctx context.Context) error
	// CurrentCoordinate asks for a single fresh position.
	CurrentCoordinate(ctx context.Context) (models.Coordinate, error)
	// Subscribe streams positions to h until the subscription is released.
	Subscribe(ctx context.Context, opts SubscribeOptions, h SampleHandler) (Subscription, error)
}

type Subscription interface {
	Unsubscribe()
}
