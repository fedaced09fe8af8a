// Package lifecycle owns package creation, listing and every status transition.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	"github.com/Temutjin2k/droply/pkg/metrics"
	"github.com/Temutjin2k/droply/pkg/trm"
)

/*
Service enforces the package state machine on top of the record store.
Transitions are compare-and-set updates so concurrent callers cannot both win.
*/
type Service struct {
	store     PackageStore
	events    EventRepo
	publisher Publisher
	geocoder  ReverseGeocoder
	tracker   Tracker
	projector MapProjector
	trm       trm.TxManager
	now       func() time.Time
	l         logger.Logger
}

// New returns a lifecycle service. publisher and geocoder may be nil.
func New(store PackageStore, events EventRepo, publisher Publisher, geocoder ReverseGeocoder, tracker Tracker, projector MapProjector, trm trm.TxManager, l logger.Logger) *Service {
	return &Service{
		store:     store,
		events:    events,
		publisher: publisher,
		geocoder:  geocoder,
		tracker:   tracker,
		projector: projector,
		trm:       trm,
		now:       time.Now,
		l:         l,
	}
}

// Create stores a new pending package sent by senderID.
func (s *Service) Create(ctx context.Context, senderID string, pkg *models.Package) (*models.Package, error) {
	const op = "Service.Create"
	ctx = wrap.WithUserID(wrap.WithAction(ctx, "create_package"), senderID)

	if senderID == "" {
		return nil, wrap.Error(ctx, types.ErrUnauthorized)
	}
	if negative(pkg.Weight) || negative(pkg.Price) {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: weight and price must not be negative: %w", op, types.ErrInvalidPackage))
	}

	pkg.SenderID = senderID
	pkg.DelivererID = nil
	pkg.Status = types.StatusPending
	pkg.CurrentLatitude, pkg.CurrentLongitude = nil, nil

	pkg.PickupAddress = s.addressFor(ctx, pkg, types.EndpointPickup)
	pkg.DropoffAddress = s.addressFor(ctx, pkg, types.EndpointDropoff)
	if pkg.PickupAddress == "" || pkg.DropoffAddress == "" {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: both addresses are required: %w", op, types.ErrResolutionFailed))
	}

	if phone := strings.TrimSpace(pkg.RecipientPhone); phone != "" {
		pkg.Description = fmt.Sprintf("Phone: %s - %s", phone, strings.TrimSpace(pkg.Description))
	}

	now := s.now().UTC()
	pkg.CreatedAt, pkg.UpdatedAt = now, now

	var created *models.Package
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.store.Insert(ctx, pkg)
		if err != nil {
			return fmt.Errorf("%s: failed to insert package: %w", op, err)
		}

		data, _ := json.Marshal(map[string]any{
			"title":           created.Title,
			"pickup_address":  created.PickupAddress,
			"dropoff_address": created.DropoffAddress,
		})

		return s.events.CreateEvent(ctx, models.PackageEventRecord{
			PackageID: created.ID,
			EventType: types.EventPackageCreated,
			ActorID:   senderID,
			EventData: data,
		})
	})
	if err != nil {
		return nil, wrap.Error(wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed), err)
	}

	metrics.PackagesCreated.Inc()
	s.l.Info(wrap.WithPackageID(ctx, created.ID), "package created")

	s.publish(ctx, models.PackageStatusChanged{
		PackageID: created.ID,
		NewStatus: created.Status,
		SenderID:  created.SenderID,
		ActorID:   senderID,
		Timestamp: now,
	})

	return created, nil
}

func negative(v *float64) bool {
	return v != nil && *v < 0
}

// addressFor returns the endpoint address, reverse-geocoding the stored
// coordinate when the address was left blank.
func (s *Service) addressFor(ctx context.Context, pkg *models.Package, e types.Endpoint) string {
	if addr := strings.TrimSpace(pkg.Address(e)); addr != "" {
		return addr
	}

	c, ok := pkg.StoredEndpoint(e)
	if !ok {
		return ""
	}

	if s.geocoder != nil {
		addr, err := s.geocoder.ReverseGeocode(ctx, c)
		if err == nil && strings.TrimSpace(addr) != "" {
			return addr
		}
		if err != nil {
			s.l.Warn(wrap.ErrorCtx(wrap.WithAction(ctx, types.ActionGeocodeFailed), err), "reverse geocoding failed", "endpoint", e, "error", err.Error())
		}
	}

	return c.String()
}

// Get returns a single package.
func (s *Service) Get(ctx context.Context, id int64) (*models.Package, error) {
	pkg, err := s.store.FindOne(ctx, byID(id))
	if err != nil {
		return nil, wrap.Error(wrap.WithPackageID(ctx, id), err)
	}
	return pkg, nil
}

// Details returns a package with its tracking view and the actions open to viewerID.
func (s *Service) Details(ctx context.Context, viewerID string, id int64) (*models.PackageDetails, error) {
	pkg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.PackageDetails{
		Package:  pkg,
		Tracking: s.tracker.Track(ctx, pkg),
		Actions:  Allowed(pkg, viewerID),
	}, nil
}

// Sent lists the packages userID created, newest first.
func (s *Service) Sent(ctx context.Context, userID string) (*models.Dashboard, error) {
	return s.dashboard(ctx, models.PackageFilter{SenderID: &userID})
}

// Deliveries lists the packages userID accepted, newest first.
func (s *Service) Deliveries(ctx context.Context, userID string) (*models.Dashboard, error) {
	return s.dashboard(ctx, models.PackageFilter{DelivererID: &userID})
}

func (s *Service) dashboard(ctx context.Context, filter models.PackageFilter) (*models.Dashboard, error) {
	pkgs, err := s.store.Find(ctx, filter, models.OrderByCreatedDesc)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("Service.dashboard: %w", err))
	}

	active := 0
	for i := range pkgs {
		if slices.Contains(types.ActiveStatuses, pkgs[i].Status) {
			active++
		}
	}

	return &models.Dashboard{Packages: pkgs, ActiveCount: active}, nil
}

// Available lists pending packages, newest first.
func (s *Service) Available(ctx context.Context) ([]models.Package, error) {
	pkgs, err := s.store.Find(ctx, models.PackageFilter{Statuses: []types.PackageStatus{types.StatusPending}}, models.OrderByCreatedDesc)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("Service.Available: %w", err))
	}
	return pkgs, nil
}

// Tracked lists the packages userID takes part in that are still moving.
func (s *Service) Tracked(ctx context.Context, userID string) ([]models.Package, error) {
	filter := models.PackageFilter{ParticipantID: &userID, Statuses: types.TrackedStatuses}
	pkgs, err := s.store.Find(ctx, filter, models.OrderByCreatedDesc)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("Service.Tracked: %w", err))
	}
	return pkgs, nil
}

// Map projects every package that belongs on the shared map for viewerID.
func (s *Service) Map(ctx context.Context, viewerID string) (models.MapData, error) {
	pkgs, err := s.store.Find(ctx, models.PackageFilter{Statuses: types.MapStatuses}, models.OrderByCreatedDesc)
	if err != nil {
		return models.MapData{}, wrap.Error(ctx, fmt.Errorf("Service.Map: %w", err))
	}
	return s.projector.Project(ctx, pkgs, viewerID), nil
}

// Accept assigns a pending package to actorID.
func (s *Service) Accept(ctx context.Context, actorID string, id int64) (*models.Package, error) {
	return s.transition(wrap.WithAction(ctx, "accept_package"), actorID, id, types.StatusAssigned)
}

// Start marks an assigned package as in transit.
func (s *Service) Start(ctx context.Context, actorID string, id int64) (*models.Package, error) {
	return s.transition(wrap.WithAction(ctx, "start_delivery"), actorID, id, types.StatusInTransit)
}

// Deliver completes an in-transit package.
func (s *Service) Deliver(ctx context.Context, actorID string, id int64) (*models.Package, error) {
	return s.transition(wrap.WithAction(ctx, "deliver_package"), actorID, id, types.StatusDelivered)
}

// Cancel withdraws a pending or assigned package. Only the sender may cancel.
func (s *Service) Cancel(ctx context.Context, actorID string, id int64) (*models.Package, error) {
	return s.transition(wrap.WithAction(ctx, "cancel_package"), actorID, id, types.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, actorID string, id int64, to types.PackageStatus) (*models.Package, error) {
	const op = "Service.transition"
	ctx = wrap.WithPackageID(wrap.WithUserID(ctx, actorID), id)

	var (
		from      types.PackageStatus
		deliverer string
		updated   *models.Package
	)

	fn := func(ctx context.Context) error {
		pkg, err := s.store.FindOne(ctx, byID(id))
		if err != nil {
			return err
		}
		from = pkg.Status
		if pkg.DelivererID != nil {
			deliverer = *pkg.DelivererID
		}

		t, err := Authorize(pkg, actorID, to)
		if err != nil {
			return fmt.Errorf("%s: %s -> %s: %w", op, pkg.Status, to, err)
		}

		n, err := s.store.UpdateWhere(ctx, t.Guard(pkg, actorID), t.Patch(actorID))
		if err != nil {
			return fmt.Errorf("%s: failed to update package: %w", op, err)
		}
		if n == 0 {
			// someone else moved the package between the read and the write
			if t.Actor == ActorAnyone {
				return fmt.Errorf("%s: %w", op, types.ErrAlreadyTaken)
			}
			return fmt.Errorf("%s: concurrent update: %w", op, types.ErrInvalidTransition)
		}

		data, _ := json.Marshal(map[string]any{"old_status": from, "new_status": to})
		if err := s.events.CreateEvent(ctx, models.PackageEventRecord{
			PackageID: id,
			EventType: types.EventFor(to),
			ActorID:   actorID,
			EventData: data,
		}); err != nil {
			return fmt.Errorf("%s: failed to write event: %w", op, err)
		}

		updated, err = s.store.FindOne(ctx, byID(id))
		return err
	}

	err := s.trm.Do(ctx, fn)
	metrics.RecordTransition(string(from), string(to), err)
	if err != nil {
		if isDomainError(err) {
			return nil, wrap.Error(ctx, err)
		}
		return nil, wrap.Error(wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed), err)
	}

	s.l.Info(ctx, "package status changed", "from", from, "to", to)

	msg := models.PackageStatusChanged{
		PackageID: id,
		OldStatus: from,
		NewStatus: updated.Status,
		SenderID:  updated.SenderID,
		ActorID:   actorID,
		Timestamp: s.now().UTC(),
	}
	// cancel clears the deliverer, but their tracker still needs the signal
	if updated.DelivererID != nil {
		msg.DelivererID = *updated.DelivererID
	} else {
		msg.DelivererID = deliverer
	}
	s.publish(ctx, msg)

	return updated, nil
}

func (s *Service) publish(ctx context.Context, msg models.PackageStatusChanged) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStatusChanged(ctx, msg); err != nil {
		s.l.Error(wrap.ErrorCtx(wrap.WithAction(ctx, types.ActionPublishFailed), err), "failed to publish status change", err)
	}
}

func byID(id int64) models.PackageFilter {
	return models.PackageFilter{ID: &id}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		types.ErrPackageNotFound,
		types.ErrForbidden,
		types.ErrAlreadyTaken,
		types.ErrInvalidTransition,
		types.ErrUnauthorized,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
