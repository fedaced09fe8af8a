package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/droply/internal/adapter/memory"
	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/internal/service/mapview"
	"github.com/Temutjin2k/droply/internal/service/resolver"
	"github.com/Temutjin2k/droply/pkg/logger"
	"github.com/Temutjin2k/droply/pkg/trm"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishStatusChanged(ctx context.Context, msg models.PackageStatusChanged) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type mockReverseGeocoder struct {
	mock.Mock
}

func (m *mockReverseGeocoder) ReverseGeocode(ctx context.Context, c models.Coordinate) (string, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Error(1)
}

type fixture struct {
	svc   *Service
	store *memory.PackageStore
	pub   *mockPublisher
	geo   *mockReverseGeocoder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewPackageStore()
	pub := &mockPublisher{}
	pub.On("PublishStatusChanged", mock.Anything, mock.Anything).Return(nil).Maybe()
	geo := &mockReverseGeocoder{}

	res := resolver.New(nil, resolver.DefaultDefaults, logger.Nop())
	proj := mapview.NewProjector(res, 2, logger.Nop())

	return &fixture{
		svc:   New(store, store, pub, geo, res, proj, trm.Nop{}, logger.Nop()),
		store: store,
		pub:   pub,
		geo:   geo,
	}
}

func (f *fixture) create(t *testing.T, sender string) *models.Package {
	t.Helper()
	pkg, err := f.svc.Create(context.Background(), sender, &models.Package{
		Title:          "documents",
		PickupAddress:  "1 Rue Didouche Mourad",
		DropoffAddress: "Bab Ezzouar",
	})
	require.NoError(t, err)
	return pkg
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	pkg, err := f.svc.Create(context.Background(), "sender", &models.Package{
		Title:          "small",
		Description:    "fragile",
		RecipientPhone: "+213555000111",
		PickupAddress:  "A",
		DropoffAddress: "B",
		DelivererID:    ptr("sneaky"),
		Status:         types.StatusDelivered,
	})
	require.NoError(t, err)

	assert.NotZero(t, pkg.ID)
	assert.Equal(t, "sender", pkg.SenderID)
	assert.Equal(t, types.StatusPending, pkg.Status)
	assert.Nil(t, pkg.DelivererID)
	assert.Equal(t, "Phone: +213555000111 - fragile", pkg.Description)

	events := f.store.Events(pkg.ID)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventPackageCreated, events[0].EventType)

	f.pub.AssertCalled(t, "PublishStatusChanged", mock.Anything, mock.MatchedBy(func(m models.PackageStatusChanged) bool {
		return m.PackageID == pkg.ID && m.NewStatus == types.StatusPending && m.OldStatus == ""
	}))
}

func TestCreate_ReverseGeocodesBlankPickup(t *testing.T) {
	f := newFixture(t)
	c := models.Coordinate{Latitude: 36.75, Longitude: 3.06}
	f.geo.On("ReverseGeocode", mock.Anything, c).Return("Place des Martyrs, Algiers", nil).Once()

	pkg, err := f.svc.Create(context.Background(), "sender", &models.Package{
		PickupLatitude:  ptr(c.Latitude),
		PickupLongitude: ptr(c.Longitude),
		DropoffAddress:  "B",
	})
	require.NoError(t, err)
	assert.Equal(t, "Place des Martyrs, Algiers", pkg.PickupAddress)
	f.geo.AssertExpectations(t)
}

func TestCreate_ReverseGeocodeFailureKeepsCoordinates(t *testing.T) {
	f := newFixture(t)
	f.geo.On("ReverseGeocode", mock.Anything, mock.Anything).Return("", errors.New("quota")).Once()

	pkg, err := f.svc.Create(context.Background(), "sender", &models.Package{
		PickupLatitude:  ptr(1.5),
		PickupLongitude: ptr(2.5),
		DropoffAddress:  "B",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pkg.PickupAddress)
}

func TestCreate_Rejects(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), "", &models.Package{PickupAddress: "A", DropoffAddress: "B"})
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = f.svc.Create(context.Background(), "s", &models.Package{PickupAddress: "A"})
	assert.Error(t, err)

	for name, pkg := range map[string]*models.Package{
		"negative weight": {PickupAddress: "A", DropoffAddress: "B", Weight: ptr(-1.0)},
		"negative price":  {PickupAddress: "A", DropoffAddress: "B", Price: ptr(-0.5)},
	} {
		_, err = f.svc.Create(context.Background(), "s", pkg)
		if !errors.Is(err, types.ErrInvalidPackage) {
			t.Fatalf("%s: expected ErrInvalidPackage, got %v", name, err)
		}
	}
	assert.Empty(t, f.store.Events(1), "rejected packages must not be stored")
}

func TestHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pkg := f.create(t, "sender")

	accepted, err := f.svc.Accept(ctx, "courier", pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAssigned, accepted.Status)
	require.NotNil(t, accepted.DelivererID)
	assert.Equal(t, "courier", *accepted.DelivererID)

	started, err := f.svc.Start(ctx, "courier", pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInTransit, started.Status)

	_, err = f.store.UpdateWhere(ctx, byID(pkg.ID), models.PackagePatch{Current: &models.Coordinate{Latitude: 1, Longitude: 1}})
	require.NoError(t, err)

	delivered, err := f.svc.Deliver(ctx, "courier", pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDelivered, delivered.Status)
	assert.Nil(t, delivered.CurrentLatitude)
	assert.Equal(t, "courier", *delivered.DelivererID)

	var kinds []types.PackageEvent
	for _, e := range f.store.Events(pkg.ID) {
		kinds = append(kinds, e.EventType)
	}
	assert.Equal(t, []types.PackageEvent{
		types.EventPackageCreated,
		types.EventPackageAccepted,
		types.EventPackageStarted,
		types.EventPackageDelivered,
	}, kinds)
}

func TestCancelClearsDeliverer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pkg := f.create(t, "sender")

	_, err := f.svc.Accept(ctx, "courier", pkg.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, "courier", pkg.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)

	cancelled, err := f.svc.Cancel(ctx, "sender", pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.DelivererID)

	f.pub.AssertCalled(t, "PublishStatusChanged", mock.Anything, mock.MatchedBy(func(m models.PackageStatusChanged) bool {
		return m.NewStatus == types.StatusCancelled && m.DelivererID == "courier"
	}))
}

func TestTransitionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pkg := f.create(t, "sender")

	_, err := f.svc.Start(ctx, "courier", pkg.ID)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	_, err = f.svc.Accept(ctx, "courier", 9999)
	assert.ErrorIs(t, err, types.ErrPackageNotFound)

	_, err = f.svc.Accept(ctx, "courier", pkg.ID)
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, "intruder", pkg.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestConcurrentAccept_ExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	pkg := f.create(t, "sender")

	const contenders = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   []string
		losses int
		start  = make(chan struct{})
	)

	for i := range contenders {
		actor := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Accept(context.Background(), actor, pkg.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins = append(wins, actor)
			case errors.Is(err, types.ErrAlreadyTaken), errors.Is(err, types.ErrInvalidTransition):
				losses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, wins, 1)
	assert.Equal(t, contenders-1, losses)

	got, err := f.svc.Get(context.Background(), pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, wins[0], *got.DelivererID)
	assert.Len(t, f.store.Events(pkg.ID), 2)
}

func TestDashboards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, "alice")
	second := f.create(t, "alice")
	third := f.create(t, "bob")

	_, err := f.svc.Accept(ctx, "carol", first.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, "alice", second.ID)
	require.NoError(t, err)

	sent, err := f.svc.Sent(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, sent.Packages, 2)
	assert.Equal(t, 1, sent.ActiveCount)

	deliveries, err := f.svc.Deliveries(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, deliveries.Packages, 1)
	assert.Equal(t, first.ID, deliveries.Packages[0].ID)

	available, err := f.svc.Available(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, third.ID, available[0].ID)

	tracked, err := f.svc.Tracked(ctx, "carol")
	require.NoError(t, err)
	assert.Len(t, tracked, 1)
}

func TestDetailsAndMap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pkg := f.create(t, "alice")

	_, err := f.svc.Accept(ctx, "carol", pkg.ID)
	require.NoError(t, err)

	details, err := f.svc.Details(ctx, "carol", pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, []types.PackageStatus{types.StatusInTransit}, details.Actions)
	assert.Nil(t, details.Tracking.Driver)
	assert.Equal(t, resolver.DefaultDefaults.DetailPickup, details.Tracking.Pickup.Coordinate)

	data, err := f.svc.Map(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, data.Markers, 2)
	assert.Equal(t, types.CategoryMyDelivery, data.Markers[0].Category)
	assert.Len(t, data.Routes, 1)
}

func TestPublishFailureDoesNotFailTransition(t *testing.T) {
	store := memory.NewPackageStore()
	pub := &mockPublisher{}
	pub.On("PublishStatusChanged", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	res := resolver.New(nil, resolver.DefaultDefaults, logger.Nop())
	svc := New(store, store, pub, nil, res, mapview.NewProjector(res, 1, logger.Nop()), trm.Nop{}, logger.Nop())

	pkg, err := svc.Create(context.Background(), "s", &models.Package{PickupAddress: "A", DropoffAddress: "B"})
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), "d", pkg.ID)
	require.NoError(t, err)
	pub.AssertNumberOfCalls(t, "PublishStatusChanged", 2)
}
