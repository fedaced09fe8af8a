package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/pkg/logger"
)

type fakeGeocoder struct {
	mu      sync.Mutex
	results map[string][]models.Coordinate
	err     error
	calls   []string
}

func (f *fakeGeocoder) ForwardGeocode(_ context.Context, address string) ([]models.Coordinate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, address)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[address], nil
}

func ptr[T any](v T) *T { return &v }

func newTestResolver(g Geocoder) *Resolver {
	return New(g, DefaultDefaults, logger.Nop())
}

func TestResolveEndpoint_StoredSkipsGeocode(t *testing.T) {
	geo := &fakeGeocoder{results: map[string][]models.Coordinate{
		"A": {{Latitude: 1, Longitude: 1}},
	}}
	r := newTestResolver(geo)

	pkg := &models.Package{
		ID:              7,
		PickupAddress:   "A",
		PickupLatitude:  ptr(36.8),
		PickupLongitude: ptr(3.1),
	}

	got, err := r.ResolveEndpoint(context.Background(), pkg, types.EndpointPickup)
	require.NoError(t, err)
	assert.Equal(t, models.Coordinate{Latitude: 36.8, Longitude: 3.1}, got.Coordinate)
	assert.Equal(t, types.SourceStored, got.Source)
	assert.Empty(t, geo.calls, "stored coordinates must not trigger geocoding")
}

func TestResolveEndpoint_HalfStoredPairGeocodes(t *testing.T) {
	geo := &fakeGeocoder{results: map[string][]models.Coordinate{
		"B": {{Latitude: 200, Longitude: 0}, {Latitude: 35.7, Longitude: -0.6}},
	}}
	r := newTestResolver(geo)

	pkg := &models.Package{DropoffAddress: "B", DropoffLatitude: ptr(35.0)}

	got, err := r.ResolveEndpoint(context.Background(), pkg, types.EndpointDropoff)
	require.NoError(t, err)
	assert.Equal(t, types.SourceGeocoded, got.Source)
	assert.Equal(t, models.Coordinate{Latitude: 35.7, Longitude: -0.6}, got.Coordinate, "first valid result wins")
	assert.Equal(t, []string{"B"}, geo.calls)
}

func TestResolveEndpoint_Failures(t *testing.T) {
	tests := []struct {
		name string
		geo  Geocoder
		pkg  *models.Package
	}{
		{"blank address", &fakeGeocoder{}, &models.Package{PickupAddress: "   "}},
		{"no geocoder", nil, &models.Package{PickupAddress: "A"}},
		{"geocoder error", &fakeGeocoder{err: errors.New("boom")}, &models.Package{PickupAddress: "A"}},
		{"empty result", &fakeGeocoder{}, &models.Package{PickupAddress: "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(tt.geo)
			_, err := r.ResolveEndpoint(context.Background(), tt.pkg, types.EndpointPickup)
			if !errors.Is(err, types.ErrResolutionFailed) {
				t.Fatalf("expected ErrResolutionFailed, got %v", err)
			}
		})
	}
}

func TestResolveOrFallback_UnresolvedPickupUsesFallbackPoint(t *testing.T) {
	geo := &fakeGeocoder{}
	r := newTestResolver(geo)

	pkg := &models.Package{ID: 1, Status: types.StatusPending, PickupAddress: "A", DropoffAddress: "B"}

	got := r.ResolveOrFallback(context.Background(), pkg, types.EndpointPickup, types.ScopeListing)
	assert.Equal(t, DefaultDefaults.Fallback, got.Coordinate)
	assert.Equal(t, types.SourceFallback, got.Source)
	assert.Equal(t, []string{"A"}, geo.calls)
}

func TestResolveOrFallback_DetailScopeDefaults(t *testing.T) {
	r := newTestResolver(&fakeGeocoder{})
	pkg := &models.Package{PickupAddress: "A", DropoffAddress: "B"}

	pickup := r.ResolveOrFallback(context.Background(), pkg, types.EndpointPickup, types.ScopeDetail)
	dropoff := r.ResolveOrFallback(context.Background(), pkg, types.EndpointDropoff, types.ScopeDetail)

	assert.Equal(t, DefaultDefaults.DetailPickup, pickup.Coordinate)
	assert.Equal(t, DefaultDefaults.DetailDropoff, dropoff.Coordinate)
}

func TestDriverPosition(t *testing.T) {
	r := newTestResolver(nil)

	pickup := models.ResolvedCoordinate{Coordinate: models.Coordinate{Latitude: 10, Longitude: 20}, Source: types.SourceStored}
	dropoff := models.ResolvedCoordinate{Coordinate: models.Coordinate{Latitude: 20, Longitude: 40}, Source: types.SourceGeocoded}
	fallback := models.ResolvedCoordinate{Coordinate: DefaultDefaults.Fallback, Source: types.SourceFallback}

	t.Run("live position wins in transit", func(t *testing.T) {
		pkg := &models.Package{Status: types.StatusInTransit, CurrentLatitude: ptr(-5.0), CurrentLongitude: ptr(7.5)}
		got, ok := r.DriverPosition(pkg, pickup, dropoff)
		require.True(t, ok)
		assert.Equal(t, models.Coordinate{Latitude: -5, Longitude: 7.5}, got.Coordinate)
		assert.Equal(t, types.SourceLive, got.Source)
	})

	t.Run("midpoint without live position", func(t *testing.T) {
		pkg := &models.Package{Status: types.StatusInTransit}
		got, ok := r.DriverPosition(pkg, pickup, dropoff)
		require.True(t, ok)
		assert.Equal(t, models.Coordinate{Latitude: 15, Longitude: 30}, got.Coordinate)
		assert.Equal(t, types.SourceSimulated, got.Source)
	})

	t.Run("pickup when an endpoint fell back", func(t *testing.T) {
		pkg := &models.Package{Status: types.StatusInTransit}
		got, ok := r.DriverPosition(pkg, pickup, fallback)
		require.True(t, ok)
		assert.Equal(t, pickup.Coordinate, got.Coordinate)
		assert.Equal(t, types.SourcePickup, got.Source)
	})

	t.Run("picked up sits at pickup", func(t *testing.T) {
		pkg := &models.Package{Status: types.StatusPickedUp, CurrentLatitude: ptr(1.0), CurrentLongitude: ptr(1.0)}
		got, ok := r.DriverPosition(pkg, pickup, dropoff)
		require.True(t, ok)
		assert.Equal(t, pickup.Coordinate, got.Coordinate)
	})

	t.Run("no driver otherwise", func(t *testing.T) {
		for _, s := range []types.PackageStatus{types.StatusPending, types.StatusAssigned, types.StatusDelivered, types.StatusCancelled} {
			pkg := &models.Package{Status: s, CurrentLatitude: ptr(1.0), CurrentLongitude: ptr(1.0)}
			if _, ok := r.DriverPosition(pkg, pickup, dropoff); ok {
				t.Fatalf("status %s should have no driver position", s)
			}
		}
	})
}

func TestTrack_InTransitRoute(t *testing.T) {
	r := newTestResolver(nil)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	pkg := &models.Package{
		Status:           types.StatusInTransit,
		PickupLatitude:   ptr(36.75),
		PickupLongitude:  ptr(3.06),
		DropoffLatitude:  ptr(36.70),
		DropoffLongitude: ptr(3.05),
		CurrentLatitude:  ptr(36.72),
		CurrentLongitude: ptr(3.055),
	}

	view := r.Track(context.Background(), pkg)

	require.NotNil(t, view.Driver)
	assert.Equal(t, types.SourceLive, view.Driver.Source)
	require.Len(t, view.Route, 3)
	assert.Equal(t, view.Pickup.Coordinate, view.Route[0])
	assert.Equal(t, view.Driver.Coordinate, view.Route[1])
	assert.Equal(t, view.Dropoff.Coordinate, view.Route[2])
	assert.Greater(t, view.DistanceRemainingKm, 0.0)
	require.NotNil(t, view.EstimatedArrival)
	assert.True(t, view.EstimatedArrival.After(now))
}

func TestTrack_MidpointUsesDetailDefaults(t *testing.T) {
	r := newTestResolver(&fakeGeocoder{})

	pkg := &models.Package{
		Status:          types.StatusInTransit,
		PickupLatitude:  ptr(36.80),
		PickupLongitude: ptr(3.10),
		DropoffAddress:  "nowhere",
	}

	view := r.Track(context.Background(), pkg)

	assert.Equal(t, types.SourceFallback, view.Dropoff.Source)
	assert.Equal(t, DefaultDefaults.DetailDropoff, view.Dropoff.Coordinate)
	require.NotNil(t, view.Driver)
	assert.Equal(t, types.SourceSimulated, view.Driver.Source)
	assert.InDelta(t, 36.75, view.Driver.Latitude, 1e-9)
	assert.InDelta(t, 3.075, view.Driver.Longitude, 1e-9)
	require.Len(t, view.Route, 3)
	assert.Equal(t, view.Driver.Coordinate, view.Route[1])
}

func TestTrack_MidpointWhenBothEndpointsDefault(t *testing.T) {
	r := newTestResolver(nil)

	view := r.Track(context.Background(), &models.Package{Status: types.StatusInTransit})

	require.NotNil(t, view.Driver)
	assert.Equal(t, types.SourceSimulated, view.Driver.Source)
	assert.Equal(t, models.Midpoint(DefaultDefaults.DetailPickup, DefaultDefaults.DetailDropoff), view.Driver.Coordinate)
}

func TestTrack_PendingHasNoDriver(t *testing.T) {
	r := newTestResolver(nil)

	view := r.Track(context.Background(), &models.Package{Status: types.StatusPending})

	assert.Nil(t, view.Driver)
	assert.Nil(t, view.EstimatedArrival)
	assert.Equal(t, []models.Coordinate{DefaultDefaults.DetailPickup, DefaultDefaults.DetailDropoff}, view.Route)
}
