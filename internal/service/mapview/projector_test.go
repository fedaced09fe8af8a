package mapview

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/internal/service/resolver"
	"github.com/Temutjin2k/droply/pkg/logger"
)

type stubGeocoder struct {
	results map[string][]models.Coordinate
	calls   atomic.Int32
	delay   time.Duration
}

func (s *stubGeocoder) ForwardGeocode(ctx context.Context, address string) ([]models.Coordinate, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.results[address], nil
}

func ptr[T any](v T) *T { return &v }

func newTestProjector(g resolver.Geocoder) *Projector {
	return NewProjector(resolver.New(g, resolver.DefaultDefaults, logger.Nop()), 3, logger.Nop())
}

func TestCategorize_Total(t *testing.T) {
	viewers := []string{"", "sender", "courier", "stranger"}
	statuses := []types.PackageStatus{
		types.StatusPending, types.StatusAssigned, types.StatusInTransit,
		types.StatusPickedUp, types.StatusDelivered, types.StatusCancelled,
	}
	valid := map[types.MarkerCategory]bool{
		types.CategoryMyDelivery: true,
		types.CategoryAvailable:  true,
		types.CategoryMyPackage:  true,
		types.CategoryOther:      true,
	}

	for _, s := range statuses {
		for _, v := range viewers {
			pkg := &models.Package{ID: 1, SenderID: "sender", Status: s}
			if s != types.StatusPending && s != types.StatusCancelled {
				pkg.DelivererID = ptr("courier")
			}
			if c := Categorize(pkg, v); !valid[c] {
				t.Fatalf("status %s viewer %q: unexpected category %q", s, v, c)
			}
		}
	}
}

func TestCategorize_Rules(t *testing.T) {
	tests := []struct {
		name   string
		pkg    models.Package
		viewer string
		want   types.MarkerCategory
	}{
		{
			name:   "assigned to viewer",
			pkg:    models.Package{ID: 2, SenderID: "s", DelivererID: ptr("u1"), Status: types.StatusAssigned},
			viewer: "u1",
			want:   types.CategoryMyDelivery,
		},
		{
			name:   "assigned to someone else",
			pkg:    models.Package{ID: 2, SenderID: "s", DelivererID: ptr("u1"), Status: types.StatusAssigned},
			viewer: "u2",
			want:   types.CategoryOther,
		},
		{
			name:   "deliverer beats sender",
			pkg:    models.Package{SenderID: "u1", DelivererID: ptr("u1"), Status: types.StatusInTransit},
			viewer: "u1",
			want:   types.CategoryMyDelivery,
		},
		{
			name:   "pending own package is available",
			pkg:    models.Package{SenderID: "u1", Status: types.StatusPending},
			viewer: "u1",
			want:   types.CategoryAvailable,
		},
		{
			name:   "own package in transit",
			pkg:    models.Package{SenderID: "u1", DelivererID: ptr("u2"), Status: types.StatusInTransit},
			viewer: "u1",
			want:   types.CategoryMyPackage,
		},
		{
			name:   "picked up by viewer is not an active delivery",
			pkg:    models.Package{SenderID: "s", DelivererID: ptr("u1"), Status: types.StatusPickedUp},
			viewer: "u1",
			want:   types.CategoryOther,
		},
		{
			name:   "anonymous viewer",
			pkg:    models.Package{SenderID: "s", DelivererID: ptr("u1"), Status: types.StatusAssigned},
			viewer: "",
			want:   types.CategoryOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(&tt.pkg, tt.viewer))
		})
	}
}

func TestProject_UnresolvableUsesFallback(t *testing.T) {
	geo := &stubGeocoder{}
	p := newTestProjector(geo)

	pkgs := []models.Package{{ID: 1, Status: types.StatusPending, PickupAddress: "A", DropoffAddress: "B"}}

	data := p.Project(context.Background(), pkgs, "viewer")

	require.Len(t, data.Markers, 1)
	assert.Equal(t, resolver.DefaultDefaults.Fallback, data.Markers[0].Coordinate)
	assert.Equal(t, types.SourceFallback, data.Markers[0].Source)
	assert.Equal(t, types.CategoryAvailable, data.Markers[0].Category)
	assert.Empty(t, data.Routes)
	assert.EqualValues(t, 1, geo.calls.Load(), "only the pickup is geocoded outside my deliveries")
}

func TestProject_MyDeliveryEmitsDestinationAndRoute(t *testing.T) {
	p := newTestProjector(&stubGeocoder{})

	pkgs := []models.Package{{
		ID:               5,
		Title:            "documents",
		SenderID:         "s",
		DelivererID:      ptr("u1"),
		Status:           types.StatusInTransit,
		PickupLatitude:   ptr(10.0),
		PickupLongitude:  ptr(20.0),
		DropoffLatitude:  ptr(20.0),
		DropoffLongitude: ptr(40.0),
	}}

	data := p.Project(context.Background(), pkgs, "u1")

	require.Len(t, data.Markers, 2)
	primary, dest := data.Markers[0], data.Markers[1]

	assert.Equal(t, "5", primary.ID)
	assert.Equal(t, types.CategoryMyDelivery, primary.Category)
	assert.Equal(t, "Go to Dropoff", primary.Description)
	assert.Equal(t, models.Coordinate{Latitude: 15, Longitude: 30}, primary.Coordinate)
	assert.Equal(t, types.SourceSimulated, primary.Source)

	assert.Equal(t, "dropoff-5", dest.ID)
	assert.Equal(t, types.CategoryDestination, dest.Category)
	assert.Equal(t, "#E91E63", dest.Color)
	assert.Equal(t, models.Coordinate{Latitude: 20, Longitude: 40}, dest.Coordinate)

	require.Len(t, data.Routes, 1)
	assert.Equal(t, []models.Coordinate{primary.Coordinate, dest.Coordinate}, data.Routes[0].Points)
	assert.Equal(t, "#2196F3", data.Routes[0].Color)
}

func TestProject_AssignedDeliveryStartsAtPickup(t *testing.T) {
	p := newTestProjector(&stubGeocoder{results: map[string][]models.Coordinate{
		"pickup st":  {{Latitude: 1, Longitude: 2}},
		"dropoff st": {{Latitude: 3, Longitude: 4}},
	}})

	pkgs := []models.Package{{
		ID: 9, SenderID: "s", DelivererID: ptr("u1"), Status: types.StatusAssigned,
		PickupAddress: "pickup st", DropoffAddress: "dropoff st",
	}}

	data := p.Project(context.Background(), pkgs, "u1")

	require.Len(t, data.Markers, 2)
	assert.Equal(t, "Go to Pickup", data.Markers[0].Description)
	assert.Equal(t, models.Coordinate{Latitude: 1, Longitude: 2}, data.Markers[0].Coordinate)
	assert.Equal(t, types.SourceGeocoded, data.Markers[0].Source)
	assert.Equal(t, models.Coordinate{Latitude: 3, Longitude: 4}, data.Markers[1].Coordinate)
}

func TestProject_PreservesInputOrder(t *testing.T) {
	p := newTestProjector(&stubGeocoder{delay: time.Millisecond})

	pkgs := make([]models.Package, 20)
	for i := range pkgs {
		pkgs[i] = models.Package{
			ID:            int64(i + 1),
			SenderID:      "s",
			Status:        types.StatusPending,
			PickupAddress: fmt.Sprintf("street %d", i),
		}
	}

	first := p.Project(context.Background(), pkgs, "viewer")
	second := p.Project(context.Background(), pkgs, "viewer")

	require.Len(t, first.Markers, len(pkgs))
	for i, m := range first.Markers {
		if m.PackageID != pkgs[i].ID {
			t.Fatalf("marker %d belongs to package %d, want %d", i, m.PackageID, pkgs[i].ID)
		}
	}
	assert.Equal(t, first, second)
}

func TestProject_EmptyInput(t *testing.T) {
	data := newTestProjector(nil).Project(context.Background(), nil, "viewer")

	assert.NotNil(t, data.Markers)
	assert.NotNil(t, data.Routes)
	assert.Empty(t, data.Markers)
}
