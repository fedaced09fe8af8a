package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
)

func ptr[T any](v T) *T { return &v }

func TestUpdateWhere_ConcurrentAssignExactlyOnce(t *testing.T) {
	s := NewPackageStore()
	ctx := context.Background()

	pkg, err := s.Insert(ctx, &models.Package{SenderID: "sender", Status: types.StatusPending})
	require.NoError(t, err)

	assigned := types.StatusAssigned
	filter := models.PackageFilter{ID: &pkg.ID, Statuses: []types.PackageStatus{types.StatusPending}}

	const workers = 16
	var (
		wg    sync.WaitGroup
		total atomic.Int64
		start = make(chan struct{})
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			n, err := s.UpdateWhere(ctx, filter, models.PackagePatch{Status: &assigned, DelivererID: ptr(string(rune('a' + i)))})
			if err != nil {
				t.Errorf("update: %v", err)
			}
			total.Add(n)
		}()
	}
	close(start)
	wg.Wait()

	if total.Load() != 1 {
		t.Fatalf("expected exactly one affected row across workers, got %d", total.Load())
	}

	got, err := s.FindOne(ctx, models.PackageFilter{ID: &pkg.ID})
	require.NoError(t, err)
	assert.Equal(t, types.StatusAssigned, got.Status)
	require.NotNil(t, got.DelivererID)
}

func TestFindOne_NotFound(t *testing.T) {
	s := NewPackageStore()
	_, err := s.FindOne(context.Background(), models.PackageFilter{ID: ptr(int64(42))})
	if !errors.Is(err, types.ErrPackageNotFound) {
		t.Fatalf("expected ErrPackageNotFound, got %v", err)
	}
}

func TestFind_FilterAndOrder(t *testing.T) {
	s := NewPackageStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	seed := []models.Package{
		{SenderID: "a", Status: types.StatusPending, CreatedAt: base},
		{SenderID: "b", Status: types.StatusAssigned, DelivererID: ptr("a"), CreatedAt: base.Add(time.Hour)},
		{SenderID: "a", Status: types.StatusDelivered, DelivererID: ptr("c"), CreatedAt: base.Add(2 * time.Hour)},
		{SenderID: "c", Status: types.StatusPending, CreatedAt: base.Add(3 * time.Hour)},
	}
	for i := range seed {
		_, err := s.Insert(ctx, &seed[i])
		require.NoError(t, err)
	}

	t.Run("participant", func(t *testing.T) {
		got, err := s.Find(ctx, models.PackageFilter{ParticipantID: ptr("a")}, models.OrderByCreatedDesc)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []int64{3, 2, 1}, ids(got))
	})

	t.Run("status set", func(t *testing.T) {
		got, err := s.Find(ctx, models.PackageFilter{Statuses: []types.PackageStatus{types.StatusPending}}, models.OrderByCreatedDesc)
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 1}, ids(got))
	})

	t.Run("unassigned", func(t *testing.T) {
		got, err := s.Find(ctx, models.PackageFilter{DelivererIsNull: true}, nil)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 4}, ids(got))
	})
}

func TestFind_ReturnsCopies(t *testing.T) {
	s := NewPackageStore()
	ctx := context.Background()

	pkg, err := s.Insert(ctx, &models.Package{SenderID: "a", Status: types.StatusPending})
	require.NoError(t, err)

	pkg.Status = types.StatusCancelled

	got, err := s.FindOne(ctx, models.PackageFilter{ID: &pkg.ID})
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status)
}

func TestUpdateWhere_BatchCurrentPosition(t *testing.T) {
	s := NewPackageStore()
	ctx := context.Background()

	for _, st := range []types.PackageStatus{types.StatusInTransit, types.StatusInTransit, types.StatusAssigned} {
		_, err := s.Insert(ctx, &models.Package{SenderID: "s", DelivererID: ptr("d"), Status: st})
		require.NoError(t, err)
	}

	n, err := s.UpdateWhere(ctx,
		models.PackageFilter{DelivererID: ptr("d"), Statuses: []types.PackageStatus{types.StatusInTransit}},
		models.PackagePatch{Current: &models.Coordinate{Latitude: 1, Longitude: 2}},
	)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	assigned, err := s.FindOne(ctx, models.PackageFilter{ID: ptr(int64(3))})
	require.NoError(t, err)
	assert.Nil(t, assigned.CurrentLatitude)
}

func ids(pkgs []models.Package) []int64 {
	out := make([]int64, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.ID
	}
	return out
}
