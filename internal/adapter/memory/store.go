// Package memory is a process-local package store.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
)

// PackageStore keeps packages in a map guarded by a single mutex, which makes
// UpdateWhere an atomic compare-and-set.
type PackageStore struct {
	mu     sync.RWMutex
	seq    int64
	byID   map[int64]*models.Package
	events []models.PackageEventRecord
	now    func() time.Time
}

func NewPackageStore() *PackageStore {
	return &PackageStore{
		byID: make(map[int64]*models.Package),
		now:  time.Now,
	}
}

func (s *PackageStore) Insert(_ context.Context, pkg *models.Package) (*models.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	stored := clone(pkg)
	stored.ID = s.seq
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.byID[stored.ID] = stored

	return clone(stored), nil
}

func (s *PackageStore) Find(ctx context.Context, filter models.PackageFilter, order *models.OrderBy) ([]models.Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]models.Package, 0)
	for _, p := range s.byID {
		if filter.Matches(p) {
			out = append(out, *clone(p))
		}
	}
	s.mu.RUnlock()

	sortPackages(out, order)
	return out, nil
}

func (s *PackageStore) FindOne(ctx context.Context, filter models.PackageFilter) (*models.Package, error) {
	const op = "PackageStore.FindOne"

	pkgs, err := s.Find(ctx, filter, &models.OrderBy{Field: "id"})
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, types.ErrPackageNotFound)
	}
	return &pkgs[0], nil
}

func (s *PackageStore) UpdateWhere(ctx context.Context, filter models.PackageFilter, patch models.PackagePatch) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var n int64
	for _, p := range s.byID {
		if filter.Matches(p) {
			patch.Apply(p, now)
			n++
		}
	}
	return n, nil
}

// CreateEvent records an audit event next to the packages.
func (s *PackageStore) CreateEvent(_ context.Context, rec models.PackageEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, rec)
	return nil
}

// Events returns the audit log of a package in insertion order.
func (s *PackageStore) Events(packageID int64) []models.PackageEventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.PackageEventRecord
	for _, e := range s.events {
		if e.PackageID == packageID {
			out = append(out, e)
		}
	}
	return out
}

func sortPackages(pkgs []models.Package, order *models.OrderBy) {
	if order == nil {
		order = &models.OrderBy{Field: "id"}
	}

	slices.SortStableFunc(pkgs, func(a, b models.Package) int {
		var c int
		switch order.Field {
		case "created_at":
			c = a.CreatedAt.Compare(b.CreatedAt)
		case "updated_at":
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if order.Desc {
			return -c
		}
		return c
	})
}

func clone(p *models.Package) *models.Package {
	c := *p
	c.DelivererID = copyPtr(p.DelivererID)
	c.Weight = copyPtr(p.Weight)
	c.Price = copyPtr(p.Price)
	c.PickupLatitude = copyPtr(p.PickupLatitude)
	c.PickupLongitude = copyPtr(p.PickupLongitude)
	c.DropoffLatitude = copyPtr(p.DropoffLatitude)
	c.DropoffLongitude = copyPtr(p.DropoffLongitude)
	c.CurrentLatitude = copyPtr(p.CurrentLatitude)
	c.CurrentLongitude = copyPtr(p.CurrentLongitude)
	return &c
}

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
