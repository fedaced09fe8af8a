package geocache

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
)

type Geocoder interface {
	ForwardGeocode(ctx context.Context, address string) ([]models.Coordinate, error)
	ReverseGeocode(ctx context.Context, c models.Coordinate) (string, error)
}

type Cache interface {
	Get(ctx context.Context, address string) (models.Coordinate, bool, error)
	Put(ctx context.Context, address string, c models.Coordinate) error
}

// CachedGeocoder puts a cache and request coalescing in front of a geocoder.
// Only successful lookups are cached, so a bad address is retried next time.
type CachedGeocoder struct {
	next  Geocoder
	cache Cache
	group singleflight.Group
	l     logger.Logger
}

func NewCachedGeocoder(next Geocoder, cache Cache, l logger.Logger) *CachedGeocoder {
	return &CachedGeocoder{next: next, cache: cache, l: l}
}

func (g *CachedGeocoder) ForwardGeocode(ctx context.Context, address string) ([]models.Coordinate, error) {
	key := Normalize(address)

	if c, ok, err := g.cache.Get(ctx, key); err != nil {
		g.l.Warn(wrap.ErrorCtx(ctx, err), "geocode cache read failed", "error", err.Error())
	} else if ok {
		return []models.Coordinate{c}, nil
	}

	v, err, _ := g.group.Do(key, func() (any, error) {
		results, err := g.next.ForwardGeocode(ctx, address)
		if err != nil {
			return nil, err
		}

		for _, c := range results {
			if !c.Valid() {
				continue
			}
			// cache writes must not be lost to a caller giving up
			if err := g.cache.Put(context.WithoutCancel(ctx), key, c); err != nil {
				g.l.Warn(wrap.ErrorCtx(ctx, err), "geocode cache write failed", "error", err.Error())
			}
			break
		}
		return results, nil
	})
	if err != nil {
		return nil, fmt.Errorf("cached geocoder: %w", err)
	}

	return v.([]models.Coordinate), nil
}

func (g *CachedGeocoder) ReverseGeocode(ctx context.Context, c models.Coordinate) (string, error) {
	return g.next.ReverseGeocode(ctx, c)
}
