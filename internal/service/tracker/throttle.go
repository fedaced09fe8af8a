package tracker

import (
	"sync"
	"time"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/pkg/geo"
)

// Throttle drops samples that arrive sooner than MinInterval after the last
// accepted one or that moved less than MinDistanceM from it.
type Throttle struct {
	opts SubscribeOptions

	mu       sync.Mutex
	last     models.Coordinate
	lastAt   time.Time
	accepted bool
}

func NewThrottle(opts SubscribeOptions) *Throttle {
	return &Throttle{opts: opts}
}

// Allow reports whether c, observed at now, should be delivered.
func (t *Throttle) Allow(c models.Coordinate, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.accepted {
		t.accept(c, now)
		return true
	}

	if now.Sub(t.lastAt) < t.opts.MinInterval {
		return false
	}
	if geo.HaversineMeters(t.last.Latitude, t.last.Longitude, c.Latitude, c.Longitude) < t.opts.MinDistanceM {
		return false
	}

	t.accept(c, now)
	return true
}

func (t *Throttle) accept(c models.Coordinate, now time.Time) {
	t.last = c
	t.lastAt = now
	t.accepted = true
}
