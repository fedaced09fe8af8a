package tracker

import (
	"context"
	"sync"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/pkg/logger"
)

// Registry keeps one supervisor per connected deliverer.
type Registry struct {
	store PackageStore
	cfg   Config
	l     logger.Logger

	mu   sync.Mutex
	sups map[string]*Supervisor
}

func NewRegistry(store PackageStore, cfg Config, l logger.Logger) *Registry {
	return &Registry{
		store: store,
		cfg:   cfg,
		l:     l,
		sups:  make(map[string]*Supervisor),
	}
}

// Attach starts a supervisor for a freshly connected device. A previous
// session of the same user is stopped first.
func (r *Registry) Attach(ctx context.Context, userID string, device DeviceLocation) *Supervisor {
	sup := NewSupervisor(userID, r.store, device, r.cfg, r.l)

	r.mu.Lock()
	prev := r.sups[userID]
	r.sups[userID] = sup
	r.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	sup.Start(ctx)

	return sup
}

// Detach stops sup and forgets it, unless a newer session replaced it.
func (r *Registry) Detach(userID string, sup *Supervisor) {
	r.mu.Lock()
	if r.sups[userID] == sup {
		delete(r.sups, userID)
	}
	r.mu.Unlock()

	sup.Stop()
}

// Notify wakes the supervisor of userID, if connected.
func (r *Registry) Notify(userID string) bool {
	r.mu.Lock()
	sup, ok := r.sups[userID]
	r.mu.Unlock()

	if ok {
		sup.Notify()
	}
	return ok
}

// OnStatusChanged wakes the deliverer's supervisor when a package enters or
// leaves in_transit. It is the change feed handler of the tracker service.
func (r *Registry) OnStatusChanged(ctx context.Context, msg models.PackageStatusChanged) error {
	if msg.DelivererID == "" {
		return nil
	}
	if msg.OldStatus != types.StatusInTransit && msg.NewStatus != types.StatusInTransit {
		return nil
	}

	if r.Notify(msg.DelivererID) {
		r.l.Debug(ctx, "tracker notified", "user", msg.DelivererID, "status", msg.NewStatus)
	}
	return nil
}

func (r *Registry) Status(userID string) (Status, bool) {
	r.mu.Lock()
	sup, ok := r.sups[userID]
	r.mu.Unlock()

	if !ok {
		return Status{}, false
	}
	return sup.Status(), true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sups)
}

// Close stops every supervisor.
func (r *Registry) Close() {
	r.mu.Lock()
	sups := r.sups
	r.sups = make(map[string]*Supervisor)
	r.mu.Unlock()

	for _, sup := range sups {
		sup.Stop()
	}
}
