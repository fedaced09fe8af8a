// Package tracker reports a deliverer's live position while they carry packages.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	"github.com/Temutjin2k/droply/pkg/metrics"
)

type State string

const (
	StateIdle     State = "idle"
	StateActive   State = "active"
	StateDisabled State = "disabled"
)

type Config struct {
	CheckInterval     time.Duration
	SampleMinInterval time.Duration
	SampleMinDistance float64
	WriteTimeout      time.Duration
}

var DefaultConfig = Config{
	CheckInterval:     10 * time.Second,
	SampleMinInterval: 5 * time.Second,
	SampleMinDistance: 10,
	WriteTimeout:      5 * time.Second,
}

// Status is a snapshot of a supervisor for display.
type Status struct {
	UserID       string             `json:"user_id"`
	State        State              `json:"state"`
	LastSample   *models.Coordinate `json:"last_sample,omitempty"`
	LastReportAt *time.Time         `json:"last_report_at,omitempty"`
	Reported     int64              `json:"reported"`
}

/*
Supervisor holds a device subscription exactly while its user has packages
in transit. It re-checks on start, on every tick and on every Notify.
*/
type Supervisor struct {
	userID string
	store  PackageStore
	device DeviceLocation
	cfg    Config
	l      logger.Logger

	notify chan struct{}

	mu       sync.Mutex
	state    State
	sub      Subscription
	cancel   context.CancelFunc
	done     chan struct{}
	last     *models.Coordinate
	lastAt   *time.Time
	reported int64
}

func NewSupervisor(userID string, store PackageStore, device DeviceLocation, cfg Config, l logger.Logger) *Supervisor {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultConfig.CheckInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig.WriteTimeout
	}

	return &Supervisor{
		userID: userID,
		store:  store,
		device: device,
		cfg:    cfg,
		l:      l,
		notify: make(chan struct{}, 1),
		state:  StateIdle,
	}
}

// Run drives the supervisor until ctx is done. It returns types.ErrPermissionDenied
// when the device refuses location access; the supervisor stays disabled afterwards.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx = wrap.WithUserID(ctx, s.userID)

	if s.State() == StateDisabled {
		return types.ErrPermissionDenied
	}
	defer s.release(ctx)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		if err := s.check(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-s.notify:
		}
	}
}

// Start runs the supervisor in the background. Calling it again while running is a no-op.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil || s.state == StateDisabled {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go func() {
		defer close(done)
		// permission denial is logged by activate
		_ = s.Run(runCtx)

		s.mu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
		s.mu.Unlock()
		cancel()
	}()
}

// Stop cancels a running supervisor and waits for it to release its subscription.
// It is safe to call more than once.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Notify asks for an immediate re-check. It never blocks.
func (s *Supervisor) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{UserID: s.userID, State: s.state, Reported: s.reported}
	if s.last != nil {
		c := *s.last
		st.LastSample = &c
	}
	if s.lastAt != nil {
		at := *s.lastAt
		st.LastReportAt = &at
	}
	return st
}

func (s *Supervisor) inTransit() models.PackageFilter {
	id := s.userID
	return models.PackageFilter{
		DelivererID: &id,
		Statuses:    []types.PackageStatus{types.StatusInTransit},
	}
}

func (s *Supervisor) check(ctx context.Context) error {
	const op = "Supervisor.check"

	pkgs, err := s.store.Find(ctx, s.inTransit(), nil)
	if err != nil {
		if ctx.Err() == nil {
			s.l.Warn(wrap.ErrorCtx(ctx, err), "failed to check in-transit packages", "error", fmt.Sprintf("%s: %v", op, err))
		}
		return nil
	}

	s.mu.Lock()
	active := s.sub != nil
	s.mu.Unlock()

	switch {
	case len(pkgs) > 0 && !active:
		return s.activate(ctx, len(pkgs))
	case len(pkgs) == 0 && active:
		s.release(ctx)
	}
	return nil
}

func (s *Supervisor) activate(ctx context.Context, count int) error {
	const op = "Supervisor.activate"

	if err := s.device.RequestPermission(ctx); err != nil {
		if errors.Is(err, types.ErrPermissionDenied) {
			s.mu.Lock()
			s.state = StateDisabled
			s.mu.Unlock()
			s.l.Warn(wrap.WithAction(ctx, types.ActionPermissionDenied), "location permission denied")
			return fmt.Errorf("%s: %w", op, types.ErrPermissionDenied)
		}
		s.l.Warn(wrap.ErrorCtx(ctx, err), "location permission request failed", "error", err.Error())
		return nil
	}

	// report an initial fix before the first throttled sample arrives
	fixCtx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	if c, err := s.device.CurrentCoordinate(fixCtx); err == nil {
		s.report(ctx, c)
	} else {
		s.l.Debug(ctx, "no initial position", "error", err.Error())
	}
	cancel()

	sub, err := s.device.Subscribe(ctx, SubscribeOptions{
		MinInterval:  s.cfg.SampleMinInterval,
		MinDistanceM: s.cfg.SampleMinDistance,
	}, s.report)
	if err != nil {
		s.l.Warn(wrap.ErrorCtx(ctx, err), "failed to subscribe to device location", "error", err.Error())
		return nil
	}

	s.mu.Lock()
	s.sub = sub
	s.state = StateActive
	s.mu.Unlock()

	metrics.TrackersActive.Inc()
	s.l.Info(wrap.WithAction(ctx, types.ActionTrackerStarted), "location reporting started", "in_transit", count)
	return nil
}

// release drops the device subscription, if any.
func (s *Supervisor) release(ctx context.Context) {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	if s.state == StateActive {
		s.state = StateIdle
	}
	s.mu.Unlock()

	if sub == nil {
		return
	}

	sub.Unsubscribe()
	metrics.TrackersActive.Dec()
	s.l.Info(wrap.WithAction(ctx, types.ActionTrackerStopped), "location reporting stopped")
}

// report writes one sample to every in-transit package of the user. Failures are
// logged and counted; the subscription carries on.
func (s *Supervisor) report(ctx context.Context, c models.Coordinate) {
	if !c.Valid() {
		return
	}

	ctx = wrap.WithAction(wrap.WithUserID(ctx, s.userID), types.ActionLocationReported)
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	n, err := s.store.UpdateWhere(wctx, s.inTransit(), models.PackagePatch{Current: &c})
	metrics.RecordLocationWrite(err)
	if err != nil {
		s.l.Error(wrap.ErrorCtx(ctx, err), "failed to write location", err)
		return
	}

	now := time.Now().UTC()
	s.mu.Lock()
	s.last = &c
	s.lastAt = &now
	s.reported++
	s.mu.Unlock()

	s.l.Debug(ctx, "location written", "packages", n, "lat", c.Latitude, "lng", c.Longitude)
}
