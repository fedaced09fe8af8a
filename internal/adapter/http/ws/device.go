// Package wshandler exposes a deliverer's device websocket as a location source.
package wshandler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/droply/internal/adapter/http/ws/dto"
	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/internal/service/tracker"
	"github.com/Temutjin2k/droply/pkg/validator"
	ws "github.com/Temutjin2k/droply/pkg/wsHub"
)

const currentCoordinateTimeout = 10 * time.Second

// Sender is the write side of a device connection.
type Sender interface {
	Send(msg any) error
	Done() <-chan struct{}
}

// Device implements tracker.DeviceLocation over one websocket connection.
// Permission is decided by the client when it connects and does not change.
type Device struct {
	conn    Sender
	granted bool
	now     func() time.Time

	mu       sync.Mutex
	subCtx   context.Context
	handler  tracker.SampleHandler
	throttle *tracker.Throttle
	waiters  []chan models.Coordinate
}

func NewDevice(conn Sender, permissionGranted bool) *Device {
	return &Device{
		conn:    conn,
		granted: permissionGranted,
		now:     time.Now,
	}
}

func (d *Device) RequestPermission(ctx context.Context) error {
	if !d.granted {
		return types.ErrPermissionDenied
	}
	select {
	case <-d.conn.Done():
		return types.ErrDeviceUnavailable
	default:
		return nil
	}
}

// CurrentCoordinate asks the device for a position and waits for the next sample.
func (d *Device) CurrentCoordinate(ctx context.Context) (models.Coordinate, error) {
	const op = "Device.CurrentCoordinate"

	ch := make(chan models.Coordinate, 1)
	d.mu.Lock()
	d.waiters = append(d.waiters, ch)
	d.mu.Unlock()
	defer d.dropWaiter(ch)

	if err := d.conn.Send(dto.LocationRequest{MsgType: dto.TypeLocationRequest}); err != nil {
		return models.Coordinate{}, fmt.Errorf("%s: %w: %v", op, types.ErrDeviceUnavailable, err)
	}

	timer := time.NewTimer(currentCoordinateTimeout)
	defer timer.Stop()

	select {
	case c := <-ch:
		return c, nil
	case <-timer.C:
		return models.Coordinate{}, fmt.Errorf("%s: %w", op, ws.ErrListenTimeout)
	case <-d.conn.Done():
		return models.Coordinate{}, fmt.Errorf("%s: %w", op, types.ErrDeviceUnavailable)
	case <-ctx.Done():
		return models.Coordinate{}, ctx.Err()
	}
}

func (d *Device) dropWaiter(ch chan models.Coordinate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, w := range d.waiters {
		if w == ch {
			d.waiters = append(d.waiters[:i], d.waiters[i+1:]...)
			return
		}
	}
}

// Subscribe turns on streaming on the device and routes throttled samples to h.
func (d *Device) Subscribe(ctx context.Context, opts tracker.SubscribeOptions, h tracker.SampleHandler) (tracker.Subscription, error) {
	const op = "Device.Subscribe"

	d.mu.Lock()
	d.subCtx = ctx
	d.handler = h
	d.throttle = tracker.NewThrottle(opts)
	d.mu.Unlock()

	err := d.conn.Send(dto.TrackingCommand{
		MsgType:       dto.TypeTracking,
		Enabled:       true,
		MinIntervalMs: opts.MinInterval.Milliseconds(),
		MinDistanceM:  opts.MinDistanceM,
	})
	if err != nil {
		d.clear()
		return nil, fmt.Errorf("%s: %w: %v", op, types.ErrDeviceUnavailable, err)
	}

	return &subscription{d: d}, nil
}

func (d *Device) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subCtx, d.handler, d.throttle = nil, nil, nil
}

type subscription struct {
	d    *Device
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.d.clear()
		// the device may already be gone
		_ = s.d.conn.Send(dto.TrackingCommand{MsgType: dto.TypeTracking, Enabled: false})
	})
}

// HandleMessage processes one message read from the device. It is meant to be
// the ws.Conn Listen handler, so samples are handled one at a time in order.
func (d *Device) HandleMessage(msg map[string]any) error {
	t, _ := msg["type"].(string)
	if t != dto.TypeLocationUpdate {
		return errorResponse(d.conn, fmt.Sprintf("unsupported message type %q", t))
	}

	var update dto.LocationUpdate
	if err := decode(msg, &update); err != nil {
		return errorResponse(d.conn, err.Error())
	}

	v := validator.New()
	update.Validate(v)
	if !v.Valid() {
		return failedValidationResponse(d.conn, v.Errors)
	}

	d.deliver(update.Coordinate())
	return nil
}

func (d *Device) deliver(c models.Coordinate) {
	d.mu.Lock()
	waiters := d.waiters
	d.waiters = nil
	h, ctx, th := d.handler, d.subCtx, d.throttle
	d.mu.Unlock()

	for _, w := range waiters {
		select {
		case w <- c:
		default:
		}
	}

	if h == nil || (th != nil && !th.Allow(c, d.now())) {
		return
	}
	h(ctx, c)
}
