package handler

import (
	"context"
	"errors"
	"net/http"

	wshandler "github.com/Temutjin2k/droply/internal/adapter/http/ws"
	"github.com/Temutjin2k/droply/internal/service/tracker"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/droply/pkg/wsHub"
	"github.com/gorilla/websocket"
)

type TrackerRegistry interface {
	Attach(ctx context.Context, userID string, device tracker.DeviceLocation) *tracker.Supervisor
	Detach(userID string, sup *tracker.Supervisor)
	Status(userID string) (tracker.Status, bool)
}

type Tracker struct {
	registry TrackerRegistry
	hub      *ws.ConnectionHub
	upgrader websocket.Upgrader
	l        logger.Logger
}

func NewTracker(registry TrackerRegistry, hub *ws.ConnectionHub, l logger.Logger) *Tracker {
	return &Tracker{
		registry: registry,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// devices are native apps, not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		l: l,
	}
}

// HandleDeviceWS godoc
// @Summary      Device location stream
// @Description  Upgrades to a websocket carrying the deliverer's device location. The server asks for samples while the deliverer has packages in transit.
// @Tags         Tracker
// @Security     BearerAuth
// @Param        location_permission query string false "granted | denied" default(granted)
// @Success      101
// @Failure      401,422  {object}  map[string]any
// @Router       /ws/devices [get]
func (h *Tracker) HandleDeviceWS(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	ctx := wrap.WithUserID(wrap.WithAction(r.Context(), "device_ws"), userID)

	permission := r.URL.Query().Get("location_permission")
	if permission == "" {
		permission = "granted"
	}
	if permission != "granted" && permission != "denied" {
		failedValidationResponse(w, map[string]string{"location_permission": "must be one of granted, denied"})
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	// the request context ends with the handler; the session lives until the socket closes
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	conn := ws.NewConn(sessionCtx, userID, raw)
	if err := h.hub.Add(conn); err != nil {
		h.l.Error(ctx, "failed to register device connection", err)
		_ = conn.Close()
		return
	}
	defer h.hub.Remove(conn)

	device := wshandler.NewDevice(conn, permission == "granted")
	sup := h.registry.Attach(sessionCtx, userID, device)
	defer h.registry.Detach(userID, sup)

	h.l.Info(ctx, "device connected", "location_permission", permission)

	err = conn.Listen(device.HandleMessage)
	switch {
	case err == nil, errors.Is(err, ws.ErrConnClosed):
	case websocket.IsCloseError(errors.Unwrap(err), websocket.CloseNormalClosure, websocket.CloseGoingAway):
	default:
		h.l.Warn(ctx, "device stream ended", "error", err.Error())
	}

	h.l.Info(ctx, "device disconnected")
}

// Status godoc
// @Summary      Tracker status
// @Description  The reporting loop state of the current user's device session.
// @Tags         Tracker
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  tracker.Status
// @Failure      404  {object}  map[string]any
// @Router       /tracker/status [get]
func (h *Tracker) Status(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	ctx := wrap.WithUserID(wrap.WithAction(r.Context(), "tracker_status"), userID)

	status, ok := h.registry.Status(userID)
	if !ok {
		errorResponse(w, http.StatusNotFound, "no device connected")
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"tracker": status}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}
