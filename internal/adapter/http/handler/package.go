package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/droply/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/pkg/hasher"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	"github.com/Temutjin2k/droply/pkg/validator"
)

type PackageService interface {
	Create(ctx context.Context, senderID string, pkg *models.Package) (*models.Package, error)
	Details(ctx context.Context, viewerID string, id int64) (*models.PackageDetails, error)
	Sent(ctx context.Context, userID string) (*models.Dashboard, error)
	Deliveries(ctx context.Context, userID string) (*models.Dashboard, error)
	Available(ctx context.Context) ([]models.Package, error)
	Tracked(ctx context.Context, userID string) ([]models.Package, error)
	Map(ctx context.Context, viewerID string) (models.MapData, error)

	Accept(ctx context.Context, actorID string, id int64) (*models.Package, error)
	Start(ctx context.Context, actorID string, id int64) (*models.Package, error)
	Deliver(ctx context.Context, actorID string, id int64) (*models.Package, error)
	Cancel(ctx context.Context, actorID string, id int64) (*models.Package, error)
}

type Package struct {
	service PackageService
	l       logger.Logger
}

func NewPackage(service PackageService, l logger.Logger) *Package {
	return &Package{
		service: service,
		l:       l,
	}
}

// Create godoc
// @Summary      Create a package
// @Description  Creates a pending package sent by the current user. A blank address is reverse-geocoded from its coordinates.
// @Tags         Packages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreatePackageRequest true "package"
// @Success      201  {object}  models.Package
// @Failure      400,401,422  {object}  map[string]any
// @Router       /packages [post]
func (h *Package) Create(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	ctx := wrap.WithUserID(wrap.WithAction(r.Context(), "create_package"), userID)

	var req dto.CreatePackageRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	pkg, err := h.service.Create(ctx, userID, req.ToModel())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create package", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"package": pkg}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// Get godoc
// @Summary      Package details
// @Description  Returns a package with its tracking view and the actions the viewer may take.
// @Tags         Packages
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "package id"
// @Success      200  {object}  models.PackageDetails
// @Failure      400,404  {object}  map[string]any
// @Router       /packages/{id} [get]
func (h *Package) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_package")

	id, err := readID(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithPackageID(ctx, id)

	details, err := h.service.Details(ctx, currentUserID(r), id)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get package", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"details": details}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// List godoc
// @Summary      Dashboard lists
// @Description  Packages the current user sent or delivers, newest first, with the count of active ones.
// @Tags         Packages
// @Produce      json
// @Security     BearerAuth
// @Param        view query string false "sent | deliveries" default(sent)
// @Success      200  {object}  models.Dashboard
// @Failure      401,422  {object}  map[string]any
// @Router       /packages [get]
func (h *Package) List(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	ctx := wrap.WithUserID(wrap.WithAction(r.Context(), "list_packages"), userID)

	view := dto.DashboardView(r.URL.Query().Get("view"))
	if view == "" {
		view = dto.ViewSent
	}

	v := validator.New()
	view.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	var (
		dashboard *models.Dashboard
		err       error
	)
	switch view {
	case dto.ViewDeliveries:
		dashboard, err = h.service.Deliveries(ctx, userID)
	default:
		dashboard, err = h.service.Sent(ctx, userID)
	}
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list packages", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"view": view, "packages": dashboard.Packages, "active_count": dashboard.ActiveCount}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// Available godoc
// @Summary      Available packages
// @Description  Pending packages anyone may accept, newest first.
// @Tags         Packages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Package
// @Router       /packages/available [get]
func (h *Package) Available(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_available_packages")

	pkgs, err := h.service.Available(ctx)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list available packages", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"packages": pkgs}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// Tracked godoc
// @Summary      Tracked packages
// @Description  The current user's packages that are not yet delivered or cancelled.
// @Tags         Packages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Package
// @Router       /packages/tracked [get]
func (h *Package) Tracked(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	ctx := wrap.WithUserID(wrap.WithAction(r.Context(), "list_tracked_packages"), userID)

	pkgs, err := h.service.Tracked(ctx, userID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list tracked packages", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"packages": pkgs}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// Map godoc
// @Summary      Map projection
// @Description  Markers and routes for every package on the map, categorized for the viewer. Supports If-None-Match.
// @Tags         Map
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.MapData
// @Success      304
// @Router       /map [get]
func (h *Package) Map(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	ctx := wrap.WithUserID(wrap.WithAction(r.Context(), "project_map"), userID)

	data, err := h.service.Map(ctx, userID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to project map", err)
		serviceErrorResponse(w, err)
		return
	}

	js, err := encodeJSON(envelope{"markers": data.Markers, "routes": data.Routes})
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to encode map", err)
		internalErrorResponse(w, err.Error())
		return
	}

	etag := hasher.ETag(js)
	headers := http.Header{"ETag": []string{etag}, "Cache-Control": []string{"no-cache"}}
	if hasher.MatchETag(r.Header.Get("If-None-Match"), etag) {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeRaw(w, http.StatusOK, js, headers)
}

// Accept godoc
// @Summary      Accept a package
// @Description  Assigns a pending package to the current user. Concurrent accepts: exactly one wins, the others get 409.
// @Tags         Lifecycle
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "package id"
// @Success      200  {object}  models.Package
// @Failure      401,403,404,409  {object}  map[string]any
// @Router       /packages/{id}/accept [post]
func (h *Package) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "accept_package", h.service.Accept)
}

// Start godoc
// @Summary      Start delivery
// @Description  The assigned deliverer moves the package in transit.
// @Tags         Lifecycle
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "package id"
// @Success      200  {object}  models.Package
// @Failure      401,403,404,409  {object}  map[string]any
// @Router       /packages/{id}/start [post]
func (h *Package) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "start_delivery", h.service.Start)
}

// Deliver godoc
// @Summary      Mark delivered
// @Tags         Lifecycle
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "package id"
// @Success      200  {object}  models.Package
// @Failure      401,403,404,409  {object}  map[string]any
// @Router       /packages/{id}/deliver [post]
func (h *Package) Deliver(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "deliver_package", h.service.Deliver)
}

// Cancel godoc
// @Summary      Cancel a package
// @Description  The sender withdraws a pending or assigned package.
// @Tags         Lifecycle
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "package id"
// @Success      200  {object}  models.Package
// @Failure      401,403,404,409  {object}  map[string]any
// @Router       /packages/{id}/cancel [post]
func (h *Package) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel_package", h.service.Cancel)
}

type transitionFunc func(ctx context.Context, actorID string, id int64) (*models.Package, error)

func (h *Package) transition(w http.ResponseWriter, r *http.Request, action string, fn transitionFunc) {
	userID := currentUserID(r)
	ctx := wrap.WithUserID(wrap.WithAction(r.Context(), action), userID)

	id, err := readID(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithPackageID(ctx, id)

	pkg, err := fn(ctx, userID, id)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "transition rejected", "error", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"package": pkg}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "package transitioned", "status", pkg.Status)
}
