package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/player"
	"github.com/hszk-dev/loopvideo/internal/usecase"
)

// SurfaceService manages remote render surfaces.
type SurfaceService interface {
	Create(gravity player.Gravity) uuid.UUID
	Attach(ctx context.Context, id uuid.UUID, key model.VideoKey, loop bool) error
	Detach(id uuid.UUID) error
	Remove(id uuid.UUID) error
	List() []usecase.SurfaceInfo
}

type CreateSurfaceRequest struct {
	Gravity string `json:"gravity,omitempty"`
}

type SurfaceResponse struct {
	ID      string `json:"id"`
	Key     string `json:"key,omitempty"`
	Playing bool   `json:"playing"`
	Showing bool   `json:"showing"`
}

type ListSurfacesResponse struct {
	Surfaces []SurfaceResponse `json:"surfaces"`
}

// SurfacesHandler handles render surface HTTP requests.
type SurfacesHandler struct {
	svc SurfaceService
}

// NewSurfacesHandler creates a new SurfacesHandler.
func NewSurfacesHandler(svc SurfaceService) *SurfacesHandler {
	return &SurfacesHandler{svc: svc}
}

// Create handles POST /v1/surfaces
func (h *SurfacesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSurfaceRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
			return
		}
	}

	gravity, ok := parseGravity(req.Gravity)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid_gravity", "Unknown gravity: "+strconv.Quote(req.Gravity))
		return
	}

	id := h.svc.Create(gravity)
	JSON(w, http.StatusCreated, SurfaceResponse{ID: id.String()})
}

// List handles GET /v1/surfaces
func (h *SurfacesHandler) List(w http.ResponseWriter, r *http.Request) {
	infos := h.svc.List()
	resp := ListSurfacesResponse{Surfaces: make([]SurfaceResponse, 0, len(infos))}
	for _, info := range infos {
		resp.Surfaces = append(resp.Surfaces, SurfaceResponse{
			ID:      info.ID.String(),
			Key:     info.Key.String(),
			Playing: info.Playing,
			Showing: info.Showing,
		})
	}
	JSON(w, http.StatusOK, resp)
}

// Attach handles PUT /v1/surfaces/{id}/player/{key}?loop=true
func (h *SurfacesHandler) Attach(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSurfaceID(w, r)
	if !ok {
		return
	}
	key := model.VideoKey(chi.URLParam(r, "key"))
	if err := key.Validate(); err != nil {
		Error(w, http.StatusBadRequest, "invalid_key", "Key must be a bare asset name")
		return
	}
	loop, _ := strconv.ParseBool(r.URL.Query().Get("loop"))

	err := h.svc.Attach(r.Context(), id, key, loop)
	switch {
	case errors.Is(err, usecase.ErrSurfaceNotFound), errors.Is(err, usecase.ErrCoordinatorClosed):
		Error(w, http.StatusNotFound, "surface_not_found", "Surface not found")
	case err != nil:
		// The surface stays transparent; report why.
		writeCreateError(w, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Detach handles DELETE /v1/surfaces/{id}/player
func (h *SurfacesHandler) Detach(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSurfaceID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Detach(id); err != nil {
		Error(w, http.StatusNotFound, "surface_not_found", "Surface not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove handles DELETE /v1/surfaces/{id}
func (h *SurfacesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSurfaceID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Remove(id); err != nil {
		Error(w, http.StatusNotFound, "surface_not_found", "Surface not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseSurfaceID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_surface_id", "Surface ID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseGravity(s string) (player.Gravity, bool) {
	switch s {
	case "", player.GravityResizeAspectFill.String():
		return player.GravityResizeAspectFill, true
	case player.GravityResizeAspect.String():
		return player.GravityResizeAspect, true
	case player.GravityResize.String():
		return player.GravityResize, true
	default:
		return 0, false
	}
}
