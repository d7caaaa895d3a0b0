package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/usecase"
)

// PlayerCache is the cache boundary exposed over HTTP.
type PlayerCache interface {
	GetOrCreate(ctx context.Context, key model.VideoKey, loop bool) *usecase.CachedPlayer
	Clear(key model.VideoKey)
	ClearAll()
	Preload(keys []model.VideoKey, priority model.Priority)
	Snapshot() []usecase.PlayerInfo
}

type PlayerResponse struct {
	Key      string `json:"key"`
	State    string `json:"state"`
	Loop     bool   `json:"loop"`
	Playing  bool   `json:"playing"`
	Attached int    `json:"attached"`
	Error    string `json:"error,omitempty"`
}

type ListPlayersResponse struct {
	Players []PlayerResponse `json:"players"`
}

type PreloadRequest struct {
	Keys     []string `json:"keys"`
	Priority string   `json:"priority,omitempty"`
}

type PreloadResponse struct {
	Accepted int    `json:"accepted"`
	Priority string `json:"priority"`
}

// PlayersHandler handles player cache HTTP requests.
type PlayersHandler struct {
	cache PlayerCache
}

// NewPlayersHandler creates a new PlayersHandler.
func NewPlayersHandler(cache PlayerCache) *PlayersHandler {
	return &PlayersHandler{cache: cache}
}

// List handles GET /v1/players
func (h *PlayersHandler) List(w http.ResponseWriter, r *http.Request) {
	infos := h.cache.Snapshot()
	resp := ListPlayersResponse{Players: make([]PlayerResponse, 0, len(infos))}
	for _, info := range infos {
		resp.Players = append(resp.Players, PlayerResponse{
			Key:      info.Key.String(),
			State:    info.State.String(),
			Loop:     info.Loop,
			Playing:  info.Playing,
			Attached: info.Attached,
		})
	}
	JSON(w, http.StatusOK, resp)
}

// Put handles PUT /v1/players/{key}?loop=true
// It blocks until the player is ready or creation fails.
func (h *PlayersHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := model.VideoKey(chi.URLParam(r, "key"))
	if err := key.Validate(); err != nil {
		Error(w, http.StatusBadRequest, "invalid_key", "Key must be a bare asset name")
		return
	}

	loop := false
	if v := r.URL.Query().Get("loop"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			Error(w, http.StatusBadRequest, "invalid_loop", "loop must be a boolean")
			return
		}
		loop = b
	}

	cp := h.cache.GetOrCreate(r.Context(), key, loop)
	if cp.State() == model.StateFailed {
		writeCreateError(w, cp.Err())
		return
	}

	JSON(w, http.StatusOK, toPlayerResponse(cp))
}

// Delete handles DELETE /v1/players/{key}
func (h *PlayersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := model.VideoKey(chi.URLParam(r, "key"))
	if err := key.Validate(); err != nil {
		Error(w, http.StatusBadRequest, "invalid_key", "Key must be a bare asset name")
		return
	}

	h.cache.Clear(key)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll handles DELETE /v1/players
func (h *PlayersHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	h.cache.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

// Preload handles POST /v1/players/preload
func (h *PlayersHandler) Preload(w http.ResponseWriter, r *http.Request) {
	var req PreloadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if len(req.Keys) == 0 {
		Error(w, http.StatusBadRequest, "invalid_keys", "At least one key is required")
		return
	}

	keys := make([]model.VideoKey, 0, len(req.Keys))
	for _, s := range req.Keys {
		key := model.VideoKey(s)
		if err := key.Validate(); err != nil {
			Error(w, http.StatusBadRequest, "invalid_key", "Invalid key: "+strconv.Quote(s))
			return
		}
		keys = append(keys, key)
	}

	priority := model.ParsePriority(req.Priority)
	h.cache.Preload(keys, priority)

	JSON(w, http.StatusAccepted, PreloadResponse{
		Accepted: len(keys),
		Priority: priority.String(),
	})
}

// writeCreateError maps a failed player creation to an HTTP error.
func writeCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrResourceNotFound):
		Error(w, http.StatusNotFound, "not_found", "No asset exists for key")
	case errors.Is(err, model.ErrAssetUnplayable):
		Error(w, http.StatusUnprocessableEntity, "unplayable", "Asset cannot be played")
	case errors.Is(err, model.ErrCreationSuperseded), errors.Is(err, usecase.ErrAttachSuperseded):
		Error(w, http.StatusConflict, "superseded", "Player was cleared while loading")
	case errors.Is(err, usecase.ErrCacheClosed):
		Error(w, http.StatusServiceUnavailable, "unavailable", "Player cache is shutting down")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		Error(w, http.StatusGatewayTimeout, "timeout", "Player was not ready in time")
	default:
		Error(w, http.StatusBadGateway, "construction_failed", "Player could not be created")
	}
}

func toPlayerResponse(cp *usecase.CachedPlayer) PlayerResponse {
	resp := PlayerResponse{
		Key:     cp.Key().String(),
		State:   cp.State().String(),
		Loop:    cp.Loop(),
		Playing: cp.Playing(),
	}
	if err := cp.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}
