package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/loopvideo/internal/usecase"
)

// LifecycleService accepts lifecycle signals.
type LifecycleService interface {
	Handle(sig usecase.Signal)
	State() usecase.AppState
}

type LifecycleResponse struct {
	Signal string `json:"signal,omitempty"`
	State  string `json:"state"`
}

// LifecycleHandler exposes the lifecycle observer over HTTP.
type LifecycleHandler struct {
	observer LifecycleService
}

// NewLifecycleHandler creates a new LifecycleHandler.
func NewLifecycleHandler(observer LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{observer: observer}
}

// Get handles GET /v1/lifecycle
func (h *LifecycleHandler) Get(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, LifecycleResponse{State: string(h.observer.State())})
}

// Signal handles POST /v1/lifecycle/{signal}
func (h *LifecycleHandler) Signal(w http.ResponseWriter, r *http.Request) {
	sig, err := usecase.ParseSignal(chi.URLParam(r, "signal"))
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownSignal) {
			Error(w, http.StatusBadRequest, "unknown_signal", err.Error())
			return
		}
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	h.observer.Handle(sig)

	JSON(w, http.StatusOK, LifecycleResponse{
		Signal: string(sig),
		State:  string(h.observer.State()),
	})
}
