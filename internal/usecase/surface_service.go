package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/player"
)

// ErrSurfaceNotFound is returned for unknown surface IDs.
var ErrSurfaceNotFound = errors.New("surface not found")

// headlessSurface records what a remote render target would display.
type headlessSurface struct {
	mu      sync.Mutex
	current player.Player
	gravity player.Gravity
}

func (s *headlessSurface) SetPlayer(p player.Player, gravity player.Gravity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = p
	s.gravity = gravity
}

func (s *headlessSurface) UpdateLayout() {}

func (s *headlessSurface) showing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// SurfaceInfo describes one registered surface.
type SurfaceInfo struct {
	ID      uuid.UUID
	Key     model.VideoKey
	Playing bool
	Showing bool
}

type surfaceEntry struct {
	coordinator *PlaybackCoordinator
	surface     *headlessSurface
}

// SurfaceService manages coordinators for render surfaces driven by remote hosts.
type SurfaceService struct {
	cache     *PlayerCache
	scheduler Scheduler
	logger    *slog.Logger

	mu       sync.Mutex
	surfaces map[uuid.UUID]*surfaceEntry
}

// NewSurfaceService creates a SurfaceService whose surfaces are updated through scheduler.
func NewSurfaceService(cache *PlayerCache, scheduler Scheduler, logger *slog.Logger) *SurfaceService {
	if scheduler == nil {
		scheduler = InlineScheduler{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SurfaceService{
		cache:     cache,
		scheduler: scheduler,
		logger:    logger,
		surfaces:  make(map[uuid.UUID]*surfaceEntry),
	}
}

// Create registers a new surface and returns its ID.
func (s *SurfaceService) Create(gravity player.Gravity) uuid.UUID {
	surface := &headlessSurface{}
	co := NewPlaybackCoordinator(s.cache, surface,
		WithGravity(gravity),
		WithScheduler(s.scheduler),
		WithLogger(s.logger),
	)

	s.mu.Lock()
	s.surfaces[co.ID()] = &surfaceEntry{coordinator: co, surface: surface}
	s.mu.Unlock()

	s.logger.Info("surface created", "surface_id", co.ID(), "gravity", gravity.String())
	return co.ID()
}

// Attach binds surface id to key.
func (s *SurfaceService) Attach(ctx context.Context, id uuid.UUID, key model.VideoKey, loop bool) error {
	e, err := s.get(id)
	if err != nil {
		return err
	}
	return e.coordinator.Attach(ctx, key, loop)
}

// Detach releases the player bound to surface id.
func (s *SurfaceService) Detach(id uuid.UUID) error {
	e, err := s.get(id)
	if err != nil {
		return err
	}
	e.coordinator.Detach()
	return nil
}

// Remove closes and unregisters surface id.
func (s *SurfaceService) Remove(id uuid.UUID) error {
	s.mu.Lock()
	e, ok := s.surfaces[id]
	delete(s.surfaces, id)
	s.mu.Unlock()

	if !ok {
		return ErrSurfaceNotFound
	}
	e.coordinator.Close()
	s.logger.Info("surface removed", "surface_id", id)
	return nil
}

// List returns every registered surface sorted by ID.
func (s *SurfaceService) List() []SurfaceInfo {
	s.mu.Lock()
	entries := make([]*surfaceEntry, 0, len(s.surfaces))
	for _, e := range s.surfaces {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	infos := make([]SurfaceInfo, 0, len(entries))
	for _, e := range entries {
		info := SurfaceInfo{
			ID:      e.coordinator.ID(),
			Key:     e.coordinator.Key(),
			Showing: e.surface.showing(),
		}
		if cp := e.coordinator.Current(); cp != nil {
			info.Playing = cp.Playing()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID.String() < infos[j].ID.String() })
	return infos
}

// Close removes every surface.
func (s *SurfaceService) Close() {
	s.mu.Lock()
	entries := s.surfaces
	s.surfaces = make(map[uuid.UUID]*surfaceEntry)
	s.mu.Unlock()

	for _, e := range entries {
		e.coordinator.Close()
	}
}

func (s *SurfaceService) get(id uuid.UUID) (*surfaceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.surfaces[id]
	if !ok {
		return nil, ErrSurfaceNotFound
	}
	return e, nil
}
