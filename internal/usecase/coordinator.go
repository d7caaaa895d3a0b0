package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/google/uuid"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/player"
)

var (
	// ErrCoordinatorClosed is returned by Attach after Close.
	ErrCoordinatorClosed = errors.New("coordinator closed")
	// ErrAttachSuperseded is returned by an Attach overtaken by Detach or a newer Attach
	// while its player was loading.
	ErrAttachSuperseded = errors.New("attach superseded")
)

// Surface is the render target a coordinator drives. Methods are called only
// from the coordinator's Scheduler.
type Surface interface {
	// SetPlayer binds p to the surface. A nil player leaves the surface transparent.
	SetPlayer(p player.Player, gravity player.Gravity)
	UpdateLayout()
}

// Scheduler runs functions on the UI main context.
type Scheduler interface {
	Post(fn func())
}

// InlineScheduler runs posted functions immediately on the calling goroutine.
type InlineScheduler struct{}

func (InlineScheduler) Post(fn func()) { fn() }

// PlaybackCoordinator binds one render surface to at most one cached player.
// It never owns the player: teardown pauses and releases the reference only.
type PlaybackCoordinator struct {
	id        uuid.UUID
	cache     *PlayerCache
	surface   Surface
	scheduler Scheduler
	gravity   player.Gravity
	logger    *slog.Logger

	// mu guards key and gen. It is not held while a player loads.
	mu  sync.Mutex
	key model.VideoKey
	// gen changes on every Attach and detach so a loading Attach can tell it was overtaken.
	gen uint64

	bound  atomic.Pointer[CachedPlayer]
	closed atomic.Bool
}

// CoordinatorOption configures a PlaybackCoordinator.
type CoordinatorOption func(*PlaybackCoordinator)

// WithGravity sets the gravity used when binding players. Defaults to resize-aspect-fill.
func WithGravity(g player.Gravity) CoordinatorOption {
	return func(c *PlaybackCoordinator) { c.gravity = g }
}

// WithScheduler sets the scheduler used for surface mutation. Defaults to InlineScheduler.
func WithScheduler(s Scheduler) CoordinatorOption {
	return func(c *PlaybackCoordinator) { c.scheduler = s }
}

// WithLogger sets the coordinator logger.
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *PlaybackCoordinator) { c.logger = l }
}

// NewPlaybackCoordinator creates a coordinator for surface backed by cache.
func NewPlaybackCoordinator(cache *PlayerCache, surface Surface, opts ...CoordinatorOption) *PlaybackCoordinator {
	c := &PlaybackCoordinator{
		id:        uuid.New(),
		cache:     cache,
		surface:   surface,
		scheduler: InlineScheduler{},
		gravity:   player.GravityResizeAspectFill,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// ID returns the surface ID used for attachment tracking.
func (c *PlaybackCoordinator) ID() uuid.UUID {
	return c.id
}

// Key returns the currently attached key, or "" when detached.
func (c *PlaybackCoordinator) Key() model.VideoKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Current returns the bound player, or nil.
func (c *PlaybackCoordinator) Current() *CachedPlayer {
	return c.bound.Load()
}

// Attach binds the surface to the player for key, creating it through the cache if needed.
//
// Attaching the key that is already bound only ensures playback. Otherwise the previous
// binding is released first. When creation fails the surface is left transparent and the
// failure is returned for logging.
func (c *PlaybackCoordinator) Attach(ctx context.Context, key model.VideoKey, loop bool) error {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return ErrCoordinatorClosed
	}

	if cur := c.bound.Load(); cur != nil && c.key == key && !cur.Evicted() && cur.State() != model.StateFailed {
		c.mu.Unlock()
		cur.Play()
		return nil
	}

	c.detachLocked()

	c.gen++
	gen := c.gen
	c.key = key
	c.cache.attach(key, c.id, c.liveness())
	c.mu.Unlock()

	cp := c.cache.GetOrCreate(ctx, key, loop)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		// Detach, Close or a newer Attach already released this attachment.
		if c.closed.Load() {
			return ErrCoordinatorClosed
		}
		return fmt.Errorf("attach %s: %w", key, ErrAttachSuperseded)
	}

	if !cp.Ready() {
		err := cp.Err()
		if err == nil {
			// Evicted between creation and binding.
			err = model.ErrCreationSuperseded
		}
		c.cache.detach(key, c.id)
		c.key = ""
		c.gen++
		c.bound.Store(nil)
		c.mount(nil)
		c.logger.Warn("player unavailable for surface",
			"surface_id", c.id,
			"video_key", key,
			"error", err,
		)
		return fmt.Errorf("attach %s: %w", key, err)
	}

	c.bound.Store(cp)
	c.mount(cp.Player())
	cp.Play()

	c.logger.Debug("surface attached", "surface_id", c.id, "video_key", key)
	return nil
}

// Play resumes the bound player. It is a no-op when unbound or not ready.
func (c *PlaybackCoordinator) Play() {
	if cp := c.bound.Load(); cp != nil {
		cp.Play()
	}
}

// Pause pauses the bound player. It is a no-op when unbound.
func (c *PlaybackCoordinator) Pause() {
	if cp := c.bound.Load(); cp != nil && cp.Ready() {
		cp.Pause()
	}
}

// Detach releases the current binding. The cached player itself is kept.
func (c *PlaybackCoordinator) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked()
}

// Close detaches and marks the coordinator dead. Later attaches fail with ErrCoordinatorClosed.
func (c *PlaybackCoordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Swap(true) {
		return
	}
	c.detachLocked()
}

func (c *PlaybackCoordinator) detachLocked() {
	if c.key == "" {
		return
	}
	key := c.key
	cp := c.bound.Swap(nil)
	c.key = ""
	c.gen++

	othersLive := c.cache.detach(key, c.id)
	if cp != nil && !othersLive {
		cp.Pause()
	}
	if cp != nil {
		c.mount(nil)
	}
	c.logger.Debug("surface detached", "surface_id", c.id, "video_key", key)
}

func (c *PlaybackCoordinator) mount(p player.Player) {
	surface, gravity := c.surface, c.gravity
	c.scheduler.Post(func() {
		surface.SetPlayer(p, gravity)
		surface.UpdateLayout()
	})
}

// liveness returns a probe that does not keep the coordinator reachable.
func (c *PlaybackCoordinator) liveness() Liveness {
	wp := weak.Make(c)
	return func() (*CachedPlayer, bool) {
		co := wp.Value()
		if co == nil || co.closed.Load() {
			return nil, false
		}
		return co.bound.Load(), true
	}
}
