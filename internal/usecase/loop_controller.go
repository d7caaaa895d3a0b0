package usecase

import (
	"log/slog"
	"sync/atomic"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
)

// loopRegistration ties a cached player to its end-of-media subscription.
type loopRegistration struct {
	player *CachedPlayer
	cancel func()
	active atomic.Bool
}

// LoopController restarts looping players from position zero when they reach end of media.
// It is not safe for concurrent use: the PlayerCache mutates it only while holding its lock.
// End-of-media callbacks run on player goroutines and touch only their own registration.
type LoopController struct {
	registrations map[model.VideoKey]*loopRegistration
	logger        *slog.Logger
}

// NewLoopController creates an empty LoopController.
func NewLoopController(logger *slog.Logger) *LoopController {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoopController{
		registrations: make(map[model.VideoKey]*loopRegistration),
		logger:        logger,
	}
}

// Register installs an end-of-media watcher for cp, replacing any previous registration for its key.
func (l *LoopController) Register(cp *CachedPlayer) {
	if cp.Player() == nil {
		return
	}
	l.Unregister(cp.Key())

	reg := &loopRegistration{player: cp}
	reg.active.Store(true)
	reg.cancel = cp.Player().OnEnd(func() {
		if !reg.active.Load() {
			return
		}
		reg.player.restart()
	})
	l.registrations[cp.Key()] = reg

	l.logger.Debug("loop registered", "video_key", cp.Key())
}

// Unregister removes the watcher for key. It is a no-op when none exists.
func (l *LoopController) Unregister(key model.VideoKey) {
	reg, ok := l.registrations[key]
	if !ok {
		return
	}
	reg.active.Store(false)
	reg.cancel()
	delete(l.registrations, key)
}

// Registered reports whether key has a loop registration.
func (l *LoopController) Registered(key model.VideoKey) bool {
	_, ok := l.registrations[key]
	return ok
}

// Len returns the number of loop registrations.
func (l *LoopController) Len() int {
	return len(l.registrations)
}
