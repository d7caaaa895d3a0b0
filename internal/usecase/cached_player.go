package usecase

import (
	"sync"
	"sync/atomic"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/player"
)

// CachedPlayer wraps one player owned by the PlayerCache.
// Coordinators hold non-owning references: once the cache evicts an entry its
// methods become no-ops rather than failing.
type CachedPlayer struct {
	key    model.VideoKey
	player player.Player // nil for failed creations

	loop    atomic.Bool
	evicted atomic.Bool

	mu    sync.Mutex
	state model.ReadyState
	err   error
	// held is set by PauseAll; loop restarts leave a held player paused.
	held bool

	stopFailureWatch func()
}

func newReadyPlayer(key model.VideoKey, loop bool, p player.Player) *CachedPlayer {
	cp := &CachedPlayer{key: key, player: p, state: model.StateUnknown}
	cp.loop.Store(loop)
	cp.transition(model.StateReady, nil)
	return cp
}

func newFailedPlayer(key model.VideoKey, loop bool, err error) *CachedPlayer {
	cp := &CachedPlayer{key: key, state: model.StateFailed, err: err}
	cp.loop.Store(loop)
	return cp
}

func (c *CachedPlayer) Key() model.VideoKey {
	return c.key
}

// Loop reports whether a loop registration was requested for this player.
func (c *CachedPlayer) Loop() bool {
	return c.loop.Load()
}

func (c *CachedPlayer) State() model.ReadyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure reason for a failed player.
func (c *CachedPlayer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Ready reports whether the player can be played: ready state and still owned by the cache.
func (c *CachedPlayer) Ready() bool {
	return c.State() == model.StateReady && !c.evicted.Load()
}

// Evicted reports whether the cache has released this player.
func (c *CachedPlayer) Evicted() bool {
	return c.evicted.Load()
}

// Player returns the underlying player, or nil for failed creations.
func (c *CachedPlayer) Player() player.Player {
	return c.player
}

// Playing reports whether the underlying player is currently playing.
func (c *CachedPlayer) Playing() bool {
	if c.player == nil {
		return false
	}
	return c.player.Playing()
}

// Play starts playback if the player is ready and clears any lifecycle hold.
func (c *CachedPlayer) Play() {
	if !c.Ready() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held = false
	c.player.Play()
}

// Pause stops playback without placing a lifecycle hold.
func (c *CachedPlayer) Pause() {
	if c.player == nil {
		return
	}
	c.player.Pause()
}

// hold pauses the player on behalf of the lifecycle observer.
func (c *CachedPlayer) hold() {
	if c.player == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held = true
	c.player.Pause()
}

// resume releases a lifecycle hold and restarts playback.
func (c *CachedPlayer) resume() {
	c.Play()
}

// restart rewinds to zero and plays unless the player is held or no longer usable.
func (c *CachedPlayer) restart() {
	if c.player == nil || c.evicted.Load() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player.SeekToStart()
	if c.held || c.state != model.StateReady {
		return
	}
	c.player.Play()
}

// fail records an asynchronous playback failure.
// The entry stays cached; holders decide whether to clear and retry.
func (c *CachedPlayer) fail(err error) bool {
	return c.transition(model.StateFailed, err)
}

func (c *CachedPlayer) transition(next model.ReadyState, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.CanTransitionTo(next) {
		return false
	}
	c.state = next
	c.err = err
	return true
}

// release stops and closes the player. Called once by the cache on eviction.
func (c *CachedPlayer) release() error {
	if !c.evicted.CompareAndSwap(false, true) {
		return nil
	}
	if c.stopFailureWatch != nil {
		c.stopFailureWatch()
	}
	if c.player == nil {
		return nil
	}
	c.player.Pause()
	return c.player.Close()
}
