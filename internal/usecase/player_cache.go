package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/loopvideo/internal/asset"
	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/infrastructure/metrics"
	"github.com/hszk-dev/loopvideo/internal/player"
)

// ErrCacheClosed is reported by requests made after Close.
var ErrCacheClosed = errors.New("player cache closed")

// PlayerCacheConfig holds configuration for PlayerCache.
type PlayerCacheConfig struct {
	// LoaderConcurrency bounds concurrent resolve+open work across all keys.
	LoaderConcurrency int64
	// PreloadConcurrency bounds concurrent non-high-priority preloads.
	PreloadConcurrency int64
	// CreateTimeout bounds a single creation. Zero disables the timeout.
	CreateTimeout time.Duration
}

// DefaultPlayerCacheConfig returns the default configuration.
func DefaultPlayerCacheConfig() PlayerCacheConfig {
	return PlayerCacheConfig{
		LoaderConcurrency:  4,
		PreloadConcurrency: 2,
		CreateTimeout:      30 * time.Second,
	}
}

// Liveness reports whether an attached surface is still alive and which player it shows.
// It is called with the cache lock held and must not block or call back into the cache.
type Liveness func() (bound *CachedPlayer, alive bool)

// errStaleFlight is returned by a flight joined after its generation completed or was cleared.
var errStaleFlight = errors.New("stale flight")

// pendingCreate is the in-flight creation of one key. Requesters merge their loop and
// autoplay wishes into it under the cache lock. Clear drops it, which makes the
// creation's result stale.
type pendingCreate struct {
	gen      uint64
	loop     bool
	autoplay bool
}

// flightKey names one generation of a key in the singleflight group.
func flightKey(key model.VideoKey, gen uint64) string {
	return string(key) + "#" + strconv.FormatUint(gen, 10)
}

// PlayerInfo is a point-in-time view of one cached key.
type PlayerInfo struct {
	Key      model.VideoKey
	State    model.ReadyState
	Loop     bool
	Playing  bool
	Attached int
}

// PlayerCache is the keyed store of reusable players.
//
// The player map, the pending creations, the loop registrations and the attachment
// relation are guarded together by mu so they are always observed consistently.
type PlayerCache struct {
	resolver asset.Resolver
	engine   player.Engine
	loops    *LoopController
	logger   *slog.Logger

	loader        *semaphore.Weighted
	preloadLane   *semaphore.Weighted
	createTimeout time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	sfGroup singleflight.Group

	mu          sync.Mutex
	closed      bool
	nextGen     uint64
	players     map[model.VideoKey]*CachedPlayer
	pending     map[model.VideoKey]*pendingCreate
	attachments map[model.VideoKey]map[uuid.UUID]Liveness
}

// NewPlayerCache creates a PlayerCache. The cache owns background creations until Close.
func NewPlayerCache(
	resolver asset.Resolver,
	engine player.Engine,
	logger *slog.Logger,
	cfg PlayerCacheConfig,
) *PlayerCache {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LoaderConcurrency <= 0 {
		cfg.LoaderConcurrency = 1
	}
	if cfg.PreloadConcurrency <= 0 {
		cfg.PreloadConcurrency = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &PlayerCache{
		resolver:      resolver,
		engine:        engine,
		loops:         NewLoopController(logger),
		logger:        logger,
		loader:        semaphore.NewWeighted(cfg.LoaderConcurrency),
		preloadLane:   semaphore.NewWeighted(cfg.PreloadConcurrency),
		createTimeout: cfg.CreateTimeout,
		baseCtx:       ctx,
		cancel:        cancel,
		players:       make(map[model.VideoKey]*CachedPlayer),
		pending:       make(map[model.VideoKey]*pendingCreate),
		attachments:   make(map[model.VideoKey]map[uuid.UUID]Liveness),
	}
}

// GetOrCreate returns the cached player for key, creating it if needed.
//
// An existing entry is returned immediately regardless of readiness. Otherwise the
// caller joins the single in-flight creation for key, starting one if none exists.
// A successful creation is cached, registered for looping when requested, and
// started. Failures are returned as a failed CachedPlayer and are never cached,
// so the next request retries from scratch. If ctx ends first the caller receives
// a failed player carrying ctx.Err() while the creation continues for other waiters.
func (c *PlayerCache) GetOrCreate(ctx context.Context, key model.VideoKey, loop bool) *CachedPlayer {
	return c.getOrCreate(ctx, key, loop, true)
}

func (c *PlayerCache) getOrCreate(ctx context.Context, key model.VideoKey, loop, autoplay bool) *CachedPlayer {
	if err := key.Validate(); err != nil {
		return newFailedPlayer(key, loop, err)
	}

	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return newFailedPlayer(key, loop, ErrCacheClosed)
		}

		if cp, ok := c.players[key]; ok {
			if loop && !cp.Loop() && cp.Ready() {
				cp.loop.Store(true)
				c.loops.Register(cp)
			}
			c.mu.Unlock()
			metrics.CacheLookupsTotal.WithLabelValues(metrics.LookupHit).Inc()
			return cp
		}
		metrics.CacheLookupsTotal.WithLabelValues(metrics.LookupMiss).Inc()

		pc, joined := c.pending[key]
		if !joined {
			c.nextGen++
			pc = &pendingCreate{gen: c.nextGen}
			c.pending[key] = pc
		}
		pc.loop = pc.loop || loop
		pc.autoplay = pc.autoplay || autoplay
		c.mu.Unlock()

		ch := c.sfGroup.DoChan(flightKey(key, pc.gen), func() (any, error) {
			return c.create(key, pc)
		})

		select {
		case res := <-ch:
			if errors.Is(res.Err, errStaleFlight) {
				// Joined a generation that already finished; look again.
				continue
			}
			if res.Shared {
				metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
			} else {
				metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
			}
			if res.Err != nil {
				return newFailedPlayer(key, loop, res.Err)
			}
			return res.Val.(*CachedPlayer)

		case <-ctx.Done():
			if joined {
				metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
			} else {
				metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
			}
			return newFailedPlayer(key, loop, ctx.Err())
		}
	}
}

// create resolves and opens a player for pc, then publishes the result.
// It runs on the singleflight goroutine and never uses a requester's context.
func (c *PlayerCache) create(key model.VideoKey, pc *pendingCreate) (*CachedPlayer, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrCacheClosed
	}
	if c.pending[key] != pc {
		c.mu.Unlock()
		return nil, errStaleFlight
	}
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	start := time.Now()
	ctx := c.baseCtx
	if c.createTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.createTimeout)
		defer cancel()
	}

	var p player.Player
	err := c.loader.Acquire(ctx, 1)
	if err == nil {
		p, err = c.build(ctx, key)
		c.loader.Release(1)
	}
	metrics.PlayerCreationDuration.Observe(time.Since(start).Seconds())

	return c.finish(key, pc, p, err), nil
}

// build runs asset resolution and player construction.
func (c *PlayerCache) build(ctx context.Context, key model.VideoKey) (player.Player, error) {
	h, err := c.resolver.Resolve(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolve asset: %w", err)
	}

	p, err := c.engine.Open(ctx, h)
	if err != nil {
		if errors.Is(err, model.ErrAssetUnplayable) || errors.Is(err, model.ErrResourceNotFound) {
			return nil, fmt.Errorf("open player: %w", err)
		}
		return nil, fmt.Errorf("open player: %w: %w", model.ErrConstructionFailed, err)
	}

	return p, nil
}

// finish records a creation result. A creation that is no longer pending was cleared
// while in flight: its player is discarded so a cleared key never reappears.
func (c *PlayerCache) finish(key model.VideoKey, pc *pendingCreate, p player.Player, err error) *CachedPlayer {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.pending[key] == pc
	if current {
		delete(c.pending, key)
	}

	switch {
	case err != nil:
		c.logger.Warn("failed to create player",
			"video_key", key,
			"error", err,
		)
		metrics.PlayerCreationsTotal.WithLabelValues(creationOutcome(err)).Inc()
		return newFailedPlayer(key, pc.loop, err)

	case !current || c.closed:
		if closeErr := p.Close(); closeErr != nil {
			c.logger.Warn("failed to close superseded player", "video_key", key, "error", closeErr)
		}
		c.logger.Info("discarded player created after clear", "video_key", key)
		metrics.PlayerCreationsTotal.WithLabelValues(metrics.OutcomeSuperseded).Inc()
		return newFailedPlayer(key, pc.loop, model.ErrCreationSuperseded)

	default:
		cp := newReadyPlayer(key, pc.loop, p)
		cp.stopFailureWatch = p.OnFailure(func(err error) {
			c.handlePlaybackFailure(cp, err)
		})
		c.players[key] = cp
		if pc.loop {
			c.loops.Register(cp)
		}
		if pc.autoplay {
			cp.Play()
		}
		metrics.PlayerCreationsTotal.WithLabelValues(metrics.OutcomeReady).Inc()
		metrics.CachedPlayers.Set(float64(len(c.players)))
		c.logger.Debug("player cached", "video_key", key, "loop", pc.loop, "autoplay", pc.autoplay)
		return cp
	}
}

func (c *PlayerCache) handlePlaybackFailure(cp *CachedPlayer, err error) {
	if cp.fail(fmt.Errorf("%w: %w", model.ErrPlaybackFailed, err)) {
		c.logger.Warn("cached player failed",
			"video_key", cp.Key(),
			"error", err,
		)
	}
}

func creationOutcome(err error) string {
	switch {
	case errors.Is(err, model.ErrResourceNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, model.ErrAssetUnplayable):
		return metrics.OutcomeUnplayable
	default:
		return metrics.OutcomeFailed
	}
}

// Clear stops and removes the player for key along with its loop registration.
// An in-flight creation for key is abandoned: its result will be discarded.
// Clear is idempotent.
func (c *PlayerCache) Clear(key model.VideoKey) {
	c.mu.Lock()
	cp := c.removeLocked(key)
	pc, inflight := c.pending[key]
	if inflight {
		delete(c.pending, key)
		c.sfGroup.Forget(flightKey(key, pc.gen))
	}
	c.mu.Unlock()

	if cp != nil {
		metrics.EvictionsTotal.WithLabelValues(metrics.EvictClear).Inc()
		c.logger.Info("cleared cached player", "video_key", key)
	} else if inflight {
		c.logger.Info("abandoned in-flight player creation", "video_key", key)
	}
}

// ClearAll clears every key and abandons every in-flight creation.
func (c *PlayerCache) ClearAll() {
	c.mu.Lock()
	n := 0
	for key := range c.players {
		if c.removeLocked(key) != nil {
			n++
		}
	}
	for key, pc := range c.pending {
		c.sfGroup.Forget(flightKey(key, pc.gen))
	}
	clear(c.pending)
	c.mu.Unlock()

	metrics.EvictionsTotal.WithLabelValues(metrics.EvictClearAll).Add(float64(n))
	c.logger.Info("cleared all cached players", "count", n)
}

// removeLocked removes key from the player map and the loop registrations and releases its player.
func (c *PlayerCache) removeLocked(key model.VideoKey) *CachedPlayer {
	cp, ok := c.players[key]
	if !ok {
		return nil
	}
	c.loops.Unregister(key)
	delete(c.players, key)
	metrics.CachedPlayers.Set(float64(len(c.players)))

	if err := cp.release(); err != nil {
		c.logger.Warn("failed to close player", "video_key", key, "error", err)
	}
	return cp
}

// PauseAll pauses every cached player and holds it until resumed.
func (c *PlayerCache) PauseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cp := range c.players {
		cp.hold()
	}
	c.logger.Debug("paused all cached players", "count", len(c.players))
}

// ResumeAllActive resumes ready players that a live surface is still showing.
// Cached players that are not on screen stay paused.
func (c *PlayerCache) ResumeAllActive() []model.VideoKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneAttachmentsLocked()

	var resumed []model.VideoKey
	for key, cp := range c.players {
		if !cp.Ready() || !c.showingLocked(key, cp) {
			continue
		}
		cp.resume()
		resumed = append(resumed, key)
	}
	sortKeys(resumed)

	c.logger.Debug("resumed active players", "keys", resumed)
	return resumed
}

// SoftEvict removes every cached player that no live surface is showing and
// returns the evicted keys. Keys currently displayed are preserved.
func (c *PlayerCache) SoftEvict() []model.VideoKey {
	c.mu.Lock()
	c.pruneAttachmentsLocked()

	var evicted []model.VideoKey
	for key, cp := range c.players {
		if c.showingLocked(key, cp) {
			continue
		}
		c.removeLocked(key)
		evicted = append(evicted, key)
	}
	c.mu.Unlock()

	sortKeys(evicted)
	metrics.EvictionsTotal.WithLabelValues(metrics.EvictSoftEvict).Add(float64(len(evicted)))
	c.logger.Info("soft eviction completed", "evicted", evicted)
	return evicted
}

// Preload starts creation for every key that is neither cached nor in flight and returns
// without waiting. Preloaded players are made ready but not started; playback starts when a
// surface attaches. High priority work skips the preload lane; other work shares it.
func (c *PlayerCache) Preload(keys []model.VideoKey, priority model.Priority) {
	for _, key := range keys {
		c.mu.Lock()
		_, cached := c.players[key]
		_, inflight := c.pending[key]
		closed := c.closed
		if !cached && !inflight && !closed {
			c.wg.Add(1)
		}
		c.mu.Unlock()

		if cached || inflight || closed {
			continue
		}

		go func(key model.VideoKey) {
			defer c.wg.Done()
			if priority != model.PriorityHigh {
				if err := c.preloadLane.Acquire(c.baseCtx, 1); err != nil {
					return
				}
				defer c.preloadLane.Release(1)
			}
			cp := c.getOrCreate(c.baseCtx, key, false, false)
			if !cp.Ready() {
				c.logger.Warn("preload failed", "video_key", key, "priority", priority.String(), "error", cp.Err())
			}
		}(key)
	}
}

// attach records that surface id is showing key.
func (c *PlayerCache) attach(key model.VideoKey, id uuid.UUID, live Liveness) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.attachments[key]
	if !ok {
		m = make(map[uuid.UUID]Liveness)
		c.attachments[key] = m
	}
	m[id] = live
}

// detach removes the attachment of surface id to key and reports whether another
// live surface still shows key.
func (c *PlayerCache) detach(key model.VideoKey, id uuid.UUID) (othersLive bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.attachments[key]; ok {
		delete(m, id)
	}
	c.pruneAttachmentsLocked()
	return len(c.attachments[key]) > 0
}

// pruneAttachmentsLocked drops attachments whose surface is gone.
func (c *PlayerCache) pruneAttachmentsLocked() {
	for key, m := range c.attachments {
		for id, live := range m {
			if _, alive := live(); !alive {
				delete(m, id)
			}
		}
		if len(m) == 0 {
			delete(c.attachments, key)
		}
	}
}

// showingLocked reports whether a live surface attached to key is bound to exactly cp.
func (c *PlayerCache) showingLocked(key model.VideoKey, cp *CachedPlayer) bool {
	for _, live := range c.attachments[key] {
		if bound, alive := live(); alive && bound == cp {
			return true
		}
	}
	return false
}

// Peek returns the cached player for key without creating one.
func (c *PlayerCache) Peek(key model.VideoKey) (*CachedPlayer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp, ok := c.players[key]
	return cp, ok
}

// InFlight reports whether a creation for key is in progress.
func (c *PlayerCache) InFlight(key model.VideoKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[key]
	return ok
}

// LoopRegistered reports whether key has a loop registration.
func (c *PlayerCache) LoopRegistered(key model.VideoKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loops.Registered(key)
}

// Len returns the number of cached players.
func (c *PlayerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.players)
}

// Snapshot returns the state of every cached key, sorted by key.
func (c *PlayerCache) Snapshot() []PlayerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneAttachmentsLocked()

	infos := make([]PlayerInfo, 0, len(c.players))
	for key, cp := range c.players {
		infos = append(infos, PlayerInfo{
			Key:      key,
			State:    cp.State(),
			Loop:     cp.Loop(),
			Playing:  cp.Playing(),
			Attached: len(c.attachments[key]),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos
}

// Close abandons in-flight work, waits for background goroutines and releases every player.
func (c *PlayerCache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.ClearAll()
}

func sortKeys(keys []model.VideoKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}
