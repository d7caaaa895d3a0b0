package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hszk-dev/loopvideo/internal/asset"
	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/domain/repository"
	"github.com/hszk-dev/loopvideo/internal/player"
)

// mockResolver provides a configurable mock for asset.Resolver.
type mockResolver struct {
	resolveFn func(ctx context.Context, key model.VideoKey) (asset.Handle, error)
	calls     atomic.Int32
}

func (m *mockResolver) Resolve(ctx context.Context, key model.VideoKey) (asset.Handle, error) {
	m.calls.Add(1)
	if m.resolveFn != nil {
		return m.resolveFn(ctx, key)
	}
	return asset.Handle{Key: key, Location: "/bundle/" + string(key) + asset.Extension, Source: asset.SourceBundle}, nil
}

// mockEngine provides a configurable mock for player.Engine.
type mockEngine struct {
	openFn func(ctx context.Context, h asset.Handle) (player.Player, error)
	calls  atomic.Int32

	mu      sync.Mutex
	players []*fakePlayer
}

func (m *mockEngine) Open(ctx context.Context, h asset.Handle) (player.Player, error) {
	m.calls.Add(1)
	if m.openFn != nil {
		return m.openFn(ctx, h)
	}
	p := newFakePlayer()
	m.mu.Lock()
	m.players = append(m.players, p)
	m.mu.Unlock()
	return p, nil
}

// fakePlayer is a Player whose end of media and failures are triggered by the test.
type fakePlayer struct {
	mu       sync.Mutex
	playing  bool
	closed   bool
	plays    int
	pauses   int
	seeks    int
	nextID   int
	endSubs  map[int]func()
	failSubs map[int]func(error)
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{
		endSubs:  make(map[int]func()),
		failSubs: make(map[int]func(error)),
	}
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.plays++
	p.playing = true
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.pauses++
	p.playing = false
}

func (p *fakePlayer) SeekToStart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeks++
}

func (p *fakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) OnEnd(fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.endSubs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.endSubs, id)
	}
}

func (p *fakePlayer) OnFailure(fn func(error)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.failSubs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.failSubs, id)
	}
}

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.playing = false
	return nil
}

// end simulates reaching end of media: playback stops and observers are notified.
func (p *fakePlayer) end() {
	p.mu.Lock()
	p.playing = false
	subs := make([]func(), 0, len(p.endSubs))
	for _, fn := range p.endSubs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// failWith simulates an asynchronous playback failure.
func (p *fakePlayer) failWith(err error) {
	p.mu.Lock()
	p.playing = false
	subs := make([]func(error), 0, len(p.failSubs))
	for _, fn := range p.failSubs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(err)
	}
}

func (p *fakePlayer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePlayer) counts() (plays, pauses, seeks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays, p.pauses, p.seeks
}

func (p *fakePlayer) endObservers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endSubs)
}

// fakeSurface records the players bound to it.
type fakeSurface struct {
	mu      sync.Mutex
	current player.Player
	gravity player.Gravity
	sets    int
	layouts int
}

func (s *fakeSurface) SetPlayer(p player.Player, gravity player.Gravity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = p
	s.gravity = gravity
	s.sets++
}

func (s *fakeSurface) UpdateLayout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts++
}

func (s *fakeSurface) Current() player.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// mockLifecycleCache records cache-wide commands.
type mockLifecycleCache struct {
	mu        sync.Mutex
	pauseAll  int
	resumeAll int
	softEvict int
	clearAll  int
}

func (m *mockLifecycleCache) PauseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseAll++
}

func (m *mockLifecycleCache) ResumeAllActive() []model.VideoKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeAll++
	return nil
}

func (m *mockLifecycleCache) SoftEvict() []model.VideoKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.softEvict++
	return nil
}

func (m *mockLifecycleCache) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearAll++
}

func (m *mockLifecycleCache) snapshot() [4]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return [4]int{m.pauseAll, m.resumeAll, m.softEvict, m.clearAll}
}

// mockCommandCache records commands applied to the cache boundary.
type mockCommandCache struct {
	preloadFn  func(keys []model.VideoKey, priority model.Priority)
	clearFn    func(key model.VideoKey)
	clearAllFn func()
}

func (m *mockCommandCache) Preload(keys []model.VideoKey, priority model.Priority) {
	if m.preloadFn != nil {
		m.preloadFn(keys, priority)
	}
}

func (m *mockCommandCache) Clear(key model.VideoKey) {
	if m.clearFn != nil {
		m.clearFn(key)
	}
}

func (m *mockCommandCache) ClearAll() {
	if m.clearAllFn != nil {
		m.clearAllFn()
	}
}

// mockCommandQueue provides a configurable mock for CommandQueue.
type mockCommandQueue struct {
	publishCommandFn  func(ctx context.Context, cmd repository.CacheCommand) error
	consumeCommandsFn func(ctx context.Context, handler func(cmd repository.CacheCommand) error) error
}

func (m *mockCommandQueue) PublishCommand(ctx context.Context, cmd repository.CacheCommand) error {
	if m.publishCommandFn != nil {
		return m.publishCommandFn(ctx, cmd)
	}
	return nil
}

func (m *mockCommandQueue) ConsumeCommands(ctx context.Context, handler func(cmd repository.CacheCommand) error) error {
	if m.consumeCommandsFn != nil {
		return m.consumeCommandsFn(ctx, handler)
	}
	return nil
}

func (m *mockCommandQueue) Close() error {
	return nil
}
