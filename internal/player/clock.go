package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hszk-dev/loopvideo/internal/asset"
	"github.com/hszk-dev/loopvideo/internal/domain/model"
)

// Prober reports the playable duration of a media location.
type Prober interface {
	Probe(ctx context.Context, location string) (time.Duration, error)
}

// ClockEngine builds headless players whose timeline is driven by the wall clock.
// Used by hosts without a rendering pipeline and as a stand-in player in integration runs.
type ClockEngine struct {
	prober Prober
}

var _ Engine = (*ClockEngine)(nil)

// NewClockEngine creates an engine that sizes each timeline with prober.
func NewClockEngine(prober Prober) *ClockEngine {
	return &ClockEngine{prober: prober}
}

// Open probes the asset and returns a paused player positioned at zero.
func (e *ClockEngine) Open(ctx context.Context, h asset.Handle) (Player, error) {
	d, err := e.prober.Probe(ctx, h.Location)
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		return nil, fmt.Errorf("%w: zero duration for %s", model.ErrAssetUnplayable, h.Key)
	}
	return NewClockPlayer(d), nil
}

// ClockPlayer is a Player that models a clip as a duration on the wall clock.
type ClockPlayer struct {
	mu        sync.Mutex
	duration  time.Duration
	offset    time.Duration // position at startedAt (or current position while paused)
	startedAt time.Time
	playing   bool
	closed    bool
	timer     *time.Timer
	gen       uint64 // invalidates stale end timers

	nextID   int
	endSubs  map[int]func()
	failSubs map[int]func(error)
}

var _ Player = (*ClockPlayer)(nil)

// NewClockPlayer creates a paused player for a clip of length d.
func NewClockPlayer(d time.Duration) *ClockPlayer {
	return &ClockPlayer{
		duration: d,
		endSubs:  make(map[int]func()),
		failSubs: make(map[int]func(error)),
	}
}

func (p *ClockPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.playing || p.offset >= p.duration {
		return
	}
	p.playing = true
	p.startedAt = time.Now()
	p.armLocked()
}

func (p *ClockPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return
	}
	p.offset = p.positionLocked()
	p.playing = false
	p.disarmLocked()
}

func (p *ClockPlayer) SeekToStart() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.offset = 0
	if p.playing {
		p.startedAt = time.Now()
		p.disarmLocked()
		p.armLocked()
	}
}

func (p *ClockPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Position returns the current playback position.
func (p *ClockPlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

// Duration returns the clip length.
func (p *ClockPlayer) Duration() time.Duration {
	return p.duration
}

func (p *ClockPlayer) OnEnd(fn func()) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.endSubs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.endSubs, id)
		p.mu.Unlock()
	}
}

func (p *ClockPlayer) OnFailure(fn func(err error)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.failSubs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.failSubs, id)
		p.mu.Unlock()
	}
}

// Fail stops playback and reports err to failure observers.
func (p *ClockPlayer) Fail(err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.playing {
		p.offset = p.positionLocked()
		p.playing = false
		p.disarmLocked()
	}
	subs := make([]func(error), 0, len(p.failSubs))
	for _, fn := range p.failSubs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(err)
	}
}

func (p *ClockPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.disarmLocked()
	p.playing = false
	p.closed = true
	clear(p.endSubs)
	clear(p.failSubs)
	return nil
}

func (p *ClockPlayer) positionLocked() time.Duration {
	if !p.playing {
		return p.offset
	}
	pos := p.offset + time.Since(p.startedAt)
	if pos > p.duration {
		return p.duration
	}
	return pos
}

func (p *ClockPlayer) armLocked() {
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(p.duration-p.offset, func() { p.reachEnd(gen) })
}

func (p *ClockPlayer) disarmLocked() {
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *ClockPlayer) reachEnd(gen uint64) {
	p.mu.Lock()
	if p.closed || !p.playing || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.offset = p.duration
	p.playing = false
	p.timer = nil
	subs := make([]func(), 0, len(p.endSubs))
	for _, fn := range p.endSubs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	// Observers run outside the lock so they may seek and play again.
	for _, fn := range subs {
		fn()
	}
}
