// Package player defines the playable-media ports consumed by the player cache
// and a headless clock-driven implementation.
package player

import (
	"context"

	"github.com/hszk-dev/loopvideo/internal/asset"
)

// Player is a single playable media instance.
// Methods never fail; a player that cannot continue reports through OnFailure.
// Observers are never invoked synchronously from Play, Pause or SeekToStart.
type Player interface {
	Play()
	Pause()
	// SeekToStart rewinds to position zero without changing the playing state.
	SeekToStart()
	Playing() bool

	// OnEnd registers fn to be called every time playback reaches end of media.
	// The returned func removes the observer and is safe to call more than once.
	OnEnd(fn func()) (cancel func())

	// OnFailure registers fn to be called if playback fails after Open succeeded.
	OnFailure(fn func(err error)) (cancel func())

	// Close releases the player. Subsequent calls to other methods are no-ops.
	Close() error
}

// Engine builds players from resolved asset handles.
// Open blocks until the player is ready to play or fails.
type Engine interface {
	Open(ctx context.Context, h asset.Handle) (Player, error)
}

// Gravity controls how a surface fits video into its bounds.
type Gravity int

const (
	GravityResizeAspectFill Gravity = iota
	GravityResizeAspect
	GravityResize
)

func (g Gravity) String() string {
	switch g {
	case GravityResizeAspect:
		return "resize_aspect"
	case GravityResize:
		return "resize"
	default:
		return "resize_aspect_fill"
	}
}
