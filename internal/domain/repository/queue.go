package repository

import (
	"context"

	"github.com/google/uuid"
)

// CommandOp names a cache-boundary operation carried over the queue.
type CommandOp string

const (
	OpPreload  CommandOp = "preload"
	OpClear    CommandOp = "clear"
	OpClearAll CommandOp = "clear_all"
)

// CacheCommand is a request from an out-of-process collaborator
// (onboarding, paywall, grid) against the player cache boundary.
type CacheCommand struct {
	ID       uuid.UUID `json:"id"`
	Op       CommandOp `json:"op"`
	Keys     []string  `json:"keys,omitempty"`
	Priority string    `json:"priority,omitempty"`
}

// CommandQueue defines the interface for cache command transport.
type CommandQueue interface {
	// PublishCommand sends a cache command to the queue.
	PublishCommand(ctx context.Context, cmd CacheCommand) error

	// ConsumeCommands delivers commands to handler until ctx is cancelled.
	// A handler error is logged and the message is discarded; commands are not retried.
	ConsumeCommands(ctx context.Context, handler func(cmd CacheCommand) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
