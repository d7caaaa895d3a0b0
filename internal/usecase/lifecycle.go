package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/infrastructure/metrics"
)

// ErrUnknownSignal is returned by ParseSignal for unrecognized names.
var ErrUnknownSignal = errors.New("unknown lifecycle signal")

// AppState is the application lifecycle state.
type AppState string

const (
	AppStateActive     AppState = "active"
	AppStateInactive   AppState = "inactive"
	AppStateBackground AppState = "background"
)

// Signal is an application lifecycle notification.
type Signal string

const (
	SignalWillResignActive    Signal = "will_resign_active"
	SignalDidEnterBackground  Signal = "did_enter_background"
	SignalWillEnterForeground Signal = "will_enter_foreground"
	SignalDidBecomeActive     Signal = "did_become_active"
	SignalWillTerminate       Signal = "will_terminate"
	SignalMemoryWarning       Signal = "memory_warning"
)

var signalAliases = map[string]Signal{
	"inactive":   SignalWillResignActive,
	"background": SignalDidEnterBackground,
	"foreground": SignalWillEnterForeground,
	"active":     SignalDidBecomeActive,
	"terminate":  SignalWillTerminate,
}

// ParseSignal converts a signal name or short alias to a Signal.
func ParseSignal(s string) (Signal, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch sig := Signal(name); sig {
	case SignalWillResignActive, SignalDidEnterBackground, SignalWillEnterForeground,
		SignalDidBecomeActive, SignalWillTerminate, SignalMemoryWarning:
		return sig, nil
	}
	if sig, ok := signalAliases[name]; ok {
		return sig, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSignal, s)
}

// lifecycleCache is the part of the PlayerCache driven by lifecycle signals.
type lifecycleCache interface {
	PauseAll()
	ResumeAllActive() []model.VideoKey
	SoftEvict() []model.VideoKey
	ClearAll()
}

// LifecycleObserver translates lifecycle signals into cache-wide commands.
// It is the only component that issues them.
type LifecycleObserver struct {
	cache  lifecycleCache
	logger *slog.Logger

	mu    sync.Mutex
	state AppState
}

// NewLifecycleObserver creates an observer starting in the active state.
func NewLifecycleObserver(cache lifecycleCache, logger *slog.Logger) *LifecycleObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleObserver{
		cache:  cache,
		logger: logger,
		state:  AppStateActive,
	}
}

// State returns the current lifecycle state.
func (o *LifecycleObserver) State() AppState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Handle applies one signal. Leaving the background resumes active players exactly once
// even when both foreground notifications arrive.
func (o *LifecycleObserver) Handle(sig Signal) {
	o.mu.Lock()
	defer o.mu.Unlock()

	metrics.LifecycleSignalsTotal.WithLabelValues(string(sig)).Inc()
	prev := o.state

	switch sig {
	case SignalWillResignActive:
		if prev == AppStateActive {
			o.state = AppStateInactive
		}

	case SignalDidEnterBackground:
		o.state = AppStateBackground
		if prev != AppStateBackground {
			o.cache.PauseAll()
		}

	case SignalWillEnterForeground:
		if prev == AppStateBackground {
			o.state = AppStateInactive
			resumed := o.cache.ResumeAllActive()
			o.logger.Info("resumed players after background", "count", len(resumed))
		}

	case SignalDidBecomeActive:
		o.state = AppStateActive
		if prev == AppStateBackground {
			resumed := o.cache.ResumeAllActive()
			o.logger.Info("resumed players after background", "count", len(resumed))
		}

	case SignalWillTerminate:
		o.cache.ClearAll()

	case SignalMemoryWarning:
		evicted := o.cache.SoftEvict()
		o.logger.Warn("memory warning handled", "evicted", len(evicted))

	default:
		o.logger.Warn("ignored unknown lifecycle signal", "signal", string(sig))
		return
	}

	if o.state != prev {
		o.logger.Info("lifecycle state changed",
			"signal", string(sig),
			"from", string(prev),
			"to", string(o.state),
		)
	}
}

// Run handles signals from ch until ctx is cancelled or ch is closed.
func (o *LifecycleObserver) Run(ctx context.Context, ch <-chan Signal) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			o.Handle(sig)
		}
	}
}
