// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "loopvideo"

var (
	// CacheLookupsTotal tracks GetOrCreate fast-path outcomes.
	// Labels:
	//   - result: hit, miss
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of player cache lookups",
		},
		[]string{"result"},
	)

	// SingleflightRequestsTotal tracks player creation coalescing.
	// Labels:
	//   - result: initiated (new creation), shared (joined an in-flight creation)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// PlayerCreationsTotal tracks completed player creations.
	// Labels:
	//   - outcome: ready, not_found, unplayable, failed, superseded
	PlayerCreationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "player_creations_total",
			Help:      "Total number of completed player creations",
		},
		[]string{"outcome"},
	)

	// PlayerCreationDuration tracks resolve+open latency.
	PlayerCreationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "player_creation_duration_seconds",
			Help:      "Time spent resolving and opening a player",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// EvictionsTotal tracks removed cache entries.
	// Labels:
	//   - reason: clear, clear_all, soft_evict
	EvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Total number of evicted cached players",
		},
		[]string{"reason"},
	)

	// CachedPlayers tracks the number of live cached players.
	CachedPlayers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_players",
			Help:      "Number of players currently held by the cache",
		},
	)

	// LifecycleSignalsTotal tracks lifecycle signals handled by the observer.
	// Labels:
	//   - signal: will_resign_active, did_enter_background, will_enter_foreground,
	//             did_become_active, will_terminate, memory_warning
	LifecycleSignalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_signals_total",
			Help:      "Total number of lifecycle signals handled",
		},
		[]string{"signal"},
	)

	// CacheCommandsTotal tracks commands received over the queue.
	// Labels:
	//   - op: preload, clear, clear_all
	//   - status: success, error
	CacheCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_commands_total",
			Help:      "Total number of cache commands consumed from the queue",
		},
		[]string{"op", "status"},
	)

	// HTTPRequestsTotal tracks control API requests.
	// Labels:
	//   - method: HTTP method
	//   - route: chi route pattern (e.g. /v1/players/{key})
	//   - status: response status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of control API requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPPanicsTotal tracks handler panics recovered by middleware.
	HTTPPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_panics_total",
			Help:      "Total number of recovered handler panics",
		},
	)
)

// Cache lookup result constants.
const (
	LookupHit  = "hit"
	LookupMiss = "miss"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Creation outcome constants.
const (
	OutcomeReady      = "ready"
	OutcomeNotFound   = "not_found"
	OutcomeUnplayable = "unplayable"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
)

// Eviction reason constants.
const (
	EvictClear     = "clear"
	EvictClearAll  = "clear_all"
	EvictSoftEvict = "soft_evict"
)

// Command status constants.
const (
	CommandSuccess = "success"
	CommandError   = "error"
)
