// Package sysmon watches host resources and raises memory-pressure warnings.
package sysmon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
)

// Sampler returns the current used-memory percentage (0-100).
type Sampler func(ctx context.Context) (float64, error)

// VirtualMemorySampler samples host memory usage through gopsutil.
func VirtualMemorySampler(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read virtual memory: %w", err)
	}
	return vm.UsedPercent, nil
}

// MemoryMonitorConfig holds configuration for MemoryMonitor.
type MemoryMonitorConfig struct {
	Interval time.Duration
	// ThresholdPercent is the used-memory level that raises a warning.
	ThresholdPercent float64
	// HysteresisPercent is how far usage must fall below the threshold before
	// another warning can be raised.
	HysteresisPercent float64
}

// DefaultMemoryMonitorConfig returns the default configuration.
func DefaultMemoryMonitorConfig() MemoryMonitorConfig {
	return MemoryMonitorConfig{
		Interval:          5 * time.Second,
		ThresholdPercent:  90,
		HysteresisPercent: 5,
	}
}

// MemoryMonitor calls a warning func once each time memory usage crosses the threshold.
type MemoryMonitor struct {
	cfg     MemoryMonitorConfig
	sample  Sampler
	warn    func()
	logger  *slog.Logger
	tripped bool
}

// NewMemoryMonitor creates a monitor. A nil sampler uses VirtualMemorySampler.
func NewMemoryMonitor(cfg MemoryMonitorConfig, sample Sampler, warn func(), logger *slog.Logger) *MemoryMonitor {
	if sample == nil {
		sample = VirtualMemorySampler
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultMemoryMonitorConfig().Interval
	}
	return &MemoryMonitor{
		cfg:    cfg,
		sample: sample,
		warn:   warn,
		logger: logger,
	}
}

// Run samples memory every interval until ctx is cancelled.
func (m *MemoryMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.logger.Info("memory monitor started",
		"threshold_percent", m.cfg.ThresholdPercent,
		"interval", m.cfg.Interval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check takes one sample and reports whether a warning was raised.
func (m *MemoryMonitor) Check(ctx context.Context) bool {
	used, err := m.sample(ctx)
	if err != nil {
		m.logger.Warn("failed to sample memory", "error", err)
		return false
	}

	switch {
	case !m.tripped && used >= m.cfg.ThresholdPercent:
		m.tripped = true
		m.logger.Warn("memory pressure detected", "used_percent", used)
		m.warn()
		return true
	case m.tripped && used < m.cfg.ThresholdPercent-m.cfg.HysteresisPercent:
		m.tripped = false
		m.logger.Info("memory pressure cleared", "used_percent", used)
	}
	return false
}
