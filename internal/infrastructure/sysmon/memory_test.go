package sysmon

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryMonitor_Check(t *testing.T) {
	tests := []struct {
		name      string
		samples   []float64
		wantWarns int
	}{
		{name: "below threshold", samples: []float64{50, 70, 89}, wantWarns: 0},
		{name: "single crossing", samples: []float64{50, 91, 95, 92}, wantWarns: 1},
		{name: "stays armed inside hysteresis band", samples: []float64{91, 87, 91}, wantWarns: 1},
		{name: "re-arms below hysteresis band", samples: []float64{91, 80, 91}, wantWarns: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := 0
			sampler := func(ctx context.Context) (float64, error) {
				v := tt.samples[i]
				i++
				return v, nil
			}
			warns := 0
			m := NewMemoryMonitor(DefaultMemoryMonitorConfig(), sampler, func() { warns++ }, nil)

			for range tt.samples {
				m.Check(context.Background())
			}

			if warns != tt.wantWarns {
				t.Errorf("warnings = %d, want %d", warns, tt.wantWarns)
			}
		})
	}
}

func TestMemoryMonitor_SamplerError(t *testing.T) {
	sampler := func(ctx context.Context) (float64, error) {
		return 0, errors.New("proc unavailable")
	}
	m := NewMemoryMonitor(DefaultMemoryMonitorConfig(), sampler, func() {
		t.Error("unexpected warning")
	}, nil)

	if m.Check(context.Background()) {
		t.Error("Check() = true, want false")
	}
}

func TestMemoryMonitor_Run(t *testing.T) {
	sampler := func(ctx context.Context) (float64, error) { return 99, nil }
	warned := make(chan struct{}, 1)
	cfg := MemoryMonitorConfig{Interval: 5 * time.Millisecond, ThresholdPercent: 90, HysteresisPercent: 5}
	m := NewMemoryMonitor(cfg, sampler, func() { warned <- struct{}{} }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case <-warned:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for warning")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestVirtualMemorySampler(t *testing.T) {
	used, err := VirtualMemorySampler(context.Background())
	if err != nil {
		t.Skipf("virtual memory unavailable: %v", err)
	}
	if used < 0 || used > 100 {
		t.Errorf("used percent = %v, want 0-100", used)
	}
}
