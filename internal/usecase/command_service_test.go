package usecase

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/domain/repository"
)

func TestCommandService_Apply(t *testing.T) {
	type calls struct {
		preloaded []model.VideoKey
		priority  model.Priority
		cleared   []model.VideoKey
		clearAll  int
	}

	tests := []struct {
		name      string
		cmd       repository.CacheCommand
		wantErr   error
		wantCalls calls
	}{
		{
			name: "preload with priority",
			cmd: repository.CacheCommand{
				ID: uuid.New(), Op: repository.OpPreload,
				Keys: []string{"paywall", "grid-1"}, Priority: "high",
			},
			wantCalls: calls{preloaded: []model.VideoKey{"paywall", "grid-1"}, priority: model.PriorityHigh},
		},
		{
			name: "preload defaults to normal priority",
			cmd: repository.CacheCommand{
				ID: uuid.New(), Op: repository.OpPreload, Keys: []string{"intro"},
			},
			wantCalls: calls{preloaded: []model.VideoKey{"intro"}, priority: model.PriorityNormal},
		},
		{
			name: "clear keys",
			cmd: repository.CacheCommand{
				ID: uuid.New(), Op: repository.OpClear, Keys: []string{"a", "b"},
			},
			wantCalls: calls{cleared: []model.VideoKey{"a", "b"}, priority: model.PriorityNormal},
		},
		{
			name:      "clear all",
			cmd:       repository.CacheCommand{ID: uuid.New(), Op: repository.OpClearAll},
			wantCalls: calls{clearAll: 1, priority: model.PriorityNormal},
		},
		{
			name: "invalid key rejects the whole command",
			cmd: repository.CacheCommand{
				ID: uuid.New(), Op: repository.OpClear, Keys: []string{"ok", "../etc"},
			},
			wantErr:   model.ErrInvalidKey,
			wantCalls: calls{priority: model.PriorityNormal},
		},
		{
			name:      "unknown op",
			cmd:       repository.CacheCommand{ID: uuid.New(), Op: "rewind"},
			wantErr:   repository.ErrUnknownCommand,
			wantCalls: calls{priority: model.PriorityNormal},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calls{priority: model.PriorityNormal}
			cache := &mockCommandCache{
				preloadFn: func(keys []model.VideoKey, priority model.Priority) {
					got.preloaded = keys
					got.priority = priority
				},
				clearFn:    func(key model.VideoKey) { got.cleared = append(got.cleared, key) },
				clearAllFn: func() { got.clearAll++ },
			}
			svc := NewCommandService(cache, &mockCommandQueue{}, nil)

			err := svc.Apply(tt.cmd)

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Apply() error = %v, want %v", err, tt.wantErr)
			}
			if !slices.Equal(got.preloaded, tt.wantCalls.preloaded) {
				t.Errorf("preloaded = %v, want %v", got.preloaded, tt.wantCalls.preloaded)
			}
			if got.priority != tt.wantCalls.priority {
				t.Errorf("priority = %s, want %s", got.priority, tt.wantCalls.priority)
			}
			if !slices.Equal(got.cleared, tt.wantCalls.cleared) {
				t.Errorf("cleared = %v, want %v", got.cleared, tt.wantCalls.cleared)
			}
			if got.clearAll != tt.wantCalls.clearAll {
				t.Errorf("clearAll = %d, want %d", got.clearAll, tt.wantCalls.clearAll)
			}
		})
	}
}

func TestCommandService_Start(t *testing.T) {
	var cleared []model.VideoKey
	cache := &mockCommandCache{
		clearFn: func(key model.VideoKey) { cleared = append(cleared, key) },
	}
	queue := &mockCommandQueue{
		consumeCommandsFn: func(ctx context.Context, handler func(cmd repository.CacheCommand) error) error {
			_ = handler(repository.CacheCommand{ID: uuid.New(), Op: "bogus"})
			return handler(repository.CacheCommand{ID: uuid.New(), Op: repository.OpClear, Keys: []string{"intro"}})
		},
	}
	svc := NewCommandService(cache, queue, nil)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !slices.Equal(cleared, []model.VideoKey{"intro"}) {
		t.Errorf("cleared = %v, want [intro]", cleared)
	}
}
