package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/domain/repository"
	"github.com/hszk-dev/loopvideo/internal/infrastructure/metrics"
)

// commandCache is the cache boundary exposed to out-of-process collaborators.
type commandCache interface {
	Preload(keys []model.VideoKey, priority model.Priority)
	Clear(key model.VideoKey)
	ClearAll()
}

// CommandService applies cache commands received from the command queue.
type CommandService struct {
	cache  commandCache
	queue  repository.CommandQueue
	logger *slog.Logger
}

// NewCommandService creates a new CommandService.
func NewCommandService(cache commandCache, queue repository.CommandQueue, logger *slog.Logger) *CommandService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandService{
		cache:  cache,
		queue:  queue,
		logger: logger,
	}
}

// Start consumes commands until ctx is cancelled.
func (s *CommandService) Start(ctx context.Context) error {
	s.logger.Info("starting cache command consumer")
	return s.queue.ConsumeCommands(ctx, s.Apply)
}

// Apply executes a single command against the cache.
func (s *CommandService) Apply(cmd repository.CacheCommand) error {
	logger := s.logger.With("command_id", cmd.ID, "op", string(cmd.Op))

	err := s.apply(cmd)
	if err != nil {
		metrics.CacheCommandsTotal.WithLabelValues(string(cmd.Op), metrics.CommandError).Inc()
		logger.Warn("cache command rejected", "error", err)
		return err
	}

	metrics.CacheCommandsTotal.WithLabelValues(string(cmd.Op), metrics.CommandSuccess).Inc()
	logger.Info("cache command applied", "keys", len(cmd.Keys))
	return nil
}

func (s *CommandService) apply(cmd repository.CacheCommand) error {
	switch cmd.Op {
	case repository.OpPreload:
		keys, err := parseKeys(cmd.Keys)
		if err != nil {
			return err
		}
		s.cache.Preload(keys, model.ParsePriority(cmd.Priority))

	case repository.OpClear:
		keys, err := parseKeys(cmd.Keys)
		if err != nil {
			return err
		}
		for _, key := range keys {
			s.cache.Clear(key)
		}

	case repository.OpClearAll:
		s.cache.ClearAll()

	default:
		return fmt.Errorf("%w: %q", repository.ErrUnknownCommand, cmd.Op)
	}
	return nil
}

func parseKeys(raw []string) ([]model.VideoKey, error) {
	keys := make([]model.VideoKey, 0, len(raw))
	for _, s := range raw {
		key := model.VideoKey(s)
		if err := key.Validate(); err != nil {
			return nil, fmt.Errorf("validate key %q: %w", s, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
