package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/loopvideo/internal/api"
	"github.com/hszk-dev/loopvideo/internal/api/handler"
	"github.com/hszk-dev/loopvideo/internal/asset"
	"github.com/hszk-dev/loopvideo/internal/config"
	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/infrastructure/pubsub"
	"github.com/hszk-dev/loopvideo/internal/infrastructure/queue"
	"github.com/hszk-dev/loopvideo/internal/infrastructure/storage"
	"github.com/hszk-dev/loopvideo/internal/infrastructure/sysmon"
	"github.com/hszk-dev/loopvideo/internal/mainloop"
	"github.com/hszk-dev/loopvideo/internal/media"
	"github.com/hszk-dev/loopvideo/internal/player"
	"github.com/hszk-dev/loopvideo/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Asset resolution: bundle first, then remote storage when configured.
	bundle := asset.NewBundleResolver(cfg.Bundle.Dir)
	resolvers := []asset.Resolver{bundle}
	checks := map[string]handler.Checker{}

	if cfg.MinIO.Enabled() {
		storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
			Endpoint:       cfg.MinIO.Endpoint,
			PublicEndpoint: cfg.MinIO.PublicEndpoint,
			AccessKey:      cfg.MinIO.AccessKey,
			SecretKey:      cfg.MinIO.SecretKey,
			Bucket:         cfg.MinIO.Bucket,
			UseSSL:         cfg.MinIO.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		resolvers = append(resolvers, asset.NewStorageResolver(storageClient, cfg.MinIO.Prefix, cfg.MinIO.URLExpiry))
		checks["minio"] = storageClient.Ping
		logger.Info("connected to MinIO", "bucket", storageClient.Bucket())
	}

	prober := media.NewFFprobe(media.FFprobeConfig{
		FFprobePath: cfg.FFprobe.Path,
		Timeout:     cfg.FFprobe.Timeout,
	})

	cache := usecase.NewPlayerCache(
		asset.NewChainResolver(resolvers...),
		player.NewClockEngine(prober),
		logger,
		usecase.PlayerCacheConfig{
			LoaderConcurrency:  cfg.Cache.LoaderConcurrency,
			PreloadConcurrency: cfg.Cache.PreloadConcurrency,
			CreateTimeout:      cfg.Cache.CreateTimeout,
		},
	)
	defer cache.Close()

	observer := usecase.NewLifecycleObserver(cache, logger)
	signals := make(chan usecase.Signal, 16)

	uiLoop := mainloop.New(mainloop.DefaultQueueSize, logger)
	surfaces := usecase.NewSurfaceService(cache, uiLoop, logger)
	defer surfaces.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return uiLoop.Run(gctx) })
	g.Go(func() error { return observer.Run(gctx, signals) })
	g.Go(func() error {
		forwardOSSignals(gctx, signals, logger)
		return nil
	})

	if cfg.Bundle.Watch {
		watcher, err := asset.NewBundleWatcher(cfg.Bundle.Dir, cache, logger)
		if err != nil {
			logger.Warn("bundle watcher disabled", "dir", cfg.Bundle.Dir, "error", err)
		} else {
			defer watcher.Close()
			g.Go(func() error { return watcher.Run(gctx) })
		}
	}

	if cfg.Memory.Enabled {
		monitor := sysmon.NewMemoryMonitor(sysmon.MemoryMonitorConfig{
			Interval:          cfg.Memory.Interval,
			ThresholdPercent:  cfg.Memory.PressurePercent,
			HysteresisPercent: cfg.Memory.HysteresisPercent,
		}, nil, func() { emit(gctx, signals, usecase.SignalMemoryWarning) }, logger)
		g.Go(func() error { return monitor.Run(gctx) })
	}

	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		channel := pubsub.NewLifecycleChannel(redisClient, cfg.Redis.Channel, logger)
		if err := channel.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		checks["redis"] = channel.Ping
		logger.Info("connected to Redis", "channel", channel.Channel())

		g.Go(func() error {
			return channel.Listen(gctx, func(name string) {
				sig, err := usecase.ParseSignal(name)
				if err != nil {
					logger.Warn("ignoring lifecycle message", "payload", name, "error", err)
					return
				}
				emit(gctx, signals, sig)
			})
		})
	}

	if cfg.RabbitMQ.Enabled() {
		qcfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
		qcfg.QueueName = cfg.RabbitMQ.Queue
		qcfg.RoutingKey = cfg.RabbitMQ.Queue

		queueClient, err := queue.NewClient(ctx, qcfg, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer queueClient.Close()
		logger.Info("connected to RabbitMQ", "queue", qcfg.QueueName)

		commands := usecase.NewCommandService(cache, queueClient, logger)
		g.Go(func() error {
			if err := commands.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("command consumer: %w", err)
			}
			return nil
		})
	}

	if len(cfg.Cache.Preload) > 0 {
		keys := make([]model.VideoKey, 0, len(cfg.Cache.Preload))
		for _, s := range cfg.Cache.Preload {
			keys = append(keys, model.VideoKey(strings.TrimSpace(s)))
		}
		cache.Preload(keys, model.PriorityHigh)
		logger.Info("warming player cache", "keys", keys)
	}

	router := api.NewRouter(logger, api.Handlers{
		Health:    handler.NewHealthHandler(cache, observer, checks),
		Players:   handler.NewPlayersHandler(cache),
		Surfaces:  handler.NewSurfacesHandler(surfaces),
		Lifecycle: handler.NewLifecycleHandler(observer),
		Metrics:   promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	// Release players as the app would on termination.
	observer.Handle(usecase.SignalWillTerminate)
	logger.Info("playerd stopped")
	return nil
}

// forwardOSSignals maps SIGUSR1/SIGUSR2 to entering and leaving the background.
func forwardOSSignals(ctx context.Context, out chan<- usecase.Signal, logger *slog.Logger) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-ch:
			logger.Info("received OS signal", "signal", s.String())
			switch s {
			case syscall.SIGUSR1:
				emit(ctx, out, usecase.SignalDidEnterBackground)
			case syscall.SIGUSR2:
				emit(ctx, out, usecase.SignalWillEnterForeground)
				emit(ctx, out, usecase.SignalDidBecomeActive)
			}
		}
	}
}

func emit(ctx context.Context, out chan<- usecase.Signal, sig usecase.Signal) {
	select {
	case out <- sig:
	case <-ctx.Done():
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
