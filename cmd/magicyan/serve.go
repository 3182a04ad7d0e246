package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"magicyan/internal/api"
	"magicyan/internal/artifact"
	"magicyan/internal/browser"
	"magicyan/internal/config"
	"magicyan/internal/export"
	"magicyan/internal/fallback"
	"magicyan/internal/handoff"
	"magicyan/internal/probe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	store, cleanupStore, err := buildArtifactStore(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupStore()

	factory := browser.NewFactory(cfg.Engine.ResolvedExecutablePath(), logger)
	orchestrator := export.NewOrchestrator(factory, logger, cfg.Site.Secret)

	healthURL := fmt.Sprintf("http://127.0.0.1:%d/api/pdf/health", cfg.API.Port)
	if cfg.API.PublicBaseURL != "" {
		healthURL = cfg.API.PublicBaseURL + "/api/pdf/health"
	}
	prober := probe.New(healthURL, cfg.Probe.Timeout(), cfg.Probe.CacheTTL(), probe.OverrideNone, logger)

	controller := fallback.NewController(logger)
	service := export.NewService(
		prober,
		orchestrator,
		store,
		controller,
		logger,
		cfg.Export.ForceClientPrint,
		cfg.Export.ForceServerPDF,
	)
	broker := handoff.NewBroker(logger)

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, api.Handlers{
		PDF:     api.NewPDFHandler(orchestrator, factory, store, logger, cfg.API.PublicBaseURL, cfg.Export.CacheTTL()),
		Export:  api.NewExportHandler(service, logger, cfg.API.PublicBaseURL),
		Render:  api.NewRenderHandler(logger),
		Handoff: api.NewHandoffHandler(broker, logger),
		File:    api.NewFileHandler(logger),
	}, cfg.Site.Secret)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	server := &http.Server{Addr: address, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api listening", slog.String("address", address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// buildArtifactStore 按配置选择产物缓存：启用 Redis 时多实例共享令牌，
// 否则用进程内缓存并启动过期清扫。
func buildArtifactStore(cfg *config.Config, logger *slog.Logger) (artifact.Store, func(), error) {
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("artifact store ready", slog.String("backend", "redis"), slog.String("addr", cfg.Redis.Addr()))
		cleanup := func() {
			if err := client.Close(); err != nil {
				logger.Error("close redis client failed", slog.Any("error", err))
			}
		}
		return artifact.NewRedisStore(client, cfg.Export.CacheTTL()), cleanup, nil
	}

	memStore := artifact.NewMemoryStore(cfg.Export.CacheTTL(), logger)
	if err := memStore.StartSweeper(); err != nil {
		return nil, nil, err
	}
	logger.Info("artifact store ready", slog.String("backend", "memory"))
	return memStore, memStore.StopSweeper, nil
}
