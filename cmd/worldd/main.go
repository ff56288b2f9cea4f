package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/annel0/voxel-world/internal/api"
	"github.com/annel0/voxel-world/internal/app"
	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/eventbus"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/observability"
)

const (
	busCapacity     = 1024
	metricsInterval = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	var (
		configPath = flag.String("config", "", "путь к YAML конфигурации (по умолчанию $WORLD_CONFIG)")
		logLevel   = flag.String("log-level", "", "уровень логирования: trace|debug|info|warn|error")
		source     = flag.String("source", "", "источник рельефа: memory|perlin")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *source != "" {
		cfg.World.Source = *source
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Некорректная конфигурация: %v", err)
	}

	if err := logging.Init(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		Console:    true,
	}); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.Close()

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.Close()
		os.Exit(1)
	}
	logging.Info("👋 Сервер мира остановлен")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("🌍 Запуск сервера мира: источник=%s, чанки (%d,%d)..(%d,%d), слэбы %d..%d",
		cfg.World.Source, cfg.World.ChunkMinX, cfg.World.ChunkMinY,
		cfg.World.ChunkMaxX, cfg.World.ChunkMaxY, cfg.World.SlabMin, cfg.World.SlabMax)

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logging.Warn("⚠️ Остановка телеметрии: %v", err)
		}
	}()

	// === ШИНА СОБЫТИЙ ===
	bus := eventbus.NewMemoryBus(busCapacity)
	eventbus.Init(bus)
	defer bus.Close()

	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		return err
	}
	if cfg.Server.Metrics {
		exporter := eventbus.NewMetricsExporter(bus, nil)
		exporter.Start(metricsInterval)
		defer exporter.Stop()
	}

	// === МИР ===
	service, err := app.NewService(ctx, cfg, bus)
	if err != nil {
		return err
	}
	defer func() {
		if err := service.Close(); err != nil {
			logging.Warn("⚠️ Остановка сервиса мира: %v", err)
		}
	}()

	if err := service.LoadInitialWorld(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	// === HTTP ===
	rest := api.NewRestServer(api.Config{
		Port:    cfg.Server.GetHTTPPort(),
		Service: service,
		Metrics: cfg.Server.Metrics,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return service.Run(gctx) })
	g.Go(rest.Start)
	g.Go(func() error {
		<-gctx.Done()
		logging.Info("📡 Завершение работы...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return rest.Stop(sctx)
	})

	logging.Info("✅ Сервер мира запущен")
	logging.Info("   🌐 Отладочный API: http://localhost:%d/api/stats", cfg.Server.GetHTTPPort())
	logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Server.GetHTTPPort())

	return g.Wait()
}
