package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/chunkstore/internal/config"
	"github.com/annel0/chunkstore/internal/debugapi"
	"github.com/annel0/chunkstore/internal/ingest"
	"github.com/annel0/chunkstore/internal/logging"
	"github.com/annel0/chunkstore/internal/mesher"
	"github.com/annel0/chunkstore/internal/node"
	"github.com/annel0/chunkstore/internal/observability"
	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world"
	"github.com/annel0/chunkstore/internal/world/block"
	"github.com/annel0/chunkstore/internal/worldgen"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $CHUNKSTORE_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := setupLogging(cfg.Logging); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		os.Exit(1)
	}
	logging.Info("👋 Хранилище остановлено")
}

func setupLogging(lc config.LoggingConfig) error {
	consoleLevel, err := logging.ParseLevel(lc.ConsoleLevel)
	if err != nil {
		return err
	}
	fileLevel, err := logging.ParseLevel(lc.FileLevel)
	if err != nil {
		return err
	}
	logging.Configure(logging.Options{Dir: lc.Dir, ConsoleLevel: consoleLevel, FileLevel: fileLevel})
	if err := logging.GetLoggerManager().ApplyLevels(lc.Components); err != nil {
		return err
	}
	return logging.InitDefaultLogger("chunkstore")
}

func run(cfg *config.Config) error {
	logging.Info("🧱 Запуск хранилища колонок: seed=%d radius=%d", cfg.World.Seed, cfg.World.ViewRadius)

	// === РЕЕСТР БЛОКОВ ===
	registry := block.Default()
	if cfg.World.RegistryFile != "" {
		if err := registry.LoadFile(cfg.World.RegistryFile); err != nil {
			return fmt.Errorf("загрузка реестра блоков: %w", err)
		}
	}
	logging.Debug("Реестр блоков: %d записей", registry.Len())

	// === ТРАССИРОВКА ===
	shutdownTracing, err := observability.InitTelemetry(context.Background(), observability.Options{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("инициализация трассировки: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logging.Error("❌ Ошибка остановки трассировки: %v", err)
		}
	}()

	// === МЕТРИКИ ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// === КОМПОНЕНТЫ ===
	w := world.New(registry, world.WithMetrics(world.NewMetrics(reg)), world.WithLogger(logging.GetWorldLogger()))

	compression, err := ingest.ParseCompression(cfg.Ingest.Compression)
	if err != nil {
		return err
	}
	queue, err := ingest.NewQueue(cfg.Ingest.QueueSize,
		ingest.WithMetrics(ingest.NewMetrics(reg)),
		ingest.WithLogger(logging.GetIngestLogger()),
		ingest.WithMaxPayload(cfg.Ingest.MaxPayload),
	)
	if err != nil {
		return err
	}
	defer queue.Close()

	var natsSource *ingest.NATSSource
	if cfg.Ingest.NATS.URL != "" {
		source, err := ingest.NewNATSSource(ingest.NATSConfig{
			URL:        cfg.Ingest.NATS.URL,
			Subject:    cfg.Ingest.NATS.Subject,
			QueueGroup: cfg.Ingest.NATS.QueueGroup,
		}, queue, logging.GetIngestLogger())
		if err != nil {
			return err
		}
		defer source.Close()
		natsSource = source
	}

	sched := mesher.NewScheduler(w,
		mesher.Config{Workers: cfg.Mesher.Workers, MaxInFlight: cfg.Mesher.MaxInFlight},
		mesher.WithMetrics(mesher.NewMetrics(reg)),
		mesher.WithLogger(logging.GetMesherLogger()),
	)

	box := &debugapi.StatsBox{}
	owner := node.New(w, queue, sched, box, node.Config{
		TickInterval: time.Duration(cfg.World.TickMillis) * time.Millisecond,
		DrainPerTick: cfg.Ingest.DrainPerTick,
	}, logging.GetWorldLogger())

	var api *debugapi.Server
	if cfg.Debug.Enabled {
		api = debugapi.NewServer(debugapi.Config{
			Addr:       fmt.Sprintf(":%d", cfg.Debug.GetPort()),
			Stats:      box,
			Registerer: reg,
			Gatherer:   reg,
			Logger:     logging.GetDebugAPILogger(),
		})
		api.Start()
		logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Debug.GetPort())
	}

	// === ЗАПУСК ===
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if natsSource != nil {
		if err := natsSource.Start(ctx); err != nil {
			return err
		}
	}
	g.Go(func() error { return sched.Run(ctx) })
	g.Go(func() error { return owner.Run(ctx) })
	g.Go(func() error {
		start := time.Now()
		gen := worldgen.New(cfg.World.Seed)
		sent, err := gen.Stream(ctx, queue, registry, vec.Vec2{}, cfg.World.ViewRadius, compression)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("генерация мира: %w", err)
		}
		logging.Info("🌍 Сгенерировано колонок: %d за %v", sent, time.Since(start).Round(time.Millisecond))
		return nil
	})
	logging.Info("✅ Все сервисы запущены")

	err = g.Wait()
	logging.Info("📡 Завершение работы...")

	if api != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := api.Shutdown(shutdownCtx); err != nil {
			logging.Error("❌ Ошибка остановки отладочного API: %v", err)
		}
	}

	st := box.Latest()
	logging.Info("Итог: тиков=%d колонок=%d секций=%d построено=%d, палитра %s записей",
		st.Tick, st.World.Chunks, st.World.Sections, st.Mesher.Completed, humanize.Comma(int64(st.World.PaletteEntries)))
	return err
}
