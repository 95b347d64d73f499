package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/bedrock-server/internal/cache"
	"github.com/annel0/bedrock-server/internal/config"
	"github.com/annel0/bedrock-server/internal/logging"
	"github.com/annel0/bedrock-server/internal/network"
	"github.com/annel0/bedrock-server/internal/observability"
	"github.com/annel0/bedrock-server/internal/protocol/packet"
	"github.com/annel0/bedrock-server/internal/storage"
	"github.com/annel0/bedrock-server/internal/world"
	"github.com/annel0/bedrock-server/internal/world/chunk"
)

const (
	protocolVersion = 712
	gameVersion     = "1.21.20"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию GAME_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.GetLevel())
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации логирования: %v", err)
	}
	logging.Configure(logging.Options{Dir: cfg.Logging.GetDir(), ConsoleLevel: level, FileLevel: logging.DEBUG})
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(ctx context.Context, cfg *config.Config) error {
	logging.Info("🎮 Запуск Bedrock сервера...")

	// === МЕТРИКИ ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	var metricsSrv *http.Server
	if addr := cfg.Server.GetMetricsAddr(); addr != "off" {
		metricsSrv = observability.StartHTTP(addr, reg)
	}

	// === ХРАНИЛИЩЕ ===
	store, err := openStore(cfg.World)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error("❌ Ошибка закрытия хранилища: %v", err)
		}
	}()

	// === МИР ===
	minSection, maxSection := cfg.World.GetSectionRange()
	mode := chunk.RuntimeIDs
	if cfg.World.HashedIDs {
		mode = chunk.HashedIDs
	}
	seed := cfg.World.GetSeed()
	w, err := world.NewManager(world.Config{
		Range:        chunk.Range{MinSection: minSection, MaxSection: maxSection},
		Air:          cfg.World.Air,
		Mode:         mode,
		SaveInterval: cfg.World.GetSaveInterval(),
		Generator:    world.NewPerlinGenerator(seed, world.DefaultBlockSet),
		Store:        store,
		Metrics:      metrics,
	})
	if err != nil {
		return fmt.Errorf("ошибка создания мира: %w", err)
	}
	logging.Info("🌍 Мир: seed=%d, секции %d..%d", seed, minSection, maxSection)

	// === КЭШ ===
	chunkCache, err := openCache(cfg, metrics)
	if err != nil {
		return err
	}
	defer chunkCache.Close()
	if err := chunkCache.Listen(ctx); err != nil {
		return fmt.Errorf("ошибка подписки на инвалидации: %w", err)
	}

	// === СЕТЬ ===
	packets, err := packet.NewRegistry()
	if err != nil {
		return fmt.Errorf("ошибка создания реестра пакетов: %w", err)
	}
	algo, err := cfg.Network.GetCompressionAlgorithm()
	if err != nil {
		return err
	}
	srv, err := network.NewServer(network.Config{
		CompressionThreshold: cfg.Network.GetCompressionThreshold(),
		CompressionAlgorithm: algo,
		MaxChunkRadius:       cfg.Network.GetMaxChunkRadius(),
		MaxPlayers:           cfg.Server.GetMaxPlayers(),
	}, packets, w, chunkCache, metrics)
	if err != nil {
		return fmt.Errorf("ошибка создания сервера: %w", err)
	}

	listeners, err := openListeners(cfg.Server)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, l := range listeners {
		wg.Add(1)
		go func(l network.Listener) {
			defer wg.Done()
			if err := srv.Serve(ctx, l); err != nil {
				logging.Error("❌ Слушатель %s остановлен: %v", l.Addr(), err)
			}
		}(l)
	}

	worldDone := make(chan error, 1)
	go func() { worldDone <- w.Run(ctx) }()

	logging.Info("✅ Все сервисы запущены и готовы принимать соединения")

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, остановка...")

	// === GRACEFUL SHUTDOWN ===
	wg.Wait()
	srv.Close()

	var errs []error
	if err := <-worldDone; err != nil {
		errs = append(errs, fmt.Errorf("ошибка сохранения мира: %w", err))
	}
	if err := w.Close(); err != nil {
		errs = append(errs, fmt.Errorf("ошибка выгрузки мира: %w", err))
	}
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openStore(conf config.WorldConfig) (storage.ChunkStore, error) {
	switch conf.GetStorage() {
	case "memory":
		logging.Warn("⚠️ Мир хранится только в памяти")
		return storage.NewMemoryStore(), nil
	case "badger":
		s, err := storage.NewBadgerStore(conf.GetDataDir())
		if err != nil {
			return nil, fmt.Errorf("ошибка открытия хранилища: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("неизвестное хранилище %q", conf.GetStorage())
}

func openCache(cfg *config.Config, metrics *observability.Metrics) (*cache.ChunkCache, error) {
	conf := cfg.Cache
	if conf.TTL <= 0 {
		conf.TTL = 10 * time.Minute
	}

	var repo cache.Repo
	switch conf.Backend {
	case "", "memory":
		repo = cache.NewMemoryCache()
	case "redis":
		r, err := cache.NewRedisCache(conf)
		if err != nil {
			return nil, err
		}
		repo = r
	default:
		return nil, fmt.Errorf("неизвестный backend кэша %q", conf.Backend)
	}

	var inv cache.Invalidator
	if conf.NATSURL != "" {
		n, err := cache.NewNATSInvalidator(conf.NATSURL, conf.Subject, cfg.Server.GetNodeID())
		if err != nil {
			repo.Close()
			return nil, err
		}
		inv = n
	}
	return cache.NewChunkCache(repo, inv, conf.TTL, metrics), nil
}

func openListeners(conf config.ServerConfig) ([]network.Listener, error) {
	var out []network.Listener
	closeAll := func() {
		for _, l := range out {
			l.Close()
		}
	}

	for _, t := range conf.GetTransports() {
		switch t {
		case "raknet":
			l, err := network.ListenRakNet(conf.GetRakNetAddr(), network.Status{
				MOTD:       conf.GetMOTD(),
				SubMOTD:    "world",
				Protocol:   protocolVersion,
				Version:    gameVersion,
				MaxPlayers: conf.GetMaxPlayers(),
				GameMode:   "Survival",
			})
			if err != nil {
				closeAll()
				return nil, err
			}
			out = append(out, l)
		case "kcp":
			l, err := network.ListenKCP(conf.GetKCPAddr())
			if err != nil {
				closeAll()
				return nil, err
			}
			out = append(out, l)
		default:
			closeAll()
			return nil, fmt.Errorf("неизвестный транспорт %q", t)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("не задан ни один транспорт")
	}
	return out, nil
}
