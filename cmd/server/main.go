package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	httpadapter "tradecore/internal/adapter/http"
	"tradecore/internal/adapter/metrics/inmemory"
	gormrepo "tradecore/internal/adapter/repo/gorm"
	"tradecore/internal/adapter/repo/memory"
	memorystream "tradecore/internal/adapter/stream/memory"
	redisstream "tradecore/internal/adapter/stream/redis"
	"tradecore/internal/app/history"
	"tradecore/internal/app/inventory"
	"tradecore/internal/app/itemtype"
	"tradecore/internal/app/ports"
	"tradecore/internal/app/rules"
	"tradecore/internal/app/trade"
	"tradecore/internal/config"
	"tradecore/internal/runtime"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/redis/go-redis/v9"
)

type repos struct {
	inventories ports.InventoryRepository
	sessions    ports.TradeSessionRepository
	histories   ports.ItemHistoryRepository
	itemTypes   ports.ItemTypeRepository
	profiles    ports.CharacterProfileRepository
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	r, err := buildRepos(cfg, logger)
	if err != nil {
		logger.Error("build repositories", "error", err)
		os.Exit(1)
	}

	events := buildEvents(cfg, logger)
	recorder := inmemory.NewRecorder()

	sys := runtime.NewSystem(runtime.Config{
		Host:      cfg.Host,
		IdleAfter: cfg.ActorIdleAfter,
	})
	inventory.Register(sys, r.inventories, cfg.StagingTimeout, time.Now)
	history.Register(sys, r.histories, time.Now)
	itemtype.Register(sys, r.itemTypes)
	trade.Register(sys, trade.Config{
		TradeTimeout:          cfg.TradeTimeout,
		ExpireCheckInterval:   cfg.ExpireCheckInterval,
		MaxItemsPerSide:       cfg.MaxItemsPerSide,
		AllowUnknownItemTypes: cfg.AllowUnknownItemTypes,
	}, trade.Deps{
		Sessions: r.sessions,
		Profiles: r.profiles,
		Rules:    rules.Default(),
		Events:   events,
		Metrics:  recorder,
		Logger:   logger,
	})

	h := httpadapter.Handler{System: sys, Profiles: r.profiles, Metrics: recorder}
	s := server.Default(server.WithHostPorts(cfg.ListenAddr))
	h.RegisterRoutes(s)

	s.OnShutdown = append(s.OnShutdown, func(ctx context.Context) {
		if err := sys.Stop(ctx); err != nil {
			logger.Warn("stop actor system", "error", err)
		}
	})

	logger.Info("tradecore listening", "addr", cfg.ListenAddr, "host", cfg.Host)
	s.Spin()
}

func buildRepos(cfg config.Config, logger *slog.Logger) (repos, error) {
	if cfg.DBDSN == "" {
		logger.Info("no database configured, using in-memory repositories")
		store := memory.NewStore()
		return repos{
			inventories: memory.NewInventoryRepo(store),
			sessions:    memory.NewTradeSessionRepo(store),
			histories:   memory.NewItemHistoryRepo(store),
			itemTypes:   memory.NewItemTypeRepo(store),
			profiles:    memory.NewCharacterProfileRepo(store),
		}, nil
	}

	db, err := gormrepo.OpenPostgres(cfg.DBDSN)
	if err != nil {
		return repos{}, err
	}
	if err := gormrepo.ApplyMigrations(context.Background(), db, cfg.MigrationsDir); err != nil {
		return repos{}, err
	}
	return repos{
		inventories: gormrepo.NewInventoryRepo(db),
		sessions:    gormrepo.NewTradeSessionRepo(db),
		histories:   gormrepo.NewItemHistoryRepo(db),
		itemTypes:   gormrepo.NewItemTypeRepo(db),
		profiles:    gormrepo.NewCharacterProfileRepo(db),
	}, nil
}

func buildEvents(cfg config.Config, logger *slog.Logger) ports.EventPublisher {
	if cfg.RedisAddr == "" {
		logger.Info("no redis configured, using in-process event bus")
		return memorystream.NewBus()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return redisstream.NewPublisher(client)
}
