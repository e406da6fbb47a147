// Package main provides the game server binary: the realm.v1 gRPC API, the
// WebSocket zone feed and the character store, wired from one config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/config"
	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/content"
	"github.com/cory-johannsen/realm/internal/game/dice"
	"github.com/cory-johannsen/realm/internal/game/schedule"
	"github.com/cory-johannsen/realm/internal/game/spawn"
	"github.com/cory-johannsen/realm/internal/gameserver"
	"github.com/cory-johannsen/realm/internal/observability"
	"github.com/cory-johannsen/realm/internal/scripting"
	"github.com/cory-johannsen/realm/internal/server"
	"github.com/cory-johannsen/realm/internal/storage"
	"github.com/cory-johannsen/realm/internal/storage/memory"
	"github.com/cory-johannsen/realm/internal/storage/postgres"
	"github.com/cory-johannsen/realm/internal/storage/sqlite"
	"github.com/cory-johannsen/realm/internal/transport/feed"
	"github.com/cory-johannsen/realm/internal/transport/grpcapi"
	"github.com/cory-johannsen/realm/internal/transport/ws"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server",
		zap.String("grpc_addr", cfg.GameServer.Addr()),
		zap.String("storage", cfg.Storage.Driver),
	)

	contentStart := time.Now()
	lib, err := content.Load(content.Dirs{
		Monsters: cfg.Content.Monsters,
		Items:    cfg.Content.Items,
		Zones:    cfg.Content.Zones,
		Quests:   cfg.Content.Quests,
	})
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	for _, p := range lib.Problems() {
		logger.Warn("content problem", zap.String("problem", p))
	}
	monsters, items, zones, quests := lib.Counts()
	logger.Info("content loaded",
		zap.Int("monsters", monsters),
		zap.Int("items", items),
		zap.Int("zones", zones),
		zap.Int("quests", quests),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	carryover, err := character.ParseCarryover(cfg.Game.Carryover)
	if err != nil {
		logger.Fatal("parsing carryover policy", zap.Error(err))
	}

	var src dice.Source = dice.NewCryptoSource()
	if cfg.Game.Seed != 0 {
		src = dice.NewSeededSource(cfg.Game.Seed)
		logger.Warn("deterministic dice enabled", zap.Uint64("seed", cfg.Game.Seed))
	}
	roller := dice.NewLoggedRoller(src, logger)
	clock := schedule.NewReal()
	hub := feed.NewHub(logger)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening character store", zap.Error(err))
	}

	scripts := scripting.NewManager(roller, logger)
	scripts.Announce = func(zoneID, text string) {
		hub.NotifyZone(zoneID, gameserver.ZoneMessageEvent(zoneID, text, clock.Now()))
	}
	if err := loadScripts(scripts, lib, cfg.Content.Scripts, logger); err != nil {
		logger.Fatal("loading zone scripts", zap.Error(err))
	}

	instancer := spawn.NewInstancer(clock, cfg.Game.ItemTTL, cfg.Game.CurrencyTTL)
	registry := spawn.NewRegistry(lib, instancer, clock, roller, logger, spawn.Options{
		LookupTimeout: cfg.Game.StoreTimeout,
		OnSpawn: func(v spawn.MonsterView) {
			hub.NotifyZone(v.ZoneID, gameserver.MonsterSpawnEvent(v, clock.Now()))
		},
	})

	svc := gameserver.NewService(gameserver.Deps{
		Templates:  lib,
		Characters: store.Store,
		Registry:   registry,
		Instancer:  instancer,
		Notifier:   hub,
		Hooks:      scripts,
		Source:     roller,
		Clock:      clock,
		Logger:     logger,
	}, gameserver.Config{
		StartingZone:      cfg.Game.StartingZone,
		RespawnZone:       cfg.Game.RespawnZone,
		DeathXPPenalty:    cfg.Game.DeathXPPenalty,
		Carryover:         carryover,
		InventoryCapacity: cfg.Game.InventoryCapacity,
		StoreTimeout:      cfg.Game.StoreTimeout,
	})
	populated, err := svc.PopulateAll(ctx, lib.Zones())
	if err != nil {
		logger.Fatal("populating zones", zap.Error(err))
	}
	logger.Info("zones populated", zap.Int("zones", populated))

	grpcServer := grpcapi.NewGRPCServer(grpcapi.NewServer(svc, hub, logger, cfg.WebSocket.SendBuffer))

	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("store", &server.FuncService{
		StartFn: store.watch,
		StopFn: func() {
			store.stop()
			if err := store.Close(); err != nil {
				logger.Warn("closing character store", zap.Error(err))
			}
		},
	})

	lifecycle.Add("world", &server.FuncService{
		StopFn: func() {
			registry.Close()
			scripts.Close()
			hub.Close()
		},
	})

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GameServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
			}
			logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			grpcServer.GracefulStop()
		},
	})

	if cfg.WebSocket.Enabled {
		feedHandler := ws.NewHandler(hub, ws.Config{
			SendBuffer:   cfg.WebSocket.SendBuffer,
			WriteTimeout: cfg.WebSocket.WriteTimeout,
			PongTimeout:  cfg.WebSocket.PongTimeout,
		}, logger)
		feedServer := &http.Server{
			Addr:              cfg.WebSocket.Addr(),
			Handler:           feedHandler.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		lifecycle.Add("websocket", &server.FuncService{
			StartFn: func() error {
				logger.Info("zone feed listening", zap.String("addr", feedServer.Addr))
				if err := feedServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serving zone feed: %w", err)
				}
				return nil
			},
			StopFn: func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = feedServer.Shutdown(sctx)
			},
		})
	}

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
		zap.Bool("websocket", cfg.WebSocket.Enabled),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// storeHandle is the open character store plus, for postgres, the pool
// behind it.
type storeHandle struct {
	storage.Store
	pool   *postgres.Pool
	logger *zap.Logger
	done   chan struct{}
}

// openStore opens the character store named by storage.driver.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*storeHandle, error) {
	h := &storeHandle{logger: logger, done: make(chan struct{})}
	switch cfg.Storage.Driver {
	case "postgres":
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		h.Store = postgres.NewCharacterStore(pool.DB())
		h.pool = pool
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite store opened", zap.String("path", cfg.Storage.SQLitePath))
		h.Store = s
	case "memory":
		logger.Warn("characters are kept in memory and lost on exit")
		h.Store = memory.NewStore()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	return h, nil
}

// watch checks the database every 30s until stop. Stores without a pool
// just wait.
func (h *storeHandle) watch() error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return nil
		case <-ticker.C:
			if h.pool == nil {
				continue
			}
			if err := h.pool.Health(context.Background(), 5*time.Second); err != nil {
				acquired, total := h.pool.InUse()
				h.logger.Warn("database health check failed",
					zap.Error(err),
					zap.Int32("acquired", acquired),
					zap.Int32("total", total),
				)
			}
		}
	}
}

func (h *storeHandle) stop() { close(h.done) }

// Close closes the store and its pool.
func (h *storeHandle) Close() error {
	err := h.Store.Close()
	if h.pool != nil {
		h.pool.Close()
	}
	return err
}

// loadScripts loads <root>/global as the shared VM and, for every zone, the
// directory named by Zone.ScriptPath when it exists.
func loadScripts(m *scripting.Manager, lib *content.Library, root string, logger *zap.Logger) error {
	if global := filepath.Join(root, "global"); root != "" && dirExists(global) {
		if err := m.LoadGlobal(global, 0); err != nil {
			return err
		}
	}
	for _, z := range lib.Zones() {
		dir := z.ScriptPath(root)
		if dir == "" || !dirExists(dir) {
			continue
		}
		if err := m.LoadZone(z.ID, dir, z.ScriptInstructionLimit); err != nil {
			return fmt.Errorf("zone %s: %w", z.ID, err)
		}
		logger.Info("zone scripts loaded", zap.String("zone", z.ID), zap.String("dir", dir))
	}
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
