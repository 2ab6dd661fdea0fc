package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bondbridge/internal/accounts"
	"bondbridge/internal/auth"
	"bondbridge/internal/chat"
	"bondbridge/internal/config"
	"bondbridge/internal/directory"
	"bondbridge/internal/faultlog"
	"bondbridge/internal/gate"
	"bondbridge/internal/httpapi"
	"bondbridge/internal/policy"
	"bondbridge/internal/schema"
	"bondbridge/internal/session"
	"bondbridge/internal/tokenstore"
	"bondbridge/pkg/logger"
	"bondbridge/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := httpapi.RegisterValidators(); err != nil {
		log.Error("validator init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var rdb redis.Cmdable
	if cfg.RefreshStore == config.RefreshStoreRedis {
		client, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer client.Close()
		rdb = client
	}

	deps, err := buildDeps(cfg, log, db, rdb)
	if err != nil {
		log.Error("dependency init failed", "err", err)
		os.Exit(1)
	}

	if err := bootstrap(rootCtx, cfg.Bootstrap, deps.Handlers); err != nil {
		log.Error("bootstrap failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "refresh_store", string(cfg.RefreshStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// bootstrap prepares a fresh database so the first admin can sign in without
// hand-written SQL. Both steps are idempotent.
func bootstrap(ctx context.Context, cfg config.BootstrapConfig, h httpapi.Handlers) error {
	if cfg.ApplySchema {
		if err := h.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		logger.From(ctx).Info("schema applied")
	}
	if cfg.AdminEmail != "" {
		if err := h.Accounts.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}
	return nil
}

// buildDeps constructs every component from cfg. No component reads env after this.
func buildDeps(cfg config.Config, log *slog.Logger, db *sql.DB, rdb redis.Cmdable) (routerDeps, error) {
	codec, err := auth.NewCodec(cfg.Auth)
	if err != nil {
		return routerDeps{}, fmt.Errorf("auth codec: %w", err)
	}
	issuer, err := auth.NewIssuer(codec, cfg.Auth)
	if err != nil {
		return routerDeps{}, fmt.Errorf("auth issuer: %w", err)
	}
	g, err := gate.New(cfg.Gate)
	if err != nil {
		return routerDeps{}, fmt.Errorf("gate: %w", err)
	}
	policies, err := policy.NewEngine(policy.DefaultPolicies()...)
	if err != nil {
		return routerDeps{}, fmt.Errorf("policies: %w", err)
	}

	var store tokenstore.Store
	switch cfg.RefreshStore {
	case config.RefreshStorePostgres:
		store = tokenstore.NewPostgresStore(db, cfg.Auth.RefreshTokenTTL)
	default:
		if rdb == nil {
			return routerDeps{}, errors.New("redis client is required for the redis refresh store")
		}
		store = tokenstore.NewRedisStore(rdb, cfg.Auth.RefreshTokenTTL)
	}

	dir := directory.NewPostgresDirectory(db)
	chatSvc := chat.NewService(chat.NewPostgresRepo(db))

	sessions, err := session.NewService(dir, issuer, codec, store)
	if err != nil {
		return routerDeps{}, err
	}
	accts, err := accounts.NewService(dir, chatSvc, store)
	if err != nil {
		return routerDeps{}, err
	}

	return routerDeps{
		Log:      log,
		Gate:     g,
		Codec:    codec,
		Policies: policies,
		Handlers: httpapi.Handlers{
			Sessions: sessions,
			Accounts: accts,
			Chat:     chatSvc,
			Faults:   faultlog.NewService(faultlog.NewPostgresRepo(db)),
			EnsureSchema: func(ctx context.Context) error {
				return schema.Apply(ctx, db)
			},
		},
	}, nil
}
