package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/chess-arena/internal/api"
	"github.com/kapu/chess-arena/internal/archive"
	"github.com/kapu/chess-arena/internal/broadcast"
	appcfg "github.com/kapu/chess-arena/internal/config"
	"github.com/kapu/chess-arena/internal/identity"
	"github.com/kapu/chess-arena/internal/match"
	"github.com/kapu/chess-arena/internal/matchmaker"
	"github.com/kapu/chess-arena/internal/obslog"
	"github.com/kapu/chess-arena/internal/rules"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		obslog.L().Fatal("redis url error", zap.Error(err))
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancel()
		obslog.L().Fatal("redis ping error", zap.Error(err))
	}
	cancel()

	bus := broadcast.NewBus(rdb)
	store := match.NewStore(rdb, time.Duration(cfg.MatchTTLSec)*time.Second)
	matches := match.NewManager(store, rules.NewEngine(), bus)

	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			obslog.L().Fatal("archive init error", zap.Error(err))
		}
		matches.AttachArchive(repo)
	} else {
		obslog.L().Warn("no DATABASE_URL configured, final results are not archived")
	}

	var provider identity.Provider
	if cfg.IdentityBaseURL != "" {
		provider = identity.NewClient(cfg.IdentityBaseURL,
			identity.WithTimeout(time.Duration(cfg.IdentityTimeout)*time.Second),
			identity.WithHeaderProvider(func() map[string]string {
				if cfg.IdentityAPIKey == "" {
					return nil
				}
				return map[string]string{"X-Api-Key": cfg.IdentityAPIKey}
			}),
		)
	} else {
		obslog.L().Warn("no IDENTITY_BASE_URL configured, tokens pass through as participant ids")
		provider = identity.NewPassthrough()
	}

	mm := matchmaker.NewManager(rdb, time.Duration(cfg.QueueTTLSec)*time.Second, provider, matches, bus)
	srv := api.NewServer(cfg.ListenAddr, provider, mm, matches, bus)

	go func() {
		obslog.L().Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		obslog.L().Warn("shutdown error", zap.Error(err))
	}
	if repo != nil {
		_ = repo.Close()
	}
	_ = rdb.Close()
}
