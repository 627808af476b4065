package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"jittr/internal/config"
	"jittr/internal/ratelimit"
	"jittr/internal/server"
	"jittr/internal/usertoken"
	"jittr/internal/util"
	"jittr/pkg/facade"
	"jittr/pkg/store"
	"jittr/pkg/validate"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	util.InitLogger(cfg.LogLevel)

	var (
		jitterRepo   store.JitterRepository
		jittleRepo   store.JittleRepository
		researchRepo store.ResearchRepository
	)
	if cfg.DatabaseURL != "" {
		gs, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to open store", "err", err)
			os.Exit(1)
		}
		jitterRepo, jittleRepo, researchRepo = gs.Jitters, gs.Jittles, gs.Research
	} else {
		slog.Warn("no database configured, falling back to the in-memory store")
		mem := store.NewMemoryStore()
		jitterRepo, jittleRepo, researchRepo = mem.Jitters, mem.Jittles, mem.Research
	}

	verifier, err := usertoken.NewVerifier(usertoken.Config{Secret: cfg.JWTSecret})
	if err != nil {
		slog.Error("failed to init token verifier", "err", err)
		os.Exit(1)
	}

	var writeLimiter *ratelimit.FixedWindowLimiter
	if cfg.WriteRatePerMinute > 0 {
		writeLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "jittr:ratelimit:write",
			cfg.WriteRatePerMinute, time.Minute)
		if err != nil {
			slog.Error("failed to init rate limiter", "err", err)
			os.Exit(1)
		}
	}

	check := validate.New()
	httpServer, err := server.New(server.Config{
		Jitters:       facade.NewJitterFacade(jitterRepo, check),
		Jittles:       facade.NewJittleFacade(jittleRepo, jitterRepo, check),
		Research:      facade.NewResearchFacade(researchRepo, jitterRepo, check),
		TokenVerifier: verifier,
		WriteLimiter:  writeLimiter,
	})
	if err != nil {
		slog.Error("failed to init server", "err", err)
		os.Exit(1)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("jittr server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("jittr server stopped")
}
