package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dasilvacsv/jadRifas-sub000/internal/app/apiapp"
	"github.com/dasilvacsv/jadRifas-sub000/internal/config"
	"github.com/dasilvacsv/jadRifas-sub000/internal/infra/logger"
	"github.com/dasilvacsv/jadRifas-sub000/internal/jobs/cleanup"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := apiapp.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("create api app", zap.Error(err))
	}
	app.Bootstrap(ctx)

	if tickets, purchases, storage, ok := app.CleanupStores(); ok {
		job := cleanup.New(tickets, purchases, storage, cfg.Raffle.HoldRetention, log)
		go func() {
			if err := job.RunLoop(ctx, 6*time.Hour); err != nil {
				log.Error("cleanup job stopped", zap.Error(err))
			}
		}()
	} else {
		log.Warn("cleanup job disabled, postgres unavailable")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown api app", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api server failed", zap.Error(err))
		}
	}
}
