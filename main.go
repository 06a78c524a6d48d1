package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"medcost/config"
	"medcost/db"
	mhttp "medcost/http"
	"medcost/logger"
	"medcost/ml"
	"medcost/monitoring"
)

func main() {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize database (training log only)
	var lastRun func(string) (*db.TrainingRun, error)
	if cfg.Database.Path != "" {
		if err := db.InitDB(cfg.Database.Path); err != nil {
			zlog.Warn("training log unavailable", zap.String("path", cfg.Database.Path), zap.Error(err))
		} else {
			lastRun = db.LatestTrainingRun
			zlog.Info("database initialized", zap.String("path", cfg.Database.Path))
		}
	}

	// 3. Model store and predictor
	store, err := ml.NewModelStore(cfg.ML.CacheSize, zlog)
	if err != nil {
		zlog.Fatal("failed to create model store", zap.Error(err))
	}
	if cfg.ML.WatchModel {
		if err := store.Watch(ctx, cfg.ML.ModelPath); err != nil {
			zlog.Warn("model watch disabled", zap.Error(err))
		}
	}
	predictor := ml.NewPredictor(store, cfg.ML.ModelPath)
	if _, err := predictor.Model(); err != nil {
		zlog.Warn("model not loaded yet", zap.String("path", cfg.ML.ModelPath), zap.Error(err))
	}

	// 4. Start HTTP server
	metrics := monitoring.NewMetrics()
	handler := mhttp.NewHandler(mhttp.HandlerConfig{
		Predictor: predictor,
		Metrics:   metrics,
		Logger:    zlog,
		LastRun:   lastRun,
	})
	server := mhttp.NewServer(mhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, handler, metrics, zlog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	select {
	case <-ctx.Done():
		zlog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			zlog.Error("http server failed", zap.Error(err))
		}
	}

	err = multierr.Combine(
		server.Stop(context.Background()),
		store.Close(),
	)
	if lastRun != nil {
		err = multierr.Append(err, db.Close())
	}
	if err != nil {
		zlog.Error("shutdown", zap.Error(err))
	}
	zlog.Info("exiting")
}

// loadConfig reads config.yaml from the working directory, falling back to the parent
// directory when started from a subdirectory.
func loadConfig() (*config.Config, error) {
	for _, path := range []string{"config.yaml", "../config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return config.Load(path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return config.Load("config.yaml")
}
