// Package main wires together the game service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/okriker/wikibingo/internal/api"
	archivegcs "github.com/okriker/wikibingo/internal/archive/gcs"
	archivemem "github.com/okriker/wikibingo/internal/archive/memory"
	"github.com/okriker/wikibingo/internal/bingo"
	"github.com/okriker/wikibingo/internal/clock/system"
	"github.com/okriker/wikibingo/internal/config"
	"github.com/okriker/wikibingo/internal/fetcher"
	"github.com/okriker/wikibingo/internal/id/uuid"
	"github.com/okriker/wikibingo/internal/logging"
	"github.com/okriker/wikibingo/internal/metrics"
	"github.com/okriker/wikibingo/internal/nav"
	"github.com/okriker/wikibingo/internal/pool"
	memorypublisher "github.com/okriker/wikibingo/internal/publisher/memory"
	pubsubpublisher "github.com/okriker/wikibingo/internal/publisher/pubsub"
	"github.com/okriker/wikibingo/internal/recorder"
	"github.com/okriker/wikibingo/internal/resolver"
	storememory "github.com/okriker/wikibingo/internal/store/memory"
	storepostgres "github.com/okriker/wikibingo/internal/store/postgres"
	"github.com/okriker/wikibingo/internal/wiki"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal("snapshot store init failed", zap.Error(err))
	}
	defer closeStore()

	blobs, closeBlobs, err := buildBlobStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}
	defer closeBlobs()

	publisher, closePublisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	defer closePublisher()

	wikiClient := wiki.New(wiki.Config{
		BaseURL:   cfg.Source.BaseURL,
		UserAgent: cfg.Source.UserAgent,
		Timeout:   cfg.SourceTimeout(),
	}, logger.Named("wiki"))

	registry := api.NewRegistry(api.GameDeps{
		Source:    wikiClient,
		Redirects: wikiClient,
		Pool:      pool.NewMemory(),
		Recorder:  recorder.New(store, blobs, publisher, logger.Named("recorder")),
		Clock:     system.New(),
		IDGen:     uuid.New(),
		Logger:    logger.Named("game"),
		Resolver: resolver.Config{
			CacheCapacity: cfg.Resolver.CacheCapacity,
			Timeout:       cfg.ResolverTimeout(),
		},
		Fetcher: fetcher.Config{
			CacheCapacity: cfg.Fetcher.CacheCapacity,
			RetryDelays:   cfg.RetryDelays(),
		},
		Nav: nav.Config{Debounce: cfg.Debounce()},
	})

	apiServer := api.NewServer(registry, store, api.ServerConfig{
		NavigateTimeout: cfg.NavigateTimeout(),
	}, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildStore(ctx context.Context, cfg config.Config) (bingo.SessionStore, func(), error) {
	if cfg.DB.DSN == "" {
		return storememory.NewSnapshotStore(), func() {}, nil
	}
	store, err := storepostgres.NewSnapshotStore(ctx, storepostgres.SnapshotStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func buildBlobStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (bingo.BlobStore, func(), error) {
	if cfg.Storage.GCSBucket == "" {
		return archivemem.New(), func() {}, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	blobs, err := archivegcs.New(client, archivegcs.Config{
		Bucket: cfg.Storage.GCSBucket,
		Prefix: cfg.Storage.Prefix,
	})
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := client.Close(); err != nil {
			logger.Warn("storage client close failed", zap.Error(err))
		}
	}
	return blobs, closer, nil
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (bingo.Publisher, func(), error) {
	if cfg.PubSub.ProjectID == "" {
		return memorypublisher.New(), func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(cfg.PubSub.TopicName)
	closer := func() {
		topic.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	return pubsubpublisher.New(topic), closer, nil
}
