package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/gomarket-cart/internal/adapter/codec"
	"github.com/rl1809/gomarket-cart/internal/adapter/handler"
	"github.com/rl1809/gomarket-cart/internal/adapter/storage"
	"github.com/rl1809/gomarket-cart/internal/config"
	"github.com/rl1809/gomarket-cart/internal/core/service"
	"github.com/rl1809/gomarket-cart/internal/logger"
	"github.com/rl1809/gomarket-cart/internal/metrics"
	"github.com/rl1809/gomarket-cart/internal/port"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg, logCloser, err := logger.New(cfg.Log, cfg.App.Name, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logCloser.Close()

	if err := run(cfg, logg); err != nil {
		logg.Error("cart server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logg *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	repo, closeRepo, err := openRepository(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer closeRepo()

	grpcHandler := handler.NewGRPCHandler()
	m := metrics.New("cart")

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPC.Addr, err)
	}

	// Initialize store, the only read of the snapshot happens here
	store, err := service.Open(ctx, repo, codec.NewJSONCodec(),
		service.WithKey(cfg.Storage.Key),
		service.WithLogger(logg.With("component", "cart_store")),
		service.WithRecorder(m),
		service.WithWriterConfig(service.WriterConfig{
			Workers:      cfg.Writer.Workers,
			QueueSize:    cfg.Writer.QueueSize,
			MaxRetries:   cfg.Writer.MaxRetries,
			RetryBackoff: cfg.Writer.RetryBackoff,
			Timeout:      cfg.Writer.Timeout,
		}),
	)
	if err != nil {
		lis.Close()
		return fmt.Errorf("open cart store: %w", err)
	}
	grpcHandler.MarkReady()
	logg.Info("cart store ready", "driver", cfg.Storage.Driver, "version", store.Version())

	// Initialize HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(store, logg.With("component", "http")).Routes(mux)
	mux.Handle("GET /metrics", m.Handler())

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logg.Info("gRPC server listening", "addr", cfg.GRPC.Addr)
		if err := grpcHandler.Server().Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logg.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		httpServer.Shutdown(shutdownCtx)
		logg.Info("HTTP server stopped")

		grpcHandler.Shutdown()
		logg.Info("gRPC server stopped")

		if err := store.Close(shutdownCtx); err != nil {
			logg.Error("pending cart snapshots not flushed", "err", err)
		}
		stats := store.Stats()
		logg.Info("cart store closed",
			"written", stats.Written,
			"failed", stats.Failed,
			"stale", stats.Stale,
			"dropped", stats.Dropped,
		)
		return nil
	})

	return g.Wait()
}

func openRepository(ctx context.Context, cfg config.Config, logg *slog.Logger) (port.KeyValueRepository, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		logg.Warn("using in-memory storage, the cart will not survive a restart")
		return storage.NewMemoryAdapter(), func() {}, nil

	case "file":
		adapter, err := storage.NewFileAdapter(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		logg.Info("using file storage", "dir", cfg.Storage.Dir)
		return adapter, func() {}, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		logg.Info("connected to redis", "addr", cfg.Redis.Addr)
		return storage.NewRedisAdapter(rdb), func() { rdb.Close() }, nil

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logg.Info("connected to mysql")
		return adapter, func() { db.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
