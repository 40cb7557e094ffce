package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/earnings-gateway/internal/api"
	"github.com/trogers1052/earnings-gateway/internal/config"
	"github.com/trogers1052/earnings-gateway/internal/database"
	"github.com/trogers1052/earnings-gateway/internal/gateway"
	"github.com/trogers1052/earnings-gateway/internal/kafka"
	"github.com/trogers1052/earnings-gateway/internal/lock"
	"github.com/trogers1052/earnings-gateway/internal/models"
	"github.com/trogers1052/earnings-gateway/internal/sheets"
	"github.com/trogers1052/earnings-gateway/internal/table"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting earnings gateway",
		"backend", cfg.Table.Backend,
		"table", cfg.Table.Name,
		"addr", cfg.Server.Addr(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open table", "backend", cfg.Table.Backend, "error", err)
		os.Exit(1)
	}
	defer b.close()

	opts := []gateway.Option{
		gateway.WithTableName(cfg.Table.Name),
		gateway.WithKeyColumns(cfg.Table.KeyColumn, cfg.Table.DateColumn),
		gateway.WithResultColumn(cfg.Table.ResultColumn),
		gateway.WithUpdateColumnLimit(cfg.Table.UpdateColumnLimit),
		gateway.WithLogger(logger),
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		opts = append(opts, gateway.WithLocker(lock.NewRedis(client, cfg.Redis.LockKey, cfg.Redis.LockTTL, logger)))
		logger.Info("using redis write lock", "addr", cfg.Redis.Addr, "key", cfg.Redis.LockKey)
	}

	kafkaEnabled := len(cfg.Kafka.Brokers) > 0
	if kafkaEnabled && cfg.Kafka.Topic != "" {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		opts = append(opts, gateway.WithPublisher(producer))
		logger.Info("publishing record events", "topic", cfg.Kafka.Topic)
	}

	gw := gateway.New(b.store, opts...)

	if kafkaEnabled && cfg.Kafka.TradeTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TradeTopic, cfg.Kafka.GroupID, gw, b.audit, logger)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				logger.Error("kafka consumer stopped", "error", err)
			}
		}()
	}

	handler := api.NewHandler(gw, logger)
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handler, cfg.Server.AllowedOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}

	logger.Info("earnings gateway stopped")
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Load()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// backend is the configured table plus whatever it holds open
type backend struct {
	store table.Table
	audit kafka.TradeAuditLog
	close func()
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.Table.Backend {
	case config.BackendSheets:
		id, err := sheets.SpreadsheetID(cfg.Sheets.URL)
		if err != nil {
			return nil, err
		}

		service, err := sheets.NewService(ctx, cfg.Sheets.Credentials)
		if err != nil {
			return nil, err
		}

		logger.Info("using google sheet", "spreadsheet", id, "sheet", cfg.Table.Name)
		return &backend{store: sheets.New(service, id, cfg.Table.Name), close: func() {}}, nil

	case config.BackendPostgres:
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			return nil, err
		}

		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}

		store := db.Sheet(cfg.Table.Name)
		created, err := store.EnsureSheet(ctx, models.EarningsHeaders)
		if err != nil {
			db.Close()
			return nil, err
		}

		logger.Info("using postgres sheet",
			"host", cfg.Database.Host,
			"database", cfg.Database.DBName,
			"created", created,
		)
		// trade events are audited alongside the sheet
		return &backend{store: store, audit: db, close: func() { db.Close() }}, nil

	default:
		logger.Warn("using in-memory table, records are lost on exit")
		return &backend{store: table.NewMemory(models.EarningsHeaders...), close: func() {}}, nil
	}
}
