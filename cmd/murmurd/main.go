package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"murmur/internal/platform/privacylog"
	"murmur/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "murmurd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		// Without a config file the secret must come from the environment.
		cfg.Auth.TokenSecret = os.Getenv("MURMURD_TOKEN_SECRET")
		if len(cfg.Auth.TokenSecret) < 32 {
			return fmt.Errorf("MURMURD_TOKEN_SECRET must be at least 32 bytes")
		}
	}

	log := slog.New(privacylog.WrapHandler(
		slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.Log.Level)}),
	))
	slog.SetDefault(log)
	log.Info("configuration loaded",
		slog.String("listen", cfg.Listen),
		slog.String("redis", cfg.Redis.Addr),
		slog.String("token_secret", privacylog.Redacted(cfg.Auth.TokenSecret)),
	)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis at %s: %w", cfg.Redis.Addr, err)
	}

	srv, err := server.New(cfg, rdb, log, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
