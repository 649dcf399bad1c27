// Package store provides journal backend initialization for the autoscaler.
//
// This package acts as a factory for creating journal.Journal implementations
// based on the autoscaler configuration. It supports two backends:
//
//   - Memory: In-memory journal (default) - suitable for single-instance
//     deployments and development. Decision history is lost on restart.
//
//   - Redis: Redis-backed journal - keeps decision history across restarts
//     and makes it visible to other instances and tooling.
//
// The factory performs fail-fast initialization, validating connectivity
// during startup and exiting immediately if the backend is unavailable.
// This ensures the autoscaler never runs with a broken journal
// configuration.
//
// Usage:
//
//	jnl := store.New(cfg, logger)
//	defer func() {
//	    if closer, ok := jnl.(interface{ Close() error }); ok {
//	        closer.Close()
//	    }
//	}()
package store

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/DRAJ6/replicactl/cmd/autoscaler/config"
	"github.com/DRAJ6/replicactl/pkg/journal"
)

// New creates and initializes a journal backend based on the provided
// configuration.
//
// The function performs fail-fast validation, establishing and verifying the
// store connection during initialization. If the backend is unavailable or
// misconfigured, the process exits immediately with os.Exit(1).
//
// Supported backends:
//
//   - "memory": In-memory journal capped per target. No external
//     dependencies. History lost on restart.
//
//   - "redis": Redis-backed journal with per-target capped lists and
//     optional TTL. Requires a Redis server; connection parameters come
//     from cfg.Redis*.
//
// Returns a journal.Journal ready for use. Never returns nil; calls
// os.Exit(1) on initialization failure.
func New(cfg *config.Config, logger *slog.Logger) journal.Journal {
	switch cfg.Store {
	case "redis":
		logger.Info("initializing redis journal",
			"addr", cfg.RedisAddr,
			"db", cfg.RedisDB,
			"keep", cfg.JournalKeep,
			"ttl", cfg.RedisTTL,
		)
		redisJournal, err := journal.NewRedisJournal(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, int64(cfg.JournalKeep), cfg.RedisTTL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisJournal.Ping(ctx); err != nil {
			logger.Error("redis health check failed", "error", err)
			os.Exit(1)
		}
		logger.Info("redis journal initialized successfully")

		return redisJournal

	case "memory":
		logger.Info("initializing in-memory journal")
		return journal.NewMemoryJournal(cfg.JournalKeep)

	default:
		logger.Error("invalid store type", "store", cfg.Store)
		os.Exit(1)
	}

	return nil
}
