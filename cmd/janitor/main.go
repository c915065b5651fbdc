// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command janitor removes expired email verification tokens and exits.
//
// It is meant to run from cron. Login challenges need no sweep because they
// expire in Redis by TTL.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/taibuivan/alphasource/internal/platform/config"
	pgstore "github.com/taibuivan/alphasource/internal/platform/postgres"
	"github.com/taibuivan/alphasource/internal/users/auth"
)

// runTimeout bounds a single janitor run.
const runTimeout = 2 * time.Minute

func main() {
	cfg, err := config.LoadJanitor()
	if err != nil {
		slog.Error("startup failure", slog.String("context", "load configuration"), slog.Any("error", err))
		os.Exit(1)
	}

	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Debug {
		options.Level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, options)).With(slog.String("app", "alphasource-janitor"))
	slog.SetDefault(log)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("startup failure", slog.String("context", "connect to postgres"), slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	purged, err := auth.NewVerificationTokenRepository(pool).PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		log.Error("verification_token_purge_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("verification_tokens_purged", slog.Int64("count", purged))
}
