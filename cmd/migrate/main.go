package main

import (
	"fmt"
	"log"
	"os"

	"cryptoexchange/internal/config"
	"cryptoexchange/internal/db"
	"cryptoexchange/internal/logger"

	"go.uber.org/zap"
)

func main() {
	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, !cfg.IsProduction())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	switch direction {
	case "up":
		err = db.MigrateUp(cfg.DatabaseURL)
	case "down":
		err = db.MigrateDown(cfg.DatabaseURL)
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [up|down]\n", os.Args[0])
		os.Exit(2)
	}
	if err != nil {
		zl.Fatal("migration failed", zap.String("direction", direction), zap.Error(err))
	}
	zl.Info("migrations applied", zap.String("direction", direction))
}
