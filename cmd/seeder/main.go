package main

import (
	"context"
	"log/slog"
	"os"

	"hr-request-backend/config"
	"hr-request-backend/internal/database"

	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	logger.Info("starting database seeding")

	// Load .env manual karena ini script terpisah
	if err := godotenv.Load(); err != nil {
		logger.Warn(".env not found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := config.OpenDatabase(cfg, logger)
	if err != nil {
		logger.Error("database unavailable", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Tabel harus sudah ada: jalankan `migrate apply` terlebih dahulu
	if err := database.SeedAll(context.Background(), db, logger); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("seeding finished")
}
