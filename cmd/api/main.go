package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hr-request-backend/config"
	"hr-request-backend/internal/clock"
	"hr-request-backend/internal/handler"
	"hr-request-backend/internal/metrics"
	"hr-request-backend/internal/middleware"
	"hr-request-backend/internal/migration"
	"hr-request-backend/internal/notify"
	"hr-request-backend/internal/repository"
	"hr-request-backend/internal/routes"
	"hr-request-backend/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env not found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(log)

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := config.OpenDatabase(cfg, log)
	if err != nil {
		log.Error("database unavailable", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Schema runner jalan di background, tidak menahan liveness
	runner := migration.NewRunner(migration.NewGormSchema(db), log, m)
	if cfg.MigrateOnStart {
		go func() {
			reports, err := runner.Apply(ctx, migration.TargetSteps())
			if err != nil {
				log.Warn("schema apply interrupted", slog.String("error", err.Error()))
				return
			}
			failed := 0
			for _, r := range reports {
				if r.Outcome == migration.OutcomeFailed {
					failed++
				}
			}
			log.Info("schema apply finished", slog.Int("steps", len(reports)), slog.Int("failed", failed))
		}()
	}

	var notifier usecase.ReviewerNotifier = notify.NewLogNotifier(log, cfg.Location)
	if cfg.SMTP.Enabled() {
		notifier = notify.NewMailNotifier(cfg.SMTP, cfg.Location)
	}

	store := repository.NewStore(db)
	requests := usecase.NewRequestUsecase(usecase.Deps{
		Store: store,
		Clock: clock.New(cfg.Location),
		Policy: usecase.Policy{
			MaxPerMonth: cfg.PermissionMaxPerMonth,
			MaxDuration: cfg.PermissionMaxDuration,
			Window:      cfg.PermissionWindow,
		},
		Notifier: notifier,
		Logger:   log,
		Metrics:  m,
	})

	app := fiber.New(fiber.Config{AppName: "hr-request-backend"})

	// Middleware Global
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n"}))
	app.Use(cors.New())

	auth := middleware.Auth(cfg.JWTSecret)
	routes.SetupSystemRoutes(app, func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}, reg)
	routes.SetupRequestRoutes(app, handler.NewRequestHandler(requests, cfg.Location, log), auth)
	routes.SetupHolidayRoutes(app, handler.NewHolidayHandler(store.Repositories().Holidays, cfg.Location, log), auth)
	routes.SetupSchemaRoutes(app, handler.NewSchemaHandler(runner, migration.TargetSteps, log), auth)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("shutdown", slog.String("error", err.Error()))
		}
	}()

	log.Info("server listening", slog.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
