package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moodlog/moodlog/internal/activities"
	"github.com/moodlog/moodlog/internal/app"
	"github.com/moodlog/moodlog/internal/auth"
	"github.com/moodlog/moodlog/internal/observability"
	"github.com/moodlog/moodlog/internal/platform/db"
	"github.com/moodlog/moodlog/internal/platform/redisclient"
	"github.com/moodlog/moodlog/internal/shared"
	"github.com/moodlog/moodlog/internal/users"
	"github.com/moodlog/moodlog/internal/view"
)

const sessionCookieName = "moodlog_session"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if app.ParseCommand(os.Args[1:]) == app.CommandInitDB {
		initDB()
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	if err := serve(cfg, logger); err != nil {
		logger.Error("serve", slog.Any("error", err))
		os.Exit(1)
	}
}

func initDB() {
	cfg, err := app.LoadMigrateConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := cfg.Logger()
	if err := db.Migrate(cfg.PGDSN); err != nil {
		logger.Error("init database", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database initialized")
}

func serve(cfg *app.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := redisclient.New(ctx, redisclient.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, sessionCookieName, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	access := auth.Middleware{Users: usersService, Logger: logger}

	authService := auth.NewService(usersRepo, cfg.BcryptCost)
	authHandler := auth.NewHandler(logger, authService, templates, csrfManager, access, metrics)

	activitiesService := activities.NewService(activities.NewRepository(dbpool), usersService)
	activitiesHandler := activities.NewHandler(logger, activitiesService, templates, csrfManager, access, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Templates:         templates,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		Access:            access,
		AuthHandler:       authHandler,
		ActivitiesHandler: activitiesHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
