package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/tournament-fixtures/brackets"
	"github.com/Dosada05/tournament-fixtures/config"
	"github.com/Dosada05/tournament-fixtures/db"
	"github.com/Dosada05/tournament-fixtures/handlers"
	"github.com/Dosada05/tournament-fixtures/realtime"
	"github.com/Dosada05/tournament-fixtures/repositories"
	api "github.com/Dosada05/tournament-fixtures/routes"
	"github.com/Dosada05/tournament-fixtures/services"
	"github.com/Dosada05/tournament-fixtures/storage"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("application stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("fixture_store", cfg.FixtureStore),
		slog.Bool("archive", cfg.ArchiveEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	if err := db.EnsureSchema(ctx, dbConn); err != nil {
		return err
	}
	logger.Info("database connection established")

	// Инициализация репозиториев
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	fixtureRepo, err := newFixtureRepository(ctx, cfg, dbConn, logger)
	if err != nil {
		return err
	}
	logger.Info("repositories initialized")

	// Архив раундов в Cloudflare R2 (необязателен)
	var archive services.Archiver
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		archive = storage.NewFixtureArchive(uploader)
		logger.Info("fixture archive initialized", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Warn("R2 is not configured, replaced fixtures will not be archived")
	}

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go wsHub.Run(hubCtx)
	logger.Info("websocket hub started")

	// Инициализация сервисов
	tournamentService := services.NewTournamentService(tournamentRepo, teamRepo, fixtureRepo, logger)
	registrationService := services.NewRegistrationService(tournamentRepo, teamRepo, logger)
	fixtureService := services.NewFixtureService(
		tournamentRepo,
		teamRepo,
		fixtureRepo,
		brackets.NewRoundRobinGenerator(nil),
		archive,
		wsHub,
		logger,
		cfg.ScoreReportMaxAttempts,
	)
	logger.Info("services initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{
			JWTSecret:      []byte(cfg.JWTSecretKey),
			AllowedOrigins: cfg.CORSAllowedOrigins,
			RequestTimeout: 10 * time.Second,
		},
		handlers.NewTournamentHandler(tournamentService),
		handlers.NewTeamHandler(registrationService),
		handlers.NewFixtureHandler(fixtureService),
		handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
	// Hub закрываем первым: websocket-соединения не завершаются через Shutdown
	stopHub()
	if err := server.Shutdown(shutdownCtx); err != nil {
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server shutdown complete")
	return nil
}

func newFixtureRepository(ctx context.Context, cfg *config.Config, dbConn *sql.DB, logger *slog.Logger) (repositories.FixtureRepository, error) {
	if cfg.FixtureStore != config.FixtureStoreDynamoDB {
		return repositories.NewPostgresFixtureRepository(dbConn), nil
	}

	client, err := db.NewDynamoClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
	if err != nil {
		return nil, err
	}
	if cfg.DynamoEndpoint != "" {
		// локальный DynamoDB: таблицу создаём сами
		if err := db.EnsureFixturesTable(ctx, client, cfg.DynamoFixturesTable); err != nil {
			return nil, err
		}
	}
	logger.Info("fixtures stored in DynamoDB",
		slog.String("table", cfg.DynamoFixturesTable),
		slog.String("region", cfg.AWSRegion))
	return repositories.NewDynamoFixtureRepository(client, cfg.DynamoFixturesTable), nil
}
