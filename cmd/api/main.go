package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/strongfeels/bitbattle/internal/api"
	"github.com/strongfeels/bitbattle/internal/api/handlers"
	"github.com/strongfeels/bitbattle/internal/config"
	"github.com/strongfeels/bitbattle/internal/domain/aiproblem"
	"github.com/strongfeels/bitbattle/internal/domain/auth"
	"github.com/strongfeels/bitbattle/internal/domain/matchmaking"
	"github.com/strongfeels/bitbattle/internal/domain/problem"
	"github.com/strongfeels/bitbattle/internal/domain/rating"
	"github.com/strongfeels/bitbattle/internal/domain/room"
	"github.com/strongfeels/bitbattle/internal/domain/submission"
	"github.com/strongfeels/bitbattle/internal/infrastructure/cache"
	"github.com/strongfeels/bitbattle/internal/infrastructure/db"
	"github.com/strongfeels/bitbattle/internal/infrastructure/executor"
	"github.com/strongfeels/bitbattle/internal/websocket"
	"github.com/strongfeels/bitbattle/pkg/logger"
	"github.com/strongfeels/bitbattle/pkg/metrics"
)

// matchmakingTickInterval - как часто очередь пытается собрать пары
const matchmakingTickInterval = 2 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Async:  cfg.Logging.Async,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting BitBattle API Server", zap.Int("port", cfg.Server.Port))

	m := metrics.New()

	database, err := db.New(&cfg.Database, log, m)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	log.Info("Connected to database", zap.String("host", cfg.Database.Host), zap.Int("port", cfg.Database.Port))

	if err := database.Health(context.Background()); err != nil {
		log.Fatal("Database health check failed", zap.Error(err))
	}

	redisCache, err := cache.New(&cfg.Redis, log, m)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	log.Info("Connected to Redis", zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))

	// Репозитории
	userRepo := db.NewUserRepository(database)
	refreshTokenRepo := db.NewRefreshTokenRepository(database)
	userStatsRepo := db.NewUserStatsRepository(database)
	aiProblemRepo := db.NewAIProblemRepository(database)
	historyRepo := db.NewPlayerProblemHistoryRepository(database)

	tokenBlacklist := cache.NewTokenBlacklistCache(redisCache)
	rateLimiter := cache.NewRateLimiter(redisCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	roomTable := room.NewTable(ctx, wsHub, log, 0, 0)
	go roomTable.RunReaper(ctx, time.Minute)

	problemRegistry := problem.NewRegistry(aiProblemRepo, historyRepo, log)
	ratingService := rating.NewService(userStatsRepo, log)
	matchQueue := matchmaking.NewQueue(roomTable, problemRegistry, log)

	sandboxExecutor, err := executor.NewExecutor(cfg.Sandbox, log)
	if err != nil {
		log.Fatal("Failed to initialize sandbox executor", zap.Error(err))
	}
	defer func() { _ = sandboxExecutor.Close() }()

	submissionPipeline := submission.NewPipeline(problemRegistry, sandboxExecutor, roomTable, ratingService, log)

	if cfg.AI.Enabled {
		aiProvider := aiproblem.NewOpenAIProvider(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.DefaultRetryWait)
		aiLoop := aiproblem.NewLoop(
			aiProblemRepo,
			aiProvider,
			sandboxExecutor,
			log,
			cfg.AI.TickInterval,
			aiproblem.Floors{Easy: cfg.AI.PoolFloorEasy, Medium: cfg.AI.PoolFloorMedium, Hard: cfg.AI.PoolFloorHard},
			cfg.AI.MaxAttempts,
		)
		go aiLoop.Run(ctx)
	}

	go func() {
		ticker := time.NewTicker(matchmakingTickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				matchQueue.ProcessTick(ctx)
			}
		}
	}()

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
	})
	authService := auth.NewService(userRepo, refreshTokenRepo, oauthProvider, jwtManager, tokenBlacklist, log)

	authHandler := handlers.NewAuthHandler(authService, oauthProvider, cfg.Server.FrontendURL, log)
	problemHandler := handlers.NewProblemHandler(problemRegistry, log)
	submissionHandler := handlers.NewSubmissionHandler(submissionPipeline, log)
	matchmakingHandler := handlers.NewMatchmakingHandler(matchQueue, log)
	roomsHandler := handlers.NewRoomsHandler(roomTable, log)
	userHandler := handlers.NewUserHandler(userRepo, userStatsRepo, log)
	wsHandler := handlers.NewWebSocketHandler(wsHub, roomTable, log)
	systemHandler := handlers.NewSystemHandler(database, log)

	apiServer := api.NewServer(
		authHandler,
		problemHandler,
		submissionHandler,
		matchmakingHandler,
		roomsHandler,
		userHandler,
		wsHandler,
		systemHandler,
		authService,
		rateLimiter,
		cfg.CORS,
		cfg.RateLimit,
		log,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())

		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           metricsMux,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.Info("Metrics server listening", zap.String("addr", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Metrics server error", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("API server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("API server forced to shutdown", zap.Error(err))
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("Metrics server forced to shutdown", zap.Error(err))
		}
	}

	cancel()

	log.Info("Servers stopped gracefully")
}
