package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/strongfeels/bitbattle/internal/api/handlers"
	"github.com/strongfeels/bitbattle/internal/api/middleware"
	"github.com/strongfeels/bitbattle/internal/config"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// Server представляет HTTP сервер
type Server struct {
	router             *chi.Mux
	authHandler        *handlers.AuthHandler
	problemHandler     *handlers.ProblemHandler
	submissionHandler  *handlers.SubmissionHandler
	matchmakingHandler *handlers.MatchmakingHandler
	roomsHandler       *handlers.RoomsHandler
	userHandler        *handlers.UserHandler
	wsHandler          *handlers.WebSocketHandler
	systemHandler      *handlers.SystemHandler
	authService        middleware.AuthService
	rateLimiter        middleware.RateLimiter
	corsConfig         config.CORSConfig
	rateLimitConfig    config.RateLimitConfig
	log                *logger.Logger
}

// NewServer создаёт новый HTTP сервер
func NewServer(
	authHandler *handlers.AuthHandler,
	problemHandler *handlers.ProblemHandler,
	submissionHandler *handlers.SubmissionHandler,
	matchmakingHandler *handlers.MatchmakingHandler,
	roomsHandler *handlers.RoomsHandler,
	userHandler *handlers.UserHandler,
	wsHandler *handlers.WebSocketHandler,
	systemHandler *handlers.SystemHandler,
	authService middleware.AuthService,
	rateLimiter middleware.RateLimiter,
	corsConfig config.CORSConfig,
	rateLimitConfig config.RateLimitConfig,
	log *logger.Logger,
) *Server {
	s := &Server{
		router:             chi.NewRouter(),
		authHandler:        authHandler,
		problemHandler:     problemHandler,
		submissionHandler:  submissionHandler,
		matchmakingHandler: matchmakingHandler,
		roomsHandler:       roomsHandler,
		userHandler:        userHandler,
		wsHandler:          wsHandler,
		systemHandler:      systemHandler,
		authService:        authService,
		rateLimiter:        rateLimiter,
		corsConfig:         corsConfig,
		rateLimitConfig:    rateLimitConfig,
		log:                log,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware настраивает базовые middleware, общие для всех маршрутов.
// Поточечные лимиты (submit/auth/matchmaking) навешиваются отдельно в setupRoutes.
func (s *Server) setupMiddleware() {
	s.router.Use(chiMiddleware.RequestID)
	s.router.Use(chiMiddleware.RealIP)
	s.router.Use(chiMiddleware.Logger)
	s.router.Use(chiMiddleware.Recoverer)

	s.router.Use(middleware.SecureHeaders())
	s.router.Use(middleware.Compress())
	s.router.Use(middleware.SmartTimeout(middleware.DefaultTimeoutConfig()))

	if s.rateLimitConfig.Enabled {
		s.router.Use(middleware.RateLimit(
			s.rateLimiter,
			s.rateLimitConfig.Burst(s.rateLimitConfig.GeneralRPS),
			time.Second,
			s.log,
		))
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsConfig.AllowedOrigins,
		AllowedMethods:   s.corsConfig.AllowedMethods,
		AllowedHeaders:   s.corsConfig.AllowedHeaders,
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           s.corsConfig.MaxAge,
	}))
}

// rateLimited навешивает на группу маршрутов отдельный, более строгий лимит
func (s *Server) rateLimited(rps int) func(http.Handler) http.Handler {
	return middleware.RateLimit(s.rateLimiter, s.rateLimitConfig.Burst(rps), time.Second, s.log)
}

// setupRoutes настраивает маршруты
func (s *Server) setupRoutes() {
	s.router.Get("/", s.systemHandler.Live)
	s.router.Get("/health", s.systemHandler.GetHealth)
	s.router.Get("/ready", s.systemHandler.Ready)

	s.router.Get("/problems", s.problemHandler.List)
	s.router.Get("/problems/{id}", s.problemHandler.Get)

	s.router.Get("/rooms/live", s.roomsHandler.Live)

	s.router.Get("/leaderboard", s.userHandler.Leaderboard)
	s.router.Route("/users/{id}", func(r chi.Router) {
		r.Get("/profile", s.userHandler.Profile)
		r.Get("/history", s.userHandler.History)
	})

	s.router.Group(func(r chi.Router) {
		if s.rateLimitConfig.Enabled {
			r.Use(s.rateLimited(s.rateLimitConfig.SubmitRPS))
		}
		r.Use(middleware.OptionalAuth(s.authService, s.log))
		r.Post("/submit", s.submissionHandler.Submit)
	})

	s.router.Route("/auth", func(r chi.Router) {
		if s.rateLimitConfig.Enabled {
			r.Use(s.rateLimited(s.rateLimitConfig.AuthRPS))
		}

		r.Get("/google", s.authHandler.GoogleLogin)
		r.Get("/callback", s.authHandler.Callback)
		r.Post("/refresh", s.authHandler.Refresh)
		r.Post("/logout", s.authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(s.authService, s.log))
			r.Get("/me", s.authHandler.Me)
			r.Post("/set-username", s.authHandler.SetUsername)
			r.Post("/logout-all", s.authHandler.LogoutAll)
		})
	})

	s.router.Route("/matchmaking", func(r chi.Router) {
		if s.rateLimitConfig.Enabled {
			r.Use(s.rateLimited(s.rateLimitConfig.MatchmakingRPS))
		}
		r.Use(middleware.OptionalAuth(s.authService, s.log))

		r.Post("/join", s.matchmakingHandler.Join)
		r.Post("/leave", s.matchmakingHandler.Leave)
		r.Get("/status", s.matchmakingHandler.Status)
	})

	s.router.Route("/ws", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(s.authService, s.log))
		r.Get("/", s.wsHandler.HandlePlay)
		r.Get("/spectate", s.wsHandler.HandleSpectate)
		r.Get("/stats", s.wsHandler.GetStats)
	})
}

// Handler возвращает HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP реализует интерфейс http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
