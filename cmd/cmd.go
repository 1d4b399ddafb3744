package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"linkup-backend/internal/config"
	"linkup-backend/internal/handlers"
	"linkup-backend/internal/middleware"
	"linkup-backend/internal/pubsub"
	"linkup-backend/internal/repository"
	"linkup-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	// Initialize stores
	userRepo, requestRepo, closeStore := openStores(cfg)
	defer closeStore()

	// Initialize notification broker
	broker, err := pubsub.New(pubsub.Config{
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		BufferSize:    cfg.Notify.BufferSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to notification broker")
	}
	defer broker.Close()
	if cfg.Redis.Addr != "" {
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis broker connected")
	} else {
		log.Info().Msg("Using in-process notification broker")
	}

	transports := []services.Transport{services.NewBrokerTransport(broker)}
	if cfg.Notify.APNs.Enabled {
		apnsClient, err := services.NewAPNsClient(cfg.Notify.APNs)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs client")
		}
		transports = append(transports, services.NewAPNsTransport(userRepo, apnsClient, cfg.Notify.APNs.Topic))
		log.Info().Bool("production", cfg.Notify.APNs.Production).Msg("APNs push enabled")
	}

	// Initialize services
	dispatcher := services.NewNotificationDispatcher(cfg.Notify.ChannelPrefix, cfg.Notify.Timeout, transports...)
	subscriber := services.NewEventSubscriber(broker, cfg.Notify.ChannelPrefix, cfg.Notify.BufferSize)
	userService := services.NewUserService(userRepo, cfg.JWT.Secret, cfg.JWT.TTLDays)
	directoryService := services.NewDirectoryService(userRepo, requestRepo)
	friendRequestService := services.NewFriendRequestService(requestRepo, userRepo, dispatcher)
	wsHub := services.NewWSHub()

	var avatarHandler *handlers.AvatarHandler
	if cfg.AWS.S3Bucket != "" {
		presigner, err := services.NewS3Presigner(context.Background(), cfg.AWS)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 presigner")
		}
		avatarService := services.NewAvatarService(userRepo, presigner, cfg.AWS.S3Bucket, cfg.AWS.PublicBaseURL)
		avatarHandler = handlers.NewAvatarHandler(avatarService)
	}

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	directoryHandler := handlers.NewDirectoryHandler(directoryService, wsHub)
	friendRequestHandler := handlers.NewFriendRequestHandler(friendRequestService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService, subscriber, friendRequestService, cfg.Server.AllowedOrigins)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Get("/users", directoryHandler.Recommend)
			r.Get("/users/search", directoryHandler.Search)
			r.Get("/users/friends", directoryHandler.ListFriends)

			r.Get("/users/me", userHandler.GetMe)
			r.Put("/users/me/onboarding", userHandler.CompleteOnboarding)
			r.Put("/users/me/push-token", userHandler.UpdatePushToken)
			if avatarHandler != nil {
				r.Post("/users/me/avatar/upload", avatarHandler.CreateUploadURL)
				r.Put("/users/me/avatar", avatarHandler.ConfirmUpload)
			}

			r.Get("/users/friend-requests", friendRequestHandler.ListRequests)
			r.Post("/users/friend-requests/{id}", friendRequestHandler.SendRequest)
			r.Put("/users/friend-requests/{id}/accept", friendRequestHandler.AcceptRequest)
			r.Put("/users/friend-requests/{id}/reject", friendRequestHandler.RejectRequest)
			r.Get("/users/outgoing-friend-requests", friendRequestHandler.ListOutgoing)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("store", cfg.Store.Driver).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown
	wsHub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStores returns the user and friend request stores for the configured driver
func openStores(cfg *config.Config) (repository.UserStore, repository.FriendRequestStore, func()) {
	if cfg.Store.Driver == "memory" {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		store := repository.NewMemoryStore()
		return store, store.FriendRequests(), func() {}
	}

	dsn := cfg.Database.DSN()

	if cfg.Database.Migrate {
		if err := repository.Migrate(dsn); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse database configuration")
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}

	// Connect to database
	db, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	return repository.NewUserRepository(db), repository.NewFriendRequestRepository(db), db.Close
}

// setupLogger configures zerolog logger
func setupLogger(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS for the configured origins
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", strings.Join([]string{
				http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions,
			}, ", "))
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
