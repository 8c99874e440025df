package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"short-link-service/auth"
	"short-link-service/cache"
	"short-link-service/config"
	"short-link-service/handler"
	appLogger "short-link-service/logger"
	"short-link-service/middleware"
	redisClient "short-link-service/redis"
	"short-link-service/resolver"
	"short-link-service/shortcode"
	"short-link-service/store"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.MustLoadConfig()
	appLogger.Initialize(cfg.LogLevel)
	log.Info().Msg("Configuration loaded")

	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("auth.jwt_secret must be configured (SHORTLINK_AUTH_JWT_SECRET)")
	}

	// Authoritative store: required, the process cannot run without it
	db, err := store.Open(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	defer db.Close()

	links := store.NewLinkStore(db, cfg.Auth.BcryptCost)
	users := store.NewUserStore(db, cfg.Auth.BcryptCost)

	// Cache layer: optional, everything degrades to store-only without it
	rdb := redisClient.NewClient(cfg.Redis)
	local, err := cache.NewLocal(cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize local cache")
	}
	cacheLayer := cache.New(rdb, local, cfg.Cache,
		time.Duration(cfg.Redis.OperationTimeout)*time.Second)

	generator := shortcode.NewGenerator(cfg.ShortCode.Length)
	engine := resolver.New(links, cacheLayer, generator, cfg.ShortCode.MaxRetries)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLDays)*24*time.Hour)
	userAuth := middleware.NewUserAuth(jwtManager)
	rateLimiter := middleware.NewRateLimiter(cacheLayer, cfg.RateLimit)

	urlHandler := handler.NewURLHandler(engine, links, cacheLayer, db, cfg.WebServer)
	userHandler := handler.NewUserHandler(users, jwtManager)

	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.RequestLogger)
	r.Use(rateLimiter.Limit("general", cfg.RateLimit.General))

	r.HandleFunc("/health", urlHandler.Health).Methods("GET")

	authRoutes := r.PathPrefix("/api/auth").Subrouter()
	authRoutes.Use(rateLimiter.Limit("auth", cfg.RateLimit.Auth))
	authRoutes.HandleFunc("/register", userHandler.Register).Methods("POST")
	authRoutes.HandleFunc("/login", userHandler.Login).Methods("POST")

	shorten := r.PathPrefix("/api/shorten").Subrouter()
	shorten.Use(rateLimiter.Limit("create", cfg.RateLimit.Create))
	shorten.Use(userAuth.Optional)
	shorten.HandleFunc("", urlHandler.Shorten).Methods("POST")

	urls := r.PathPrefix("/api/urls").Subrouter()
	urls.Use(userAuth.Protect)
	urls.Handle("", rateLimiter.Limit("create", cfg.RateLimit.Create)(
		http.HandlerFunc(urlHandler.Create))).Methods("POST")
	urls.HandleFunc("", urlHandler.List).Methods("GET")
	urls.HandleFunc("/{shortCode}/analytics", urlHandler.Analytics).Methods("GET")
	urls.HandleFunc("/{shortCode}", urlHandler.Delete).Methods("DELETE")

	r.HandleFunc("/qr/{shortCode}", urlHandler.QRCode).Methods("GET")

	// Redirect route last so it cannot shadow the routes above
	r.HandleFunc("/{shortCode}", urlHandler.Redirect).Methods("GET")

	serverAddress := fmt.Sprintf("%s:%s", cfg.WebServer.IP, cfg.WebServer.Port)
	server := &http.Server{
		Addr:         serverAddress,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.WebServer.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebServer.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("address", serverAddress).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.WebServer.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if local != nil {
		local.Close()
	}
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis connection")
	}

	log.Info().Msg("Server stopped gracefully")
}
