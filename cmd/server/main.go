package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sabeo/internal/config"
	"sabeo/internal/database"
	"sabeo/internal/handlers"
	"sabeo/internal/repository"
	"sabeo/internal/security"
	"sabeo/internal/service"
	"sabeo/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Guest attempts live on local disk, not in the relational store
	guestStore, err := storage.NewGuestAttemptStore(cfg.GuestDataPath)
	if err != nil {
		log.Fatalf("Failed to open guest attempt store: %v", err)
	}

	// Initialize repositories
	challengeRepo := repository.NewChallengeRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	completionRepo := repository.NewCompletionRepository(db)

	// Initialize services
	clock := service.SystemClock()
	schedulerCfg := service.SchedulerConfig{
		StartHourUTC: cfg.RevealStartHourUTC,
		WindowHours:  cfg.RevealWindowHours,
		SlotMinutes:  cfg.RevealSlotMinutes,
	}
	scheduler := service.NewScheduler(scheduleRepo, challengeRepo, schedulerCfg, nil)
	log.Printf("Reveal window: %02d:00 UTC + %dh, %d slots", cfg.RevealStartHourUTC, cfg.RevealWindowHours, cfg.SlotCount())

	delivery := service.NewWebPushDelivery(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber)
	notifier := service.NewNotifier(subscriptionRepo, delivery, cfg.DeliveryTimeout, cfg.NotifyIcon)

	trigger := service.NewTrigger(scheduler, scheduleRepo, notifier, clock, cfg.NotifyTitle, cfg.NotifyBody)
	attemptService := service.NewAttemptService(attemptRepo, guestStore, challengeRepo, cfg.MaxAttemptRows)
	rankingService := service.NewRankingService(completionRepo, challengeRepo, clock)

	guestTokens := security.NewGuestTokens(cfg.GuestTokenSecret, cfg.GuestTokenDuration)
	limiter := security.NewRateLimiter(60, time.Minute)

	// Initialize handlers
	middleware := handlers.NewMiddleware(cfg.ServiceToken, guestTokens, limiter, cfg.TrustProxyHeaders)
	orchestrationHandler := handlers.NewOrchestrationHandler(scheduler, trigger, notifier, challengeRepo, clock)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionRepo, notifier, cfg.NotifyTitle)
	gameHandler := handlers.NewGameHandler(challengeRepo, attemptService, rankingService, guestTokens)
	healthHandler := handlers.NewHealthHandler(db)

	// Setup routes
	mux := http.NewServeMux()

	// Orchestration routes (poller-facing, service token)
	mux.HandleFunc("POST /api/schedule", middleware.RequireService(orchestrationHandler.EnsureSchedule))
	mux.HandleFunc("POST /api/trigger", middleware.RequireService(orchestrationHandler.TriggerReveal))
	mux.HandleFunc("POST /api/notify", middleware.RequireService(orchestrationHandler.Notify))
	mux.HandleFunc("POST /api/challenge", middleware.RequireService(orchestrationHandler.CreateChallenge))

	// Player routes
	mux.HandleFunc("POST /api/guest", middleware.RateLimit(gameHandler.CreateGuest))
	mux.HandleFunc("POST /api/subscribe", middleware.RequirePlayer(middleware.RateLimit(subscriptionHandler.Subscribe)))
	mux.HandleFunc("POST /api/unsubscribe", middleware.RequirePlayer(middleware.RateLimit(subscriptionHandler.Unsubscribe)))
	mux.HandleFunc("GET /api/challenge/latest", gameHandler.LatestChallenge)
	mux.HandleFunc("GET /api/challenge/{id}/attempts", middleware.RequirePlayer(gameHandler.GetBoard))
	mux.HandleFunc("POST /api/challenge/{id}/attempts", middleware.RequirePlayer(middleware.RateLimit(gameHandler.SubmitAttempt)))
	mux.HandleFunc("POST /api/challenge/{id}/complete", middleware.RequirePlayer(middleware.RateLimit(gameHandler.Complete)))
	mux.HandleFunc("GET /api/ranking", gameHandler.SeasonRanking)
	mux.HandleFunc("GET /api/ranking/daily", gameHandler.DailyRanking)

	mux.HandleFunc("GET /healthz", healthHandler.Health)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Let in-flight notification fan-outs settle before exit
	notifier.Wait()
	log.Println("Server stopped")
}
