package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"driveu-backend/internal/bookings"
	"driveu-backend/internal/config"
	"driveu-backend/internal/tracking"
	"driveu-backend/internal/users"
	"driveu-backend/migrations"
	"driveu-backend/pkg/db"
	"driveu-backend/pkg/jwt"
	"driveu-backend/pkg/kafka"
	rredis "driveu-backend/pkg/redis"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// ── 1. JWT secret ──
	if err := jwt.Init(cfg.JWTSecret, cfg.TokenTTL); err != nil {
		log.Fatal(err)
	}

	// ── 2. PostgreSQL ──
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := database.RunMigrations(ctx, migrations.FS); err != nil {
		log.Fatal("migrations failed:", err)
	}

	// ── 3. Redis ──
	redisClient, err := rredis.NewClient(cfg.RedisAddr)
	if err != nil {
		log.Fatal(err)
	}
	defer redisClient.Close()

	// ── 4. Kafka ──
	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
	if err := kafkaClient.EnsureTopics(ctx,
		kafka.TopicBookingRequested,
		kafka.TopicBookingAccepted,
		kafka.TopicTripCompleted,
	); err != nil {
		log.Fatal(err)
	}

	// Audit log of finished trips; also a liveness check for the broker.
	kafkaClient.Subscribe(ctx, kafka.TopicTripCompleted, "driveu-audit", func(msg []byte) error {
		log.Printf("[audit] trip completed: %s", msg)
		return nil
	})

	// ── 5. Services ──
	wsHub := tracking.NewHub()

	userStore := users.NewPostgresStore(database.Pool)
	userSvc := users.NewService(userStore, redisClient, cfg)

	bookingStore := bookings.NewPostgresStore(database.Pool)
	bookingSvc := bookings.NewService(bookingStore, userStore, kafkaClient, redisClient, wsHub, cfg)

	// Driver location updates fan out to watchers of in-progress trips.
	userSvc.SetTracker(bookingSvc)

	// ── 6. HTTP router ──
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(jwt.OptionalAuth)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"driveu-backend"}`))
	})

	r.Mount("/users", users.NewHandler(userSvc).Routes())
	r.Mount("/bookings", bookings.NewHandler(bookingSvc).Routes())
	r.Mount("/ws", wsHub.Routes())

	// ── 7. Start server ──
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Printf("driveu-backend listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// ── 8. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutCancel()
	srv.Shutdown(shutCtx)
}
