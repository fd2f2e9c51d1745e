package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/parkpass/parkpass-reservations/internal/cache"
	"github.com/parkpass/parkpass-reservations/internal/domain"
	"github.com/parkpass/parkpass-reservations/internal/handlers"
	"github.com/parkpass/parkpass-reservations/internal/payments"
	"github.com/parkpass/parkpass-reservations/internal/repository"
	"github.com/parkpass/parkpass-reservations/internal/service"
	"github.com/parkpass/parkpass-reservations/internal/token"
	"github.com/parkpass/parkpass-reservations/pkg/config"
	"github.com/parkpass/parkpass-reservations/pkg/database"
	"github.com/parkpass/parkpass-reservations/pkg/events"
	"github.com/parkpass/parkpass-reservations/pkg/logger"
	mw "github.com/parkpass/parkpass-reservations/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	idempotencyStore, err := cache.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer idempotencyStore.Close()

	// Repositories
	reservationRepo := repository.NewReservationRepository(pool)
	lotRepo := repository.NewLotRepository(pool)
	planRepo := repository.NewRatePlanRepository(pool)
	checkEventRepo := repository.NewCheckEventRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)

	// Services
	issuer := token.NewIssuer(reservationRepo)
	reservationSvc := service.NewReservationService(reservationRepo, lotRepo, planRepo, issuer, eventBus)
	checkSvc := service.NewCheckService(reservationRepo, checkEventRepo, eventBus)
	catalogSvc := service.NewCatalogService(lotRepo, planRepo)

	var paymentSvc payments.Service
	if cfg.Stripe.SecretKey != "" {
		paymentSvc = payments.NewStripeService(paymentRepo, cfg.Stripe.SecretKey, cfg.Stripe.Currency)
	} else {
		paymentSvc = payments.NewMockService(paymentRepo)
	}

	h := handlers.New(reservationSvc, checkSvc, catalogSvc, paymentSvc, cfg.Auth.JWTSecret)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("reservations"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/reservations", func(r chi.Router) {
		r.Use(h.RequireJWT(domain.RoleCustomer))
		r.With(mw.Idempotency(idempotencyStore)).Post("/", h.CreateReservation)
		r.Get("/", h.ListReservations)
		r.Get("/{id}", h.GetReservation)
		r.With(h.RequireJWT(domain.RoleAdmin)).Patch("/{id}", h.UpdateReservation)
		r.Post("/{id}/cancel", h.CancelReservation)
		r.Post("/{id}/payment-intent", h.CreatePaymentIntent)
	})

	r.Route("/checks", func(r chi.Router) {
		r.Use(h.RequireStaff)
		r.Post("/", h.ApplyCheck)
	})

	r.With(h.RequireJWT(domain.RoleAdmin)).Get("/check-events", h.ListCheckEvents)

	r.Route("/lots", func(r chi.Router) {
		r.Get("/", h.ListLots)
		r.With(h.RequireJWT(domain.RoleAdmin)).Post("/", h.CreateLot)
		r.Get("/{id}", h.GetLot)
		r.Get("/{id}/rateplans", h.ListRatePlans)
		r.With(h.RequireJWT(domain.RoleAdmin)).Post("/{id}/rateplans", h.CreateRatePlan)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down reservations service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Reservations service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting reservations service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Reservations service error", "error", err)
		os.Exit(1)
	}
}
