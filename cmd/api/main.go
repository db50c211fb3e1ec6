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

	"github.com/tavolo/reservations/internal/clock"
	"github.com/tavolo/reservations/internal/domain"
	"github.com/tavolo/reservations/internal/health"
	"github.com/tavolo/reservations/internal/http/handlers"
	httpmw "github.com/tavolo/reservations/internal/http/middleware"
	"github.com/tavolo/reservations/internal/idempotency"
	"github.com/tavolo/reservations/internal/mailer"
	"github.com/tavolo/reservations/internal/notify"
	"github.com/tavolo/reservations/internal/policy"
	"github.com/tavolo/reservations/internal/repo/postgres"
	"github.com/tavolo/reservations/internal/service"
	"github.com/tavolo/reservations/pkg/config"
	"github.com/tavolo/reservations/pkg/database"
	"github.com/tavolo/reservations/pkg/logger"
	mw "github.com/tavolo/reservations/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	clk, err := clock.New(cfg.Reservations.CivilTimezone)
	if err != nil {
		logger.Error("Failed to load civil timezone", "error", err)
		os.Exit(1)
	}

	// Repositories
	reservationsRepo := postgres.NewReservationsRepo(pool)
	tokensRepo := postgres.NewTokensRepo(pool)
	tenantsRepo := postgres.NewTenantsRepo(pool)
	customersRepo := postgres.NewCustomersRepo(pool)

	resolver := policy.NewResolver(tenantsRepo, policy.Policy{
		MaxAutoConfirmPeople: cfg.Reservations.DefaultMaxAutoParty,
		CutoffTime:           cfg.Reservations.DefaultCutoff,
	})

	dispatcher := buildDispatcher(cfg)
	mail := buildMailer(cfg)

	// Services
	reservationService := service.NewReservationService(
		reservationsRepo, tokensRepo, tenantsRepo, customersRepo,
		resolver, dispatcher, mail, clk, cfg,
	)
	sweeperService := service.NewSweeperService(
		reservationsRepo, tokensRepo, reservationService, clk,
		cfg.Reservations.AutoCloseBufferMin, cfg.Reservations.SweepBatchLimit,
	)

	// Handlers
	reservationsHandler := handlers.NewReservationsHandler(reservationService)
	actionsHandler := handlers.NewActionsHandler(reservationService)
	settingsHandler := handlers.NewSettingsHandler(tenantsRepo)
	customersHandler := handlers.NewCustomersHandler(customersRepo)
	authHandler := handlers.NewAuthHandler(tenantsRepo, cfg.Auth.JWTSecret, cfg.Auth.SessionTokenTTL)
	sweepHandler := handlers.NewSweepHandler(sweeperService, cfg.Auth.SweepTriggerKey)

	// Readiness state, kept current by a background watcher
	ready := health.NewState()
	go ready.Watch(ctx, pool, 15*time.Second)

	linkLimiter := httpmw.NewRateLimiter(pool, httpmw.RateLimitConfig{
		Requests: 30,
		Window:   time.Minute,
		KeyFunc:  httpmw.ClientIPKeyFunc,
	})

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("reservations"))
	r.Use(mw.Logging)
	r.Use(mw.ReadinessGate(ready))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "Idempotency-Key"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !ready.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"not ready"}`))
			return
		}
		w.Write([]byte(`{"status":"ready"}`))
	})

	// Owner API
	r.Route("/v1/reservations", func(r chi.Router) {
		r.Use(httpmw.RequireTenant(tenantsRepo, cfg.Auth.JWTSecret))
		r.With(mw.Idempotency(buildIdempotencyStore(cfg))).Post("/", reservationsHandler.Create)
		r.Get("/", reservationsHandler.List)
		r.Get("/{id}", reservationsHandler.Get)
		r.Post("/{id}/confirm", reservationsHandler.Transition(domain.ReservationConfirmed))
		r.Post("/{id}/decline", reservationsHandler.Transition(domain.ReservationDeclined))
		r.Post("/{id}/complete", reservationsHandler.Transition(domain.ReservationCompleted))
		r.Post("/{id}/no-show", reservationsHandler.Transition(domain.ReservationNoShow))
		r.Post("/{id}/cancel", reservationsHandler.Transition(domain.ReservationCancelled))
	})

	r.Post("/v1/auth/session", authHandler.Session)

	r.Route("/v1/settings", func(r chi.Router) {
		r.Use(httpmw.RequireTenant(tenantsRepo, cfg.Auth.JWTSecret))
		r.Get("/", settingsHandler.Get)
		r.Patch("/", settingsHandler.Update)
	})

	r.Route("/v1/customers", func(r chi.Router) {
		r.Use(httpmw.RequireTenant(tenantsRepo, cfg.Auth.JWTSecret))
		r.Get("/{phone}", customersHandler.Get)
	})

	// Public click links
	r.Route("/r/{token}", func(r chi.Router) {
		r.Use(linkLimiter.Middleware())
		r.Get("/confirm", actionsHandler.Confirm)
		r.Get("/decline", actionsHandler.Decline)
	})

	// Ops
	r.Post("/internal/sweep", sweepHandler.Trigger)

	if cfg.Reservations.SweepInterval > 0 {
		go runSweepTicker(ctx, sweeperService, cfg.Reservations.SweepInterval)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down reservations service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Reservations service listening", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func buildDispatcher(cfg *config.Config) notify.Dispatcher {
	if cfg.Webhook.URL != "" {
		return notify.NewWebhookDispatcher(cfg.Webhook.URL, cfg.Webhook.Timeout)
	}
	if cfg.NATS.URL != "" {
		d, err := notify.NewNATSDispatcher(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS, falling back to dev dispatcher", "error", err)
			return notify.NewDevDispatcher()
		}
		return d
	}
	return notify.NewDevDispatcher()
}

func buildMailer(cfg *config.Config) mailer.Service {
	if cfg.Mail.DevMode {
		return mailer.NewDevMailer()
	}
	if cfg.Mail.MailerSendKey != "" {
		return mailer.NewMailerSendMailer(cfg.Mail.MailerSendKey, "Tavolo", cfg.Mail.SMTPFrom)
	}
	return mailer.NewSMTPMailer(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.SMTPFrom, cfg.Mail.SMTPUser, cfg.Mail.SMTPPass)
}

func buildIdempotencyStore(cfg *config.Config) mw.IdempotencyStore {
	store, err := idempotency.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		logger.Error("Failed to configure redis, idempotency replay disabled", "error", err)
		return noopIdempotencyStore{}
	}
	return store
}

type noopIdempotencyStore struct{}

func (noopIdempotencyStore) Get(context.Context, string) (string, error) { return "", nil }
func (noopIdempotencyStore) Set(context.Context, string, string, time.Duration) error {
	return nil
}

func runSweepTicker(ctx context.Context, sweeper service.SweeperService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sweeper.Sweep(ctx); err != nil {
				logger.Error("scheduled sweep failed", "error", err)
			}
		}
	}
}
