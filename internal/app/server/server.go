// Package server assembles the booking backend: storage, sessions,
// object store, broker, services and the HTTP router, plus the
// lifecycle of the process.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/lavaderos/turnos-backend/internal/config"
	"github.com/lavaderos/turnos-backend/internal/lib/jwt"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/migrations"
	"github.com/lavaderos/turnos-backend/internal/notify"
	"github.com/lavaderos/turnos-backend/internal/objectstore"
	"github.com/lavaderos/turnos-backend/internal/provenance"
	"github.com/lavaderos/turnos-backend/internal/services"
	"github.com/lavaderos/turnos-backend/internal/sessions"
	"github.com/lavaderos/turnos-backend/internal/storage/repository"
)

// App owns the HTTP server and the resources it is built on.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
}

// New wires the whole application from config. The message broker is
// optional: a failed connection only disables review events.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	sessionStore, err := sessions.InitServer(ctx, cfg.RedisConnection, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	blobs, err := objectstore.New(cfg.UploadsDir)
	if err != nil {
		return nil, err
	}

	var events services.EventPublisher
	if cfg.RabbitConnection.URL != "" {
		conn, err := notify.Connect(cfg.RabbitConnection.URL, cfg.ConnectRetries, cfg.RetryDelay)
		if err != nil {
			logger.Warn("broker unavailable, review events disabled", sl.Err(err))
		} else {
			ch, err := notify.SetupChannel(conn, notify.ReviewQueues())
			if err != nil {
				logger.Warn("broker setup failed, review events disabled", sl.Err(err))
			} else {
				events = notify.NewPublisher(ch)
			}
		}
	}

	jwtMaker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	providerClient := provenance.NewClient(cfg.ProvenanceURL)

	lifecycleService := services.NewLifecycleService(db, logger)
	identityService := services.NewIdentityService(db, sessionStore, lifecycleService, providerClient, jwtMaker, logger)
	paymentsService := services.NewPaymentsService(db, blobs, lifecycleService, events, logger)
	bookingService := services.NewBookingService(db, logger)
	scheduleService := services.NewScheduleService(db, logger)
	platformService := services.NewPlatformService(db, logger)
	dashboardService := services.NewDashboardService(db)

	if err := identityService.Bootstrap(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		logger.Warn("admin bootstrap skipped", sl.Err(err))
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Identity:  identityService,
		Lifecycle: lifecycleService,
		Payments:  paymentsService,
		Booking:   bookingService,
		Schedule:  scheduleService,
		Platform:  platformService,
		Dashboard: dashboardService,
	}, cfg.SessionTTL)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		return err
	}
}
