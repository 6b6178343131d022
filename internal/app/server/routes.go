package server

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/lavaderos/turnos-backend/internal/http/handlers/auth"
	"github.com/lavaderos/turnos-backend/internal/http/handlers/booking"
	"github.com/lavaderos/turnos-backend/internal/http/handlers/dashboard"
	"github.com/lavaderos/turnos-backend/internal/http/handlers/platform"
	"github.com/lavaderos/turnos-backend/internal/http/handlers/proofs"
	"github.com/lavaderos/turnos-backend/internal/http/handlers/public"
	"github.com/lavaderos/turnos-backend/internal/http/handlers/site"
	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/models"
	"github.com/lavaderos/turnos-backend/internal/services"
)

// Services bundles the service layer for route registration.
type Services struct {
	Identity  *services.IdentityService
	Lifecycle *services.LifecycleService
	Payments  *services.PaymentsService
	Booking   *services.BookingService
	Schedule  *services.ScheduleService
	Platform  *services.PlatformService
	Dashboard *services.DashboardService
}

// RegisterRoutes mounts every route of the application.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s *Services, sessionTTL time.Duration) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Open endpoints
		r.Get("/sites", public.NewSites(logger, s.Schedule).ServeHTTP)
		r.Get("/sites/{siteID}/slots", public.NewAvailableSlots(logger, s.Booking).ServeHTTP)
		r.Get("/platform-info", public.NewInfo(logger, s.Platform).ServeHTTP)

		r.With(middlewarectx.AuthenticateOptional(s.Identity)).
			Get("/auth/session", auth.NewSession(logger).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware)
			r.Post("/auth/register", auth.NewRegisterCustomer(logger, s.Identity).ServeHTTP)
			r.Post("/auth/register-operator", auth.NewRegisterOperator(logger, s.Lifecycle).ServeHTTP)
			r.Post("/auth/login", auth.NewLogin(logger, s.Identity, sessionTTL).ServeHTTP)
			r.Post("/auth/provenance", auth.NewProvenance(logger, s.Identity, sessionTTL).ServeHTTP)
		})
		r.Post("/auth/logout", auth.NewLogout(logger, s.Identity).ServeHTTP)

		// Any authenticated principal
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.Authenticate(logger, s.Identity))

			r.Get("/auth/me", auth.NewMe(logger).ServeHTTP)
			r.Get("/proofs/subscription/{proofID}/image", proofs.NewSubscriptionImage(logger, s.Payments).ServeHTTP)
			r.Get("/proofs/slot/{proofID}/image", proofs.NewSlotImage(logger, s.Payments).ServeHTTP)

			// Customer routes
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleCustomer))
				r.Get("/me/slots", booking.NewMySlots(logger, s.Booking).ServeHTTP)
				r.Get("/me/dashboard", dashboard.NewCustomer(logger, s.Dashboard).ServeHTTP)
				r.Post("/slots/{slotID}/reserve", booking.NewReserve(logger, s.Booking).ServeHTTP)
				r.Post("/slots/{slotID}/cancel", booking.NewCancel(logger, s.Booking).ServeHTTP)
				r.Post("/slots/{slotID}/proof", booking.NewSubmitProof(logger, s.Payments).ServeHTTP)
			})

			// Operator routes
			r.Route("/site", func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleOperator, models.RolePlatformAdmin))
				r.Get("/config", site.NewConfig(logger, s.Schedule).ServeHTTP)
				r.Put("/config", site.NewUpdateConfig(logger, s.Schedule).ServeHTTP)
				r.Put("/open", site.NewOpen(logger, s.Schedule).ServeHTTP)
				r.Get("/non-working-days", site.NewNonWorkingList(logger, s.Schedule).ServeHTTP)
				r.Post("/non-working-days", site.NewNonWorkingAdd(logger, s.Schedule).ServeHTTP)
				r.Delete("/non-working-days/{dayID}", site.NewNonWorkingRemove(logger, s.Schedule).ServeHTTP)
				r.Get("/slots", site.NewSlots(logger, s.Schedule).ServeHTTP)
				r.Post("/slots/generate", site.NewGenerate(logger, s.Schedule).ServeHTTP)
				r.Post("/slots/{slotID}/cancel", site.NewCancel(logger, s.Booking).ServeHTTP)
				r.Get("/invoice", site.NewInvoice(logger, s.Payments).ServeHTTP)
				r.Post("/invoice/proof", site.NewSubmitProof(logger, s.Payments).ServeHTTP)
				r.Get("/proofs", site.NewQueue(logger, s.Payments).ServeHTTP)
				r.Post("/proofs/{proofID}/approve", site.NewApprove(logger, s.Payments).ServeHTTP)
				r.Post("/proofs/{proofID}/reject", site.NewReject(logger, s.Payments).ServeHTTP)
				r.Get("/dashboard", dashboard.NewOperator(logger, s.Dashboard).ServeHTTP)
			})

			// Platform admin routes
			r.Route("/platform", func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RolePlatformAdmin))
				r.Get("/operators", platform.NewOperatorsList(logger, s.Lifecycle).ServeHTTP)
				r.Patch("/operators/{operatorID}", platform.NewOperatorUpdate(logger, s.Lifecycle).ServeHTTP)
				r.Delete("/operators/{operatorID}", platform.NewOperatorDelete(logger, s.Lifecycle).ServeHTTP)
				r.Post("/operators/{operatorID}/toggle", platform.NewToggle(logger, s.Lifecycle).ServeHTTP)
				r.Get("/sites", platform.NewSitesList(logger, s.Lifecycle).ServeHTTP)
				r.Get("/proofs", platform.NewQueue(logger, s.Payments).ServeHTTP)
				r.Post("/proofs/{proofID}/approve", platform.NewApprove(logger, s.Payments).ServeHTTP)
				r.Post("/proofs/{proofID}/reject", platform.NewReject(logger, s.Payments).ServeHTTP)
				r.Get("/config", platform.NewConfig(logger, s.Platform).ServeHTTP)
				r.Put("/config", platform.NewConfigUpdate(logger, s.Platform).ServeHTTP)
				r.Get("/dashboard", dashboard.NewPlatform(logger, s.Dashboard).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
