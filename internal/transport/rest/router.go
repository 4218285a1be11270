package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/luchovc/agency-portal/internal/auth"
	"github.com/luchovc/agency-portal/internal/payroll"
	"github.com/luchovc/agency-portal/internal/rank"
	"github.com/luchovc/agency-portal/internal/sysconfig"
	"github.com/luchovc/agency-portal/internal/timesession"
	"github.com/luchovc/agency-portal/internal/transport/middleware"
	"github.com/luchovc/agency-portal/internal/transport/swagger"
	"github.com/luchovc/agency-portal/internal/user"
)

// Handlers bundles every feature handler the router mounts.
type Handlers struct {
	Auth      *auth.Handler
	Session   *timesession.Handler
	Payroll   *payroll.Handler
	Rank      *rank.Handler
	User      *user.Handler
	Sysconfig *sysconfig.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Public auth routes
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/register", h.Auth.Register)
			sr.Post("/verification-code", h.Auth.RequestVerificationCode)
			sr.Get("/availability", h.Auth.CheckAvailability)
			sr.Post("/refresh", h.Auth.RefreshToken)
		})

		// Protected routes
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Post("/auth/logout", h.Auth.Logout)

			// Time tracking
			pr.Route("/sessions", func(sr chi.Router) {
				sr.Group(func(tr chi.Router) {
					tr.Use(middleware.RequirePermission(rank.PermTrackTime))
					tr.Post("/start", h.Session.Start)
					tr.Post("/pause", h.Session.Pause)
					tr.Post("/resume", h.Session.Resume)
					tr.Post("/stop", h.Session.Stop)
					tr.Delete("/cancel", h.Session.Cancel)
					tr.Get("/me", h.Session.Current)
				})

				sr.Group(func(ar chi.Router) {
					ar.Use(middleware.RequirePermission(rank.PermManageSessions, rank.PermViewDashboard))
					ar.Get("/active", h.Session.ListOpen)
				})
			})

			// Payment ledger
			pr.Route("/payroll", func(sr chi.Router) {
				sr.Use(middleware.RequirePermission(rank.PermManagePayments))
				sr.Get("/pending", h.Payroll.ListPending)
				sr.Post("/mark-paid", h.Payroll.MarkPaid)
				sr.Get("/history", h.Payroll.History)
				sr.Delete("/history", h.Payroll.ClearHistory)
			})

			// Ranks are readable by any authenticated user; writes are gated
			pr.Get("/ranks", h.Rank.ListRanks)
			pr.Get("/ranks/permissions", h.Rank.ListPermissions)
			pr.Get("/ranks/{name}", h.Rank.GetRank)
			pr.Group(func(rr chi.Router) {
				rr.Use(middleware.RequirePermission(rank.PermManageRanks))
				rr.Post("/ranks", h.Rank.CreateRank)
				rr.Patch("/ranks/{name}", h.Rank.UpdateRank)
				rr.Delete("/ranks/{name}", h.Rank.DeleteRank)
			})

			// Promotions
			pr.Group(func(rr chi.Router) {
				rr.Use(middleware.RequirePermission(rank.PermManagePromotions))
				rr.Post("/promotions", h.Rank.ChangeRole)
				rr.Get("/promotions", h.Rank.ListPromotionLogs)
			})

			// User administration; /users/me stays open to any actor
			pr.Route("/users", func(ur chi.Router) {
				ur.Get("/me", h.Auth.Me)

				ur.Group(func(mr chi.Router) {
					mr.Use(middleware.RequirePermission(rank.PermManageUsers))
					mr.Get("/", h.User.ListUsers)
					mr.Post("/", h.User.CreateUser)
					mr.Get("/{id}", h.User.GetUser)
					mr.Patch("/{id}", h.User.UpdateUser)
					mr.Delete("/{id}", h.User.DeleteUser)
				})
			})

			// Portal settings
			pr.Get("/config", h.Sysconfig.GetConfig)
			pr.Get("/business-hours", h.Sysconfig.ListBusinessHours)
			pr.Get("/special-days", h.Sysconfig.ListSpecialDays)
			pr.Group(func(cr chi.Router) {
				cr.Use(middleware.RequirePermission(rank.PermManageConfig))
				cr.Put("/config", h.Sysconfig.UpdateConfig)
				cr.Put("/business-hours", h.Sysconfig.UpsertBusinessHour)
				cr.Post("/special-days", h.Sysconfig.CreateSpecialDay)
				cr.Delete("/special-days/{id}", h.Sysconfig.DeleteSpecialDay)
			})
		})
	})
}
