package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/errtrack"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const healthTimeout = 2 * time.Second

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string
	Observer       HTTPObserver
	Reporter       errtrack.Reporter
	Health         map[string]HealthCheck
}

// NewRouter builds the public HTTP surface under /api/v1.
func NewRouter(h *Handler, cfg RouterConfig, log *logger.Logger) http.Handler {
	if cfg.Reporter == nil {
		cfg.Reporter = errtrack.Nop{}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Recoverer(log, cfg.Reporter))
	r.Use(RequestLogger(log.Named("HTTP"), cfg.Observer))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthHandler(cfg.Health))
	r.Get("/ws/notifications", h.notificationSocket)

	r.Route("/api/v1", func(api chi.Router) {
		setupPublicRoutes(api, h)
		api.Group(func(authed chi.Router) {
			authed.Use(Authenticate(h.svc.Tokens, h.rs))
			setupUserRoutes(authed, h)
			setupBookingRoutes(authed, h)
			setupContentRoutes(authed, h)
			setupAdminRoutes(authed, h)
		})
	})

	name := cfg.ServiceName
	if name == "" {
		name = "verbfy"
	}
	return otelhttp.NewHandler(r, name, otelhttp.WithFilter(func(req *http.Request) bool {
		return req.URL.Path != "/healthz"
	}))
}

func setupPublicRoutes(r chi.Router, h *Handler) {
	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/register", h.register)
		ar.Post("/login", h.login)
		ar.Post("/refresh", h.refresh)
		ar.Post("/logout", h.logout)
		ar.Post("/forgot-password", h.forgotPassword)
		ar.Post("/reset-password", h.resetPassword)
	})
	r.Route("/teachers", func(tr chi.Router) {
		tr.Get("/", h.listTeachers)
		tr.Get("/{id}", h.getTeacher)
		tr.Get("/{id}/availability", h.teacherAvailability)
		tr.Get("/{id}/slots", h.teacherSlots)
	})
	r.Post("/payments/webhook", h.paymentWebhook)
}

func setupUserRoutes(r chi.Router, h *Handler) {
	r.Get("/users/me", h.me)
	r.Patch("/users/me", h.updateMe)
	r.Put("/users/me/password", h.changePassword)

	r.Get("/availability", h.myAvailability)
	r.Put("/availability", h.setAvailability)

	r.Route("/notifications", func(nr chi.Router) {
		nr.Get("/", h.listNotifications)
		nr.Get("/unread-count", h.unreadCount)
		nr.Post("/read-all", h.markAllRead)
		nr.Post("/{id}/read", h.markRead)
		nr.Delete("/{id}", h.deleteNotification)
	})
}

func setupBookingRoutes(r chi.Router, h *Handler) {
	r.Route("/reservations", func(rr chi.Router) {
		rr.Post("/", h.book)
		rr.Get("/", h.listReservations)
		rr.Get("/{id}", h.getReservation)
		rr.Post("/{id}/confirm", h.confirmReservation)
		rr.Post("/{id}/cancel", h.cancelReservation)
		rr.Post("/{id}/complete", h.completeReservation)
		rr.Post("/{id}/no-show", h.noShowReservation)
		rr.Get("/{id}/access", h.accessStatus)
		rr.Post("/{id}/join", h.joinSession)
	})
	r.Route("/lessons", func(lr chi.Router) {
		lr.Get("/", h.listLessons)
		lr.Get("/{id}", h.getLesson)
		lr.Put("/{id}/notes", h.lessonNotes)
		lr.Post("/{id}/rating", h.rateLesson)
	})
	r.Route("/payments", func(pr chi.Router) {
		pr.Post("/", h.createPayment)
		pr.Get("/", h.listMyPayments)
		pr.Get("/{id}", h.getPayment)
	})
}

func setupContentRoutes(r chi.Router, h *Handler) {
	r.Route("/materials", func(mr chi.Router) {
		mr.Post("/", h.uploadMaterial)
		mr.Get("/", h.listMaterials)
		mr.Get("/{id}", h.getMaterial)
		mr.Patch("/{id}", h.updateMaterial)
		mr.Delete("/{id}", h.deleteMaterial)
		mr.Get("/{id}/download", h.downloadMaterial)
	})
	r.Route("/organizations", func(or chi.Router) {
		or.Post("/", h.createOrganization)
		or.Get("/", h.listOrganizations)
		or.Get("/{id}", h.getOrganization)
		or.Patch("/{id}", h.updateOrganization)
		or.Delete("/{id}", h.deactivateOrganization)
		or.Post("/{id}/members", h.addMember)
		or.Delete("/{id}/members/{userID}", h.removeMember)
	})
}

func setupAdminRoutes(r chi.Router, h *Handler) {
	guard := func(perm string) func(http.Handler) http.Handler {
		return RequirePermission(h.svc.Roles, perm, h.rs)
	}
	r.Route("/admin", func(ad chi.Router) {
		ad.Group(func(g chi.Router) {
			g.Use(guard(domain.PermUsersManage))
			g.Get("/users", h.adminListUsers)
			g.Post("/users/{id}/approve", h.adminApproveTeacher)
			g.Put("/users/{id}/active", h.adminSetActive)
			g.Put("/users/{id}/role", h.adminChangeRole)
		})
		ad.Group(func(g chi.Router) {
			g.Use(guard(domain.PermRolesManage))
			g.Get("/roles", h.listRoles)
			g.Post("/roles", h.createRole)
			g.Patch("/roles/{id}", h.updateRole)
			g.Delete("/roles/{id}", h.deleteRole)
		})
		ad.With(guard(domain.PermAuditRead)).Get("/audit-logs", h.listAuditLogs)
		ad.Group(func(g chi.Router) {
			g.Use(guard(domain.PermPaymentsManage))
			g.Get("/payments", h.adminListPayments)
			g.Post("/payments/{id}/refund", h.adminRefund)
		})
	})
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		writeJSON(w, status, map[string]interface{}{"status": state, "checks": results})
	}
}
