package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mendaur/mendaur-admin/internal/approval"
	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/content"
	"github.com/mendaur/mendaur-admin/internal/dashboard"
	"github.com/mendaur/mendaur-admin/internal/observability"
	"github.com/mendaur/mendaur-admin/internal/platform/httpx"
	"github.com/mendaur/mendaur-admin/internal/shared"
	"github.com/mendaur/mendaur-admin/jobs"
	"github.com/mendaur/mendaur-admin/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthStore        *auth.Store
	AuthHandler      *auth.Handler
	ApprovalHandler  *approval.Handler
	ContentHandler   *content.Handler
	DashboardHandler *dashboard.Handler
	ReportHandler    *report.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router for the admin console API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		AuthStore:      params.AuthStore,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.ApprovalHandler != nil {
		r.Route("/approvals", params.ApprovalHandler.MountRoutes)
	}
	if params.ContentHandler != nil {
		r.Route("/content", params.ContentHandler.MountRoutes)
	}
	if params.DashboardHandler != nil {
		r.Route("/dashboard", params.DashboardHandler.MountDashboard)
	}
	r.Route("/reports", func(r chi.Router) {
		if params.ReportHandler != nil {
			params.ReportHandler.MountRoutes(r)
		}
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountReports(r)
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, "Halaman tidak ditemukan")
	})

	return r
}
