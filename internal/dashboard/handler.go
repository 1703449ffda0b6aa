package dashboard

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mendaur/mendaur-admin/internal/approval"
	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/platform/httpx"
	"github.com/mendaur/mendaur-admin/internal/rbac"
)

// Handler exposes the dashboard and report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountDashboard registers /dashboard routes.
func (h *Handler) MountDashboard(r chi.Router) {
	r.With(h.rbac.RequireAll(rbac.PermViewDashboard)).Get("/overview", h.overview)
}

// MountReports registers /reports routes.
func (h *Handler) MountReports(r chi.Router) {
	r.With(h.rbac.RequireAll(rbac.PermViewReports)).Get("/{kind}", h.report)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermExportReports))
		r.Get("/{kind}/export.csv", h.exportCSV)
		r.Get("/{kind}/export.pdf", h.exportPDF)
	})
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Overview(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Data: stats})
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	kind, err := approval.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rep, err := h.service.Report(r.Context(), auth.FromContext(r.Context()), kind, approval.ParseFilter(r.URL.Query()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Data: rep})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	kind, err := approval.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	rep, err := h.service.ExportCSV(r.Context(), auth.FromContext(r.Context()), kind, approval.ParseFilter(r.URL.Query()), &buf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.download(w, "text/csv; charset=utf-8", rep.Filename("csv"), buf.Bytes())
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	kind, err := approval.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rep, pdf, err := h.service.ExportPDF(r.Context(), auth.FromContext(r.Context()), kind, approval.ParseFilter(r.URL.Query()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.download(w, "application/pdf", rep.Filename("pdf"), pdf)
}

func (h *Handler) download(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		httpx.Fail(w, http.StatusForbidden, "Anda tidak memiliki izin untuk tindakan ini")
	case errors.Is(err, approval.ErrUnknownKind):
		httpx.Fail(w, http.StatusNotFound, "Jenis laporan tidak dikenal")
	case errors.Is(err, ErrRendererUnavailable):
		httpx.Fail(w, http.StatusServiceUnavailable, "Ekspor PDF tidak tersedia")
	default:
		if status, message, ok := gateway.StatusOf(err); ok {
			h.logger.Warn("dashboard backend", slog.String("path", r.URL.Path), slog.Any("error", err))
			httpx.Fail(w, status, message)
			return
		}
		h.logger.Error("dashboard", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Fail(w, http.StatusBadGateway, "Laporan gagal dibuat")
	}
}
