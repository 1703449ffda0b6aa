package approval

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/platform/httpx"
	"github.com/mendaur/mendaur-admin/internal/rbac"
)

// Handler exposes the approval queues over HTTP.
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

// MountRoutes registers approval routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/{kind}", func(r chi.Router) {
		r.Use(h.requireKind)
		r.Get("/", h.list)
		r.Get("/view", h.view)
		r.Get("/{id}/history", h.history)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
}

// requireKind resolves {kind} and applies its permission before the handler runs.
func (h *Handler) requireKind(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			httpx.Fail(w, http.StatusNotFound, "Jenis persetujuan tidak dikenal")
			return
		}
		h.rbac.RequireAll(kind.Permission())(next).ServeHTTP(w, r)
	})
}

func kindOf(r *http.Request) Kind {
	kind, _ := ParseKind(chi.URLParam(r, "kind"))
	return kind
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), auth.FromContext(r.Context()), kindOf(r), ParseFilter(r.URL.Query()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Data: page})
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.View(r.Context(), auth.FromContext(r.Context()), kindOf(r), ParseFilter(r.URL.Query()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Data: page})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.History(r.Context(), auth.FromContext(r.Context()), kindOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Data: logs})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	var in ApproveInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Format permintaan tidak valid")
		return
	}
	kind := kindOf(r)
	outcome, err := h.service.Approve(r.Context(), auth.FromContext(r.Context()), kind, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: kind.Label() + " berhasil disetujui", Data: outcome})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	var in RejectInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Format permintaan tidak valid")
		return
	}
	kind := kindOf(r)
	outcome, err := h.service.Reject(r.Context(), auth.FromContext(r.Context()), kind, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: kind.Label() + " berhasil ditolak", Data: outcome})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var confirmation *ConfirmationError
	var verr *ValidationError
	switch {
	case errors.As(err, &confirmation):
		httpx.JSON(w, http.StatusConflict, map[string]any{
			"success":               false,
			"message":               "Berat diubah, ketik ulang berat baru untuk konfirmasi",
			"confirmation_required": true,
			"phrase":                confirmation.Phrase,
			"berat_awal":            confirmation.Original,
			"berat_baru":            confirmation.Corrected,
		})
	case errors.As(err, &verr):
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"message": "Data tidak valid",
			"errors":  map[string]string{verr.Field: verr.Message},
		})
	case errors.Is(err, ErrForbidden):
		httpx.Fail(w, http.StatusForbidden, "Anda tidak memiliki izin untuk tindakan ini")
	case errors.Is(err, ErrNotPending):
		httpx.Fail(w, http.StatusConflict, "Pengajuan sudah diproses")
	case errors.Is(err, ErrInFlight):
		httpx.Fail(w, http.StatusConflict, "Pengajuan sedang diproses")
	case errors.Is(err, ErrUnknownKind):
		httpx.Fail(w, http.StatusNotFound, "Jenis persetujuan tidak dikenal")
	default:
		if status, message, ok := gateway.StatusOf(err); ok {
			h.logger.Warn("approval backend", slog.String("path", r.URL.Path), slog.Any("error", err))
			httpx.Fail(w, status, message)
			return
		}
		h.logger.Error("approval", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
