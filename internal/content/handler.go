package content

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/confirm"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/platform/httpx"
	"github.com/mendaur/mendaur-admin/internal/rbac"
)

const maxUpload = 5 << 20

// Handler exposes content management over HTTP.
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

// MountRoutes registers content routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/{resource}", func(r chi.Router) {
		r.Use(h.requireResource)
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) requireResource(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perm := Permission(chi.URLParam(r, "resource"))
		if perm == "" {
			httpx.Fail(w, http.StatusNotFound, "Data tidak dikenal")
			return
		}
		h.rbac.RequireAll(perm)(next).ServeHTTP(w, r)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.List(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "resource"), r.URL.Query().Get("search"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Data: listing})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "resource"), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Data: record})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	sub, err := readSubmission(w, r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Format permintaan tidak valid")
		return
	}
	result, err := h.service.Create(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "resource"), sub)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, httpx.Envelope{Success: true, Message: "Data berhasil ditambahkan", Data: result})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	sub, err := readSubmission(w, r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Format permintaan tidak valid")
		return
	}
	result, err := h.service.Update(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "resource"), chi.URLParam(r, "id"), sub)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "Data berhasil diperbarui", Data: result})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirmation string `json:"confirmation"`
	}
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
			httpx.Fail(w, http.StatusBadRequest, "Format permintaan tidak valid")
			return
		}
	}
	if body.Confirmation == "" {
		body.Confirmation = r.URL.Query().Get("confirmation")
	}
	listing, err := h.service.Delete(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "resource"), chi.URLParam(r, "id"), body.Confirmation)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "Data berhasil dihapus", Data: listing})
}

// readSubmission accepts JSON or multipart bodies. The first file part of a
// multipart body is taken as the image upload.
func readSubmission(w http.ResponseWriter, r *http.Request) (Submission, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		sub := Submission{Fields: map[string]any{}}
		if err := httpx.DecodeJSON(r, &sub.Fields); err != nil {
			return Submission{}, err
		}
		return sub, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+1<<20)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return Submission{}, err
	}
	sub := Submission{Fields: make(map[string]any, len(r.MultipartForm.Value))}
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			sub.Fields[key] = values[0]
		}
	}
	for _, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		file, err := headers[0].Open()
		if err != nil {
			return Submission{}, err
		}
		data, err := io.ReadAll(io.LimitReader(file, maxUpload))
		_ = file.Close()
		if err != nil {
			return Submission{}, err
		}
		sub.Image = &gateway.File{
			Name:        headers[0].Filename,
			ContentType: headers[0].Header.Get("Content-Type"),
			Data:        data,
		}
		break
	}
	return sub, nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"message": "Data tidak valid",
			"errors":  verr.Fields,
		})
	case errors.Is(err, ErrConfirmationRequired):
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success":               false,
			"message":               "Ketik " + confirm.DeletePhrase + " untuk menghapus",
			"confirmation_required": true,
			"phrase":                confirm.DeletePhrase,
		})
	case errors.Is(err, ErrForbidden):
		httpx.Fail(w, http.StatusForbidden, "Anda tidak memiliki izin untuk tindakan ini")
	case errors.Is(err, ErrUnknownResource):
		httpx.Fail(w, http.StatusNotFound, "Data tidak dikenal")
	case errors.Is(err, ErrReadOnly):
		httpx.Fail(w, http.StatusMethodNotAllowed, "Data ini tidak dapat diubah")
	case errors.Is(err, ErrInFlight):
		httpx.Fail(w, http.StatusConflict, "Permintaan sedang diproses")
	default:
		if status, message, ok := gateway.StatusOf(err); ok {
			h.logger.Warn("content backend", slog.String("path", r.URL.Path), slog.Any("error", err))
			httpx.Fail(w, status, message)
			return
		}
		h.logger.Error("content", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
