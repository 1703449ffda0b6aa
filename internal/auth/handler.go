package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/platform/httpx"
	"github.com/mendaur/mendaur-admin/internal/rbac"
	"github.com/mendaur/mendaur-admin/internal/shared"
)

// Backend is the slice of the gateway client used for sign-in.
type Backend interface {
	Login(ctx context.Context, creds gateway.Credentials) (gateway.LoginResponse, error)
	Logout(ctx context.Context, token string) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	store          *Store
	backend        Backend
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	guard          rbac.Guard
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, store *Store, backend Backend, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		store:          store,
		backend:        backend,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.csrf)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.me)
}

type meResponse struct {
	Identity    *Identity            `json:"identity"`
	Affordances map[string]bool      `json:"affordances"`
	CSRFToken   string               `json:"csrf_token"`
	Flash       *shared.FlashMessage `json:"flash,omitempty"`
}

func (h *Handler) csrf(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds gateway.Credentials
	if err := httpx.DecodeJSON(r, &creds); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(creds); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				fields[fieldErr.Field()] = fieldErr.Tag()
			}
		}
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{"success": false, "message": "Data login tidak valid", "errors": fields})
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	resp, err := h.backend.Login(r.Context(), creds)
	if err != nil {
		var failure *gateway.Failure
		switch {
		case errors.As(err, &failure) && failure.Status < http.StatusInternalServerError:
			httpx.Fail(w, http.StatusUnauthorized, "Email atau password tidak valid")
		case gateway.IsTransport(err):
			h.logger.Warn("login backend unreachable", slog.Any("error", err))
			httpx.Fail(w, http.StatusBadGateway, "Server tidak dapat dihubungi")
		default:
			h.logger.Error("login backend", slog.Any("error", err))
			httpx.Fail(w, http.StatusBadGateway, "Gagal masuk, coba lagi")
		}
		return
	}

	h.sessionManager.Renew(sess)
	identity, err := h.store.Login(sess, resp)
	if err != nil {
		if logoutErr := h.backend.Logout(r.Context(), resp.Token); logoutErr != nil {
			h.logger.Warn("revoke refused token", slog.Any("error", logoutErr))
		}
		if errors.Is(err, ErrRoleNotAllowed) {
			httpx.Fail(w, http.StatusForbidden, "Akun ini tidak memiliki akses admin")
			return
		}
		h.logger.Error("store login", slog.Any("error", err))
		httpx.Fail(w, http.StatusBadGateway, "Respons login tidak valid")
		return
	}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Selamat datang kembali"})
	token, err := h.csrfManager.Rotate(sess)
	if err != nil {
		h.logger.Error("rotate csrf token", slog.Any("error", err))
	}
	h.logger.Info("admin signed in", slog.String("user", identity.UserID), slog.String("role", identity.Role))
	httpx.JSON(w, http.StatusOK, meResponse{
		Identity:    identity,
		Affordances: h.guard.Affordances(identity),
		CSRFToken:   token,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if identity := FromContext(r.Context()); identity != nil {
		if err := h.backend.Logout(r.Context(), identity.Token); err != nil {
			h.logger.Warn("backend logout", slog.Any("error", err))
		}
	}
	h.store.Logout(sess)
	h.sessionManager.Destroy(sess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	identity := FromContext(r.Context())
	if identity == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, meResponse{
		Identity:    identity,
		Affordances: h.guard.Affordances(identity),
		CSRFToken:   token,
		Flash:       sess.PopFlash(),
	})
}
