package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/shared"
)

type stubBackend struct {
	resp      gateway.LoginResponse
	err       error
	loggedOut []string
}

func (s *stubBackend) Login(ctx context.Context, creds gateway.Credentials) (gateway.LoginResponse, error) {
	return s.resp, s.err
}

func (s *stubBackend) Logout(ctx context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

type harness struct {
	router   http.Handler
	sessions *shared.SessionManager
	backend  *stubBackend
	cookie   *http.Cookie
}

func newHarness(t *testing.T, backend *stubBackend) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	store := auth.NewStore(nil)
	handler := auth.NewHandler(nil, store, backend, sessions, shared.NewCSRFManager("csrfsecret"))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, req)
			require.NoError(t, sessions.Commit(req.Context(), w, req, sess))
			for k, v := range rec.Header() {
				w.Header()[k] = v
			}
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	})
	r.Use(store.Middleware)
	r.Route("/auth", handler.MountRoutes)
	return &harness{router: r, sessions: sessions, backend: backend}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == h.sessions.CookieName() {
			if c.MaxAge < 0 {
				h.cookie = nil
			} else {
				h.cookie = c
			}
		}
	}
	return rec
}

func TestLoginValidation(t *testing.T) {
	h := newHarness(t, &stubBackend{})
	rec := h.do(t, http.MethodPost, "/auth/login", `{"email":"not-an-email","password":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Email"`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t, &stubBackend{err: &gateway.Failure{Status: http.StatusUnauthorized, Message: "Unauthorized"}})
	rec := h.do(t, http.MethodPost, "/auth/login", `{"email":"admin@mendaur.id","password":"wrongpass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email atau password tidak valid")
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestLoginRefusesNasabah(t *testing.T) {
	resp := adminLogin()
	resp.Role = "nasabah"
	backend := &stubBackend{resp: resp}
	h := newHarness(t, backend)

	rec := h.do(t, http.MethodPost, "/auth/login", `{"email":"user@mendaur.id","password":"secret12"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, []string{"tok-1"}, backend.loggedOut)

	rec = h.do(t, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginMeLogout(t *testing.T) {
	backend := &stubBackend{resp: adminLogin()}
	h := newHarness(t, backend)

	rec := h.do(t, http.MethodPost, "/auth/login", `{"email":"admin@mendaur.id","password":"secret12"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, h.cookie)

	var login struct {
		Identity    auth.Identity   `json:"identity"`
		Affordances map[string]bool `json:"affordances"`
		CSRFToken   string          `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, "42", login.Identity.UserID)
	assert.True(t, login.Affordances["approve_deposit"])
	assert.False(t, login.Affordances["approve_withdrawal"])
	assert.NotEmpty(t, login.CSRFToken)
	assert.NotContains(t, rec.Body.String(), "tok-1")

	rec = h.do(t, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Selamat datang kembali")

	rec = h.do(t, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"tok-1"}, backend.loggedOut)
	assert.Nil(t, h.cookie)

	rec = h.do(t, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeLogsCSRFFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	handler := auth.NewHandler(logger, auth.NewStore(nil), &stubBackend{}, nil, shared.NewCSRFManager("csrfsecret"))

	identity := auth.NewIdentity("tok-1", "admin", []byte(`{"id":42}`), nil, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.ContextWithIdentity(req.Context(), identity)))
		})
	})
	r.Route("/auth", handler.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "ensure csrf token")
}
